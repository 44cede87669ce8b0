package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/peerfin/lending-engine/internal/domain"
	"github.com/peerfin/lending-engine/internal/ledger"
)

type MockLendingService struct {
	mock.Mock
}

func (m *MockLendingService) CreateOffer(ctx context.Context, actor domain.Actor, request *domain.CreateOfferRequest) (*domain.Offer, []*domain.ScheduleEntry, error) {
	args := m.Called(ctx, actor, request)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Offer), args.Get(1).([]*domain.ScheduleEntry), args.Error(2)
}

func (m *MockLendingService) AcceptOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error) {
	args := m.Called(ctx, offerID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockLendingService) DeclineOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error) {
	args := m.Called(ctx, offerID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockLendingService) CancelOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error) {
	args := m.Called(ctx, offerID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockLendingService) GetOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error) {
	args := m.Called(ctx, offerID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockLendingService) ListOffers(ctx context.Context, actor domain.Actor) ([]*domain.Offer, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Offer), args.Error(1)
}

func (m *MockLendingService) GetSchedule(ctx context.Context, offerID uuid.UUID) ([]*domain.ScheduleEntry, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduleEntry), args.Error(1)
}

func (m *MockLendingService) SubmitPayment(ctx context.Context, offerID uuid.UUID, actor domain.Actor, request *domain.SubmitPaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, offerID, actor, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockLendingService) ReviewPayment(ctx context.Context, paymentID uuid.UUID, actor domain.Actor, approve bool) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID, actor, approve)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockLendingService) ListPayments(ctx context.Context, offerID uuid.UUID, actor domain.Actor) ([]*domain.Payment, error) {
	args := m.Called(ctx, offerID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockLendingService) GetLedgerSummary(ctx context.Context, offerID uuid.UUID) (*ledger.Summary, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Summary), args.Error(1)
}

// NewMockLendingService creates a new mock lending service instance
func NewMockLendingService() *MockLendingService {
	return &MockLendingService{}
}
