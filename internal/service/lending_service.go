package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/peerfin/lending-engine/internal/amortization"
	"github.com/peerfin/lending-engine/internal/config"
	"github.com/peerfin/lending-engine/internal/domain"
	"github.com/peerfin/lending-engine/internal/event"
	"github.com/peerfin/lending-engine/internal/ledger"
	"github.com/peerfin/lending-engine/internal/logger"
	"github.com/peerfin/lending-engine/internal/repository"
	customError "github.com/peerfin/lending-engine/pkg/errors"
	"github.com/peerfin/lending-engine/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type LendingService struct {
	OfferRepo   repository.OfferRepository
	PaymentRepo repository.PaymentRepository
	ContactRepo repository.ContactRepository
	publisher   event.Publisher
	redis       *redis.Client
	config      *config.Config
}

func NewLendingService(
	offerRepo repository.OfferRepository,
	paymentRepo repository.PaymentRepository,
	contactRepo repository.ContactRepository,
	publisher event.Publisher,
	redis *redis.Client,
	config *config.Config,
) *LendingService {
	return &LendingService{
		OfferRepo:   offerRepo,
		PaymentRepo: paymentRepo,
		ContactRepo: contactRepo,
		publisher:   publisher,
		redis:       redis,
		config:      config,
	}
}

// CreateOffer validates the terms and records a pending offer addressed to a
// phone number. Contact resolution is best effort and never blocks creation.
func (s *LendingService) CreateOffer(ctx context.Context, actor domain.Actor, request *domain.CreateOfferRequest) (*domain.Offer, []*domain.ScheduleEntry, error) {
	// 1. Validate terms through the schedule engine
	terms := amortization.Terms{
		Amount:             request.Amount,
		InterestRate:       request.InterestRate,
		InterestType:       request.InterestType,
		TenureValue:        request.TenureValue,
		TenureUnit:         request.TenureUnit,
		RepaymentType:      request.RepaymentType,
		RepaymentFrequency: request.RepaymentFrequency,
	}
	totalInstallments, err := amortization.PeriodCount(terms)
	if err != nil {
		return nil, nil, err
	}

	if actor.Phone != "" && actor.Phone == request.ToUserPhone {
		return nil, nil, customError.WrapInvalidTerms("offer cannot be addressed to the proposer's own phone")
	}

	// 2. Resolve the recipient if the phone belongs to a registered user
	var toUserID *string
	userID, err := s.ContactRepo.GetUserIDByPhone(ctx, request.ToUserPhone)
	switch {
	case err == nil && userID != "":
		if userID == actor.UserID {
			return nil, nil, customError.WrapInvalidTerms("offer cannot be addressed to the proposer")
		}
		toUserID = &userID
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		logger.Warn("contact resolution failed", "phone", request.ToUserPhone, "error", err)
	}

	now := time.Now()
	frequency := request.RepaymentFrequency
	if frequency == "" && request.RepaymentType == domain.RepaymentTypeEMI {
		frequency = domain.FrequencyMonthly
	}

	// 3. Create offer entity with frozen terms
	offer := &domain.Offer{
		ID:                 uuid.New(),
		FromUserID:         actor.UserID,
		ToUserID:           toUserID,
		ToUserPhone:        request.ToUserPhone,
		OfferType:          request.OfferType,
		Amount:             request.Amount,
		InterestRate:       request.InterestRate,
		InterestType:       request.InterestType,
		TenureValue:        request.TenureValue,
		TenureUnit:         request.TenureUnit,
		RepaymentType:      request.RepaymentType,
		RepaymentFrequency: frequency,
		Status:             domain.OfferStatusPending,
		TotalInstallments:  totalInstallments,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	// 4. Save offer to database
	if err := s.OfferRepo.Create(ctx, offer); err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	// 5. Preview the schedule from today; the real one is anchored on accept
	preview, err := amortization.Compute(terms, utils.StartOfDay(now))
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, event.Event{
		Type:       event.TypeOfferCreated,
		OfferID:    offer.ID,
		ActorID:    actor.UserID,
		Amount:     &offer.Amount,
		OccurredAt: now,
	})

	return offer, preview, nil
}

// AcceptOffer moves a pending offer to accepted and fixes its repayment start
// date. The schedule is derived once here and cached; later reads recompute
// identical entries from the frozen terms.
func (s *LendingService) AcceptOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error) {
	var schedule []*domain.ScheduleEntry

	offer, err := s.transitionOffer(ctx, offerID, func(o *domain.Offer) error {
		if err := o.Accept(actor, time.Now()); err != nil {
			return err
		}

		entries, err := amortization.Compute(amortization.TermsFromOffer(o), *o.StartDate)
		if err != nil {
			return err
		}
		last := entries[len(entries)-1]
		o.DueDate = &last.DueDate
		schedule = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheSchedule(ctx, offer.ID, schedule)

	s.publish(ctx, event.Event{
		Type:       event.TypeOfferAccepted,
		OfferID:    offer.ID,
		ActorID:    actor.UserID,
		Amount:     &offer.Amount,
		OccurredAt: time.Now(),
	})

	return offer, nil
}

// DeclineOffer lets the recipient turn down a pending offer.
func (s *LendingService) DeclineOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error) {
	offer, err := s.transitionOffer(ctx, offerID, func(o *domain.Offer) error {
		return o.Decline(actor, time.Now())
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.Event{
		Type:       event.TypeOfferDeclined,
		OfferID:    offer.ID,
		ActorID:    actor.UserID,
		OccurredAt: time.Now(),
	})

	return offer, nil
}

// CancelOffer lets the proposer withdraw a pending offer.
func (s *LendingService) CancelOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error) {
	offer, err := s.transitionOffer(ctx, offerID, func(o *domain.Offer) error {
		return o.Cancel(actor, time.Now())
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.Event{
		Type:       event.TypeOfferCancelled,
		OfferID:    offer.ID,
		ActorID:    actor.UserID,
		OccurredAt: time.Now(),
	})

	return offer, nil
}

// GetOffer returns an offer to one of its parties.
func (s *LendingService) GetOffer(ctx context.Context, offerID uuid.UUID, actor domain.Actor) (*domain.Offer, error) {
	offer, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.IsParty(actor) {
		return nil, customError.WrapUnauthorized("view this offer")
	}
	return offer, nil
}

// ListOffers returns the offers where the actor is proposer or resolved
// recipient, newest first.
func (s *LendingService) ListOffers(ctx context.Context, actor domain.Actor) ([]*domain.Offer, error) {
	offers, err := s.OfferRepo.ListByParty(ctx, actor.UserID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return offers, nil
}

// GetSchedule returns the repayment schedule. Accepted and completed offers
// get the canonical schedule anchored at the recorded start date; other
// statuses get an uncached preview anchored at today.
func (s *LendingService) GetSchedule(ctx context.Context, offerID uuid.UUID) ([]*domain.ScheduleEntry, error) {
	offer, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	return s.scheduleFor(ctx, offer)
}

// SubmitPayment records a borrower-side repayment claim against an accepted
// offer. The claim stays pending until the lender side reviews it.
func (s *LendingService) SubmitPayment(ctx context.Context, offerID uuid.UUID, actor domain.Actor, request *domain.SubmitPaymentRequest) (*domain.Payment, error) {
	offer, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	// 1. Payments only flow while the offer is running
	if offer.Status != domain.OfferStatusAccepted {
		return nil, customError.WrapInvalidState(string(offer.Status), "submit a payment")
	}

	// 2. Only the borrower side reports repayments
	if offer.BorrowerID() == "" || actor.UserID != offer.BorrowerID() {
		return nil, customError.WrapUnauthorized("submit a payment for this offer")
	}

	if !request.Amount.IsPositive() {
		return nil, customError.WrapInvalidTerms("payment amount must be greater than zero")
	}
	if request.InstallmentNumber != nil && (*request.InstallmentNumber < 1 || *request.InstallmentNumber > offer.TotalInstallments) {
		return nil, customError.WrapInvalidTerms("installment number out of range")
	}

	// 3. Create the pending payment record
	now := time.Now()
	payment := &domain.Payment{
		ID:                uuid.New(),
		OfferID:           offer.ID,
		FromUserID:        offer.BorrowerID(),
		ToUserID:          offer.LenderID(),
		Amount:            request.Amount,
		InstallmentNumber: request.InstallmentNumber,
		Status:            domain.PaymentStatusPending,
		Version:           1,
		CreatedAt:         now,
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.publish(ctx, event.Event{
		Type:       event.TypePaymentSubmitted,
		OfferID:    offer.ID,
		PaymentID:  &payment.ID,
		ActorID:    actor.UserID,
		Amount:     &payment.Amount,
		OccurredAt: now,
	})

	return payment, nil
}

// ReviewPayment lets the lender side approve or reject a pending payment.
// Approval recomputes the ledger, advances the offer's installment pointer
// and completes the offer once approved payments cover the principal.
func (s *LendingService) ReviewPayment(ctx context.Context, paymentID uuid.UUID, actor domain.Actor, approve bool) (*domain.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	offer, err := s.loadOffer(ctx, payment.OfferID)
	if err != nil {
		return nil, err
	}

	// 1. Only the lender side reviews
	if offer.LenderID() == "" || actor.UserID != offer.LenderID() {
		return nil, customError.WrapUnauthorized("review payments for this offer")
	}

	// 2. Flip the payment under its version; a racing reviewer loses here
	now := time.Now()
	if approve {
		err = payment.Approve(now)
	} else {
		err = payment.Reject(now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.PaymentRepo.Update(ctx, payment, payment.Version); err != nil {
		if errors.Is(err, customError.ErrVersionConflict) {
			return nil, s.reviewConflict(ctx, paymentID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if !approve {
		s.publish(ctx, event.Event{
			Type:       event.TypePaymentRejected,
			OfferID:    offer.ID,
			PaymentID:  &payment.ID,
			ActorID:    actor.UserID,
			Amount:     &payment.Amount,
			OccurredAt: now,
		})
		return payment, nil
	}

	s.publish(ctx, event.Event{
		Type:       event.TypePaymentApproved,
		OfferID:    offer.ID,
		PaymentID:  &payment.ID,
		ActorID:    actor.UserID,
		Amount:     &payment.Amount,
		OccurredAt: now,
	})

	// 3. Advance the ledger-derived pointer, completing when covered
	if err := s.settleAfterApproval(ctx, offer.ID, actor); err != nil {
		return nil, err
	}

	return payment, nil
}

// ListPayments returns an offer's payments to one of its parties.
func (s *LendingService) ListPayments(ctx context.Context, offerID uuid.UUID, actor domain.Actor) ([]*domain.Payment, error) {
	offer, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.IsParty(actor) {
		return nil, customError.WrapUnauthorized("view payments for this offer")
	}

	payments, err := s.PaymentRepo.ListByOfferID(ctx, offerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// GetLedgerSummary recomputes the offer's repayment position from the frozen
// terms and the payment records. Nothing here reads stored totals.
func (s *LendingService) GetLedgerSummary(ctx context.Context, offerID uuid.UUID) (*ledger.Summary, error) {
	offer, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.scheduleFor(ctx, offer)
	if err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.ListByOfferID(ctx, offerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := ledger.Summarize(offer, schedule, payments, time.Now())
	return &summary, nil
}

// transitionOffer retries the read-validate-write cycle on version conflicts.
func (s *LendingService) transitionOffer(ctx context.Context, offerID uuid.UUID, apply func(*domain.Offer) error) (*domain.Offer, error) {
	for attempt := 0; attempt < s.config.Business.TransitionRetries; attempt++ {
		offer, err := s.loadOffer(ctx, offerID)
		if err != nil {
			return nil, err
		}

		if err := apply(offer); err != nil {
			return nil, err
		}

		err = s.OfferRepo.Update(ctx, offer, offer.Version)
		if err == nil {
			return offer, nil
		}
		if !errors.Is(err, customError.ErrVersionConflict) {
			return nil, customError.WrapDatabaseError(err)
		}
	}
	return nil, customError.WrapConflict("offer", offerID.String())
}

// settleAfterApproval folds the approved payments over the schedule under the
// offer's version. Completion fires at most once: the accepted to completed
// transition is guarded by the version check.
func (s *LendingService) settleAfterApproval(ctx context.Context, offerID uuid.UUID, actor domain.Actor) error {
	completed := false

	offer, err := s.transitionOffer(ctx, offerID, func(o *domain.Offer) error {
		completed = false

		payments, err := s.PaymentRepo.ListByOfferID(ctx, o.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		totalPaid := ledger.TotalApproved(payments)

		schedule, err := s.scheduleFor(ctx, o)
		if err != nil {
			return err
		}
		o.CurrentInstallment = ledger.CurrentInstallment(schedule, totalPaid)
		o.UpdatedAt = time.Now()

		outstanding := decimal.Max(o.Amount.Sub(totalPaid), decimal.Zero)
		if outstanding.IsZero() && o.Status == domain.OfferStatusAccepted {
			if err := o.Complete(time.Now()); err != nil {
				return err
			}
			completed = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	if completed {
		s.publish(ctx, event.Event{
			Type:       event.TypeOfferCompleted,
			OfferID:    offer.ID,
			ActorID:    actor.UserID,
			OccurredAt: time.Now(),
		})
	}
	return nil
}

// reviewConflict maps a lost review race to its business meaning.
func (s *LendingService) reviewConflict(ctx context.Context, paymentID uuid.UUID) error {
	current, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if current.Status != domain.PaymentStatusPending {
		return customError.WrapAlreadyReviewed(paymentID.String(), string(current.Status))
	}
	return customError.WrapConflict("payment", paymentID.String())
}

// scheduleFor derives the schedule for an offer, reading through the cache
// when the offer has a fixed start date.
func (s *LendingService) scheduleFor(ctx context.Context, offer *domain.Offer) ([]*domain.ScheduleEntry, error) {
	if offer.StartDate == nil {
		return amortization.Compute(amortization.TermsFromOffer(offer), utils.StartOfDay(time.Now()))
	}

	if cached := s.cachedSchedule(ctx, offer.ID); cached != nil {
		return cached, nil
	}

	entries, err := amortization.Compute(amortization.TermsFromOffer(offer), *offer.StartDate)
	if err != nil {
		return nil, err
	}
	s.cacheSchedule(ctx, offer.ID, entries)
	return entries, nil
}

func (s *LendingService) loadOffer(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	offer, err := s.OfferRepo.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapOfferNotFound(offerID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return offer, nil
}

func (s *LendingService) loadPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.PaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapPaymentNotFound(paymentID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return payment, nil
}

// publish emits a lifecycle event. Failures are logged, never surfaced: the
// financial operation already happened.
func (s *LendingService) publish(ctx context.Context, evt event.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		logger.Warn("event publish failed", "type", string(evt.Type), "offer_id", evt.OfferID.String(), "error", err)
	}
}

func (s *LendingService) cacheKey(offerID uuid.UUID) string {
	return fmt.Sprintf("offer:%s:schedule", offerID)
}

// cachedSchedule returns nil on miss or any cache failure; the schedule is
// always recomputable from the frozen terms.
func (s *LendingService) cachedSchedule(ctx context.Context, offerID uuid.UUID) []*domain.ScheduleEntry {
	if s.redis == nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, s.cacheKey(offerID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("schedule cache read failed", "offer_id", offerID.String(), "error", err)
		}
		return nil
	}

	var entries []*domain.ScheduleEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logger.Warn("schedule cache decode failed", "offer_id", offerID.String(), "error", err)
		return nil
	}
	return entries
}

func (s *LendingService) cacheSchedule(ctx context.Context, offerID uuid.UUID, entries []*domain.ScheduleEntry) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, s.cacheKey(offerID), payload, s.config.Business.ScheduleCacheTTL).Err(); err != nil {
		logger.Warn("schedule cache write failed", "offer_id", offerID.String(), "error", err)
	}
}
