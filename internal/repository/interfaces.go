package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/peerfin/lending-engine/internal/domain"
)

// OfferRepository defines the interface for offer data operations
type OfferRepository interface {
	// Create persists a new offer
	Create(ctx context.Context, offer *domain.Offer) error

	// GetByID retrieves an offer by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Offer, error)

	// Update writes the offer's lifecycle fields when the stored version
	// matches expectedVersion, bumping the version by one. Term fields are
	// never written back. A moved version yields ErrVersionConflict.
	Update(ctx context.Context, offer *domain.Offer, expectedVersion int) error

	// ListByParty retrieves offers where the user is proposer or recipient
	ListByParty(ctx context.Context, userID string) ([]*domain.Offer, error)

	// ListByStatus retrieves offers in the given status
	ListByStatus(ctx context.Context, status domain.OfferStatus) ([]*domain.Offer, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create persists a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// ListByOfferID retrieves all payments for an offer, oldest first
	ListByOfferID(ctx context.Context, offerID uuid.UUID) ([]*domain.Payment, error)

	// Update writes the review outcome when the stored version matches
	// expectedVersion, bumping the version by one
	Update(ctx context.Context, payment *domain.Payment, expectedVersion int) error
}

// ContactRepository resolves phone numbers to registered user IDs. The
// directory is maintained by the identity service; this side only reads it.
type ContactRepository interface {
	// GetUserIDByPhone returns the user registered with the phone number
	GetUserIDByPhone(ctx context.Context, phone string) (string, error)
}
