package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

// Lifecycle events consumed by external notifiers (SMS, realtime feeds).
const (
	TypeOfferCreated     Type = "offer.created"
	TypeOfferAccepted    Type = "offer.accepted"
	TypeOfferDeclined    Type = "offer.declined"
	TypeOfferCancelled   Type = "offer.cancelled"
	TypeOfferCompleted   Type = "offer.completed"
	TypeOfferOverdue     Type = "offer.overdue"
	TypePaymentSubmitted Type = "payment.submitted"
	TypePaymentApproved  Type = "payment.approved"
	TypePaymentRejected  Type = "payment.rejected"
	TypePaymentReminder  Type = "payment.reminder"
)

// Event is the payload published on lifecycle transitions.
type Event struct {
	Type       Type             `json:"type"`
	OfferID    uuid.UUID        `json:"offer_id"`
	PaymentID  *uuid.UUID       `json:"payment_id,omitempty"`
	ActorID    string           `json:"actor_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Publisher delivers lifecycle events to interested consumers. Delivery is
// best effort; financial operations never depend on it.
type Publisher interface {
	// Publish emits a single event.
	Publish(ctx context.Context, evt Event) error
}
