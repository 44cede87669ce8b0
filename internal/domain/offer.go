package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/peerfin/lending-engine/pkg/errors"
	"github.com/peerfin/lending-engine/pkg/utils"
)

type (
	OfferType          string
	InterestType       string
	TenureUnit         string
	RepaymentType      string
	RepaymentFrequency string
	OfferStatus        string
)

// Offer direction, from the proposer's point of view.
const (
	OfferTypeLend   OfferType = "lend"
	OfferTypeBorrow OfferType = "borrow"
)

const (
	InterestTypeReducing InterestType = "reducing"
	InterestTypeFixed    InterestType = "fixed"
)

const (
	TenureUnitDays   TenureUnit = "days"
	TenureUnitMonths TenureUnit = "months"
	TenureUnitYears  TenureUnit = "years"
)

const (
	RepaymentTypeEMI         RepaymentType = "emi"
	RepaymentTypeFullPayment RepaymentType = "full_payment"
)

const (
	FrequencyMonthly   RepaymentFrequency = "monthly"
	FrequencyWeekly    RepaymentFrequency = "weekly"
	FrequencyQuarterly RepaymentFrequency = "quarterly"
)

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusDeclined  OfferStatus = "declined"
	OfferStatusCancelled OfferStatus = "cancelled"
	OfferStatusCompleted OfferStatus = "completed"
)

// Terminal reports whether the status admits no further transition.
func (s OfferStatus) Terminal() bool {
	return s == OfferStatusDeclined || s == OfferStatusCancelled || s == OfferStatusCompleted
}

// Actor is the verified identity performing an operation, as supplied by the
// upstream gateway.
type Actor struct {
	UserID string
	Phone  string
}

// Offer represents a lending agreement between two users. Term fields are
// frozen once the offer leaves pending; repositories never write them back.
type Offer struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	FromUserID         string             `json:"from_user_id" db:"from_user_id"`
	ToUserID           *string            `json:"to_user_id,omitempty" db:"to_user_id"`
	ToUserPhone        string             `json:"to_user_phone" db:"to_user_phone"`
	OfferType          OfferType          `json:"offer_type" db:"offer_type"`
	Amount             decimal.Decimal    `json:"amount" db:"amount"`
	InterestRate       decimal.Decimal    `json:"interest_rate" db:"interest_rate"`
	InterestType       InterestType       `json:"interest_type" db:"interest_type"`
	TenureValue        int                `json:"tenure_value" db:"tenure_value"`
	TenureUnit         TenureUnit         `json:"tenure_unit" db:"tenure_unit"`
	RepaymentType      RepaymentType      `json:"repayment_type" db:"repayment_type"`
	RepaymentFrequency RepaymentFrequency `json:"repayment_frequency" db:"repayment_frequency"`
	Status             OfferStatus        `json:"status" db:"status"`
	StartDate          *time.Time         `json:"start_date,omitempty" db:"start_date"`
	DueDate            *time.Time         `json:"due_date,omitempty" db:"due_date"`
	CurrentInstallment int                `json:"current_installment" db:"current_installment"`
	TotalInstallments  int                `json:"total_installments" db:"total_installments"`
	Version            int                `json:"version" db:"version"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

func (o *Offer) isProposer(actor Actor) bool {
	return actor.UserID != "" && o.FromUserID == actor.UserID
}

// isRecipient matches by resolved user ID when known, otherwise by the
// verified phone number the offer was addressed to.
func (o *Offer) isRecipient(actor Actor) bool {
	if o.ToUserID != nil {
		return actor.UserID != "" && *o.ToUserID == actor.UserID
	}
	return actor.Phone != "" && o.ToUserPhone == actor.Phone
}

// IsParty reports whether the actor is the proposer or the recipient.
func (o *Offer) IsParty(actor Actor) bool {
	return o.isProposer(actor) || o.isRecipient(actor)
}

func (o *Offer) bindRecipient(actor Actor) {
	if o.ToUserID == nil && actor.UserID != "" {
		id := actor.UserID
		o.ToUserID = &id
	}
}

// BorrowerID returns the repaying party. Empty until the recipient is resolved.
func (o *Offer) BorrowerID() string {
	if o.OfferType == OfferTypeBorrow {
		return o.FromUserID
	}
	if o.ToUserID != nil {
		return *o.ToUserID
	}
	return ""
}

// LenderID returns the party that funds the offer and reviews payments.
func (o *Offer) LenderID() string {
	if o.OfferType == OfferTypeLend {
		return o.FromUserID
	}
	if o.ToUserID != nil {
		return *o.ToUserID
	}
	return ""
}

func (o *Offer) canTransition(event string, from OfferStatus) error {
	if o.Status.Terminal() {
		return customError.WrapTerminalState(string(o.Status), event)
	}
	if o.Status != from {
		return customError.WrapInvalidTransition(string(o.Status), event)
	}
	return nil
}

// Accept moves a pending offer to accepted, binds the recipient and fixes the
// repayment start date to the current UTC day. The start date is written once
// and never recomputed on later reads.
func (o *Offer) Accept(actor Actor, now time.Time) error {
	if err := o.canTransition("accept", OfferStatusPending); err != nil {
		return err
	}
	if !o.isRecipient(actor) {
		return customError.WrapUnauthorized("accept this offer")
	}
	start := utils.StartOfDay(now)
	o.Status = OfferStatusAccepted
	o.bindRecipient(actor)
	o.StartDate = &start
	o.CurrentInstallment = 1
	o.UpdatedAt = now
	return nil
}

// Decline moves a pending offer to declined. Only the recipient may decline.
func (o *Offer) Decline(actor Actor, now time.Time) error {
	if err := o.canTransition("decline", OfferStatusPending); err != nil {
		return err
	}
	if !o.isRecipient(actor) {
		return customError.WrapUnauthorized("decline this offer")
	}
	o.Status = OfferStatusDeclined
	o.bindRecipient(actor)
	o.UpdatedAt = now
	return nil
}

// Cancel withdraws a pending offer. Only the proposer may cancel.
func (o *Offer) Cancel(actor Actor, now time.Time) error {
	if err := o.canTransition("cancel", OfferStatusPending); err != nil {
		return err
	}
	if !o.isProposer(actor) {
		return customError.WrapUnauthorized("cancel this offer")
	}
	o.Status = OfferStatusCancelled
	o.UpdatedAt = now
	return nil
}

// Complete closes an accepted offer once approved payments cover the
// principal. Driven by the ledger, not by an actor.
func (o *Offer) Complete(now time.Time) error {
	if err := o.canTransition("complete", OfferStatusAccepted); err != nil {
		return err
	}
	o.Status = OfferStatusCompleted
	o.UpdatedAt = now
	return nil
}

// DTOs for requests and responses

type CreateOfferRequest struct {
	ToUserPhone        string             `json:"to_user_phone" validate:"required"`
	OfferType          OfferType          `json:"offer_type" validate:"required,oneof=lend borrow"`
	Amount             decimal.Decimal    `json:"amount" validate:"required,decimal_gt=0"`
	InterestRate       decimal.Decimal    `json:"interest_rate" validate:"decimal_gte=0"`
	InterestType       InterestType       `json:"interest_type" validate:"required,oneof=reducing fixed"`
	TenureValue        int                `json:"tenure_value" validate:"required,gt=0"`
	TenureUnit         TenureUnit         `json:"tenure_unit" validate:"required,oneof=days months years"`
	RepaymentType      RepaymentType      `json:"repayment_type" validate:"required,oneof=emi full_payment"`
	RepaymentFrequency RepaymentFrequency `json:"repayment_frequency" validate:"omitempty,oneof=monthly weekly quarterly"`
}

type CreateOfferResponse struct {
	Offer    *Offer           `json:"offer"`
	Schedule []*ScheduleEntry `json:"schedule"`
}

type OfferListResponse struct {
	Offers []*Offer `json:"offers"`
}
