package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/peerfin/lending-engine/pkg/errors"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// Payment is a repayment reported by the borrower side and reviewed by the
// lender side. Only approved payments count toward the ledger.
type Payment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	OfferID           uuid.UUID       `json:"offer_id" db:"offer_id"`
	FromUserID        string          `json:"from_user_id" db:"from_user_id"`
	ToUserID          string          `json:"to_user_id" db:"to_user_id"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	InstallmentNumber *int            `json:"installment_number,omitempty" db:"installment_number"`
	Status            PaymentStatus   `json:"status" db:"status"`
	Version           int             `json:"version" db:"version"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	ReviewedAt        *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
}

// Approve marks a pending payment as approved. Reviews are final.
func (p *Payment) Approve(now time.Time) error {
	if p.Status != PaymentStatusPending {
		return customError.WrapAlreadyReviewed(p.ID.String(), string(p.Status))
	}
	p.Status = PaymentStatusApproved
	p.ReviewedAt = &now
	return nil
}

// Reject marks a pending payment as rejected. Reviews are final.
func (p *Payment) Reject(now time.Time) error {
	if p.Status != PaymentStatusPending {
		return customError.WrapAlreadyReviewed(p.ID.String(), string(p.Status))
	}
	p.Status = PaymentStatusRejected
	p.ReviewedAt = &now
	return nil
}

type SubmitPaymentRequest struct {
	Amount            decimal.Decimal `json:"amount" validate:"required,decimal_gt=0"`
	InstallmentNumber *int            `json:"installment_number" validate:"omitempty,gt=0"`
}

type ReviewPaymentRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

type PaymentListResponse struct {
	OfferID  string     `json:"offer_id"`
	Payments []*Payment `json:"payments"`
}
