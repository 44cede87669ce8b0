package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	customError "github.com/peerfin/lending-engine/pkg/errors"
)

func pendingPayment() *Payment {
	return &Payment{
		ID:         uuid.New(),
		OfferID:    uuid.New(),
		FromUserID: recipientID,
		ToUserID:   proposerID,
		Amount:     decimal.RequireFromString("4442.44"),
		Status:     PaymentStatusPending,
		Version:    1,
	}
}

func TestPaymentApprove(t *testing.T) {
	now := time.Now()

	t.Run("Success - pending payment approved", func(t *testing.T) {
		payment := pendingPayment()

		err := payment.Approve(now)

		assert.NoError(t, err)
		assert.Equal(t, PaymentStatusApproved, payment.Status)
		if assert.NotNil(t, payment.ReviewedAt) {
			assert.Equal(t, now, *payment.ReviewedAt)
		}
	})

	t.Run("Failure - approving twice", func(t *testing.T) {
		payment := pendingPayment()
		assert.NoError(t, payment.Approve(now))

		err := payment.Approve(now)

		assert.True(t, errors.Is(err, customError.ErrAlreadyReviewed))
		assert.Equal(t, PaymentStatusApproved, payment.Status)
	})

	t.Run("Failure - approving a rejected payment", func(t *testing.T) {
		payment := pendingPayment()
		assert.NoError(t, payment.Reject(now))

		err := payment.Approve(now)

		assert.True(t, errors.Is(err, customError.ErrAlreadyReviewed))
		assert.Equal(t, PaymentStatusRejected, payment.Status)
	})
}

func TestPaymentReject(t *testing.T) {
	now := time.Now()

	t.Run("Success - pending payment rejected", func(t *testing.T) {
		payment := pendingPayment()

		err := payment.Reject(now)

		assert.NoError(t, err)
		assert.Equal(t, PaymentStatusRejected, payment.Status)
		assert.NotNil(t, payment.ReviewedAt)
	})

	t.Run("Failure - rejecting an approved payment", func(t *testing.T) {
		payment := pendingPayment()
		assert.NoError(t, payment.Approve(now))

		err := payment.Reject(now)

		assert.True(t, errors.Is(err, customError.ErrAlreadyReviewed))
		assert.Equal(t, PaymentStatusApproved, payment.Status)
	})
}
