package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerfin/lending-engine/internal/domain"
	customError "github.com/peerfin/lending-engine/pkg/errors"
)

var paymentColumns = []string{
	"id", "offer_id", "from_user_id", "to_user_id", "amount",
	"installment_number", "status", "version", "created_at", "reviewed_at",
}

func storedPayment() *domain.Payment {
	installment := 1
	return &domain.Payment{
		ID:                uuid.New(),
		OfferID:           uuid.New(),
		FromUserID:        "user-borrower",
		ToUserID:          "user-lender",
		Amount:            decimal.RequireFromString("4442.44"),
		InstallmentNumber: &installment,
		Status:            domain.PaymentStatusPending,
		Version:           1,
		CreatedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func paymentRow(payment *domain.Payment) *sqlmock.Rows {
	return sqlmock.NewRows(paymentColumns).AddRow(
		payment.ID.String(), payment.OfferID.String(), payment.FromUserID, payment.ToUserID, payment.Amount.String(),
		payment.InstallmentNumber, string(payment.Status), payment.Version, payment.CreatedAt, payment.ReviewedAt,
	)
}

func TestPaymentRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		payment := storedPayment()

		mock.ExpectExec("INSERT INTO payments").
			WithArgs(
				payment.ID, payment.OfferID, payment.FromUserID, payment.ToUserID, payment.Amount,
				payment.InstallmentNumber, payment.Status, payment.Version, sqlmock.AnyArg(), nil,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(ctx, payment)
		assert.NoError(t, err)
	})
}

func TestPaymentRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		payment := storedPayment()

		mock.ExpectQuery("SELECT (.+)\\s+FROM payments\\s+WHERE id = \\$1").
			WithArgs(payment.ID).
			WillReturnRows(paymentRow(payment))

		found, err := repo.GetByID(ctx, payment.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, payment.ID, found.ID)
		assert.Equal(t, "4442.44", found.Amount.String())
		require.NotNil(t, found.InstallmentNumber)
		assert.Equal(t, 1, *found.InstallmentNumber)
		assert.Nil(t, found.ReviewedAt)
	})

	t.Run("Failure - not found passes through sql.ErrNoRows", func(t *testing.T) {
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+)\\s+FROM payments\\s+WHERE id = \\$1").
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		found, err := repo.GetByID(ctx, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, found)
	})
}

func TestPaymentRepository_ListByOfferID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("Success - ordered oldest first", func(t *testing.T) {
		offerID := uuid.New()
		first := storedPayment()
		first.OfferID = offerID
		second := storedPayment()
		second.OfferID = offerID
		rows := paymentRow(first).AddRow(
			second.ID.String(), second.OfferID.String(), second.FromUserID, second.ToUserID, second.Amount.String(),
			second.InstallmentNumber, string(second.Status), second.Version, second.CreatedAt, second.ReviewedAt,
		)

		mock.ExpectQuery("SELECT (.+)\\s+FROM payments\\s+WHERE offer_id = \\$1").
			WithArgs(offerID).
			WillReturnRows(rows)

		payments, err := repo.ListByOfferID(ctx, offerID)
		require.NoError(t, err)
		assert.Len(t, payments, 2)
	})
}

func TestPaymentRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("Success - review lands and bumps the version", func(t *testing.T) {
		payment := storedPayment()
		now := time.Now()
		require.NoError(t, payment.Approve(now))

		mock.ExpectExec("UPDATE payments\\s+SET").
			WithArgs(payment.ID, payment.Status, sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(ctx, payment, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, payment.Version)
	})

	t.Run("Failure - concurrent review wins the version check", func(t *testing.T) {
		payment := storedPayment()
		now := time.Now()
		require.NoError(t, payment.Approve(now))

		mock.ExpectExec("UPDATE payments\\s+SET").
			WithArgs(payment.ID, payment.Status, sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, payment, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, customError.ErrVersionConflict)
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}
