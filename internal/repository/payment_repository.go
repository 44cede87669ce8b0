package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/peerfin/lending-engine/internal/domain"
	customError "github.com/peerfin/lending-engine/pkg/errors"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, offer_id, from_user_id, to_user_id, amount, installment_number, status, version, created_at, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OfferID,
		payment.FromUserID,
		payment.ToUserID,
		payment.Amount,
		payment.InstallmentNumber,
		payment.Status,
		payment.Version,
		payment.CreatedAt,
		payment.ReviewedAt,
	)

	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, offer_id, from_user_id, to_user_id, amount, installment_number, status, version, created_at, reviewed_at
		FROM payments
		WHERE id = $1
	`

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) ListByOfferID(ctx context.Context, offerID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT id, offer_id, from_user_id, to_user_id, amount, installment_number, status, version, created_at, reviewed_at
		FROM payments
		WHERE offer_id = $1
		ORDER BY created_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, offerID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment, expectedVersion int) error {
	query := `
		UPDATE payments
		SET status = $2, reviewed_at = $3, version = version + 1
		WHERE id = $1 AND version = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.Status,
		payment.ReviewedAt,
		expectedVersion,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return customError.ErrVersionConflict
	}

	payment.Version = expectedVersion + 1
	return nil
}
