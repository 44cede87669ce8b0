package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/peerfin/lending-engine/internal/domain"
	customError "github.com/peerfin/lending-engine/pkg/errors"
)

type offerRepository struct {
	db *sqlx.DB
}

func NewOfferRepository(db *sqlx.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, offer *domain.Offer) error {
	query := `
		INSERT INTO offers (id, from_user_id, to_user_id, to_user_phone, offer_type, amount, interest_rate, interest_type, tenure_value, tenure_unit, repayment_type, repayment_frequency, status, start_date, due_date, current_installment, total_installments, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.ExecContext(ctx, query,
		offer.ID,
		offer.FromUserID,
		offer.ToUserID,
		offer.ToUserPhone,
		offer.OfferType,
		offer.Amount,
		offer.InterestRate,
		offer.InterestType,
		offer.TenureValue,
		offer.TenureUnit,
		offer.RepaymentType,
		offer.RepaymentFrequency,
		offer.Status,
		offer.StartDate,
		offer.DueDate,
		offer.CurrentInstallment,
		offer.TotalInstallments,
		offer.Version,
		offer.CreatedAt,
		offer.UpdatedAt,
	)

	return err
}

func (r *offerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	query := `
		SELECT id, from_user_id, to_user_id, to_user_phone, offer_type, amount, interest_rate, interest_type, tenure_value, tenure_unit, repayment_type, repayment_frequency, status, start_date, due_date, current_installment, total_installments, version, created_at, updated_at
		FROM offers
		WHERE id = $1
	`

	var offer domain.Offer
	err := r.db.GetContext(ctx, &offer, query, id)
	if err != nil {
		return nil, err
	}

	return &offer, nil
}

// Update only touches lifecycle fields. Term columns stay untouched so an
// accepted offer's schedule can always be rederived from what was agreed.
func (r *offerRepository) Update(ctx context.Context, offer *domain.Offer, expectedVersion int) error {
	query := `
		UPDATE offers
		SET to_user_id = $2, status = $3, start_date = $4, due_date = $5, current_installment = $6, version = version + 1, updated_at = $7
		WHERE id = $1 AND version = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		offer.ID,
		offer.ToUserID,
		offer.Status,
		offer.StartDate,
		offer.DueDate,
		offer.CurrentInstallment,
		offer.UpdatedAt,
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

	offer.Version = expectedVersion + 1
	return nil
}

func (r *offerRepository) ListByParty(ctx context.Context, userID string) ([]*domain.Offer, error) {
	query := `
		SELECT id, from_user_id, to_user_id, to_user_phone, offer_type, amount, interest_rate, interest_type, tenure_value, tenure_unit, repayment_type, repayment_frequency, status, start_date, due_date, current_installment, total_installments, version, created_at, updated_at
		FROM offers
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
	`

	var offers []*domain.Offer
	err := r.db.SelectContext(ctx, &offers, query, userID)
	if err != nil {
		return nil, err
	}

	return offers, nil
}

func (r *offerRepository) ListByStatus(ctx context.Context, status domain.OfferStatus) ([]*domain.Offer, error) {
	query := `
		SELECT id, from_user_id, to_user_id, to_user_phone, offer_type, amount, interest_rate, interest_type, tenure_value, tenure_unit, repayment_type, repayment_frequency, status, start_date, due_date, current_installment, total_installments, version, created_at, updated_at
		FROM offers
		WHERE status = $1
		ORDER BY created_at
	`

	var offers []*domain.Offer
	err := r.db.SelectContext(ctx, &offers, query, status)
	if err != nil {
		return nil, err
	}

	return offers, nil
}
