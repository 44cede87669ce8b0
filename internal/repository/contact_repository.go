package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type contactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) GetUserIDByPhone(ctx context.Context, phone string) (string, error) {
	query := `
		SELECT user_id
		FROM user_contacts
		WHERE phone = $1
	`

	var userID string
	err := r.db.GetContext(ctx, &userID, query, phone)
	if err != nil {
		return "", err
	}

	return userID, nil
}
