package repository

import (
	"context"
	"database/sql"
	"fmt"

	stderrors "errors"

	"github.com/learnhub/purchase-service/internal/models"
	pkgerrors "github.com/learnhub/purchase-service/pkg/errors"
)

type PostgresEntitlementRepository struct {
	db *sql.DB
}

func NewPostgresEntitlementRepository(db *sql.DB) *PostgresEntitlementRepository {
	return &PostgresEntitlementRepository{db: db}
}

func (r *PostgresEntitlementRepository) Get(ctx context.Context, userID, lessonID int64) (*models.Entitlement, error) {
	query := `
		SELECT id, user_id, lesson_id, transaction_id, granted_at
		FROM entitlements
		WHERE user_id = $1 AND lesson_id = $2
	`
	var ent models.Entitlement
	err := r.db.QueryRowContext(ctx, query, userID, lessonID).Scan(
		&ent.ID, &ent.UserID, &ent.LessonID, &ent.TransactionID, &ent.GrantedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrEntitlementNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return &ent, nil
}

func (r *PostgresEntitlementRepository) Exists(ctx context.Context, userID, lessonID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM entitlements WHERE user_id = $1 AND lesson_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, userID, lessonID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check entitlement: %w", err)
	}
	return exists, nil
}
