package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	stderrors "errors"

	"github.com/learnhub/purchase-service/internal/models"
	pkgerrors "github.com/learnhub/purchase-service/pkg/errors"
	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return pkgerrors.ErrNilUser
	}
	if user.Username == "" {
		return fmt.Errorf("%w: username is required", pkgerrors.ErrInvalidInput)
	}
	if len(user.Username) > 50 {
		return fmt.Errorf("%w: username too long", pkgerrors.ErrInvalidInput)
	}
	if user.PasswordHash == "" {
		return fmt.Errorf("%w: password_hash is required", pkgerrors.ErrInvalidInput)
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query := `
		INSERT INTO users (username, password_hash, role, balance)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.PasswordHash, user.Role, user.Balance,
	).Scan(&user.ID, &user.Version, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return pkgerrors.ErrUserAlreadyExists
		}
		slog.Error("failed to create user", "method", "Create", "username", user.Username, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, role, balance, version, created_at FROM users WHERE id = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Role, &user.Balance, &user.Version, &user.CreatedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", pkgerrors.ErrInvalidInput)
	}

	query := `SELECT id, username, password_hash, role, balance, version, created_at FROM users WHERE username = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Balance, &user.Version, &user.CreatedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	query := `SELECT balance FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return 0, pkgerrors.ErrUserNotFound
	case err != nil:
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}
