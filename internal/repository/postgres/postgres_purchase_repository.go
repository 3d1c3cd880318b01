package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/learnhub/purchase-service/internal/infrastructure/observability"
	"github.com/learnhub/purchase-service/internal/models"
	"github.com/learnhub/purchase-service/internal/repository"
	pkgerrors "github.com/learnhub/purchase-service/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresPurchaseRepository struct {
	db *sql.DB
}

func NewPostgresPurchaseRepository(db *sql.DB) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{db: db}
}

// ApplyPurchase commits the debit, the ledger row and the entitlement in one
// database transaction. The debit is conditional on the version the service
// read at check time, so a wallet touched by a concurrent writer aborts the
// whole unit with ErrPurchaseConflict and nothing is observable outside.
func (r *PostgresPurchaseRepository) ApplyPurchase(ctx context.Context, userID, lessonID, price, version int64) (receipt *repository.PurchaseReceipt, err error) {
	tracer := otel.Tracer("purchase-repository")
	ctx, span := tracer.Start(ctx, "ApplyPurchase")
	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("lesson_id", lessonID),
		attribute.Int64("price", price),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ApplyPurchase", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ApplyPurchase").Observe(time.Since(start).Seconds())
	}()

	if price < 0 {
		err = fmt.Errorf("%w: price must be non-negative", pkgerrors.ErrInvalidInput)
		return nil, err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin purchase transaction", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", pkgerrors.ErrStoreUnavailable, err)
	}
	defer func() {
		if err != nil {
			if rbErr := dbTx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback failed", "user_id", userID, "error", rbErr)
			}
		}
	}()

	var newBalance int64
	debit := `
		UPDATE users
		SET balance = balance - $1, version = version + 1
		WHERE id = $2 AND version = $3 AND balance >= $1
		RETURNING balance
	`
	err = dbTx.QueryRowContext(ctx, debit, price, userID, version).Scan(&newBalance)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = r.classifyDebitFailure(ctx, dbTx, userID, price, version)
		return nil, err
	}
	if err != nil {
		err = fmt.Errorf("%w: debit failed: %v", pkgerrors.ErrStoreUnavailable, err)
		return nil, err
	}

	ledger := &models.Transaction{
		UserID:      userID,
		LessonID:    lessonID,
		Amount:      -price,
		Kind:        models.KindDebitPurchase,
		Description: fmt.Sprintf("purchase of lesson %d", lessonID),
		Status:      models.StatusCompleted,
	}
	insertTx := `
		INSERT INTO transactions (user_id, lesson_id, amount, kind, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = dbTx.QueryRowContext(ctx, insertTx,
		ledger.UserID, ledger.LessonID, ledger.Amount, ledger.Kind, ledger.Description, ledger.Status,
	).Scan(&ledger.ID, &ledger.CreatedAt)
	if err != nil {
		err = fmt.Errorf("%w: failed to record transaction: %v", pkgerrors.ErrStoreUnavailable, err)
		return nil, err
	}

	ent := &models.Entitlement{
		UserID:        userID,
		LessonID:      lessonID,
		TransactionID: ledger.ID,
	}
	insertEnt := `
		INSERT INTO entitlements (user_id, lesson_id, transaction_id)
		VALUES ($1, $2, $3)
		RETURNING id, granted_at
	`
	err = dbTx.QueryRowContext(ctx, insertEnt, ent.UserID, ent.LessonID, ent.TransactionID).Scan(&ent.ID, &ent.GrantedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			// Lost the race to another grant for the same pair. The rollback
			// reverses the debit, so the winner's state stands alone.
			err = pkgerrors.ErrEntitlementExists
			return nil, err
		}
		err = fmt.Errorf("%w: failed to create entitlement: %v", pkgerrors.ErrStoreUnavailable, err)
		return nil, err
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("%w: failed to commit purchase: %v", pkgerrors.ErrStoreUnavailable, err)
		return nil, err
	}

	slog.Info("purchase committed",
		"user_id", userID,
		"lesson_id", lessonID,
		"price", price,
		"new_balance", newBalance,
		"transaction_id", ledger.ID)

	return &repository.PurchaseReceipt{
		NewBalance:  newBalance,
		Transaction: ledger,
		Entitlement: ent,
	}, nil
}

// ApplyTopup commits the credit and its ledger row in one database
// transaction, so a failed ledger insert also reverses the credit and the
// event stays retryable.
func (r *PostgresPurchaseRepository) ApplyTopup(ctx context.Context, userID, amount, version int64, description string) (receipt *repository.TopupReceipt, err error) {
	tracer := otel.Tracer("purchase-repository")
	ctx, span := tracer.Start(ctx, "ApplyTopup")
	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("amount", amount),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ApplyTopup", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ApplyTopup").Observe(time.Since(start).Seconds())
	}()

	if amount <= 0 {
		err = fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidInput)
		return nil, err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin topup transaction", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", pkgerrors.ErrStoreUnavailable, err)
	}
	defer func() {
		if err != nil {
			if rbErr := dbTx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback failed", "user_id", userID, "error", rbErr)
			}
		}
	}()

	var newBalance int64
	credit := `
		UPDATE users
		SET balance = balance + $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING balance
	`
	err = dbTx.QueryRowContext(ctx, credit, amount, userID, version).Scan(&newBalance)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = r.classifyCreditFailure(ctx, dbTx, userID, version)
		return nil, err
	}
	if err != nil {
		err = fmt.Errorf("%w: credit failed: %v", pkgerrors.ErrStoreUnavailable, err)
		return nil, err
	}

	ledger := &models.Transaction{
		UserID:      userID,
		Amount:      amount,
		Kind:        models.KindCreditTopup,
		Description: description,
		Status:      models.StatusCompleted,
	}
	insertTx := `
		INSERT INTO transactions (user_id, lesson_id, amount, kind, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = dbTx.QueryRowContext(ctx, insertTx,
		ledger.UserID, ledger.LessonID, ledger.Amount, ledger.Kind, ledger.Description, ledger.Status,
	).Scan(&ledger.ID, &ledger.CreatedAt)
	if err != nil {
		err = fmt.Errorf("%w: failed to record transaction: %v", pkgerrors.ErrStoreUnavailable, err)
		return nil, err
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("%w: failed to commit topup: %v", pkgerrors.ErrStoreUnavailable, err)
		return nil, err
	}

	slog.Info("topup committed",
		"user_id", userID,
		"amount", amount,
		"new_balance", newBalance,
		"transaction_id", ledger.ID)

	return &repository.TopupReceipt{
		NewBalance:  newBalance,
		Transaction: ledger,
	}, nil
}

// classifyCreditFailure re-reads the user row inside the same transaction to
// tell a vanished user and a moved version apart.
func (r *PostgresPurchaseRepository) classifyCreditFailure(ctx context.Context, dbTx *sql.Tx, userID, version int64) error {
	var current int64
	err := dbTx.QueryRowContext(ctx, `SELECT version FROM users WHERE id = $1`, userID).Scan(&current)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return pkgerrors.ErrUserNotFound
	case err != nil:
		return fmt.Errorf("%w: %v", pkgerrors.ErrStoreUnavailable, err)
	case current != version:
		return pkgerrors.ErrPurchaseConflict
	default:
		return fmt.Errorf("%w: credit rejected for unknown reason", pkgerrors.ErrStoreUnavailable)
	}
}

// classifyDebitFailure re-reads the user row inside the same transaction to
// tell a vanished user, a moved version and a short balance apart.
func (r *PostgresPurchaseRepository) classifyDebitFailure(ctx context.Context, dbTx *sql.Tx, userID, price, version int64) error {
	var balance, current int64
	err := dbTx.QueryRowContext(ctx, `SELECT balance, version FROM users WHERE id = $1`, userID).Scan(&balance, &current)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return pkgerrors.ErrUserNotFound
	case err != nil:
		return fmt.Errorf("%w: %v", pkgerrors.ErrStoreUnavailable, err)
	case current != version:
		return pkgerrors.ErrPurchaseConflict
	case balance < price:
		return pkgerrors.ErrInsufficientBalance
	default:
		return fmt.Errorf("%w: debit rejected for unknown reason", pkgerrors.ErrStoreUnavailable)
	}
}
