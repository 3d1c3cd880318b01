package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/learnhub/purchase-service/internal/infrastructure/auth"
	"github.com/learnhub/purchase-service/internal/infrastructure/kafka"
	"github.com/learnhub/purchase-service/internal/infrastructure/observability"
	"github.com/learnhub/purchase-service/internal/infrastructure/redis"
	"github.com/learnhub/purchase-service/internal/models"
	"github.com/learnhub/purchase-service/internal/repository"
	pkgerrors "github.com/learnhub/purchase-service/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

// RenderState is the purchase-state branch the presentation layer renders.
type RenderState string

const (
	StateAlwaysUnlocked   RenderState = "always-unlocked"
	StateAlreadyPurchased RenderState = "already-purchased"
	StateAffordable       RenderState = "affordable"
	StateInsufficient     RenderState = "insufficient"
)

// PurchaseResult is returned by PurchaseLesson. AlreadyPurchased marks the
// idempotent no-op path; the entitlement is then the pre-existing one.
type PurchaseResult struct {
	NewBalance       int64
	TransactionID    int64
	Entitlement      *models.Entitlement
	AlreadyPurchased bool
}

// PurchaseState is the read-only view backing the purchase modal.
type PurchaseState struct {
	Balance          int64
	Price            int64
	AlreadyPurchased bool
	Role             models.Role
	State            RenderState
	Shortfall        int64
}

type PurchaseService interface {
	Register(ctx context.Context, username, password string) (int64, error)
	Login(ctx context.Context, username, password string) (string, error)
	PurchaseLesson(ctx context.Context, userID, lessonID int64) (*PurchaseResult, error)
	GetPurchaseState(ctx context.Context, userID, lessonID int64) (*PurchaseState, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	GetTransactionHistory(ctx context.Context, userID int64) ([]models.Transaction, error)
}

type purchaseService struct {
	userRepo        repository.UserRepository
	lessonRepo      repository.LessonRepository
	entitlementRepo repository.EntitlementRepository
	transactionRepo repository.TransactionRepository
	purchaseRepo    repository.PurchaseRepository
	redisClient     redis.RedisClient
	producer        kafka.KafkaProducer
	purchasesTopic  string
	jwtSecret       string
}

func NewPurchaseService(
	userRepo repository.UserRepository,
	lessonRepo repository.LessonRepository,
	entitlementRepo repository.EntitlementRepository,
	transactionRepo repository.TransactionRepository,
	purchaseRepo repository.PurchaseRepository,
	redisClient redis.RedisClient,
	producer kafka.KafkaProducer,
	purchasesTopic string,
	jwtSecret string,
) *purchaseService {
	return &purchaseService{
		userRepo:        userRepo,
		lessonRepo:      lessonRepo,
		entitlementRepo: entitlementRepo,
		transactionRepo: transactionRepo,
		purchaseRepo:    purchaseRepo,
		redisClient:     redisClient,
		producer:        producer,
		purchasesTopic:  purchasesTopic,
		jwtSecret:       jwtSecret,
	}
}

func (s *purchaseService) Register(ctx context.Context, username, password string) (int64, error) {
	tracer := otel.Tracer("purchase-service")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if username == "" || password == "" {
		span.SetStatus(codes.Error, "empty username or password")
		return 0, pkgerrors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to hash password", "username", username, "error", err)
		return 0, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Balance:      0,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			span.SetStatus(codes.Error, "username already exists")
			return 0, err
		}
		span.RecordError(err)
		slog.Error("failed to create user", "username", username, "error", err)
		return 0, fmt.Errorf("%w: failed to create user", pkgerrors.ErrInternal)
	}

	slog.Info("user registered", "user_id", user.ID, "username", username)
	return user.ID, nil
}

func (s *purchaseService) Login(ctx context.Context, username, password string) (string, error) {
	tracer := otel.Tracer("purchase-service")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		slog.Error("failed to login", "username", username, "error", err)
		return "", pkgerrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Error("invalid password", "username", username)
		return "", pkgerrors.ErrInvalidCredentials
	}

	tokenString, err := auth.GenerateToken(user.ID, user.Role, s.jwtSecret)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err)
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.redisClient.Set(ctx, fmt.Sprintf("user:%d:token", user.ID), tokenString, auth.TokenTTL); err != nil {
		slog.Error("failed to cache JWT", "user_id", user.ID, "error", err)
	}

	slog.Info("user logged in", "username", username, "user_id", user.ID)
	return tokenString, nil
}

// PurchaseLesson runs the purchase contract: admin bypass, idempotent
// re-purchase, affordability check, then the three-part atomic mutation.
// A version conflict is retried once against the re-read wallet state;
// a second conflict surfaces to the caller.
func (s *purchaseService) PurchaseLesson(ctx context.Context, userID, lessonID int64) (*PurchaseResult, error) {
	tracer := otel.Tracer("purchase-service")
	ctx, span := tracer.Start(ctx, "PurchaseLesson")
	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("lesson_id", lessonID),
	)
	defer span.End()

	result, err := s.attemptPurchase(ctx, userID, lessonID)
	if stderrors.Is(err, pkgerrors.ErrPurchaseConflict) {
		slog.Warn("purchase conflicted, retrying once", "user_id", userID, "lesson_id", lessonID)
		result, err = s.attemptPurchase(ctx, userID, lessonID)
	}

	switch {
	case err == nil && result.AlreadyPurchased:
		observability.PurchaseOutcomes.WithLabelValues("already_purchased").Inc()
	case err == nil:
		observability.PurchaseOutcomes.WithLabelValues("completed").Inc()
	case stderrors.Is(err, pkgerrors.ErrInsufficientBalance):
		observability.PurchaseOutcomes.WithLabelValues("insufficient_balance").Inc()
	case stderrors.Is(err, pkgerrors.ErrPurchaseConflict):
		observability.PurchaseOutcomes.WithLabelValues("conflict").Inc()
	default:
		observability.PurchaseOutcomes.WithLabelValues("error").Inc()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (s *purchaseService) attemptPurchase(ctx context.Context, userID, lessonID int64) (*PurchaseResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		slog.Error("user not found", "user_id", userID, "error", err)
		return nil, err
	}

	lesson, err := s.loadLesson(ctx, lessonID)
	if err != nil {
		slog.Error("lesson not found", "lesson_id", lessonID, "error", err)
		return nil, err
	}

	ent, err := s.entitlementRepo.Get(ctx, userID, lessonID)
	if err == nil {
		slog.Info("lesson already purchased", "user_id", userID, "lesson_id", lessonID)
		return &PurchaseResult{
			NewBalance:       user.Balance,
			TransactionID:    ent.TransactionID,
			Entitlement:      ent,
			AlreadyPurchased: true,
		}, nil
	}
	if !stderrors.Is(err, pkgerrors.ErrEntitlementNotFound) {
		return nil, fmt.Errorf("%w: failed to check entitlement: %v", pkgerrors.ErrStoreUnavailable, err)
	}

	// Admins always have access: the entitlement is granted with a
	// zero-amount debit and the balance check falls away.
	price := lesson.Price
	if user.Role.CanBypassPayment() {
		price = 0
	}

	if user.Balance < price {
		shortfall := price - user.Balance
		slog.Info("insufficient balance",
			"user_id", userID,
			"lesson_id", lessonID,
			"balance", user.Balance,
			"price", price,
			"shortfall", shortfall)
		return nil, fmt.Errorf("%w: short by %d", pkgerrors.ErrInsufficientBalance, shortfall)
	}

	receipt, err := s.purchaseRepo.ApplyPurchase(ctx, user.ID, lesson.ID, price, user.Version)
	if stderrors.Is(err, pkgerrors.ErrEntitlementExists) {
		// A concurrent call granted the lesson between our check and the
		// write. Treat it as the idempotent no-op success.
		ent, getErr := s.entitlementRepo.Get(ctx, userID, lessonID)
		if getErr != nil {
			return nil, fmt.Errorf("%w: failed to load existing entitlement: %v", pkgerrors.ErrStoreUnavailable, getErr)
		}
		balance, getErr := s.userRepo.GetBalance(ctx, userID)
		if getErr != nil {
			return nil, fmt.Errorf("%w: failed to load balance: %v", pkgerrors.ErrStoreUnavailable, getErr)
		}
		return &PurchaseResult{
			NewBalance:       balance,
			TransactionID:    ent.TransactionID,
			Entitlement:      ent,
			AlreadyPurchased: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	s.redisClient.Del(ctx, fmt.Sprintf("user:%d:balance", userID))
	s.publishPurchaseEvent(receipt)

	return &PurchaseResult{
		NewBalance:    receipt.NewBalance,
		TransactionID: receipt.Transaction.ID,
		Entitlement:   receipt.Entitlement,
	}, nil
}

// publishPurchaseEvent emits the audit event for a committed purchase. The
// commit already happened; a publish failure is logged, never surfaced.
func (s *purchaseService) publishPurchaseEvent(receipt *repository.PurchaseReceipt) {
	event := map[string]interface{}{
		"event_type":     "lesson_purchased",
		"user_id":        receipt.Transaction.UserID,
		"lesson_id":      receipt.Transaction.LessonID,
		"amount":         receipt.Transaction.Amount,
		"transaction_id": receipt.Transaction.ID,
		"status":         string(models.StatusCompleted),
		"created_at":     receipt.Transaction.CreatedAt.UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal purchase event", "transaction_id", receipt.Transaction.ID, "error", err)
		return
	}

	key := uuid.New().String()
	go func() {
		if err := s.producer.Send(context.Background(), s.purchasesTopic, key, eventBytes); err != nil {
			slog.Error("failed to publish purchase event",
				"transaction_id", receipt.Transaction.ID,
				"key", key,
				"error", err)
		}
	}()
}

// GetPurchaseState reproduces the modal decision table: admin roles are
// always unlocked, an entitlement wins next, then affordability.
func (s *purchaseService) GetPurchaseState(ctx context.Context, userID, lessonID int64) (*PurchaseState, error) {
	tracer := otel.Tracer("purchase-service")
	ctx, span := tracer.Start(ctx, "GetPurchaseState")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	lesson, err := s.loadLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	purchased, err := s.entitlementRepo.Exists(ctx, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to check entitlement: %v", pkgerrors.ErrStoreUnavailable, err)
	}

	state := &PurchaseState{
		Balance:          user.Balance,
		Price:            lesson.Price,
		AlreadyPurchased: purchased,
		Role:             user.Role,
	}
	switch {
	case user.Role.CanBypassPayment():
		state.State = StateAlwaysUnlocked
	case purchased:
		state.State = StateAlreadyPurchased
	case user.Balance >= lesson.Price:
		state.State = StateAffordable
	default:
		state.State = StateInsufficient
		state.Shortfall = lesson.Price - user.Balance
	}
	return state, nil
}

func (s *purchaseService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	tracer := otel.Tracer("purchase-service")
	ctx, span := tracer.Start(ctx, "GetBalance")
	defer span.End()

	balanceKey := fmt.Sprintf("user:%d:balance", userID)
	balanceStr, err := s.redisClient.Get(ctx, balanceKey)
	if err == nil {
		var balance int64
		if uerr := json.Unmarshal([]byte(balanceStr), &balance); uerr == nil {
			return balance, nil
		} else {
			slog.Error("failed to unmarshal cached balance", "user_id", userID, "error", uerr)
		}
	}

	balance, err := s.userRepo.GetBalance(ctx, userID)
	if err != nil {
		slog.Error("failed to get balance", "user_id", userID, "error", err)
		return 0, err
	}

	if err := s.redisClient.Set(ctx, balanceKey, balance, 5*time.Minute); err != nil {
		slog.Error("failed to cache balance", "user_id", userID, "error", err)
	}
	return balance, nil
}

func (s *purchaseService) GetTransactionHistory(ctx context.Context, userID int64) ([]models.Transaction, error) {
	tracer := otel.Tracer("purchase-service")
	ctx, span := tracer.Start(ctx, "GetTransactionHistory")
	defer span.End()

	transactions, err := s.transactionRepo.ListByUser(ctx, userID)
	if err != nil {
		slog.Error("failed to get transaction history", "user_id", userID, "error", err)
		return nil, err
	}
	return transactions, nil
}

// loadLesson reads the lesson through the Redis cache. Catalog rows change
// rarely, so a long TTL is fine.
func (s *purchaseService) loadLesson(ctx context.Context, lessonID int64) (*models.Lesson, error) {
	lessonKey := fmt.Sprintf("lesson:%d", lessonID)
	cached, err := s.redisClient.Get(ctx, lessonKey)
	if err == nil {
		var lesson models.Lesson
		if uerr := json.Unmarshal([]byte(cached), &lesson); uerr == nil {
			return &lesson, nil
		} else {
			slog.Error("failed to unmarshal cached lesson", "lesson_id", lessonID, "error", uerr)
		}
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Error("failed to get lesson from Redis", "lesson_id", lessonID, "error", err)
	}

	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	if lessonBytes, err := json.Marshal(lesson); err == nil {
		if err := s.redisClient.Set(ctx, lessonKey, string(lessonBytes), 24*time.Hour); err != nil {
			slog.Error("failed to cache lesson", "lesson_id", lessonID, "error", err)
		}
	}
	return lesson, nil
}
