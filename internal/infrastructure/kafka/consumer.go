package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/learnhub/purchase-service/internal/infrastructure/redis"
	"github.com/learnhub/purchase-service/internal/repository"
	pkgerrors "github.com/learnhub/purchase-service/pkg/errors"
	"github.com/segmentio/kafka-go"
)

const creditRetries = 3

// topupReader is the slice of kafka.Reader the consumer uses.
type topupReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Config() kafka.ReaderConfig
	Close() error
}

// TopupEvent is the payment-provider confirmation that credits a wallet.
// ProviderRef deduplicates redelivered events.
type TopupEvent struct {
	ProviderRef string `json:"provider_ref"`
	UserID      int64  `json:"user_id"`
	Amount      int64  `json:"amount"`
	CreatedAt   string `json:"created_at"`
}

// TopupConsumer applies wallet credits arriving on the topups topic. Each
// credit commits atomically with its ledger row, through the same versioned
// balance mutation path as purchases, retried on version conflicts.
type TopupConsumer struct {
	reader       topupReader
	userRepo     repository.UserRepository
	purchaseRepo repository.PurchaseRepository
	redisClient  redis.RedisClient
	readBackoff  time.Duration
}

func NewTopupConsumer(brokers []string, topic, groupID string, userRepo repository.UserRepository, purchaseRepo repository.PurchaseRepository, redisClient redis.RedisClient) *TopupConsumer {
	return &TopupConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		userRepo:     userRepo,
		purchaseRepo: purchaseRepo,
		redisClient:  redisClient,
		readBackoff:  time.Second,
	}
}

func (c *TopupConsumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if stderrors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			time.Sleep(c.readBackoff)
			continue
		}

		var event TopupEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal topup event", "error", err)
			continue
		}
		if event.ProviderRef == "" || event.UserID == 0 || event.Amount <= 0 {
			slog.Error("invalid topup event", "provider_ref", event.ProviderRef, "user_id", event.UserID, "amount", event.Amount)
			continue
		}

		c.apply(ctx, &event)
	}
}

func (c *TopupConsumer) apply(ctx context.Context, event *TopupEvent) {
	dedupeKey := "topup:" + event.ProviderRef
	fresh, err := c.redisClient.SetNX(ctx, dedupeKey, "applied", 24*time.Hour)
	if err != nil {
		slog.Error("failed to set topup dedupe key", "provider_ref", event.ProviderRef, "error", err)
		return
	}
	if !fresh {
		slog.Warn("topup already applied", "provider_ref", event.ProviderRef, "user_id", event.UserID)
		return
	}

	description := "wallet top-up " + event.ProviderRef
	var receipt *repository.TopupReceipt
	for attempt := 0; attempt < creditRetries; attempt++ {
		user, err := c.userRepo.GetByID(ctx, event.UserID)
		if err != nil {
			slog.Error("topup user lookup failed", "user_id", event.UserID, "error", err)
			c.redisClient.Del(ctx, dedupeKey)
			return
		}
		receipt, err = c.purchaseRepo.ApplyTopup(ctx, user.ID, event.Amount, user.Version, description)
		if stderrors.Is(err, pkgerrors.ErrPurchaseConflict) {
			continue
		}
		if err != nil {
			slog.Error("failed to apply topup", "user_id", event.UserID, "provider_ref", event.ProviderRef, "error", err)
			c.redisClient.Del(ctx, dedupeKey)
			return
		}
		break
	}
	if receipt == nil {
		slog.Error("topup credit conflicted on every attempt", "user_id", event.UserID, "provider_ref", event.ProviderRef)
		c.redisClient.Del(ctx, dedupeKey)
		return
	}

	c.redisClient.Del(ctx, balanceCacheKey(event.UserID))
	slog.Info("topup applied",
		"user_id", event.UserID,
		"amount", event.Amount,
		"new_balance", receipt.NewBalance,
		"transaction_id", receipt.Transaction.ID)
}

func balanceCacheKey(userID int64) string {
	return fmt.Sprintf("user:%d:balance", userID)
}

func (c *TopupConsumer) Close() error {
	return c.reader.Close()
}
