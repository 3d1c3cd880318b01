package kafka

import (
	"context"
	"testing"
	"time"

	stderrors "errors"

	redismocks "github.com/learnhub/purchase-service/internal/infrastructure/redis/mocks"
	"github.com/learnhub/purchase-service/internal/models"
	"github.com/learnhub/purchase-service/internal/repository"
	"github.com/learnhub/purchase-service/internal/repository/mocks"
	pkgerrors "github.com/learnhub/purchase-service/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type consumerMocks struct {
	userRepo     *mocks.UserRepository
	purchaseRepo *mocks.PurchaseRepository
	redisClient  *redismocks.RedisClient
}

func newTestConsumer() (*TopupConsumer, *consumerMocks) {
	m := &consumerMocks{
		userRepo:     new(mocks.UserRepository),
		purchaseRepo: new(mocks.PurchaseRepository),
		redisClient:  new(redismocks.RedisClient),
	}
	c := &TopupConsumer{
		userRepo:     m.userRepo,
		purchaseRepo: m.purchaseRepo,
		redisClient:  m.redisClient,
		readBackoff:  time.Millisecond,
	}
	return c, m
}

func topupUser(version int64) *models.User {
	return &models.User{ID: 1, Username: "testuser", Role: models.RoleUser, Balance: 200, Version: version}
}

func TestTopupConsumer_Apply(t *testing.T) {
	ctx := context.Background()
	event := &TopupEvent{ProviderRef: "ref-1", UserID: 1, Amount: 500}

	t.Run("Success", func(t *testing.T) {
		c, m := newTestConsumer()
		m.redisClient.On("SetNX", mock.Anything, "topup:ref-1", "applied", 24*time.Hour).Return(true, nil)
		m.userRepo.On("GetByID", mock.Anything, int64(1)).Return(topupUser(3), nil)
		m.purchaseRepo.On("ApplyTopup", mock.Anything, int64(1), int64(500), int64(3), "wallet top-up ref-1").
			Return(&repository.TopupReceipt{NewBalance: 700, Transaction: &models.Transaction{ID: 12}}, nil)
		m.redisClient.On("Del", mock.Anything, "user:1:balance").Return(nil)

		c.apply(ctx, event)

		m.purchaseRepo.AssertExpectations(t)
		m.redisClient.AssertExpectations(t)
	})

	t.Run("DuplicateIsDropped", func(t *testing.T) {
		c, m := newTestConsumer()
		m.redisClient.On("SetNX", mock.Anything, "topup:ref-1", "applied", 24*time.Hour).Return(false, nil)

		c.apply(ctx, event)

		m.userRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		m.purchaseRepo.AssertNotCalled(t, "ApplyTopup", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("StoreFailureReleasesDedupeKey", func(t *testing.T) {
		c, m := newTestConsumer()
		m.redisClient.On("SetNX", mock.Anything, "topup:ref-1", "applied", 24*time.Hour).Return(true, nil)
		m.userRepo.On("GetByID", mock.Anything, int64(1)).Return(topupUser(3), nil)
		m.purchaseRepo.On("ApplyTopup", mock.Anything, int64(1), int64(500), int64(3), "wallet top-up ref-1").
			Return(nil, pkgerrors.ErrStoreUnavailable)
		m.redisClient.On("Del", mock.Anything, "topup:ref-1").Return(nil)

		c.apply(ctx, event)

		// The key is released so a redelivered event gets another shot, and
		// no balance cache entry is touched.
		m.redisClient.AssertCalled(t, "Del", mock.Anything, "topup:ref-1")
		m.redisClient.AssertNotCalled(t, "Del", mock.Anything, "user:1:balance")
	})

	t.Run("ConflictRetriesWithFreshVersion", func(t *testing.T) {
		c, m := newTestConsumer()
		m.redisClient.On("SetNX", mock.Anything, "topup:ref-1", "applied", 24*time.Hour).Return(true, nil)
		m.userRepo.On("GetByID", mock.Anything, int64(1)).Return(topupUser(3), nil).Once()
		m.userRepo.On("GetByID", mock.Anything, int64(1)).Return(topupUser(4), nil).Once()
		m.purchaseRepo.On("ApplyTopup", mock.Anything, int64(1), int64(500), int64(3), "wallet top-up ref-1").
			Return(nil, pkgerrors.ErrPurchaseConflict).Once()
		m.purchaseRepo.On("ApplyTopup", mock.Anything, int64(1), int64(500), int64(4), "wallet top-up ref-1").
			Return(&repository.TopupReceipt{NewBalance: 700, Transaction: &models.Transaction{ID: 12}}, nil).Once()
		m.redisClient.On("Del", mock.Anything, "user:1:balance").Return(nil)

		c.apply(ctx, event)

		m.purchaseRepo.AssertExpectations(t)
	})

	t.Run("ConflictExhaustedReleasesDedupeKey", func(t *testing.T) {
		c, m := newTestConsumer()
		m.redisClient.On("SetNX", mock.Anything, "topup:ref-1", "applied", 24*time.Hour).Return(true, nil)
		m.userRepo.On("GetByID", mock.Anything, int64(1)).Return(topupUser(3), nil)
		m.purchaseRepo.On("ApplyTopup", mock.Anything, int64(1), int64(500), int64(3), "wallet top-up ref-1").
			Return(nil, pkgerrors.ErrPurchaseConflict).Times(creditRetries)
		m.redisClient.On("Del", mock.Anything, "topup:ref-1").Return(nil)

		c.apply(ctx, event)

		m.purchaseRepo.AssertExpectations(t)
		m.redisClient.AssertCalled(t, "Del", mock.Anything, "topup:ref-1")
		m.redisClient.AssertNotCalled(t, "Del", mock.Anything, "user:1:balance")
	})
}

// stubReader scripts ReadMessage results for Consume loop tests.
type stubReader struct {
	results []error
	calls   int
}

func (r *stubReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	i := r.calls
	r.calls++
	if i >= len(r.results) {
		return kafka.Message{}, context.Canceled
	}
	return kafka.Message{}, r.results[i]
}

func (r *stubReader) Config() kafka.ReaderConfig {
	return kafka.ReaderConfig{Topic: "wallet-topups"}
}

func (r *stubReader) Close() error { return nil }

func TestTopupConsumer_Consume(t *testing.T) {
	t.Run("BacksOffOnReadError", func(t *testing.T) {
		reader := &stubReader{results: []error{
			stderrors.New("broker unreachable"),
			stderrors.New("broker unreachable"),
			context.Canceled,
		}}
		c := &TopupConsumer{reader: reader, readBackoff: time.Millisecond}

		start := time.Now()
		c.Consume(context.Background())

		assert.Equal(t, 3, reader.calls)
		assert.GreaterOrEqual(t, time.Since(start), 2*time.Millisecond)
	})

	t.Run("StopsWhenContextDone", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		reader := &stubReader{results: []error{stderrors.New("broker unreachable")}}
		c := &TopupConsumer{reader: reader, readBackoff: time.Millisecond}

		c.Consume(ctx)

		assert.Equal(t, 1, reader.calls)
	})
}
