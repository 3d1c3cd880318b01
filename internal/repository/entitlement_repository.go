package repository

import (
	"context"

	"github.com/learnhub/purchase-service/internal/models"
)

type EntitlementRepository interface {
	// Get returns ErrEntitlementNotFound when the pair has no grant.
	Get(ctx context.Context, userID, lessonID int64) (*models.Entitlement, error)
	Exists(ctx context.Context, userID, lessonID int64) (bool, error)
}
