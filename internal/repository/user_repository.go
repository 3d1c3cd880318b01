package repository

import (
	"context"

	"github.com/learnhub/purchase-service/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
}
