package repository

import (
	"context"

	"github.com/learnhub/purchase-service/internal/models"
)

type LessonRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Lesson, error)
}
