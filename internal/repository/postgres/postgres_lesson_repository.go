package repository

import (
	"context"
	"database/sql"
	"fmt"

	stderrors "errors"

	"github.com/learnhub/purchase-service/internal/models"
	pkgerrors "github.com/learnhub/purchase-service/pkg/errors"
)

type PostgresLessonRepository struct {
	db *sql.DB
}

func NewPostgresLessonRepository(db *sql.DB) *PostgresLessonRepository {
	return &PostgresLessonRepository{db: db}
}

func (r *PostgresLessonRepository) GetByID(ctx context.Context, id int64) (*models.Lesson, error) {
	query := `
		SELECT id, course_id, title, price
		FROM lessons
		WHERE id = $1
	`
	var lesson models.Lesson
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lesson.ID, &lesson.CourseID, &lesson.Title, &lesson.Price,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrLessonNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return &lesson, nil
}
