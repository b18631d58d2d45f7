package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linguapath/backend/internal/models"
)

type userProgressRepository struct {
	db *sql.DB
}

// NewUserProgressRepository creates a new user progress repository
func NewUserProgressRepository(db *sql.DB) *userProgressRepository {
	return &userProgressRepository{
		db: db,
	}
}

// GetCompletedLessons retrieves the completed lessons of a user in a course ordered by lesson id
func (r *userProgressRepository) GetCompletedLessons(ctx context.Context, userID int, courseID string) ([]models.ProgressRecord, error) {
	query := `
		SELECT id, user_id, course_id, lesson_id, ` + "`status`" + `, completed_at
		FROM user_progress
		WHERE user_id = ? AND course_id = ? AND ` + "`status`" + ` = ?
		ORDER BY lesson_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID, courseID, models.ProgressStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed lessons: %w", err)
	}
	defer rows.Close()

	var records []models.ProgressRecord
	for rows.Next() {
		var record models.ProgressRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.CourseID,
			&record.LessonID,
			&record.Status,
			&record.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Exists checks if a progress record exists for user, course, and lesson
func (r *userProgressRepository) Exists(ctx context.Context, userID int, courseID string, lessonID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_progress WHERE user_id = ? AND course_id = ? AND lesson_id = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, courseID, lessonID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check progress existence: %w", err)
	}

	return exists, nil
}

// Create inserts a progress record.
// Returns false without error when the record already exists.
func (r *userProgressRepository) Create(ctx context.Context, record *models.ProgressRecord) (bool, error) {
	query := `
		INSERT INTO user_progress (user_id, course_id, lesson_id, ` + "`status`" + `, completed_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.UserID,
		record.CourseID,
		record.LessonID,
		record.Status,
		record.CompletedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create progress record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = int(id)
	return true, nil
}
