package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linguapath/backend/internal/models"
)

type ttsRequestRepository struct {
	db *sql.DB
}

// NewTTSRequestRepository creates a new content generation job repository
func NewTTSRequestRepository(db *sql.DB) *ttsRequestRepository {
	return &ttsRequestRepository{db: db}
}

// CreateBatch inserts requests in a single transaction and fills their IDs.
// Either every request is stored or none is.
func (r *ttsRequestRepository) CreateBatch(ctx context.Context, requests []models.TTSRequest) error {
	if len(requests) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tts_requests (user_id, lesson_id, section_name, audio_filename, personalized_text, native_text, sentence_count, repeat_count, ` + "`status`" + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i := range requests {
		req := &requests[i]
		if req.Status == "" {
			req.Status = models.TTSRequestStatusPending
		}
		result, err := tx.ExecContext(ctx, query,
			req.UserID,
			req.LessonID,
			req.SectionName,
			req.AudioFilename,
			req.PersonalizedText,
			req.NativeText,
			req.SentenceCount,
			req.RepeatCount,
			req.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to create tts request for %s: %w", req.AudioFilename, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		req.ID = int(id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a request by ID.
// Returns models.ErrNotFound if it does not exist.
func (r *ttsRequestRepository) GetByID(ctx context.Context, id int) (*models.TTSRequest, error) {
	query := `
		SELECT id, user_id, lesson_id, section_name, audio_filename, personalized_text, native_text,
			sentence_count, repeat_count, ` + "`status`" + `, COALESCE(rejection_reason, ''), COALESCE(audio_url, ''),
			created_at, approved_at, completed_at
		FROM tts_requests
		WHERE id = ?
		LIMIT 1
	`

	req := &models.TTSRequest{}
	var approvedAt, completedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.UserID,
		&req.LessonID,
		&req.SectionName,
		&req.AudioFilename,
		&req.PersonalizedText,
		&req.NativeText,
		&req.SentenceCount,
		&req.RepeatCount,
		&req.Status,
		&req.RejectionReason,
		&req.AudioURL,
		&req.CreatedAt,
		&approvedAt,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tts request by ID: %w", err)
	}

	if approvedAt.Valid {
		req.ApprovedAt = &approvedAt.Time
	}
	if completedAt.Valid {
		req.CompletedAt = &completedAt.Time
	}

	return req, nil
}

// GetAll retrieves a paginated list of requests, optionally filtered by status and user
func (r *ttsRequestRepository) GetAll(ctx context.Context, page, count int, userID int, status models.TTSRequestStatus) ([]models.TTSRequestListItem, error) {
	var whereConditions []string
	var args []any

	if userID != 0 {
		whereConditions = append(whereConditions, "user_id = ?")
		args = append(args, userID)
	}

	if status != "" {
		whereConditions = append(whereConditions, "`status` = ?")
		args = append(args, status)
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	offset := (page - 1) * count

	query := fmt.Sprintf(`
		SELECT id, user_id, lesson_id, section_name, audio_filename, personalized_text, `+"`status`"+`, created_at
		FROM tts_requests
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, whereClause)

	args = append(args, count, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tts requests: %w", err)
	}
	defer rows.Close()

	var items []models.TTSRequestListItem
	for rows.Next() {
		var item models.TTSRequestListItem
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.LessonID,
			&item.SectionName,
			&item.AudioFilename,
			&item.PersonalizedText,
			&item.Status,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tts request: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// GetStatusesByUserAndLessons retrieves the job statuses of a user grouped by lesson
func (r *ttsRequestRepository) GetStatusesByUserAndLessons(ctx context.Context, userID int, lessonIDs []int) (map[int][]models.TTSRequestStatus, error) {
	statuses := make(map[int][]models.TTSRequestStatus)
	if len(lessonIDs) == 0 {
		return statuses, nil
	}

	query := fmt.Sprintf(`
		SELECT lesson_id, `+"`status`"+`
		FROM tts_requests
		WHERE user_id = ? AND lesson_id IN (%s)
		ORDER BY lesson_id, id
	`, inClause(len(lessonIDs)))

	args := append([]any{userID}, intArgs(lessonIDs)...)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tts request statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lessonID int
		var status models.TTSRequestStatus
		if err := rows.Scan(&lessonID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan tts request status: %w", err)
		}
		statuses[lessonID] = append(statuses[lessonID], status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return statuses, nil
}

// GetCompletedAudio retrieves the audio URLs of a user's completed jobs for a lesson, keyed by audio filename
func (r *ttsRequestRepository) GetCompletedAudio(ctx context.Context, userID, lessonID int) (map[string]string, error) {
	query := `
		SELECT audio_filename, audio_url
		FROM tts_requests
		WHERE user_id = ? AND lesson_id = ? AND ` + "`status`" + ` = ? AND audio_url IS NOT NULL
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, userID, lessonID, models.TTSRequestStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed audio: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]string)
	for rows.Next() {
		var filename, url string
		if err := rows.Scan(&filename, &url); err != nil {
			return nil, fmt.Errorf("failed to scan completed audio: %w", err)
		}
		urls[filename] = url
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return urls, nil
}

// CountByUserAndLessons counts the jobs of a user for the given lessons
func (r *ttsRequestRepository) CountByUserAndLessons(ctx context.Context, userID int, lessonIDs []int) (int, error) {
	if len(lessonIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM tts_requests
		WHERE user_id = ? AND lesson_id IN (%s)
	`, inClause(len(lessonIDs)))

	args := append([]any{userID}, intArgs(lessonIDs)...)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tts requests: %w", err)
	}

	return count, nil
}

// GetIDsByStatus retrieves up to limit request IDs in the given status, oldest first
func (r *ttsRequestRepository) GetIDsByStatus(ctx context.Context, status models.TTSRequestStatus, limit int) ([]int, error) {
	query := `
		SELECT id
		FROM tts_requests
		WHERE ` + "`status`" + ` = ?
		ORDER BY id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tts request ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tts request id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ids, nil
}

// GetStaleIDs retrieves up to limit request IDs that have stayed in the given status
// for longer than olderThan, oldest first
func (r *ttsRequestRepository) GetStaleIDs(ctx context.Context, status models.TTSRequestStatus, olderThan time.Duration, limit int) ([]int, error) {
	query := `
		SELECT id
		FROM tts_requests
		WHERE ` + "`status`" + ` = ? AND updated_at < NOW() - INTERVAL ? SECOND
		ORDER BY updated_at, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, status, int(olderThan.Seconds()), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale tts request ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tts request id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ids, nil
}

// TransitionStatus moves one request to t.To if its current status is in t.From.
// Returns false when no row matched, either because the request does not exist or
// because it is in another status.
func (r *ttsRequestRepository) TransitionStatus(ctx context.Context, id int, t models.TTSStatusTransition) (bool, error) {
	setClause, args := transitionSet(t)
	if len(t.From) == 0 {
		return false, nil
	}

	query := fmt.Sprintf(`
		UPDATE tts_requests
		SET %s
		WHERE id = ? AND `+"`status`"+` IN (%s)
	`, setClause, inClause(len(t.From)))

	args = append(args, id)
	args = append(args, statusArgs(t.From)...)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update tts request status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// TransitionByUserLesson moves every request of a user's lesson whose status is in t.From.
// A non-empty audioFilename narrows the update to that file. Returns the number of updated rows.
func (r *ttsRequestRepository) TransitionByUserLesson(ctx context.Context, userID, lessonID int, audioFilename string, t models.TTSStatusTransition) (int, error) {
	setClause, args := transitionSet(t)
	if len(t.From) == 0 {
		return 0, nil
	}

	whereConditions := []string{"user_id = ?", "lesson_id = ?"}
	args = append(args, userID, lessonID)
	if audioFilename != "" {
		whereConditions = append(whereConditions, "audio_filename = ?")
		args = append(args, audioFilename)
	}
	whereConditions = append(whereConditions, fmt.Sprintf("`status` IN (%s)", inClause(len(t.From))))
	args = append(args, statusArgs(t.From)...)

	query := fmt.Sprintf(`
		UPDATE tts_requests
		SET %s
		WHERE %s
	`, setClause, strings.Join(whereConditions, " AND "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update tts request statuses: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

func transitionSet(t models.TTSStatusTransition) (string, []any) {
	setClauses := []string{"`status` = ?"}
	args := []any{t.To}

	switch t.To {
	case models.TTSRequestStatusApproved:
		setClauses = append(setClauses, "approved_at = CURRENT_TIMESTAMP", "rejection_reason = NULL")
	case models.TTSRequestStatusCompleted:
		setClauses = append(setClauses, "completed_at = CURRENT_TIMESTAMP")
	case models.TTSRequestStatusRejected:
		setClauses = append(setClauses, "rejection_reason = ?")
		args = append(args, t.RejectionReason)
	}
	if t.AudioURL != "" {
		setClauses = append(setClauses, "audio_url = ?")
		args = append(args, t.AudioURL)
	}

	return strings.Join(setClauses, ", "), args
}

func statusArgs(statuses []models.TTSRequestStatus) []any {
	args := make([]any, 0, len(statuses))
	for _, s := range statuses {
		args = append(args, s)
	}
	return args
}
