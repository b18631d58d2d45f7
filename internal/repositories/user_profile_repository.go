package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linguapath/backend/internal/models"
)

type userProfileRepository struct {
	db *sql.DB
}

// NewUserProfileRepository creates a new user profile repository
func NewUserProfileRepository(db *sql.DB) *userProfileRepository {
	return &userProfileRepository{
		db: db,
	}
}

// GetByUserID retrieves the profile of a user.
// Returns models.ErrNotFound if the user has no profile row yet.
func (r *userProfileRepository) GetByUserID(ctx context.Context, userID int) (*models.UserProfile, error) {
	query := `
		SELECT user_id, user_status, profile_data, created_at, updated_at
		FROM user_profiles
		WHERE user_id = ?
		LIMIT 1
	`

	profile := &models.UserProfile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Status,
		&profile.ProfileData,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	return profile, nil
}

// MergeProfileData overlays data on the stored profile data of a user.
// A missing row is created with pending status; an existing row keeps its status.
func (r *userProfileRepository) MergeProfileData(ctx context.Context, userID int, data models.ProfileData) error {
	query := `
		INSERT INTO user_profiles (user_id, user_status, profile_data)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			profile_data = JSON_MERGE_PATCH(COALESCE(profile_data, JSON_OBJECT()), VALUES(profile_data)),
			updated_at = CURRENT_TIMESTAMP
	`

	if data == nil {
		data = models.ProfileData{}
	}

	_, err := r.db.ExecContext(ctx, query, userID, models.AccountStatusPending, data)
	if err != nil {
		return fmt.Errorf("failed to save profile data: %w", err)
	}

	return nil
}
