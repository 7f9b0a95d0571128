package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines the data access contract for the settings aggregate.
// Not-found is reported as (nil, nil); callers decide whether that is an
// error.
type Repository interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*StoredSettings, error)
	InsertSettings(ctx context.Context, s *StoredSettings) error
	UpdateSettings(ctx context.Context, s *StoredSettings) error
	DeleteSettings(ctx context.Context, userID uuid.UUID) error

	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileSettings, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, patch *ProfilePatch) error

	GetHealthProfile(ctx context.Context, userID uuid.UUID) (*HealthProfile, error)
	InsertHealthProfile(ctx context.Context, p *HealthProfile) error
	UpdateHealthProfile(ctx context.Context, p *HealthProfile) error
	DeleteHealthProfile(ctx context.Context, userID uuid.UUID) error

	GetThresholds(ctx context.Context, userID uuid.UUID) (*AlertThresholds, error)
	InsertThresholds(ctx context.Context, t *AlertThresholds) error
	UpdateThresholds(ctx context.Context, t *AlertThresholds) error
	DeleteThresholds(ctx context.Context, userID uuid.UUID) error

	ListEmergencyContacts(ctx context.Context, userID uuid.UUID) ([]EmergencyContact, error)
	ReplaceEmergencyContacts(ctx context.Context, userID uuid.UUID, contacts []EmergencyContact) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// =====================================================
// user_settings
// =====================================================

func (r *PostgresRepository) GetSettings(ctx context.Context, userID uuid.UUID) (*StoredSettings, error) {
	var s StoredSettings
	query := `
		SELECT user_id, notifications, privacy, display, location, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1`
	err := r.db.GetContext(ctx, &s, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) InsertSettings(ctx context.Context, s *StoredSettings) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	query := `
		INSERT INTO user_settings (user_id, notifications, privacy, display, location, created_at, updated_at)
		VALUES (:user_id, :notifications, :privacy, :display, :location, :created_at, :updated_at)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("failed to insert settings: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateSettings(ctx context.Context, s *StoredSettings) error {
	s.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE user_settings
		SET notifications = :notifications, privacy = :privacy,
		    display = :display, location = :location, updated_at = :updated_at
		WHERE user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteSettings(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}

// =====================================================
// users (profile section)
// =====================================================

func (r *PostgresRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileSettings, error) {
	var row struct {
		FirstName         string `db:"first_name"`
		LastName          string `db:"last_name"`
		Email             string `db:"email"`
		Phone             string `db:"phone"`
		ProfilePictureURL string `db:"profile_picture_url"`
		EmailVerified     bool   `db:"email_verified"`
	}
	query := `
		SELECT first_name, last_name, email, phone, profile_picture_url, email_verified
		FROM users
		WHERE id = $1`
	err := r.db.GetContext(ctx, &row, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &ProfileSettings{
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Email:          row.Email,
		Phone:          row.Phone,
		ProfilePicture: row.ProfilePictureURL,
		EmailVerified:  row.EmailVerified,
	}, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, patch *ProfilePatch) error {
	query := `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
		    last_name  = COALESCE($3, last_name),
		    email      = COALESCE($4, email),
		    phone      = COALESCE($5, phone),
		    updated_at = $6
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, userID,
		patch.FirstName, patch.LastName, patch.Email, patch.Phone, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// =====================================================
// user_health_profiles
// =====================================================

func (r *PostgresRepository) GetHealthProfile(ctx context.Context, userID uuid.UUID) (*HealthProfile, error) {
	var p HealthProfile
	query := `
		SELECT user_id, age, activity_level, conditions, medications, created_at, updated_at
		FROM user_health_profiles
		WHERE user_id = $1`
	err := r.db.GetContext(ctx, &p, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get health profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) InsertHealthProfile(ctx context.Context, p *HealthProfile) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	query := `
		INSERT INTO user_health_profiles (user_id, age, activity_level, conditions, medications, created_at, updated_at)
		VALUES (:user_id, :age, :activity_level, :conditions, :medications, :created_at, :updated_at)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to insert health profile: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateHealthProfile(ctx context.Context, p *HealthProfile) error {
	p.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE user_health_profiles
		SET age = :age, activity_level = :activity_level, conditions = :conditions,
		    medications = :medications, updated_at = :updated_at
		WHERE user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to update health profile: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteHealthProfile(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_health_profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete health profile: %w", err)
	}
	return nil
}

// =====================================================
// user_alert_thresholds
// =====================================================

func (r *PostgresRepository) GetThresholds(ctx context.Context, userID uuid.UUID) (*AlertThresholds, error) {
	var t AlertThresholds
	query := `
		SELECT user_id, pm25, pm10, o3, no2, so2, co, aqi_warning, aqi_danger, created_at, updated_at
		FROM user_alert_thresholds
		WHERE user_id = $1`
	err := r.db.GetContext(ctx, &t, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert thresholds: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepository) InsertThresholds(ctx context.Context, t *AlertThresholds) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	query := `
		INSERT INTO user_alert_thresholds (user_id, pm25, pm10, o3, no2, so2, co, aqi_warning, aqi_danger, created_at, updated_at)
		VALUES (:user_id, :pm25, :pm10, :o3, :no2, :so2, :co, :aqi_warning, :aqi_danger, :created_at, :updated_at)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("failed to insert alert thresholds: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateThresholds(ctx context.Context, t *AlertThresholds) error {
	t.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE user_alert_thresholds
		SET pm25 = :pm25, pm10 = :pm10, o3 = :o3, no2 = :no2, so2 = :so2, co = :co,
		    aqi_warning = :aqi_warning, aqi_danger = :aqi_danger, updated_at = :updated_at
		WHERE user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("failed to update alert thresholds: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteThresholds(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_alert_thresholds WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete alert thresholds: %w", err)
	}
	return nil
}

// =====================================================
// emergency_contacts
// =====================================================

func (r *PostgresRepository) ListEmergencyContacts(ctx context.Context, userID uuid.UUID) ([]EmergencyContact, error) {
	contacts := []EmergencyContact{}
	query := `
		SELECT id, user_id, name, phone, relation, position
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY position`
	if err := r.db.SelectContext(ctx, &contacts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list emergency contacts: %w", err)
	}
	return contacts, nil
}

// ReplaceEmergencyContacts swaps the whole contact list in one transaction,
// so a mid-flight failure never leaves the user with zero contacts. An empty
// replacement list deletes everything and inserts nothing.
func (r *PostgresRepository) ReplaceEmergencyContacts(ctx context.Context, userID uuid.UUID, contacts []EmergencyContact) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin contact replacement: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear emergency contacts: %w", err)
	}

	insert := `
		INSERT INTO emergency_contacts (id, user_id, name, phone, relation, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	now := time.Now().UTC()
	for i, c := range contacts {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := tx.ExecContext(ctx, insert, id, userID, c.Name, c.Phone, c.Relation, i, now); err != nil {
			return fmt.Errorf("failed to insert emergency contact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contact replacement: %w", err)
	}
	return nil
}
