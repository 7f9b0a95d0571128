package users

import (
	"time"

	"github.com/google/uuid"

	"aerowatch/dashboard-portal/settings-backend/internal/settings"
)

// User is the account row owning the settings aggregate.
type User struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Email             string    `json:"email" db:"email"`
	PasswordHash      string    `json:"-" db:"password_hash"`
	FirstName         string    `json:"first_name" db:"first_name"`
	LastName          string    `json:"last_name" db:"last_name"`
	Phone             string    `json:"phone" db:"phone"`
	ProfilePictureURL string    `json:"profile_picture_url" db:"profile_picture_url"`
	EmailVerified     bool      `json:"email_verified" db:"email_verified"`
	PhoneVerified     bool      `json:"phone_verified" db:"phone_verified"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// ProfileUpdateRequest is the PUT /user/profile body; omitted fields stay
// unchanged.
type ProfileUpdateRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// PasswordChangeRequest is the POST /user/password body.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// ExportBundle is the raw data-export aggregate: everything the service
// stores about one user.
type ExportBundle struct {
	User       *User                       `json:"user"`
	Settings   *settings.StoredSettings    `json:"settings"`
	Health     *settings.HealthProfile     `json:"health_profile"`
	Thresholds *settings.AlertThresholds   `json:"alert_thresholds"`
	Contacts   []settings.EmergencyContact `json:"emergency_contacts"`
	ExportedAt time.Time                   `json:"exported_at"`
}
