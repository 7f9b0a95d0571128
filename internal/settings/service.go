package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aerowatch/dashboard-portal/settings-backend/internal/metrics"
	"aerowatch/dashboard-portal/settings-backend/pkg/api"
)

// ErrNotFound is returned when the user has no settings row.
var ErrNotFound = errors.New("settings not found")

// ValidationError carries the field violations of a rejected patch. The
// update is rejected before any write happens.
type ValidationError struct {
	Violations []api.FieldViolation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%d violations)", len(e.Violations))
}

// Service applies section patches to the settings aggregate.
type Service struct {
	repo      Repository
	validator *Validator
	logger    *zap.Logger
}

// NewService creates a new settings service
func NewService(repo Repository, validator *Validator, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

// GetSettings assembles the full aggregate for one user. The four reads are
// independent and run concurrently.
func (s *Service) GetSettings(ctx context.Context, userID uuid.UUID) (*UserSettings, error) {
	var (
		profile  *ProfileSettings
		stored   *StoredSettings
		health   *HealthProfile
		contacts []EmergencyContact
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = s.repo.GetProfile(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		stored, err = s.repo.GetSettings(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		health, err = s.repo.GetHealthProfile(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		contacts, err = s.repo.ListEmergencyContacts(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A missing user row is as fatal as a missing settings row; the
	// aggregate is returned whole or not at all.
	if stored == nil || profile == nil {
		return nil, ErrNotFound
	}

	agg := &UserSettings{
		UserID:        userID,
		Profile:       *profile,
		Notifications: stored.Notifications,
		Privacy:       stored.Privacy,
		Display:       stored.Display,
		Location:      stored.Location,
		CreatedAt:     stored.CreatedAt,
		UpdatedAt:     stored.UpdatedAt,
	}
	if health != nil {
		agg.Health = HealthSettings{
			Age:               health.Age,
			ActivityLevel:     health.ActivityLevel,
			Conditions:        health.Conditions,
			Medications:       health.Medications,
			EmergencyContacts: contacts,
		}
	} else {
		agg.Health.EmergencyContacts = contacts
	}
	return agg, nil
}

// UpdateSection applies a partial patch to exactly one section, validating
// the merged result before anything is written, and returns the fresh
// aggregate.
func (s *Service) UpdateSection(ctx context.Context, userID uuid.UUID, req *UpdateRequest) (*UserSettings, error) {
	section, err := ParseSection(req.Type)
	if err != nil {
		return nil, err
	}

	switch section {
	case SectionProfile:
		err = s.updateProfile(ctx, userID, req.Data)
	case SectionHealth:
		err = s.updateHealth(ctx, userID, req.Data)
	default:
		err = s.updatePreferences(ctx, userID, section, req.Data)
	}
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.IncValidationRejected(string(section))
		}
		return nil, err
	}

	metrics.IncSettingsUpdate(string(section))
	s.logger.Info("settings section updated",
		zap.String("user_id", userID.String()),
		zap.String("section", string(section)),
	)
	return s.GetSettings(ctx, userID)
}

func (s *Service) updateProfile(ctx context.Context, userID uuid.UUID, data json.RawMessage) error {
	var patch ProfilePatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("invalid profile patch: %w", err)
	}

	current, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}

	merged := *current
	applyString(&merged.FirstName, patch.FirstName)
	applyString(&merged.LastName, patch.LastName)
	applyString(&merged.Email, patch.Email)
	applyString(&merged.Phone, patch.Phone)

	if violations := s.validator.Check(merged); violations != nil {
		return &ValidationError{Violations: violations}
	}
	return s.repo.UpdateProfile(ctx, userID, &patch)
}

func (s *Service) updateHealth(ctx context.Context, userID uuid.UUID, data json.RawMessage) error {
	var patch HealthPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("invalid health patch: %w", err)
	}

	current, err := s.repo.GetHealthProfile(ctx, userID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}

	merged := *current
	applyInt(&merged.Age, patch.Age)
	applyString(&merged.ActivityLevel, patch.ActivityLevel)
	applyString(&merged.Medications, patch.Medications)
	if patch.Conditions != nil {
		merged.Conditions = patch.Conditions
	}

	check := HealthSettings{
		Age:               merged.Age,
		ActivityLevel:     merged.ActivityLevel,
		Conditions:        merged.Conditions,
		Medications:       merged.Medications,
		EmergencyContacts: patch.EmergencyContacts,
	}
	if violations := s.validator.Check(check); violations != nil {
		return &ValidationError{Violations: violations}
	}

	if err := s.repo.UpdateHealthProfile(ctx, &merged); err != nil {
		return err
	}
	if patch.EmergencyContacts != nil {
		return s.repo.ReplaceEmergencyContacts(ctx, userID, patch.EmergencyContacts)
	}
	return nil
}

func (s *Service) updatePreferences(ctx context.Context, userID uuid.UUID, section Section, data json.RawMessage) error {
	stored, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return err
	}
	if stored == nil {
		return ErrNotFound
	}

	var merged interface{}
	switch section {
	case SectionNotifications:
		var patch NotificationsPatch
		if err := json.Unmarshal(data, &patch); err != nil {
			return fmt.Errorf("invalid notifications patch: %w", err)
		}
		applyBool(&stored.Notifications.Email, patch.Email)
		applyBool(&stored.Notifications.Push, patch.Push)
		applyBool(&stored.Notifications.SMS, patch.SMS)
		applyBool(&stored.Notifications.Alerts, patch.Alerts)
		applyBool(&stored.Notifications.Browser, patch.Browser)
		applyBool(&stored.Notifications.Sound, patch.Sound)
		applyBool(&stored.Notifications.Vibration, patch.Vibration)
		applyString(&stored.Notifications.Frequency, patch.Frequency)
		applyString(&stored.Notifications.QuietHoursStart, patch.QuietHoursStart)
		applyString(&stored.Notifications.QuietHoursEnd, patch.QuietHoursEnd)
		merged = stored.Notifications
	case SectionPrivacy:
		var patch PrivacyPatch
		if err := json.Unmarshal(data, &patch); err != nil {
			return fmt.Errorf("invalid privacy patch: %w", err)
		}
		applyBool(&stored.Privacy.LocationTracking, patch.LocationTracking)
		applyBool(&stored.Privacy.Analytics, patch.Analytics)
		applyBool(&stored.Privacy.DataSharing, patch.DataSharing)
		applyBool(&stored.Privacy.AutoRefresh, patch.AutoRefresh)
		applyString(&stored.Privacy.DataRetention, patch.DataRetention)
		applyInt(&stored.Privacy.RefreshInterval, patch.RefreshInterval)
		merged = stored.Privacy
	case SectionDisplay:
		var patch DisplayPatch
		if err := json.Unmarshal(data, &patch); err != nil {
			return fmt.Errorf("invalid display patch: %w", err)
		}
		applyString(&stored.Display.Theme, patch.Theme)
		applyString(&stored.Display.Language, patch.Language)
		applyString(&stored.Display.TemperatureUnit, patch.TemperatureUnit)
		applyString(&stored.Display.DistanceUnit, patch.DistanceUnit)
		applyString(&stored.Display.DateFormat, patch.DateFormat)
		merged = stored.Display
	case SectionLocation:
		var patch LocationPatch
		if err := json.Unmarshal(data, &patch); err != nil {
			return fmt.Errorf("invalid location patch: %w", err)
		}
		if patch.DefaultLocation != nil {
			stored.Location.DefaultLocation = *patch.DefaultLocation
		}
		applyBool(&stored.Location.AutoDetect, patch.AutoDetect)
		applyString(&stored.Location.GPSAccuracy, patch.GPSAccuracy)
		applyBool(&stored.Location.SaveHistory, patch.SaveHistory)
		applyString(&stored.Location.HistoryRetention, patch.HistoryRetention)
		merged = stored.Location
	default:
		return fmt.Errorf("unknown settings section %q", section)
	}

	if violations := s.validator.Check(merged); violations != nil {
		return &ValidationError{Violations: violations}
	}
	return s.repo.UpdateSettings(ctx, stored)
}

// Initialize creates the default settings, health profile and alert
// thresholds for a user. The three inserts run concurrently and the first
// error fails the whole call; inserts are idempotent so the operation can be
// retried.
func (s *Service) Initialize(ctx context.Context, userID uuid.UUID) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.repo.InsertSettings(gctx, DefaultStoredSettings(userID))
	})
	g.Go(func() error {
		return s.repo.InsertHealthProfile(gctx, DefaultHealthProfile(userID))
	})
	g.Go(func() error {
		return s.repo.InsertThresholds(gctx, DefaultThresholds(userID))
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to initialize user settings: %w", err)
	}
	s.logger.Info("user settings initialized", zap.String("user_id", userID.String()))
	return nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
