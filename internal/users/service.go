package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"aerowatch/dashboard-portal/settings-backend/internal/metrics"
	"aerowatch/dashboard-portal/settings-backend/internal/settings"
	"aerowatch/dashboard-portal/settings-backend/pkg/storage"
)

var (
	// ErrNotFound is returned when the user row does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrWrongPassword is returned when the current password does not verify.
	ErrWrongPassword = errors.New("current password is incorrect")
)

// SettingsReader is the slice of the settings repository the export path
// needs.
type SettingsReader interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*settings.StoredSettings, error)
	GetHealthProfile(ctx context.Context, userID uuid.UUID) (*settings.HealthProfile, error)
	GetThresholds(ctx context.Context, userID uuid.UUID) (*settings.AlertThresholds, error)
	ListEmergencyContacts(ctx context.Context, userID uuid.UUID) ([]settings.EmergencyContact, error)
}

// Service owns account-level operations: profile, avatar, password, export
// and deletion.
type Service struct {
	repo         Repository
	settingsRepo SettingsReader
	store        storage.ObjectStore
	validator    *settings.Validator
	logger       *zap.Logger
}

// NewService creates a new users service
func NewService(repo Repository, settingsRepo SettingsReader, store storage.ObjectStore, validator *settings.Validator, logger *zap.Logger) *Service {
	return &Service{
		repo:         repo,
		settingsRepo: settingsRepo,
		store:        store,
		validator:    validator,
		logger:       logger,
	}
}

// UpdateProfile applies a partial profile patch to the user row.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *ProfileUpdateRequest) error {
	changed, err := s.repo.UpdateProfile(ctx, userID, req)
	if err != nil {
		return err
	}
	if !changed {
		return ErrNotFound
	}
	return nil
}

// UploadAvatar stores the picture and records its URL on the user row.
func (s *Service) UploadAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, body io.Reader) (string, error) {
	ext := path.Ext(filename)
	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.New(), ext)

	url, err := s.store.Upload(ctx, key, body, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}

	changed, err := s.repo.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return "", err
	}
	if !changed {
		return "", ErrNotFound
	}

	metrics.IncAvatarUploaded()
	s.logger.Info("avatar uploaded", zap.String("user_id", userID.String()), zap.String("key", key))
	return url, nil
}

// ChangePassword verifies the current password and swaps in the new one.
// The request is validated before any store access.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *PasswordChangeRequest) error {
	if violations := s.validator.Check(req); violations != nil {
		return &settings.ValidationError{Violations: violations}
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	changed, err := s.repo.UpdatePasswordHash(ctx, userID, string(hash))
	if err != nil {
		return err
	}
	if !changed {
		return ErrNotFound
	}

	s.logger.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

// Export gathers everything stored about the user; the five reads run
// concurrently and the first error fails the export.
func (s *Service) Export(ctx context.Context, userID uuid.UUID) (*ExportBundle, error) {
	bundle := &ExportBundle{ExportedAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		bundle.User, err = s.repo.GetByID(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		bundle.Settings, err = s.settingsRepo.GetSettings(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		bundle.Health, err = s.settingsRepo.GetHealthProfile(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		bundle.Thresholds, err = s.settingsRepo.GetThresholds(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		bundle.Contacts, err = s.settingsRepo.ListEmergencyContacts(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to export user data: %w", err)
	}

	if bundle.User == nil {
		return nil, ErrNotFound
	}
	return bundle, nil
}

// DeleteAccount removes the user; settings, health, thresholds and contacts
// cascade at the store.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	metrics.IncAccountDeleted()
	s.logger.Info("account deleted", zap.String("user_id", userID.String()))
	return nil
}
