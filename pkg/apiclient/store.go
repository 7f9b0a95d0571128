package apiclient

import (
	"context"
	"sync"

	"aerowatch/dashboard-portal/settings-backend/internal/settings"
)

// Store holds the current settings snapshot for one consumer (a dashboard
// session, a CLI). The snapshot is replaced wholesale on every successful
// load or update, never merged field by field, and writes reach it only
// after the server confirms them.
type Store struct {
	client *Client

	mu       sync.RWMutex
	snapshot *settings.UserSettings
	loading  bool
	lastErr  string
}

// NewStore creates an empty store; call Start to perform the initial load.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// Start performs the one-time initial load.
func (s *Store) Start(ctx context.Context) {
	s.Refresh(ctx)
}

// Refresh reloads the snapshot from the service. Failures are recorded for
// display; the previous snapshot is kept.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()

	agg, err := s.client.GetSettings(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return
	}
	s.snapshot = agg
}

// Update patches one section. On success the snapshot is replaced with the
// server's fresh aggregate; on failure the error is recorded AND returned so
// the caller can keep its edit state open.
func (s *Store) Update(ctx context.Context, section settings.Section, patch interface{}) error {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	agg, err := s.client.UpdateSettings(ctx, section, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err.Error()
		return err
	}
	s.snapshot = agg
	return nil
}

// Snapshot returns the current aggregate and whether one has been loaded.
func (s *Store) Snapshot() (*settings.UserSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.snapshot != nil
}

// Loading reports whether a refresh is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the most recent failure message, empty when the last
// operation succeeded.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
