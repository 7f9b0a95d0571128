package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"aerowatch/dashboard-portal/settings-backend/internal/settings"
	"aerowatch/dashboard-portal/settings-backend/internal/users"
	"aerowatch/dashboard-portal/settings-backend/pkg/api"
)

// Normalized user-facing errors. Transport and server faults are collapsed
// into this small set; validation failures keep their field messages.
var (
	ErrUnreachable = errors.New("unable to reach the settings service, check your connection")
	ErrServer      = errors.New("something went wrong on our side, please try again")
	ErrMalformed   = errors.New("the settings service returned an unexpected response")
)

// Client is the typed facade over the settings HTTP API. One method per
// route, a single attempt per call.
type Client struct {
	http   *resty.Client
	userID uuid.UUID
	logger *zap.Logger
}

// New builds a client acting as the given principal.
func New(baseURL string, userID uuid.UUID, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-User-ID", userID.String())

	return &Client{
		http:   httpClient,
		userID: userID,
		logger: logger,
	}
}

type envelope struct {
	Success bool                 `json:"success"`
	Data    json.RawMessage      `json:"data"`
	Error   string               `json:"error"`
	Fields  []api.FieldViolation `json:"fields"`
}

// GetSettings fetches the full settings aggregate.
func (c *Client) GetSettings(ctx context.Context) (*settings.UserSettings, error) {
	data, err := c.call(ctx, http.MethodGet, "/api/v1/settings", nil)
	if err != nil {
		return nil, err
	}
	var agg settings.UserSettings
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, ErrMalformed
	}
	return &agg, nil
}

// UpdateSettings patches one section and returns the fresh aggregate.
func (c *Client) UpdateSettings(ctx context.Context, section settings.Section, patch interface{}) (*settings.UserSettings, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("invalid patch: %w", err)
	}
	body := settings.UpdateRequest{Type: string(section), Data: raw}

	data, err := c.call(ctx, http.MethodPut, "/api/v1/settings", body)
	if err != nil {
		return nil, err
	}
	var agg settings.UserSettings
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, ErrMalformed
	}
	return &agg, nil
}

// InitializeSettings creates the default rows for a fresh account.
func (c *Client) InitializeSettings(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/api/v1/settings/initialize", nil)
	return err
}

// UpdateProfile applies a partial profile patch.
func (c *Client) UpdateProfile(ctx context.Context, req *users.ProfileUpdateRequest) error {
	_, err := c.call(ctx, http.MethodPut, "/api/v1/user/profile", req)
	return err
}

// ChangePassword swaps the account password.
func (c *Client) ChangePassword(ctx context.Context, current, newPassword, confirm string) error {
	body := users.PasswordChangeRequest{
		CurrentPassword: current,
		NewPassword:     newPassword,
		ConfirmPassword: confirm,
	}
	_, err := c.call(ctx, http.MethodPost, "/api/v1/user/password", body)
	return err
}

// UploadAvatar sends the picture and returns its stored URL.
func (c *Client) UploadAvatar(ctx context.Context, filename string, file io.Reader) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, file).
		Post("/api/v1/user/avatar")
	if err != nil {
		return "", ErrUnreachable
	}

	data, err := c.decode(resp)
	if err != nil {
		return "", err
	}
	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", ErrMalformed
	}
	return payload.URL, nil
}

// ExportData downloads the raw data-export aggregate. The route returns the
// bundle itself, not an envelope.
func (c *Client) ExportData(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("userId", c.userID.String()).
		Get("/api/v1/user/export")
	if err != nil {
		return nil, ErrUnreachable
	}
	if !resp.IsSuccess() {
		return nil, c.failure(resp)
	}
	return json.RawMessage(resp.Body()), nil
}

// DeleteAccount removes the account and everything stored with it.
func (c *Client) DeleteAccount(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("userId", c.userID.String()).
		Delete("/api/v1/user/delete")
	if err != nil {
		return ErrUnreachable
	}
	if !resp.IsSuccess() {
		return c.failure(resp)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Warn("settings API unreachable", zap.String("path", path), zap.Error(err))
		return nil, ErrUnreachable
	}
	return c.decode(resp)
}

func (c *Client) decode(resp *resty.Response) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, ErrMalformed
	}
	if !resp.IsSuccess() || !env.Success {
		return nil, c.failureEnvelope(resp.StatusCode(), &env)
	}
	return env.Data, nil
}

func (c *Client) failure(resp *resty.Response) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return ErrServer
	}
	return c.failureEnvelope(resp.StatusCode(), &env)
}

// failureEnvelope keeps client-error detail (the user can fix those) and
// hides everything else behind a generic message.
func (c *Client) failureEnvelope(status int, env *envelope) error {
	if len(env.Fields) > 0 {
		parts := make([]string, 0, len(env.Fields))
		for _, f := range env.Fields {
			parts = append(parts, f.Field+" "+f.Message)
		}
		return errors.New(strings.Join(parts, "; "))
	}
	if status >= 400 && status < 500 && env.Error != "" {
		return errors.New(env.Error)
	}
	return ErrServer
}
