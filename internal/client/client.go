// Package client talks to the widgetboard HTTP API. It implements the
// persistence side of a widget controller and loads dashboards for the
// headless client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/live"
)

const maxErrorBodyBytes int64 = 64 << 10

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api %d: %s", e.Status, msg)
}

// Unwrap maps well-known statuses to domain errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusConflict:
		return domain.ErrConflict
	default:
		return nil
	}
}

// Client is a small JSON client for /api/v1.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// New parses baseURL; scheme-less hosts default to https.
func New(baseURL, token string) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, errors.New("client.New: empty server url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("client.New: invalid server url: %w", err)
	}
	return &Client{
		baseURL:    u,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) { c.token = token }

// Header returns the headers the cable dial must carry.
func (c *Client) Header() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

// CableURL returns the websocket endpoint on the same host.
func (c *Client) CableURL() string {
	return live.CableURL(c.baseURL)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for tokens and keeps the access token.
func (c *Client) Login(ctx context.Context, companyID uuid.UUID, email, password string) (*TokenPair, error) {
	var out TokenPair
	body := map[string]any{"company_id": companyID, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	c.token = out.AccessToken
	return &out, nil
}

// DashboardView is a dashboard with its widgets.
type DashboardView struct {
	Dashboard domain.Dashboard `json:"dashboard"`
	Widgets   []domain.Widget  `json:"widgets"`
}

func (c *Client) ListDashboards(ctx context.Context) ([]domain.Dashboard, error) {
	var out []domain.Dashboard
	if err := c.do(ctx, http.MethodGet, "/dashboards", nil, &out); err != nil {
		return nil, fmt.Errorf("client.ListDashboards: %w", err)
	}
	return out, nil
}

func (c *Client) GetDashboard(ctx context.Context, id uuid.UUID) (*DashboardView, error) {
	var out DashboardView
	if err := c.do(ctx, http.MethodGet, "/dashboards/"+id.String(), nil, &out); err != nil {
		return nil, fmt.Errorf("client.GetDashboard: %w", err)
	}
	return &out, nil
}

func (c *Client) SetRequestOptions(ctx context.Context, id uuid.UUID, opts domain.RequestOptions) error {
	body := map[string]any{"request_options": opts}
	if err := c.do(ctx, http.MethodPut, "/dashboards/"+id.String()+"/request-options", body, nil); err != nil {
		return fmt.Errorf("client.SetRequestOptions: %w", err)
	}
	return nil
}

// UpdateWidget sends a partial widget update. The response body is ignored.
func (c *Client) UpdateWidget(ctx context.Context, dashboardID, widgetID uuid.UUID, patch domain.WidgetPatch) error {
	if err := c.do(ctx, http.MethodPatch, widgetPath(dashboardID, widgetID), patch, nil); err != nil {
		return fmt.Errorf("client.UpdateWidget: %w", err)
	}
	return nil
}

func (c *Client) DeleteWidget(ctx context.Context, dashboardID, widgetID uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, widgetPath(dashboardID, widgetID), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteWidget: %w", err)
	}
	return nil
}

func widgetPath(dashboardID, widgetID uuid.UUID) string {
	return "/dashboards/" + dashboardID.String() + "/widgets/" + widgetID.String()
}

func (c *Client) apiURL(p string) string {
	u := *c.baseURL
	u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), "/api/v1", p)
	return u.String()
}

func (c *Client) do(ctx context.Context, method, p string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(p), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		_ = json.Unmarshal(raw, apiErr)
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
