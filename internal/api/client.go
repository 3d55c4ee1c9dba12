// Package api is the typed HTTP client for the Enlace backend. Every call
// takes a context, returns decoded models, and converts failures into
// *Error values the rest of the client can branch on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmoralesv/enlace/internal/logging"
	"github.com/jmoralesv/enlace/internal/model"
)

// Client talks to the backend REST API under a single base path.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
}

// New builds a Client whose transport attaches the bearer token from tokens
// to every non-public request. timeout bounds each call end to end.
func New(baseURL string, tokens TokenSource, timeout time.Duration, logger logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	componentLogger := logger.With(logging.Field{Key: "component", Value: "api"})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: newBearerTransport(nil, tokens),
		},
		logger: componentLogger,
	}
}

// do executes one JSON round trip. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("sending request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "path", Value: path})

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			logging.Field{Key: "method", Value: method},
			logging.Field{Key: "path", Value: path},
			logging.Field{Key: "error", Value: err.Error()})
		return &Error{Status: 0, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: 0, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage digs the human-readable message out of an error payload.
func errorMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// ─── Auth ──────────────────────────────────────────────────────────────

// Login posts credentials and returns the raw response object. The auth
// gate resolves identity fields from it by priority, so the shape stays a
// generic map rather than a struct that would drop unknown aliases.
func (c *Client) Login(ctx context.Context, username, password string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates a user account.
func (c *Client) Register(ctx context.Context, user model.User) error {
	return c.do(ctx, http.MethodPost, "/auth/registro", user, nil)
}

// ─── Links ─────────────────────────────────────────────────────────────

// CreateLink persists a submitted URL and returns it with its assigned id.
func (c *Client) CreateLink(ctx context.Context, link model.Link) (*model.Link, error) {
	var out model.Link
	if err := c.do(ctx, http.MethodPost, "/enlaces", link, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Links lists the links of the authenticated user.
func (c *Client) Links(ctx context.Context) ([]model.Link, error) {
	var out []model.Link
	if err := c.do(ctx, http.MethodGet, "/enlaces", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LinksByUser lists links owned by a specific user.
func (c *Client) LinksByUser(ctx context.Context, userID int64) ([]model.Link, error) {
	var out []model.Link
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/enlaces/usuario/%d", userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteLink removes a link by id.
func (c *Client) DeleteLink(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/enlaces/%d", id), nil, nil)
}

// ─── Analysis ──────────────────────────────────────────────────────────

// Analyze submits a URL for detection. The backend persists the resulting
// Analysis as a side effect of this call.
func (c *Client) Analyze(ctx context.Context, url string) (*model.Detection, error) {
	var out model.Detection
	if err := c.do(ctx, http.MethodPost, "/phishing/analyze", map[string]string{"url": url}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalysisDTO is the legacy save-result payload for POST /analisis.
type AnalysisDTO struct {
	LinkID     int64   `json:"enlaceId"`
	Verdict    string  `json:"resultado"`
	Confidence float64 `json:"confianza"`
	Details    string  `json:"detalles,omitempty"`
}

// CreateAnalysis persists an analysis result through the legacy endpoint.
func (c *Client) CreateAnalysis(ctx context.Context, dto AnalysisDTO) (*model.Analysis, error) {
	var out model.Analysis
	if err := c.do(ctx, http.MethodPost, "/analisis", dto, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyses lists every analysis of the authenticated user; the backend
// derives the user from the bearer token.
func (c *Client) Analyses(ctx context.Context) ([]model.Analysis, error) {
	var out []model.Analysis
	if err := c.do(ctx, http.MethodGet, "/analisis", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Analysis fetches one analysis by id.
func (c *Client) Analysis(ctx context.Context, id int64) (*model.Analysis, error) {
	var out model.Analysis
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/analisis/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAnalysis removes one analysis by id.
func (c *Client) DeleteAnalysis(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/analisis/%d", id), nil, nil)
}

// AnalysesByLink lists the analyses recorded for one link.
func (c *Client) AnalysesByLink(ctx context.Context, linkID int64) ([]model.Analysis, error) {
	var out []model.Analysis
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/analisis/enlace/%d", linkID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalysesByUser lists the analyses recorded for one user.
func (c *Client) AnalysesByUser(ctx context.Context, userID int64) ([]model.Analysis, error) {
	var out []model.Analysis
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/analisis/usuario/%d", userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Statistics fetches the system-wide aggregates.
func (c *Client) Statistics(ctx context.Context) (*model.Statistics, error) {
	var out model.Statistics
	if err := c.do(ctx, http.MethodGet, "/estadisticas", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
