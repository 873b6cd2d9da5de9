package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/Kamar-Folarin/fleet-sync/internal/config"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

const (
	// MaxResponseSize caps how much of a response body is read (50MB)
	MaxResponseSize = 50 * 1024 * 1024

	// UserAgent is sent with every request to the onboarding API
	UserAgent = "fleet-sync/1.0"

	vesselsEndpoint   = "/api/sync/vessels"
	usersEndpoint     = "/api/sync/users"
	equipmentEndpoint = "/api/sync/equipment"
	healthEndpoint    = "/api/health"
)

// Source is the onboarding portal as seen by the sync engine
type Source interface {
	FetchVessels(ctx context.Context) ([]models.RemoteVessel, error)
	FetchUsers(ctx context.Context) ([]models.RemoteUser, error)
	FetchEquipment(ctx context.Context) ([]models.RemoteEquipment, error)
	Ping(ctx context.Context) error
	IsConfigured() bool
	Configure(baseURL, apiKey string)
}

// Client talks to the onboarding portal's sync API
type Client struct {
	mu         sync.RWMutex
	cfg        config.RemoteConfig
	base       http.RoundTripper
	httpClient *http.Client
	logger     *logrus.Logger
}

var _ Source = (*Client)(nil)

// ClientOption allows configuring the onboarding client
type ClientOption func(*Client)

// WithHTTPClient sets the transport requests go through. The bearer token is still
// added on top of it, and it survives Configure.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.base = hc.Transport
	}
}

// NewClient creates a client for the configured onboarding API
func NewClient(cfg config.RemoteConfig, logger *logrus.Logger, opts ...ClientOption) *Client {
	c := &Client{
		cfg:    cfg,
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = newHTTPClient(cfg, c.base)

	return c
}

func newHTTPClient(cfg config.RemoteConfig, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	transport := base
	if cfg.APIKey != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey}),
			Base:   base,
		}
	}
	return &http.Client{Transport: transport, Timeout: cfg.Timeout}
}

// Configure swaps the base URL and API key at runtime
func (c *Client) Configure(baseURL, apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.BaseURL = baseURL
	c.cfg.APIKey = apiKey
	c.httpClient = newHTTPClient(c.cfg, c.base)

	c.logger.WithField("base_url", baseURL).Info("Onboarding API configuration updated")
}

// IsConfigured reports whether a base URL is set
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.BaseURL != ""
}

// Settings returns the endpoint configuration currently in use
func (c *Client) Settings() config.RemoteConfig {
	cfg, _ := c.snapshot()
	return cfg
}

func (c *Client) snapshot() (config.RemoteConfig, *http.Client) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg, c.httpClient
}

// Request performs an HTTP call against endpoint and decodes the JSON response into out.
// Transport failures and 5xx responses are retried with a constant delay; 4xx responses
// fail immediately.
func (c *Client) Request(ctx context.Context, method, endpoint string, body, out any) error {
	cfg, hc := c.snapshot()
	if cfg.BaseURL == "" {
		return ErrNotConfigured
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	logger := c.logger.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": endpoint,
	})

	attempt := 0
	respBody, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		data, err := c.do(ctx, hc, cfg.BaseURL, method, endpoint, payload)
		if err == nil {
			return data, nil
		}

		var re *RemoteError
		if errors.As(err, &re) && !re.Retryable() {
			return nil, backoff.Permanent(err)
		}
		logger.WithError(err).Warnf("Request attempt %d failed", attempt)
		return nil, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(cfg.RetryDelay)),
		backoff.WithMaxTries(uint(cfg.MaxRetries+1)),
	)
	if err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return NewRemoteError(http.StatusOK, endpoint, "failed to decode response", err)
		}
	}
	return nil
}

// do performs a single attempt
func (c *Client) do(ctx context.Context, hc *http.Client, baseURL, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	url := strings.TrimRight(baseURL, "/") + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, NewRemoteError(0, endpoint, "request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, NewRemoteError(resp.StatusCode, endpoint, "failed to read response body", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, NewRemoteError(resp.StatusCode, endpoint,
			fmt.Sprintf("response exceeds maximum size of %d bytes", MaxResponseSize), nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		return nil, NewRemoteError(resp.StatusCode, endpoint, msg, nil)
	}

	return data, nil
}

// listEnvelope is the wrapped list shape; bare JSON arrays are accepted too
type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

func fetchList[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var raw json.RawMessage
	if err := c.Request(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](endpoint, raw)
}

func decodeList[T any](endpoint string, raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, NewRemoteError(http.StatusOK, endpoint, "failed to decode list", err)
		}
		return items, nil
	}

	var envelope listEnvelope[T]
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, NewRemoteError(http.StatusOK, endpoint, "failed to decode list", err)
	}
	if envelope.Data == nil {
		return []T{}, nil
	}
	return envelope.Data, nil
}

// FetchVessels returns every vessel the portal exposes for sync
func (c *Client) FetchVessels(ctx context.Context) ([]models.RemoteVessel, error) {
	start := time.Now()
	vessels, err := fetchList[models.RemoteVessel](ctx, c, vesselsEndpoint)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"count":    len(vessels),
		"duration": time.Since(start),
	}).Debug("Fetched vessels from onboarding API")
	return vessels, nil
}

// FetchUsers returns every user the portal exposes for sync
func (c *Client) FetchUsers(ctx context.Context) ([]models.RemoteUser, error) {
	start := time.Now()
	users, err := fetchList[models.RemoteUser](ctx, c, usersEndpoint)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"count":    len(users),
		"duration": time.Since(start),
	}).Debug("Fetched users from onboarding API")
	return users, nil
}

// FetchEquipment returns every equipment record, with nested tasks and parts
func (c *Client) FetchEquipment(ctx context.Context) ([]models.RemoteEquipment, error) {
	start := time.Now()
	equipment, err := fetchList[models.RemoteEquipment](ctx, c, equipmentEndpoint)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"count":    len(equipment),
		"duration": time.Since(start),
	}).Debug("Fetched equipment from onboarding API")
	return equipment, nil
}

// Ping checks the portal's health endpoint with a single attempt
func (c *Client) Ping(ctx context.Context) error {
	cfg, hc := c.snapshot()
	if cfg.BaseURL == "" {
		return ErrNotConfigured
	}
	_, err := c.do(ctx, hc, cfg.BaseURL, http.MethodGet, healthEndpoint, nil)
	return err
}
