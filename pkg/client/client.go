// Package client provides the game engine HTTP client: the transport, the
// game info and frame page fetchers, and the engine data model.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Route templates used as endpoint labels so game IDs don't blow up cardinality.
const (
	EndpointGame   = "/games/{id}"
	EndpointFrames = "/games/{id}/frames"

	// EndpointCustom labels requests made through Request.
	EndpointCustom = "custom"
)

// Prometheus metrics for engine requests.
var (
	engineRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_requests_total",
		Help: "Total engine requests by endpoint and status",
	}, []string{"endpoint", "status"})

	engineRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "replay_request_duration_seconds",
		Help:    "Engine request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	engineErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_errors_total",
		Help: "Total engine request errors by class",
	}, []string{"class"})
)

// Client talks to the game engine API.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the engine API, e.g. "https://engine.battlesnake.com" (REQUIRED)
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per request
	Timeout time.Duration

	// HTTPClient overrides the default client (for testing)
	HTTPClient *http.Client
}

// DefaultConfig returns a default configuration for the given engine URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "snake-replay-client/0.1.0",
		Timeout:   30 * time.Second,
	}
}

// New creates a new engine client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     log.With().Str("component", "engine-client").Logger(),
	}, nil
}

// SetLogger replaces the client's logger.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// BaseURL returns the configured engine URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// GetGameInfo fetches the metadata of a game. Errors are not retried.
func (c *Client) GetGameInfo(ctx context.Context, gameID string) (*GameInfo, error) {
	if gameID == "" {
		return nil, ErrGameIDRequired
	}

	target := JoinURL(c.config.BaseURL, "games/"+url.PathEscape(gameID))

	var info GameInfo
	if err := c.request(ctx, EndpointGame, target, nil, &info); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("game_id", info.ID()).
		Str("status", info.Game.Status).
		Msg("Fetched game info")

	return &info, nil
}

// GetFrames fetches one page of at most limit frames starting at offset.
// A response without a Frames field yields an empty, non-nil slice.
func (c *Client) GetFrames(ctx context.Context, gameID string, offset, limit int) (*FramePage, error) {
	if gameID == "" {
		return nil, ErrGameIDRequired
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset must be >= 0 (got %d)", offset)
	}

	target := JoinURL(c.config.BaseURL, "/games/"+url.PathEscape(gameID)+"/frames")
	query := (&Query{}).SetInt("offset", offset).SetInt("limit", limit)

	var page FramePage
	if err := c.request(ctx, EndpointFrames, target, query, &page); err != nil {
		return nil, err
	}
	if page.Frames == nil {
		page.Frames = []Frame{}
	}

	return &page, nil
}

// Request performs a GET of target with the given query and decodes the JSON
// body into out. Its metrics are labelled EndpointCustom.
func (c *Client) Request(ctx context.Context, target string, query *Query, out any) error {
	return c.request(ctx, EndpointCustom, target, query, out)
}

func (c *Client) request(ctx context.Context, endpoint, target string, query *Query, out any) error {
	startTime := time.Now()
	defer func() {
		engineRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("url", req.URL.String()).
		Msg("Executing engine request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		engineErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		engineRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Engine request failed")
		return &EngineError{
			Endpoint:   endpoint,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	engineRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		engineErrorsTotal.WithLabelValues(string(class)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Engine request error")

		message := resp.Status
		if len(body) > 0 {
			message = fmt.Sprintf("%s: %s", resp.Status, body)
		}
		return &EngineError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    message,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		engineErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to decode engine response")
		return &EngineError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "invalid response body",
			Err:        err,
		}
	}

	return nil
}
