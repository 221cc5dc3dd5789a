package client_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/snake-replay-client/internal/testutil"
	"github.com/Sternrassler/snake-replay-client/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()

	c, err := client.New(client.DefaultConfig(baseURL))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      client.Config
		expectError error
	}{
		{
			name:   "valid config",
			config: client.DefaultConfig("http://localhost:3005"),
		},
		{
			name:   "zero timeout falls back to default",
			config: client.Config{BaseURL: "http://localhost:3005"},
		},
		{
			name:        "empty base url",
			config:      client.Config{},
			expectError: client.ErrBaseURLRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := client.New(tt.config)
			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("New() error = %v, want %v", err, tt.expectError)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("Client is nil")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := client.DefaultConfig("http://engine")

	if cfg.BaseURL != "http://engine" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://engine")
	}
	if cfg.UserAgent == "" {
		t.Error("UserAgent should have a default")
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
}

func TestGetGameInfo(t *testing.T) {
	mock := testutil.NewMockEngine()
	defer mock.Close()
	mock.SetGame("game-1", testutil.Game("game-1"))

	c := newTestClient(t, mock.URL()+"/")

	info, err := c.GetGameInfo(context.Background(), "game-1")
	if err != nil {
		t.Fatalf("GetGameInfo() failed: %v", err)
	}

	if info.ID() != "game-1" {
		t.Errorf("ID() = %q, want %q", info.ID(), "game-1")
	}
	if info.Game.Width != 11 || info.Game.Height != 11 {
		t.Errorf("board = %dx%d, want 11x11", info.Game.Width, info.Game.Height)
	}
	if got := mock.LastRequestHeader().Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want application/json", got)
	}
	if got := mock.LastRequestHeader().Get("User-Agent"); got == "" {
		t.Error("User-Agent header not set")
	}
}

func TestGetGameInfo_NotFound(t *testing.T) {
	mock := testutil.NewMockEngine()
	defer mock.Close()

	c := newTestClient(t, mock.URL())

	_, err := c.GetGameInfo(context.Background(), "missing")
	if err == nil {
		t.Fatal("Expected error for unknown game")
	}
	if !client.IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}

	var engineErr *client.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("Expected *EngineError, got %T", err)
	}
	if engineErr.Endpoint != client.EndpointGame {
		t.Errorf("Endpoint = %q, want %q", engineErr.Endpoint, client.EndpointGame)
	}
	if mock.GameRequestCount() != 1 {
		t.Errorf("GameRequestCount = %d, want 1 (no retries)", mock.GameRequestCount())
	}
}

func TestGetGameInfo_EmptyID(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")

	if _, err := c.GetGameInfo(context.Background(), ""); !errors.Is(err, client.ErrGameIDRequired) {
		t.Errorf("error = %v, want ErrGameIDRequired", err)
	}
}

func TestGetFrames(t *testing.T) {
	mock := testutil.NewMockEngine()
	defer mock.Close()
	mock.AddFrames("game-1", testutil.MockFramesResponse{
		Frames: []any{
			testutil.Frame(0, false, false),
			testutil.Frame(1, false, true),
		},
	})

	c := newTestClient(t, mock.URL())

	page, err := c.GetFrames(context.Background(), "game-1", 7, 50)
	if err != nil {
		t.Fatalf("GetFrames() failed: %v", err)
	}

	if len(page.Frames) != 2 {
		t.Fatalf("len(Frames) = %d, want 2", len(page.Frames))
	}
	if page.Frames[1].Turn != 1 {
		t.Errorf("Frames[1].Turn = %d, want 1", page.Frames[1].Turn)
	}
	if page.Frames[1].Snakes[0].IsDead() {
		t.Error("snake 0 should be alive")
	}
	if !page.Frames[1].Snakes[1].IsDead() {
		t.Error("snake 1 should be dead")
	}

	requests := mock.FrameRequests()
	if len(requests) != 1 {
		t.Fatalf("FrameRequests = %d, want 1", len(requests))
	}
	if requests[0].Offset != 7 || requests[0].Limit != 50 {
		t.Errorf("request offset/limit = %d/%d, want 7/50", requests[0].Offset, requests[0].Limit)
	}
}

func TestGetFrames_MissingFramesField(t *testing.T) {
	tests := []struct {
		name string
		resp testutil.MockFramesResponse
	}{
		{"field omitted", testutil.MockFramesResponse{OmitFrames: true}},
		{"field null", testutil.MockFramesResponse{Frames: nil}},
		{"empty object body", testutil.MockFramesResponse{Body: `{}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockEngine()
			defer mock.Close()
			mock.AddFrames("game-1", tt.resp)

			c := newTestClient(t, mock.URL())

			page, err := c.GetFrames(context.Background(), "game-1", 0, 50)
			if err != nil {
				t.Fatalf("GetFrames() failed: %v", err)
			}
			if page.Frames == nil {
				t.Error("Frames should be an empty slice, not nil")
			}
			if len(page.Frames) != 0 {
				t.Errorf("len(Frames) = %d, want 0", len(page.Frames))
			}
		})
	}
}

func TestGetFrames_Errors(t *testing.T) {
	tests := []struct {
		name          string
		resp          testutil.MockFramesResponse
		expectedClass client.ErrorClass
	}{
		{
			name:          "server error",
			resp:          testutil.MockFramesResponse{StatusCode: http.StatusInternalServerError, Body: `{"error":"boom"}`},
			expectedClass: client.ErrorClassServer,
		},
		{
			name:          "client error",
			resp:          testutil.MockFramesResponse{StatusCode: http.StatusBadRequest, Body: `{"error":"bad offset"}`},
			expectedClass: client.ErrorClassClient,
		},
		{
			name:          "invalid json",
			resp:          testutil.MockFramesResponse{Body: `not json`},
			expectedClass: client.ErrorClassDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockEngine()
			defer mock.Close()
			mock.AddFrames("game-1", tt.resp)

			c := newTestClient(t, mock.URL())

			_, err := c.GetFrames(context.Background(), "game-1", 0, 50)
			var engineErr *client.EngineError
			if !errors.As(err, &engineErr) {
				t.Fatalf("Expected *EngineError, got %v", err)
			}
			if engineErr.ErrorClass != tt.expectedClass {
				t.Errorf("ErrorClass = %q, want %q", engineErr.ErrorClass, tt.expectedClass)
			}
			if len(mock.FrameRequests()) != 1 {
				t.Errorf("FrameRequests = %d, want 1 (no retries)", len(mock.FrameRequests()))
			}
		})
	}
}

func TestGetFrames_NetworkError(t *testing.T) {
	mock := testutil.NewMockEngine()
	baseURL := mock.URL()
	mock.Close()

	c := newTestClient(t, baseURL)

	_, err := c.GetFrames(context.Background(), "game-1", 0, 50)
	var engineErr *client.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("Expected *EngineError, got %v", err)
	}
	if engineErr.ErrorClass != client.ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want %q", engineErr.ErrorClass, client.ErrorClassNetwork)
	}
	if engineErr.Err == nil {
		t.Error("network error should wrap the cause")
	}
}

func TestGetFrames_NegativeOffset(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")

	if _, err := c.GetFrames(context.Background(), "game-1", -1, 50); err == nil {
		t.Error("Expected error for negative offset")
	}
}

func TestRequest_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockEngine()
	defer mock.Close()
	mock.AddFrames("game-1", testutil.MockFramesResponse{Delay: 200 * time.Millisecond})

	c := newTestClient(t, mock.URL())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetFrames(ctx, "game-1", 0, 50)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestRequest_EndpointLabel(t *testing.T) {
	mock := testutil.NewMockEngine()
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	for _, id := range []string{"g-1", "g-2", "g-3"} {
		mock.SetGame(id, testutil.Game(id))

		var info client.GameInfo
		if err := c.Request(context.Background(), client.JoinURL(mock.URL(), "/games/"+id), nil, &info); err != nil {
			t.Fatalf("Request(%s) error = %v", id, err)
		}
		if info.ID() != id {
			t.Errorf("Request(%s) decoded game %q", id, info.ID())
		}
	}

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var custom float64
	for _, family := range families {
		if family.GetName() != "replay_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() != "endpoint" {
					continue
				}
				if strings.Contains(label.GetValue(), "/games/g-") {
					t.Errorf("endpoint label carries a game URL: %q", label.GetValue())
				}
				if label.GetValue() == client.EndpointCustom {
					custom += metric.GetCounter().GetValue()
				}
			}
		}
	}
	if custom < 3 {
		t.Errorf("requests labelled %q = %v, want >= 3", client.EndpointCustom, custom)
	}
}
