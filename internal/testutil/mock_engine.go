// Package testutil provides testing utilities for the replay client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockFramesResponse defines one scripted reply of the frames endpoint.
type MockFramesResponse struct {
	// Frames are encoded as the "Frames" field. Ignored when OmitFrames is set.
	Frames any

	// OmitFrames leaves the "Frames" field out of the body entirely.
	OmitFrames bool

	// StatusCode defaults to 200.
	StatusCode int

	// Body replaces the generated body when non-empty.
	Body string

	Delay time.Duration
}

// FrameRequest records one call to the frames endpoint.
type FrameRequest struct {
	GameID string
	Offset int
	Limit  int
	At     time.Time
}

// MockEngine is a configurable mock of the game engine API.
//
// GET /games/{id} serves the game set with SetGame.
// GET /games/{id}/frames replays the scripted responses in order; once the
// script is exhausted it answers with an empty page.
type MockEngine struct {
	server *httptest.Server
	mu     sync.Mutex

	games     map[string]any
	gameCodes map[string]int
	frames    map[string][]MockFramesResponse

	frameRequests []FrameRequest
	gameRequests  int
	lastHeader    http.Header
}

// NewMockEngine creates and starts a new mock engine.
func NewMockEngine() *MockEngine {
	mock := &MockEngine{
		games:     make(map[string]any),
		gameCodes: make(map[string]int),
		frames:    make(map[string][]MockFramesResponse),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockEngine) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockEngine) Close() {
	m.server.Close()
}

// SetGame configures the body of GET /games/{id}. The value is JSON encoded.
func (m *MockEngine) SetGame(gameID string, body any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[gameID] = body
}

// SetGameStatus makes GET /games/{id} fail with the given status code.
func (m *MockEngine) SetGameStatus(gameID string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gameCodes[gameID] = statusCode
}

// AddFrames appends scripted responses for GET /games/{id}/frames.
func (m *MockEngine) AddFrames(gameID string, responses ...MockFramesResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames[gameID] = append(m.frames[gameID], responses...)
}

// FrameRequests returns every recorded frames call in arrival order.
func (m *MockEngine) FrameRequests() []FrameRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FrameRequest, len(m.frameRequests))
	copy(out, m.frameRequests)
	return out
}

// Offsets returns the offsets of every recorded frames call.
func (m *MockEngine) Offsets() []int {
	requests := m.FrameRequests()
	out := make([]int, len(requests))
	for i, r := range requests {
		out[i] = r.Offset
	}
	return out
}

// GameRequestCount returns the number of game info requests received.
func (m *MockEngine) GameRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gameRequests
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockEngine) LastRequestHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}

func (m *MockEngine) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.lastHeader = r.Header.Clone()
	m.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "games":
		m.handleGame(w, parts[1])
	case len(parts) == 3 && parts[0] == "games" && parts[2] == "frames":
		m.handleFrames(w, r, parts[1])
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (m *MockEngine) handleGame(w http.ResponseWriter, gameID string) {
	m.mu.Lock()
	m.gameRequests++
	body, ok := m.games[gameID]
	code := m.gameCodes[gameID]
	m.mu.Unlock()

	if code != 0 {
		writeJSON(w, code, map[string]string{"error": http.StatusText(code)})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "game not found"})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (m *MockEngine) handleFrames(w http.ResponseWriter, r *http.Request, gameID string) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	m.mu.Lock()
	m.frameRequests = append(m.frameRequests, FrameRequest{
		GameID: gameID,
		Offset: offset,
		Limit:  limit,
		At:     time.Now(),
	})
	var resp MockFramesResponse
	if script := m.frames[gameID]; len(script) > 0 {
		resp = script[0]
		m.frames[gameID] = script[1:]
	} else {
		resp = MockFramesResponse{Frames: []any{}}
	}
	m.mu.Unlock()

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	if resp.Body != "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(resp.Body))
		return
	}

	body := map[string]any{}
	if !resp.OmitFrames {
		body["Frames"] = resp.Frames
		body["Count"] = countOf(resp.Frames)
	}
	writeJSON(w, status, body)
}

func countOf(frames any) int {
	data, err := json.Marshal(frames)
	if err != nil {
		return 0
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return 0
	}
	return len(list)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Frame builds a minimal frame body with one snake per entry of dead.
// dead[i] set means snake i carries a death record.
func Frame(turn int, dead ...bool) map[string]any {
	snakes := make([]map[string]any, 0, len(dead))
	for i, d := range dead {
		snake := map[string]any{
			"ID":     "snake-" + strconv.Itoa(i),
			"Name":   "Snake " + strconv.Itoa(i),
			"Health": 100,
			"Body":   []map[string]int{{"X": i, "Y": turn}},
			"Death":  nil,
		}
		if d {
			snake["Health"] = 0
			snake["Death"] = map[string]any{"Cause": "snake-collision", "Turn": turn}
		}
		snakes = append(snakes, snake)
	}
	return map[string]any{"Turn": turn, "Snakes": snakes}
}

// Game builds a minimal game info body.
func Game(gameID string) map[string]any {
	return map[string]any{
		"Game": map[string]any{
			"ID":     gameID,
			"Status": "running",
			"Width":  11,
			"Height": 11,
		},
	}
}
