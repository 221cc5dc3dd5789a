// Package replay streams the frames of a game engine game to a handler.
//
// A session fetches the game info once, then walks the frames endpoint with a
// pagination.Paginator while a delivery.Scheduler hands each frame to the
// caller's handler in order, at most one every PacingDelay.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/snake-replay-client/pkg/client"
	"github.com/Sternrassler/snake-replay-client/pkg/delivery"
	"github.com/Sternrassler/snake-replay-client/pkg/pagination"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher provides both engine endpoints a session needs.
// *client.Client implements it.
type Fetcher interface {
	GetGameInfo(ctx context.Context, gameID string) (*client.GameInfo, error)
	pagination.PageFetcher
}

// Config holds the session configuration.
type Config struct {
	Pagination pagination.Config
	Delivery   delivery.Config
}

// DefaultConfig returns page size 50, a 2s empty-page backoff and 100ms
// delivery pacing.
func DefaultConfig() Config {
	return Config{
		Pagination: pagination.DefaultConfig(),
		Delivery:   delivery.DefaultConfig(),
	}
}

// Streamer runs streaming sessions against one engine.
type Streamer struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewStreamer creates a new streamer.
func NewStreamer(fetcher Fetcher, cfg Config, logger zerolog.Logger) *Streamer {
	return &Streamer{
		fetcher: fetcher,
		config:  cfg,
		logger:  logger,
	}
}

// ReadAllFrames streams every frame of gameID to handler.
//
// It returns nil once the last frame of the game has been delivered. Errors
// from the engine are returned unmodified; frames fetched before the error
// are still delivered first. A handler error stops the session and is
// returned. Nothing bounds a stalled game except ctx.
func (s *Streamer) ReadAllFrames(ctx context.Context, gameID string, handler delivery.Handler) error {
	start := time.Now()
	sessionID := uuid.NewString()
	logger := s.logger.With().
		Str("session_id", sessionID).
		Str("game_id", gameID).
		Logger()

	game, err := s.fetcher.GetGameInfo(ctx, gameID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch game info")
		return err
	}

	logger.Info().
		Str("status", game.Game.Status).
		Int("width", game.Game.Width).
		Int("height", game.Game.Height).
		Msg("Streaming game frames")

	sessionCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	scheduler := delivery.NewScheduler(s.config.Delivery, handler,
		logger.With().Str("component", "scheduler").Logger())
	scheduler.OnError = func(err error) {
		cancel(fmt.Errorf("frame handler: %w", err))
	}
	if err := scheduler.Start(sessionCtx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	paginator := pagination.NewPaginator(s.fetcher, s.config.Pagination)
	paginator.SetLogger(logger.With().Str("component", "paginator").Logger())

	fetchErr := paginator.Run(sessionCtx, game, scheduler)
	if causedByHandler(ctx, sessionCtx, fetchErr) {
		fetchErr = nil
	}

	scheduler.Close()
	deliveryErr := scheduler.Wait(context.Background())

	switch {
	case fetchErr != nil:
		logger.Error().
			Err(fetchErr).
			Int("offset", paginator.Offset()).
			Int("delivered", scheduler.Delivered()).
			Msg("Streaming aborted")
		return fetchErr
	case deliveryErr != nil:
		logger.Error().
			Err(deliveryErr).
			Int("delivered", scheduler.Delivered()).
			Msg("Frame delivery stopped")
		return deliveryErr
	}

	logger.Info().
		Int("frames", scheduler.Delivered()).
		Int("pages", paginator.Pages()).
		Dur("duration", time.Since(start)).
		Msg("Game replay complete")

	return nil
}

// causedByHandler reports whether err only stems from a handler error
// cancelling sessionCtx. An engine error that raced with it is not.
func causedByHandler(ctx, sessionCtx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil || sessionCtx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.Cause(sessionCtx))
}

// ReadAllFrames streams gameID from the engine at baseURL to handler using
// the default configuration.
func ReadAllFrames(ctx context.Context, baseURL, gameID string, handler delivery.Handler) error {
	engine, err := client.New(client.DefaultConfig(baseURL))
	if err != nil {
		return fmt.Errorf("create engine client: %w", err)
	}

	logger := log.With().Str("component", "replay").Logger()
	return NewStreamer(engine, DefaultConfig(), logger).ReadAllFrames(ctx, gameID, handler)
}
