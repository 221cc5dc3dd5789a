// Package pagination polls the frames endpoint page by page until the game ends
package pagination

import (
	"context"
	"time"

	"github.com/Sternrassler/snake-replay-client/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_pages_fetched_total",
		Help: "Total frame pages fetched by result (frames, empty)",
	}, []string{"result"})

	framesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_frames_fetched_total",
		Help: "Total frames fetched from the engine",
	})

	backoffWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_backoff_waits_total",
		Help: "Total backoff waits after an empty page",
	})
)

// Config holds paginator configuration
type Config struct {
	// PageSize is the limit sent with every frames request
	PageSize int
	// RetryDelay is the wait after a page came back empty
	RetryDelay time.Duration
}

// DefaultConfig returns the engine defaults: 50 frames per page, 2s backoff
func DefaultConfig() Config {
	return Config{
		PageSize:   50,
		RetryDelay: 2 * time.Second,
	}
}

// PageFetcher fetches a single page of frames
type PageFetcher interface {
	GetFrames(ctx context.Context, gameID string, offset, limit int) (*client.FramePage, error)
}

// FrameSink receives every fetched frame in fetch order.
// Enqueue must not block on delivery.
type FrameSink interface {
	Enqueue(game *client.GameInfo, frame *client.Frame)
}

// Paginator walks the frames of one game from offset 0 to the last frame
type Paginator struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
	offset  int
	pages   int
}

// NewPaginator creates a new paginator
func NewPaginator(fetcher PageFetcher, config Config) *Paginator {
	defaults := DefaultConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = defaults.RetryDelay
	}

	return &Paginator{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "paginator").Logger(),
	}
}

// SetLogger replaces the paginator's logger
func (p *Paginator) SetLogger(logger zerolog.Logger) {
	p.logger = logger
}

// Offset returns the offset of the next page to fetch
func (p *Paginator) Offset() int {
	return p.offset
}

// Pages returns the number of pages fetched so far
func (p *Paginator) Pages() int {
	return p.pages
}

// Run fetches pages starting at offset 0 and forwards every frame to sink
// until IsLastFrameOfGame fires on the last frame of a page.
//
// A fetch error is returned as-is and stops the loop; nothing is retried.
// Empty pages are polled again after RetryDelay, forever, so callers that
// need a bound must cancel ctx.
func (p *Paginator) Run(ctx context.Context, game *client.GameInfo, sink FrameSink) error {
	start := time.Now()
	gameID := game.ID()
	p.offset = 0
	p.pages = 0

	for {
		page, err := p.fetcher.GetFrames(ctx, gameID, p.offset, p.config.PageSize)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("game_id", gameID).
				Int("offset", p.offset).
				Msg("Frame page fetch failed")
			return err
		}
		p.pages++

		for i := range page.Frames {
			sink.Enqueue(game, &page.Frames[i])
		}

		count := len(page.Frames)
		if count > 0 {
			pagesFetchedTotal.WithLabelValues("frames").Inc()
			framesFetchedTotal.Add(float64(count))
		} else {
			pagesFetchedTotal.WithLabelValues("empty").Inc()
		}

		p.logger.Debug().
			Str("game_id", gameID).
			Int("offset", p.offset).
			Int("frames", count).
			Msg("Fetched frame page")

		if IsLastFrameOfGame(page.LastFrame()) {
			p.offset += count
			p.logger.Info().
				Str("game_id", gameID).
				Int("frames", p.offset).
				Int("pages", p.pages).
				Dur("duration", time.Since(start)).
				Msg("Reached last frame of game")
			return nil
		}

		p.offset += count

		var delay time.Duration
		if count == 0 {
			delay = p.config.RetryDelay
			backoffWaitsTotal.Inc()
			p.logger.Debug().
				Str("game_id", gameID).
				Int("offset", p.offset).
				Dur("delay", delay).
				Msg("Empty page, backing off")
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}
