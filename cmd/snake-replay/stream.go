package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/snake-replay-client/internal/config"
	"github.com/Sternrassler/snake-replay-client/pkg/client"
	"github.com/Sternrassler/snake-replay-client/pkg/delivery"
	"github.com/Sternrassler/snake-replay-client/pkg/logging"
	"github.com/Sternrassler/snake-replay-client/pkg/metrics"
	"github.com/Sternrassler/snake-replay-client/pkg/pagination"
	"github.com/Sternrassler/snake-replay-client/pkg/replay"
	"github.com/Sternrassler/snake-replay-client/pkg/sink"
)

func (a *app) streamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream <game-id>",
		Short: "Stream every frame of a game until it ends",
		Long: `Stream fetches the game info once and then pages through the game's
frames until the last frame of the game has been delivered. Frames are
written to stdout as JSON lines and, with --redis, recorded in Redis.

A running game is followed live: empty pages are polled again after
the retry delay. Use --timeout to bound a game that never ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStream(cmd.Context(), args[0])
		},
	}

	f := cmd.Flags()
	f.Int("page-size", 0, "frames requested per page")
	f.Duration("retry-delay", 0, "wait after an empty page")
	f.Duration("pacing-delay", 0, "minimum delay before each frame delivery")
	f.Duration("timeout", 0, "abort the session after this duration (0 = never)")
	f.StringP("output", "o", "", "frame output: jsonl or none")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func (a *app) runStream(ctx context.Context, gameID string) error {
	if a.cfg.Stream.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Stream.Timeout)
		defer cancel()
	}

	engine, err := a.engineClient()
	if err != nil {
		return err
	}

	var handlers []delivery.Handler
	if a.cfg.Output.Format == config.OutputJSONL {
		handlers = append(handlers, sink.JSONLines(a.stdout))
	}
	if a.cfg.Redis.Enabled {
		recorder, rdb, err := a.redisSink(ctx)
		if err != nil {
			return err
		}
		defer rdb.Close()
		handlers = append(handlers, &gameRecorder{sink: recorder})
	}

	if a.cfg.Metrics.Addr != "" {
		stop, err := a.serveMetrics(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	streamer := replay.NewStreamer(engine, replay.Config{
		Pagination: pagination.Config{
			PageSize:   a.cfg.Stream.PageSize,
			RetryDelay: a.cfg.Stream.RetryDelay,
		},
		Delivery: delivery.Config{
			PacingDelay: a.cfg.Stream.PacingDelay,
		},
	}, logging.NewLogger(logging.ComponentReplay))

	a.logger.Info().
		Str("game_id", gameID).
		Str("engine", engine.BaseURL()).
		Str("output", a.cfg.Output.Format).
		Bool("redis", a.cfg.Redis.Enabled).
		Msg("Streaming game")

	if err := streamer.ReadAllFrames(ctx, gameID, sink.Multi(handlers...)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && a.cfg.Stream.Timeout > 0 {
			return fmt.Errorf("game %s did not finish within %s: %w", gameID, a.cfg.Stream.Timeout, err)
		}
		return fmt.Errorf("streaming game %s: %w", gameID, err)
	}
	return nil
}

// serveMetrics starts the metrics server. stop shuts it down and waits.
func (a *app) serveMetrics(ctx context.Context) (stop func(), err error) {
	srv, err := metrics.Listen(a.cfg.Metrics.Addr, logging.NewLogger(logging.ComponentMetrics))
	if err != nil {
		return nil, fmt.Errorf("starting metrics server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

// gameRecorder stores the game metadata in Redis before its first frame.
// Frames are delivered one at a time, so no locking is needed.
type gameRecorder struct {
	sink   *sink.Redis
	stored bool
}

func (g *gameRecorder) HandleFrame(ctx context.Context, game *client.GameInfo, frame *client.Frame) error {
	if !g.stored {
		if err := g.sink.StoreGame(ctx, game); err != nil {
			return err
		}
		g.stored = true
	}
	return g.sink.HandleFrame(ctx, game, frame)
}
