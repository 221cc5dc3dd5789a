// Package delivery hands fetched frames to a caller's handler one at a time,
// in fetch order, with a minimum delay between consecutive deliveries.
package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/snake-replay-client/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for frame delivery.
var (
	framesDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_frames_delivered_total",
		Help: "Total frames handed to the frame handler",
	})

	deliveryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "replay_delivery_queue_depth",
		Help: "Frames waiting to be delivered",
	})

	deliveryLagSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "replay_delivery_lag_seconds",
		Help:    "Time between a frame being enqueued and being delivered",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})
)

// ErrSchedulerClosed is reported when Start is called on a closed scheduler.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Handler consumes delivered frames.
type Handler interface {
	HandleFrame(ctx context.Context, game *client.GameInfo, frame *client.Frame) error
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx context.Context, game *client.GameInfo, frame *client.Frame) error

// HandleFrame calls f(ctx, game, frame).
func (f HandlerFunc) HandleFrame(ctx context.Context, game *client.GameInfo, frame *client.Frame) error {
	return f(ctx, game, frame)
}

// Config holds the scheduler configuration.
type Config struct {
	// PacingDelay is the minimum wait before each delivery, measured from the
	// moment the frame becomes the head of the queue.
	PacingDelay time.Duration
}

// DefaultConfig returns the default pacing of 100ms between frames.
func DefaultConfig() Config {
	return Config{PacingDelay: 100 * time.Millisecond}
}

type pending struct {
	game       *client.GameInfo
	frame      *client.Frame
	enqueuedAt time.Time
}

// Scheduler is a paced FIFO of frames with exactly one consumer goroutine.
//
// Enqueue never blocks. The consumer takes the head, waits PacingDelay,
// calls the handler and only then moves on, so handler calls never overlap
// and are spaced at least PacingDelay apart.
type Scheduler struct {
	config  Config
	handler Handler
	logger  zerolog.Logger

	// OnError, when set, is called once from the consumer goroutine with the
	// first handler error.
	OnError func(err error)

	mu      sync.Mutex
	queue   []pending
	closed  bool
	started bool
	err     error
	wake    chan struct{}
	done    chan struct{}

	delivered int
}

// NewScheduler creates a scheduler. Call Start to begin delivering.
func NewScheduler(config Config, handler Handler, logger zerolog.Logger) *Scheduler {
	if config.PacingDelay < 0 {
		config.PacingDelay = DefaultConfig().PacingDelay
	}

	return &Scheduler{
		config:  config,
		handler: handler,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine. It must be called at most once.
// Cancelling ctx stops delivery; frames still queued are dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}
	if s.closed {
		return ErrSchedulerClosed
	}
	s.started = true

	go s.run(ctx)
	return nil
}

// Enqueue appends a frame to the delivery queue and returns immediately.
// Frames enqueued after Close, or after delivery stopped, are ignored.
func (s *Scheduler) Enqueue(game *client.GameInfo, frame *client.Frame) {
	s.mu.Lock()
	if s.closed {
		stopped := s.err != nil
		s.mu.Unlock()
		if !stopped {
			s.logger.Warn().Int("turn", frame.Turn).Msg("Frame enqueued after close, dropping")
		}
		return
	}
	s.queue = append(s.queue, pending{game: game, frame: frame, enqueuedAt: time.Now()})
	deliveryQueueDepth.Inc()
	s.mu.Unlock()

	s.signal()
}

// Close marks the queue complete. The consumer exits once it is drained.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.signal()
}

// Wait blocks until the consumer has exited or ctx is done. It returns the
// first handler error, or the reason delivery was cancelled.
func (s *Scheduler) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Done is closed once the consumer goroutine has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that stopped the consumer, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pending returns the number of frames waiting to be delivered.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Delivered returns the number of frames handed to the handler so far.
func (s *Scheduler) Delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next blocks until a frame is queued. ok is false once the queue is closed
// and empty, or ctx is done.
func (s *Scheduler) next(ctx context.Context) (item pending, ok bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			item = s.queue[0]
			s.queue[0] = pending{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			deliveryQueueDepth.Dec()
			return item, true
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return pending{}, false
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			return pending{}, false
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	defer s.drop()

	for {
		item, ok := s.next(ctx)
		if !ok {
			if err := context.Cause(ctx); err != nil {
				s.fail(err)
			}
			return
		}

		if err := s.pace(ctx); err != nil {
			s.fail(err)
			return
		}

		if err := s.handler.HandleFrame(ctx, item.game, item.frame); err != nil {
			s.logger.Error().
				Err(err).
				Str("game_id", item.game.ID()).
				Int("turn", item.frame.Turn).
				Msg("Frame handler failed, stopping delivery")
			s.fail(err)
			if s.OnError != nil {
				s.OnError(err)
			}
			return
		}

		framesDeliveredTotal.Inc()
		deliveryLagSeconds.Observe(time.Since(item.enqueuedAt).Seconds())

		s.mu.Lock()
		s.delivered++
		s.mu.Unlock()
	}
}

func (s *Scheduler) pace(ctx context.Context) error {
	if s.config.PacingDelay <= 0 {
		return context.Cause(ctx)
	}

	timer := time.NewTimer(s.config.PacingDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// drop discards whatever is still queued when the consumer exits early.
func (s *Scheduler) drop() {
	s.mu.Lock()
	dropped := len(s.queue)
	s.queue = nil
	s.closed = true
	s.mu.Unlock()

	if dropped > 0 {
		deliveryQueueDepth.Sub(float64(dropped))
		s.logger.Warn().Int("dropped", dropped).Msg("Delivery stopped with frames still queued")
	}
}
