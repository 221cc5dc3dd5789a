package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/snake-replay-client/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	redisFramesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_redis_frames_recorded_total",
		Help: "Total frames recorded to Redis",
	})

	redisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_redis_errors_total",
		Help: "Total Redis sink errors by operation",
	}, []string{"operation"}) // "record", "store_game", "read"
)

// ErrGameNotRecorded is returned by LoadGame for unknown games.
var ErrGameNotRecorded = errors.New("game not recorded")

// RedisConfig holds the Redis sink configuration.
type RedisConfig struct {
	// KeyPrefix namespaces all keys (default "replay")
	KeyPrefix string

	// TTL applied to every key written; 0 keeps keys forever
	TTL time.Duration

	// Publish announces each recorded frame on the events channel
	Publish bool
}

// DefaultRedisConfig returns the default Redis sink configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		KeyPrefix: "replay",
		TTL:       24 * time.Hour,
		Publish:   true,
	}
}

// Redis records delivered frames in Redis.
type Redis struct {
	redis  *redis.Client
	config RedisConfig
}

// NewRedis creates a Redis sink.
func NewRedis(redisClient *redis.Client, config RedisConfig) *Redis {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "replay"
	}
	return &Redis{redis: redisClient, config: config}
}

// FramesKey returns the list key holding a game's frames.
func (r *Redis) FramesKey(gameID string) string {
	return fmt.Sprintf("%s:%s:frames", r.config.KeyPrefix, gameID)
}

// GameKey returns the key holding a game's metadata.
func (r *Redis) GameKey(gameID string) string {
	return fmt.Sprintf("%s:%s:game", r.config.KeyPrefix, gameID)
}

// EventsChannel returns the pub/sub channel frames are announced on.
func (r *Redis) EventsChannel(gameID string) string {
	return fmt.Sprintf("%s:%s:events", r.config.KeyPrefix, gameID)
}

// HandleFrame appends the frame to the game's frame list.
func (r *Redis) HandleFrame(ctx context.Context, game *client.GameInfo, frame *client.Frame) error {
	gameID := game.ID()

	data, err := json.Marshal(frame)
	if err != nil {
		redisErrors.WithLabelValues("record").Inc()
		return fmt.Errorf("marshal frame: %w", err)
	}

	key := r.FramesKey(gameID)
	pipe := r.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	if r.config.TTL > 0 {
		pipe.Expire(ctx, key, r.config.TTL)
	}
	if r.config.Publish {
		event, err := json.Marshal(FrameRecord{GameID: gameID, Turn: frame.Turn})
		if err != nil {
			redisErrors.WithLabelValues("record").Inc()
			return fmt.Errorf("marshal frame event: %w", err)
		}
		pipe.Publish(ctx, r.EventsChannel(gameID), event)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		redisErrors.WithLabelValues("record").Inc()
		return fmt.Errorf("record frame %d in redis: %w", frame.Turn, err)
	}

	redisFramesRecorded.Inc()
	return nil
}

// StoreGame saves the game metadata.
func (r *Redis) StoreGame(ctx context.Context, game *client.GameInfo) error {
	data, err := json.Marshal(game)
	if err != nil {
		redisErrors.WithLabelValues("store_game").Inc()
		return fmt.Errorf("marshal game: %w", err)
	}

	if err := r.redis.Set(ctx, r.GameKey(game.ID()), data, r.config.TTL).Err(); err != nil {
		redisErrors.WithLabelValues("store_game").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// LoadGame reads game metadata saved by StoreGame.
func (r *Redis) LoadGame(ctx context.Context, gameID string) (*client.GameInfo, error) {
	data, err := r.redis.Get(ctx, r.GameKey(gameID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrGameNotRecorded
		}
		redisErrors.WithLabelValues("read").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var game client.GameInfo
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("unmarshal game: %w", err)
	}
	return &game, nil
}

// Frames returns every frame recorded for gameID, in delivery order.
func (r *Redis) Frames(ctx context.Context, gameID string) ([]client.Frame, error) {
	items, err := r.redis.LRange(ctx, r.FramesKey(gameID), 0, -1).Result()
	if err != nil {
		redisErrors.WithLabelValues("read").Inc()
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	frames := make([]client.Frame, 0, len(items))
	for i, item := range items {
		var frame client.Frame
		if err := json.Unmarshal([]byte(item), &frame); err != nil {
			return nil, fmt.Errorf("unmarshal frame %d: %w", i, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// Reset deletes everything recorded for gameID.
func (r *Redis) Reset(ctx context.Context, gameID string) error {
	if err := r.redis.Del(ctx, r.FramesKey(gameID), r.GameKey(gameID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
