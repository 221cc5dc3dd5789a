package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/Sternrassler/snake-replay-client/pkg/client"
	"github.com/Sternrassler/snake-replay-client/pkg/delivery"
)

// FrameRecord is the serialized form of a delivered frame.
type FrameRecord struct {
	GameID string        `json:"game_id"`
	Turn   int           `json:"turn"`
	Frame  *client.Frame `json:"frame"`
}

type jsonLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// JSONLines returns a handler writing one JSON object per frame to w.
func JSONLines(w io.Writer) delivery.Handler {
	return &jsonLines{enc: json.NewEncoder(w)}
}

func (j *jsonLines) HandleFrame(ctx context.Context, game *client.GameInfo, frame *client.Frame) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	record := FrameRecord{GameID: game.ID(), Turn: frame.Turn, Frame: frame}
	if err := j.enc.Encode(record); err != nil {
		return fmt.Errorf("write frame %d: %w", frame.Turn, err)
	}
	return nil
}

type multi []delivery.Handler

// Multi returns a handler calling each handler in order. It stops at the
// first error.
func Multi(handlers ...delivery.Handler) delivery.Handler {
	return multi(handlers)
}

func (m multi) HandleFrame(ctx context.Context, game *client.GameInfo, frame *client.Frame) error {
	for _, h := range m {
		if err := h.HandleFrame(ctx, game, frame); err != nil {
			return err
		}
	}
	return nil
}
