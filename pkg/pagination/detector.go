package pagination

import "github.com/Sternrassler/snake-replay-client/pkg/client"

// IsLastFrameOfGame reports whether frame, the last frame of the most
// recently fetched page, concludes the game.
//
// A nil frame (empty page) never ends the game: the engine may simply not
// have produced the next turn yet. A frame without snakes ends it, a single
// snake ends it once dead, and otherwise the game is over when at most one
// snake is still alive.
func IsLastFrameOfGame(frame *client.Frame) bool {
	if frame == nil {
		return false
	}

	switch len(frame.Snakes) {
	case 0:
		return true
	case 1:
		return frame.Snakes[0].IsDead()
	}

	return aliveCount(frame.Snakes) <= 1
}

func aliveCount(snakes []client.Snake) int {
	alive := 0
	for _, s := range snakes {
		if !s.IsDead() {
			alive++
		}
	}
	return alive
}
