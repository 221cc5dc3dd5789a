// Package pagination polls the engine frames endpoint of a single game.
//
// The engine serves frames through GET /games/{id}/frames?offset=N&limit=L.
// A running game keeps producing frames, so the paginator never knows the
// total up front; it stops when IsLastFrameOfGame reports that the last frame
// of a page concludes the game.
//
// Example usage:
//
//	p := pagination.NewPaginator(engineClient, pagination.DefaultConfig())
//	err := p.Run(ctx, gameInfo, scheduler)
//
// The paginator:
//   - Fetches one page at a time, never concurrently
//   - Advances the offset by the number of frames returned
//   - Forwards frames to the sink in fetch order without waiting for delivery
//   - Waits RetryDelay after an empty page before polling again
//   - Returns the first fetch error unmodified
package pagination
