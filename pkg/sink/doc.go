// Package sink provides delivery.Handler implementations for replayed frames.
//
// The replay client itself never stores frames; these handlers are what a
// caller plugs in to do something with them.
//
// # JSON Lines
//
//	h := sink.JSONLines(os.Stdout)
//	err := streamer.ReadAllFrames(ctx, gameID, h)
//
// Every frame becomes one line:
//
//	{"game_id":"...","turn":12,"frame":{...}}
//
// # Redis
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	recorder := sink.NewRedis(rdb, sink.DefaultRedisConfig())
//	err := streamer.ReadAllFrames(ctx, gameID, recorder)
//
// Frames are appended to the list replay:{game_id}:frames and announced on
// the channel replay:{game_id}:events. StoreGame saves the game metadata
// under replay:{game_id}:game.
//
// # Fan-out
//
//	h := sink.Multi(sink.JSONLines(os.Stdout), recorder)
package sink
