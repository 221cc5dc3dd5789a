package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/snake-replay-client/pkg/client"
	"github.com/Sternrassler/snake-replay-client/pkg/sink"
)

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <game-id>",
		Short: "Print the engine's game info",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engineClient()
			if err != nil {
				return err
			}

			info, err := engine.GetGameInfo(cmd.Context(), args[0])
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("game %s not found", args[0])
				}
				return fmt.Errorf("fetching game %s: %w", args[0], err)
			}

			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func (a *app) recordedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recorded <game-id>",
		Short: "Print the frames recorded in Redis for a game as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			gameID := args[0]

			recorder, rdb, err := a.redisSink(ctx)
			if err != nil {
				return err
			}
			defer rdb.Close()

			game, err := recorder.LoadGame(ctx, gameID)
			if err != nil {
				return fmt.Errorf("loading game %s: %w", gameID, err)
			}
			frames, err := recorder.Frames(ctx, gameID)
			if err != nil {
				return fmt.Errorf("loading frames of %s: %w", gameID, err)
			}

			out := sink.JSONLines(a.stdout)
			for i := range frames {
				if err := out.HandleFrame(ctx, game, &frames[i]); err != nil {
					return err
				}
			}

			a.logger.Info().Str("game_id", gameID).Int("frames", len(frames)).Msg("Printed recorded frames")
			return nil
		},
	}
}
