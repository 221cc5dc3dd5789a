package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/snake-replay-client/internal/config"
	"github.com/Sternrassler/snake-replay-client/pkg/client"
	"github.com/Sternrassler/snake-replay-client/pkg/logging"
	"github.com/Sternrassler/snake-replay-client/pkg/sink"
)

// app carries state shared by all subcommands after config loading.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "snake-replay",
		Short:         "Stream Battlesnake game replays from the engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			logging.Setup(logging.Config{
				Level:  cfg.Logging.Level,
				Pretty: cfg.Logging.Pretty,
				Output: a.stderr,
			})
			a.logger = logging.NewLogger(logging.ComponentCLI)
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", os.Getenv(config.EnvPrefix+"_CONFIG"), "config file path (or set "+config.EnvPrefix+"_CONFIG)")
	pf.String("engine-url", "", "engine API base URL")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("pretty", false, "human-readable log output")
	pf.Bool("redis", false, "record frames in Redis")
	pf.String("redis-addr", "", "Redis address")

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(a.streamCmd())
	rootCmd.AddCommand(a.infoCmd())
	rootCmd.AddCommand(a.recordedCmd())

	return rootCmd
}

func (a *app) engineClient() (*client.Client, error) {
	cfg := client.DefaultConfig(a.cfg.Engine.URL)
	cfg.UserAgent = a.cfg.Engine.UserAgent
	cfg.Timeout = a.cfg.Engine.Timeout

	engine, err := client.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating engine client: %w", err)
	}
	engine.SetLogger(logging.NewLogger(logging.ComponentEngine))
	return engine, nil
}

// redisSink connects to Redis. The caller closes the returned client.
func (a *app) redisSink(ctx context.Context) (*sink.Redis, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", a.cfg.Redis.Addr, err)
	}
	a.logger.Info().Str("addr", a.cfg.Redis.Addr).Msg("Connected to Redis")

	return sink.NewRedis(rdb, sink.RedisConfig{
		KeyPrefix: a.cfg.Redis.KeyPrefix,
		TTL:       a.cfg.Redis.TTL,
		Publish:   a.cfg.Redis.Publish,
	}), rdb, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
