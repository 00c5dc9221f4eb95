package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fetchd/fetchd/internal/bus"
	"github.com/fetchd/fetchd/internal/config"
	"github.com/fetchd/fetchd/internal/log"
	"github.com/fetchd/fetchd/internal/playlist"
	"github.com/fetchd/fetchd/internal/queue"
	"github.com/fetchd/fetchd/internal/store"
	"github.com/fetchd/fetchd/internal/worker"
)

var (
	flagEnvFile     string
	flagVerbose     bool
	flagRedisAddr   string
	flagRedisDB     int
	flagNATSURL     string
	flagNATSSubject string
	flagBinary      string
)

func main() {
	root := &cobra.Command{
		Use:          "fetchd",
		Short:        "Background media download queue daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.Flags().StringVar(&flagEnvFile, "env-file", "", "load environment from this .env file")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	root.Flags().StringVar(&flagRedisAddr, "redis-addr", os.Getenv("FETCHD_REDIS_ADDR"), "redis address for durable history (empty: in-memory)")
	root.Flags().IntVar(&flagRedisDB, "redis-db", 0, "redis database number")
	root.Flags().StringVar(&flagNATSURL, "nats-url", os.Getenv("FETCHD_NATS_URL"), "NATS url for event forwarding (empty: disabled)")
	root.Flags().StringVar(&flagNATSSubject, "nats-subject", "fetchd.events", "NATS subject for forwarded events")
	root.Flags().StringVar(&flagBinary, "worker-bin", worker.DefaultBinary, "external worker binary")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	logger := log.New(flagVerbose)

	var st store.Store
	if flagRedisAddr != "" {
		rs := store.NewRedis(store.NewRedisClient(flagRedisAddr, os.Getenv("FETCHD_REDIS_PASSWORD"), flagRedisDB))
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		st = rs
		logger.Info("using redis store", "addr", flagRedisAddr)
	} else {
		st = store.NewMemory()
		logger.Warn("no redis configured, durable history is in-memory only")
	}

	events := bus.New()
	defer events.Close()

	adapter := worker.NewYTDLP(flagBinary, logger)

	svc := queue.New(queue.Config{
		Store:    st,
		Bus:      events,
		Settings: config.NewEnvProvider(5 * time.Second),
		Worker:   adapter,
		Resolver: playlist.NewYTDLPResolver(),
		Metadata: adapter,
		Logger:   logger,
	})
	svc.Start()
	defer svc.Stop()

	if flagNATSURL != "" {
		fwd, err := bus.Connect(flagNATSURL, flagNATSSubject, logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer fwd.Close()

		ch, cancel := events.Subscribe()
		defer cancel()
		go fwd.Run(ctx, ch)
		logger.Info("forwarding events", "url", flagNATSURL, "subject", flagNATSSubject)
	}

	logger.Info("fetchd started")
	<-ctx.Done()
	logger.Info("fetchd shutting down")
	return nil
}
