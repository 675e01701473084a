// Command txtracker submits pool transactions and tracks them until they are final.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/config"
	"github.com/gabapcia/txtracker/internal/handlers/cli"
	"github.com/gabapcia/txtracker/internal/infra/blockchain/ethereum"
	"github.com/gabapcia/txtracker/internal/infra/storage/bolt"
	"github.com/gabapcia/txtracker/internal/infra/storage/redis"
	"github.com/gabapcia/txtracker/internal/pkg/logger"
	"github.com/gabapcia/txtracker/internal/pkg/telemetry"
	"github.com/gabapcia/txtracker/internal/pkg/transport/http"
	"github.com/gabapcia/txtracker/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/txtracker/internal/txtracker"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.TelemetryEnabled {
		shutdown, err := telemetry.Init(ctx, cfg.ServiceName)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Error(ctx, "failed to shut down telemetry", "error", err)
			}
		}()
	}

	registry, err := action.NewRegistry(ethereum.PoolActions())
	if err != nil {
		return err
	}

	conn := jsonrpc.NewClient(
		http.NewClient(
			http.WithTimeout(cfg.RPC.Timeout),
			http.WithRetryMax(cfg.RPC.Retries),
		),
		cfg.RPC.Endpoint,
	)
	sessions := ethereum.NewSessionProvider(conn, cfg.Account,
		ethereum.WithReceiptPolling(cfg.Receipts.PollInterval, cfg.Receipts.PollMaxDelay),
	)

	visibility := txtracker.NewVisibilitySwitch()
	opts := []txtracker.Option{
		txtracker.WithVisibility(visibility),
		txtracker.WithHideDelay(cfg.HideDelay),
		txtracker.WithExplorerURL(cfg.ExplorerURL),
	}

	storage, closeStorage, err := openRecordStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	if storage != nil {
		opts = append(opts, txtracker.WithRecordStorage(storage))
	}

	tracker := txtracker.New(registry, sessions, opts...)

	return cli.Run(ctx, tracker, cfg.ExecutorConfig(), visibility)
}

// openRecordStorage connects the configured record storage. The memory
// driver has none and returns a nil storage.
func openRecordStorage(ctx context.Context, cfg config.Storage) (txtracker.RecordStorage, func(), error) {
	switch cfg.Driver {
	case config.StorageRedis:
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	case config.StorageBolt:
		client, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt database: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
