package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"megashipping-mock/internal/config"
	"megashipping-mock/internal/observability"
	"megashipping-mock/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock HTTP server",
	Long: `Sobe o servidor HTTP do mock.

SIGINT/SIGTERM encerram com graceful shutdown. Alterações em auth.api_keys no
arquivo de config são aplicadas sem reiniciar.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		var opts []server.Option
		if cfg.Stats.Redis.Enabled {
			rdb, err := connectRedis(cmd.Context(), cfg.Stats.Redis)
			if err != nil {
				return err
			}
			defer func() { _ = rdb.Close() }()
			opts = append(opts, server.WithRedisStats(rdb))
		}

		srv := server.New(cfg, logger, opts...)

		watching := loader.Watch(func(next *config.Config, err error) {
			if err != nil {
				logger.Warn("config reload rejected", zap.Error(err))
				return
			}
			srv.ReloadKeys(next.Auth.APIKeys)
		})
		if watching {
			logger.Info("watching config file", zap.String("path", loader.ConfigFileUsed()))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		srv.StartBackground(ctx)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	},
}

func connectRedis(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis stats ping %s: %w", rc.Addr, err)
	}
	return rdb, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port and PORT)")
}
