package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"runcoach/internal/collections"
	"runcoach/internal/config"
	"runcoach/internal/domain"
	"runcoach/internal/remote"
)

// app guarda lo que comparten los subcomandos.
type app struct {
	cfg    *config.ClientConfig
	logger *zap.Logger
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}

	a := &app{}
	root := &cobra.Command{
		Use:           "coach-cli",
		Short:         "Chat with your RunCoach AI running coach from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClientConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			a.logger = newLogger(cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.AddCommand(newChatCmd(a), newHistoryCmd(a), newWorkoutsCmd(a))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// newLogger escribe a COACH_LOG_FILE; sin archivo no loguea para no ensuciar la terminal.
func newLogger(cfg *config.ClientConfig) *zap.Logger {
	if cfg.LogFile == "" {
		return zap.NewNop()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{cfg.LogFile}
	zcfg.ErrorOutputPaths = []string{cfg.LogFile}
	logger, err := zcfg.Build()
	if err != nil {
		log.Printf("warning: building logger: %v", err)
		return zap.NewNop()
	}
	return logger
}

func (a *app) viewer() domain.Viewer {
	// el perfil lo exige el servidor al emitir el token
	return domain.Viewer{
		UserID:          a.cfg.UserID,
		Name:            a.cfg.UserName,
		Token:           a.cfg.Token,
		ProfileComplete: true,
	}
}

func (a *app) remoteClient() *remote.Client {
	return remote.NewClient(a.cfg.APIURL, a.cfg.Token, &http.Client{Timeout: a.cfg.HTTPTimeout}, a.logger)
}

// staleTracker usa Redis cuando esta configurado y responde; si no, memoria del proceso.
func (a *app) staleTracker(ctx context.Context) collections.StaleTracker {
	if a.cfg.RedisAddr == "" {
		return collections.NewMemoryStaleTracker()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn("redis ping failed, using in-process stale flags", zap.Error(err))
		_ = client.Close()
		return collections.NewMemoryStaleTracker()
	}
	return collections.NewRedisStaleTracker(client)
}
