package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"runcoach/internal/config"
	"runcoach/internal/db"
	apihttp "runcoach/internal/http"
	"runcoach/internal/llm"
	"runcoach/internal/repository"
	"runcoach/internal/service"
)

const cannedReply = `{"reply":"I'm running in offline mode, so I can't give personalised advice yet. Keep your easy runs easy and stay consistent!"}`

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}

	root := &cobra.Command{
		Use:          "coach-api",
		Short:        "RunCoach session service",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newTokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Printf("warning: building logger: %v", err)
		return zap.NewNop()
	}
	return logger
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg.LogLevel)
			defer logger.Sync()

			var (
				messages repository.MessageRepository
				workouts repository.WorkoutRepository
				plans    repository.TrainingPlanRepository
			)
			if cfg.DatabaseURL != "" {
				pool, err := db.NewPool(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("db connect: %w", err)
				}
				defer pool.Close()
				if err := repository.EnsureSchema(ctx, pool); err != nil {
					return err
				}
				messages = repository.NewPgMessageRepository(pool)
				workouts = repository.NewPgWorkoutRepository(pool)
				plans = repository.NewPgTrainingPlanRepository(pool)
			} else {
				logger.Warn("DATABASE_URL not set, using in-memory storage")
				store := repository.NewMemoryStore()
				messages, workouts, plans = store, store.Workouts(), store.TrainingPlans()
			}

			var llmClient llm.Client
			if cfg.LLMAPIKey != "" {
				llmClient = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger,
					llm.WithSystemPrompt(service.CoachSystemPrompt))
			} else {
				logger.Warn("LLM_API_KEY not set, replies are canned")
				llmClient = llm.StaticClient(cannedReply)
			}

			coach := service.NewCoachService(messages, workouts, plans, llmClient, logger)
			jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
			router := apihttp.NewRouter(logger, jwtSvc,
				apihttp.NewChatHandler(logger, coach),
				apihttp.NewTrainingHandler(logger, coach),
			)

			server := &http.Server{
				Addr:              ":" + cfg.HTTPPort,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", zap.String("port", cfg.HTTPPort))
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", zap.Error(err))
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info("shutting down")
			return server.Shutdown(shutdownCtx)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		userID int64
		name   string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token for COACH_TOKEN",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
			tok, err := jwtSvc.IssueAccessToken(service.Athlete{ID: userID, Name: name})
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "user id to embed in the token")
	cmd.Flags().StringVar(&name, "name", "", "display name used by the greeting")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
