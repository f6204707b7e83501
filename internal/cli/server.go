package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quizbot/internal/app"
	"quizbot/internal/config"
	"quizbot/internal/infra/memory"
	"quizbot/internal/infra/postgres"
	redisinfra "quizbot/internal/infra/redis"
	transport "quizbot/internal/transport/http"
	"quizbot/internal/transport/telegram"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API and, when configured, the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.InitLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var repo app.Repository
	var source app.SnapshotSource
	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrateDB(ctx, db); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = postgres.NewStore(db)
		source = postgres.NewSnapshotLoader(pool)
	} else {
		config.Logger.Warn("postgres url not configured, quizzes are kept in memory")
		mem := memory.NewRepository()
		repo, source = mem, mem
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var snapshots app.SnapshotSource
	var sessions app.SessionRegistry
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		snapshots = redisinfra.NewSnapshotCache(client, source, quizTTL)
		sessions = redisinfra.NewSessionRegistry(client, config.TTLDuration(cfg.Redis.TTL, time.Hour))
	} else {
		snapshots = memory.NewSnapshotCache(source, quizTTL)
		sessions = memory.NewSessionRegistry()
	}

	service := app.NewQuizService(repo, app.WithSnapshots(snapshots), app.WithSessionRegistry(sessions))
	answerTimeout := config.TTLDuration(cfg.Quiz.AnswerTimeout, 30*time.Second)

	var bot *telegram.Bot
	if cfg.Telegram.Token != "" {
		tb, err := telegram.NewTelebot(cfg.Telegram.Token, config.TTLDuration(cfg.Telegram.PollTimeout, 10*time.Second))
		if err != nil {
			return err
		}
		bot = telegram.New(tb, tb, service, answerTimeout)
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, transport.NewPlayHandler(service, answerTimeout)),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		config.Logger.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		config.Logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if bot != nil {
		g.Go(func() error {
			return bot.Start(gctx)
		})
	}

	return g.Wait()
}
