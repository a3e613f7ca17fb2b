package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/contentloop/configs"
	"github.com/maheshrc27/contentloop/internal/constraints"
	"github.com/maheshrc27/contentloop/internal/content"
	"github.com/maheshrc27/contentloop/internal/importer"
	job "github.com/maheshrc27/contentloop/internal/jobs"
	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/maheshrc27/contentloop/internal/publisher"
	"github.com/maheshrc27/contentloop/internal/queue"
	"github.com/maheshrc27/contentloop/internal/repository"
	"github.com/maheshrc27/contentloop/internal/rotation"
	"github.com/maheshrc27/contentloop/internal/service"
)

// application holds the wired dependencies shared by every subcommand.
type application struct {
	cfg          *config.Config
	db           *sql.DB
	redis        asynq.RedisClientOpt
	asynqClient  *asynq.Client
	dispatcher   *publish.Dispatcher
	loops        service.LoopService
	posts        service.PostService
	media        service.MediaService
	orchestrator *job.LoopOrchestrator
	retrySweep   *job.RetrySweepJob
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database is unreachable: %w", err)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)

	brandRepo := repository.NewBrandRepository(db)
	loopRepo := repository.NewLoopRepository(db)
	itemRepo := repository.NewLoopItemRepository(db)
	scheduleRepo := repository.NewLoopScheduleRepository(db)
	postRepo := repository.NewSocialPostRepository(db)
	attemptRepo := repository.NewPublishAttemptRepository(db)
	accountRepo := repository.NewSocialAccountRepository(db)

	checker := constraints.Default()
	creds := service.NewCredentialService(accountRepo, cfg.SecretKey)
	connectors := publisher.NewHTTPRegistry(cfg.ConnectorBaseURL, &http.Client{Timeout: cfg.PublishTimeout})
	dispatcher := publish.NewDispatcher(postRepo, attemptRepo, creds, connectors, queue.NewClient(client),
		publish.WithTimeout(cfg.PublishTimeout))

	feeds := importer.NewFeedImporter(&http.Client{Timeout: 30 * time.Second})
	loops := service.NewLoopService(db, loopRepo, itemRepo, scheduleRepo, postRepo, brandRepo, checker, rotation.NewEngine(), feeds)
	posts := service.NewPostService(postRepo, attemptRepo, checker, dispatcher)

	r2, err := service.NewR2Client(ctx, cfg.R2)
	if err != nil {
		client.Close()
		db.Close()
		return nil, err
	}

	return &application{
		cfg:         cfg,
		db:          db,
		redis:       redisConn,
		asynqClient: client,
		dispatcher:  dispatcher,
		loops:       loops,
		posts:       posts,
		media:       service.NewMediaService(r2, cfg.R2),
		orchestrator: job.NewLoopOrchestrator(loops, brandRepo, postRepo, content.NewResolver(postRepo),
			checker, dispatcher, publish.ParseMode(cfg.DispatchMode), cfg.TickConcurrency),
		retrySweep: job.NewRetrySweepJob(dispatcher, publish.NewRetryPolicy(cfg.RetryPolicy, cfg.RetryMaxAttempts)),
	}, nil
}

func (a *application) Close() {
	if err := a.asynqClient.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close queue client: %v\n", err)
	}
	closeDB(a.db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}
