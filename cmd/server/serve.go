package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/contentloop/internal/api/handlers"
	"github.com/maheshrc27/contentloop/internal/api/middleware"
	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/maheshrc27/contentloop/internal/queue"
	"github.com/maheshrc27/contentloop/internal/service"
	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var noTicker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, publish worker and loop ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), root.cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			return serve(app, !noTicker)
		},
	}

	cmd.Flags().BoolVar(&noTicker, "no-ticker", false, "Do not run the in-process loop ticker (use an external cron with the tick command)")
	return cmd
}

func serve(a *application, ticker bool) error {
	cfg := a.cfg

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    service.MaxMediaBytes + 1<<20,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := a.db.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "database unreachable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	handlers.NewLoopHandler(a.loops, a.media).Register(api)
	handlers.NewPostHandler(a.posts, publish.ParseMode(cfg.DispatchMode)).Register(api)

	server := asynq.NewServer(a.redis, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	if err := server.Start(queue.NewServeMux(queue.NewWorker(a.dispatcher))); err != nil {
		return err
	}
	log.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("publish worker started")

	c := cron.New()
	if ticker {
		if err := c.AddFunc(cfg.TickSpec, func() { runTick(a) }); err != nil {
			server.Shutdown()
			return err
		}
	}
	if a.retrySweep.Enabled() {
		if err := c.AddFunc(cfg.RetrySpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			a.retrySweep.Run(ctx)
		}); err != nil {
			server.Shutdown()
			return err
		}
	}
	c.Start()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Str("addr", cfg.ListenAddr).Bool("ticker", ticker).Msg("server is running")

	gracefulShutdown(app, server, c)
	return nil
}

func runTick(a *application) {
	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
	defer cancel()
	if _, err := a.orchestrator.Run(ctx, time.Now()); err != nil {
		log.Error().Err(err).Msg("loop tick run failed")
	}
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, c *cron.Cron) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Info().Msg("shutting down server")

	c.Stop()
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("failed to shut down server")
	}
	server.Shutdown()
	log.Info().Msg("server shutdown complete")
}
