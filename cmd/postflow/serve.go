package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	"github.com/maheshrc27/postflow/internal/db"
	"github.com/maheshrc27/postflow/internal/description"
	"github.com/maheshrc27/postflow/internal/eventbus"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/postdata"
	"github.com/maheshrc27/postflow/internal/posting"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/website"
	"github.com/maheshrc27/postflow/internal/website/bluesky"
	"github.com/maheshrc27/postflow/internal/website/instagram"
	"github.com/maheshrc27/postflow/internal/website/tiktok"
	"github.com/maheshrc27/postflow/internal/website/youtube"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

const (
	lookupCacheTTL      = 5 * time.Minute
	loginRefreshTimeout = 5 * time.Minute
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the posting manager and the schedule worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply migrations before starting")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	conn, err := db.Open(ctx, cfg.PostgresURI)
	if err != nil {
		return err
	}
	defer closeDB(conn)

	if migrate {
		if err := db.Migrate(ctx, conn); err != nil {
			return err
		}
	}

	submissionRepo := repository.NewSubmissionRepository(conn)
	partRepo := repository.NewSubmissionPartRepository(conn)
	accountRepo := repository.NewAccountRepository(conn)
	historyRepo := repository.NewPostingHistoryRepository(conn)
	settingsRepo := repository.NewSettingsRepository(conn)
	shortcutRepo := repository.NewShortcutRepository(conn)
	converterRepo := repository.NewTagConverterRepository(conn)

	r2Service, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		return err
	}

	registry := website.NewRegistry(
		instagram.New(instagram.Config{
			ClientID:     cfg.InstagramClientID,
			ClientSecret: cfg.InstagramClientSecret,
			RedirectURL:  cfg.InstagramRedirectURI,
		}),
		tiktok.New(tiktok.Config{
			ClientKey:    cfg.TiktokClientKey,
			ClientSecret: cfg.TiktokClientSecret,
			RedirectURL:  cfg.TiktokRedirectURI,
		}),
		youtube.New(youtube.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
		}),
		bluesky.New(bluesky.Config{}),
	)

	shortcuts := description.WrapLRUShortcuts(shortcutRepo, lookupCacheTTL)
	converters := description.WrapLRUConverters(converterRepo, lookupCacheTTL)
	engine := description.NewEngine(description.Options{
		Shortcuts:  shortcuts,
		Converters: converters,
		Registry:   registry,
	})

	settingsService := service.NewSettingsService(settingsRepo, models.Settings{
		PostRetries:            cfg.Posting.Retries,
		EmptyQueueOnFailedPost: cfg.Posting.EmptyQueueOnFailedPost,
		Advertise:              cfg.Posting.Advertise,
	})
	builder := postdata.NewBuilder(engine, settingsService)

	accountService := service.NewAccountService(accountRepo, registry, cfg.SecretKey)
	validationService := service.NewValidationService(registry, accountRepo)
	shortcutService := service.NewShortcutService(shortcutRepo, converterRepo, shortcuts, converters)

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	submissionService := service.NewSubmissionService(conn, submissionRepo, partRepo, accountRepo, r2Service,
		queue.NewScheduler(client, inspector))

	bus := eventbus.New()
	var inhibitor posting.Inhibitor = posting.NoopInhibitor()
	if cfg.Posting.InhibitSleep {
		sleep, err := posting.NewSleepInhibitor()
		if err != nil {
			slog.Warn("sleep inhibition unavailable", "error", err)
		} else {
			defer sleep.Close()
			inhibitor = sleep
		}
	}

	manager := posting.NewManager(posting.Options{
		Submissions: submissionRepo,
		Parts:       partRepo,
		Logs:        historyRepo,
		Validator:   validationService,
		Unscheduler: submissionService,
		Settings:    settingsService,
		Files:       r2Service,
		Accounts:    accountService,
		Builder:     builder,
		Registry:    registry,
		Children:    posting.NewChildPropagator(submissionRepo, partRepo, registry),
		Bus:         bus,
		Inhibitor:   inhibitor,
		Config: posting.Config{
			Grace:          cfg.Posting.Grace,
			Timeout:        cfg.Posting.Timeout,
			Debounce:       cfg.Posting.StateDebounce,
			DefaultRetries: cfg.Posting.Retries,
		},
	})

	// scheduled submissions
	queueW := queue.NewQueue(submissionRepo, manager)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
		Logger:      asynqLogger{},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeQueueSubmission, queueW.HandleQueueSubmissionTask)
	if err := server.Start(mux); err != nil {
		return fmt.Errorf("could not start asynq server: %w", err)
	}
	if err := submissionService.RestoreSchedules(ctx); err != nil {
		slog.Error("failed to restore schedules", "error", err)
	}

	// cron jobs
	loginRefreshJob := job.NewLoginRefreshJob(accountService, loginRefreshTimeout)
	go loginRefreshJob.RefreshLogins()
	c := cron.New()
	if err := c.AddFunc(cfg.LoginRefreshSpec, loginRefreshJob.RefreshLogins); err != nil {
		return fmt.Errorf("invalid LOGIN_REFRESH_SPEC %q: %w", cfg.LoginRefreshSpec, err)
	}
	c.Start()
	defer c.Stop()

	app := newApp(*cfg, routes{
		auth:        handlers.NewAuthHandler(*cfg),
		accounts:    handlers.NewAccountHandler(accountService, *cfg),
		submissions: handlers.NewSubmissionHandler(submissionService, manager),
		post:        handlers.NewPostHandler(manager, submissionService, validationService, bus),
		settings:    handlers.NewSettingsHandler(settingsService),
		shortcuts:   handlers.NewShortcutHandler(shortcutService),
		history:     handlers.NewHistoryHandler(historyRepo),
		middleware:  middleware.NewAuthMiddleware(*cfg),
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("server is running", "port", cfg.Port)

	gracefulShutdown(app, server)
	return nil
}

func closeDB(db interface{ Close() error }) {
	slog.Info("closing database connection")
	if err := db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	if err := app.Shutdown(); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	server.Shutdown()
	slog.Info("server shutdown complete")
}

type routes struct {
	auth        *handlers.AuthHandler
	accounts    *handlers.AccountHandler
	submissions *handlers.SubmissionHandler
	post        *handlers.PostHandler
	settings    *handlers.SettingsHandler
	shortcuts   *handlers.ShortcutHandler
	history     *handlers.HistoryHandler
	middleware  *middleware.AuthMiddleware
}

func newApp(cfg config.Config, r routes) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/login", r.auth.Login)
	app.Post("/logout", r.auth.Logout)

	app.Get("/auth/:website", r.accounts.AddAccount)
	app.Get("/auth/:website/callback", r.accounts.CallbackHandler)

	api := app.Group("/api")
	api.Use(r.middleware.AuthMiddleware())

	api.Get("/settings", r.settings.GetSettingsInfo)
	api.Post("/settings", r.settings.UpdateSettings)

	api.Post("/submissions", r.submissions.CreateSubmission)
	api.Get("/submissions", r.submissions.ListSubmissions)
	api.Get("/submissions/:id", r.submissions.GetSubmission)
	api.Delete("/submissions/:id", r.submissions.RemoveSubmission)
	api.Post("/submissions/:id/schedule", r.submissions.Schedule)
	api.Delete("/submissions/:id/schedule", r.submissions.Unschedule)

	api.Get("/post/status", r.post.Status)
	api.Get("/post/events", r.post.Events)
	api.Post("/post/queue/:id", r.post.Queue)
	api.Post("/post/cancel/:id", r.post.Cancel)
	api.Post("/post/clearQueue/:type", r.post.ClearQueue)

	api.Get("/accounts", r.accounts.ListAccounts)
	api.Post("/accounts", r.accounts.CreateAccount)
	api.Get("/accounts/status", r.accounts.LoginStatuses)
	api.Post("/accounts/:id/refresh", r.accounts.RefreshAccount)
	api.Delete("/accounts/:id", r.accounts.RemoveAccount)

	api.Get("/shortcuts", r.shortcuts.ListShortcuts)
	api.Post("/shortcuts", r.shortcuts.SaveShortcut)
	api.Delete("/shortcuts/:id", r.shortcuts.RemoveShortcut)
	api.Get("/tag-converters", r.shortcuts.ListTagConverters)
	api.Post("/tag-converters", r.shortcuts.SaveTagConverter)
	api.Delete("/tag-converters/:id", r.shortcuts.RemoveTagConverter)

	api.Get("/history", r.history.ListHistory)

	return app
}

// asynqLogger routes asynq's logs through slog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { slog.Debug(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { slog.Info(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { slog.Error(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) {
	slog.Error(fmt.Sprint(args...))
	os.Exit(1)
}
