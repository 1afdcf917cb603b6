package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phamilton/collector-api/internal/api"
	apimiddleware "github.com/phamilton/collector-api/internal/api/middleware"
	"github.com/phamilton/collector-api/internal/config"
	"github.com/phamilton/collector-api/internal/events"
	"github.com/phamilton/collector-api/internal/executor"
	"github.com/phamilton/collector-api/internal/fetcher"
	"github.com/phamilton/collector-api/internal/platform/postgres"
	"github.com/phamilton/collector-api/internal/scheduler"
	"github.com/phamilton/collector-api/internal/store"
)

// application holds the wired dependencies for one server process.
type application struct {
	config    *config.Config
	logger    *slog.Logger
	db        *sql.DB
	tasks     store.TaskStore
	records   store.RecordStore
	scheduler *scheduler.Scheduler
}

// newApplication connects to the database, runs migrations and builds the
// component graph: stores, fetcher, executor, scheduler.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	tasks := postgres.NewPostgresTaskStore(db, logger)
	records := postgres.NewPostgresRecordStore(db, logger)

	emitter := events.NewInMemoryEmitter(logger)
	emitter.RegisterHandler(events.NewLogHandler(logger))

	exec := executor.New(fetcher.New(cfg.Crawler), records, cfg.Crawler, logger)
	sched := scheduler.New(db, tasks, records, exec, emitter, cfg.Scheduler, logger)

	return &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		tasks:     tasks,
		records:   records,
		scheduler: sched,
	}, nil
}

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.tasks, app.config.Crawler.DefaultTimeout)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/tasks/{id}", taskHandler.GetTask)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// run starts the scheduler and the HTTP server, blocking until shutdown.
func (app *application) run() error {
	if err := app.scheduler.Start(); err != nil {
		closeDatabase(app.db, app.logger)
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	return app.startHTTPServer(app.setupRouter())
}

// cleanup stops the scheduler (waiting for an in-flight tick) and closes
// the database.
func (app *application) cleanup() {
	app.scheduler.Stop()
	closeDatabase(app.db, app.logger)
}
