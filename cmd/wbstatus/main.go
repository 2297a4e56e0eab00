// @title			wbstatus API
// @version		1.0
// @description	Reconstructs team workboard activity from task transaction logs.
// @BasePath		/api/v1
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/wbstatus/internal/conduit"
	"github.com/mtlprog/wbstatus/internal/config"
	"github.com/mtlprog/wbstatus/internal/database"
	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/handler"
	"github.com/mtlprog/wbstatus/internal/handler/dto"
	"github.com/mtlprog/wbstatus/internal/identity"
	"github.com/mtlprog/wbstatus/internal/logger"
	"github.com/mtlprog/wbstatus/internal/metrics"
	"github.com/mtlprog/wbstatus/internal/report"
	"github.com/mtlprog/wbstatus/internal/repository"
	"github.com/mtlprog/wbstatus/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "wbstatus",
		Usage: "Workboard activity reports from task transaction logs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Aliases: []string{"d"},
				Value:   config.DefaultDatabaseURL,
				Usage:   "PostgreSQL database URL for the feed cache and board snapshots (optional)",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "conduit-url",
				Usage:   "Base URL of the tracker, e.g. https://phabricator.example.org",
				EnvVars: []string{"CONDUIT_URL"},
			},
			&cli.StringFlag{
				Name:    "conduit-token",
				Usage:   "Conduit API token",
				EnvVars: []string{"CONDUIT_TOKEN"},
			},
			&cli.DurationFlag{
				Name:    "conduit-timeout",
				Value:   config.DefaultConduitTimeout,
				Usage:   "Timeout of a single Conduit request",
				EnvVars: []string{"CONDUIT_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "board-config",
				Aliases: []string{"b"},
				Value:   config.DefaultBoardConfig,
				Usage:   "YAML file describing the team board",
				EnvVars: []string{"BOARD_CONFIG"},
			},
			&cli.DurationFlag{
				Name:    "cache-ttl",
				Value:   config.DefaultCacheTTL,
				Usage:   "How long cached transaction feeds stay fresh",
				EnvVars: []string{"CACHE_TTL"},
			},
			&cli.BoolFlag{
				Name:    "refresh",
				Usage:   "Ignore cached feeds and refetch everything",
				EnvVars: []string{"REFRESH"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Concurrent task reductions (0 = number of CPUs)",
				EnvVars: []string{"WORKERS"},
			},
		},
		Before: func(c *cli.Context) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			logger.Setup(os.Stderr, logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "report",
				Usage: "Print the board activity report for an interval",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "start",
						Usage: "Interval start, RFC 3339 or YYYY-MM-DD (default: a week before end)",
					},
					&cli.StringFlag{
						Name:  "end",
						Usage: "Interval end, RFC 3339 or YYYY-MM-DD (default: start of today)",
					},
					&cli.StringFlag{
						Name:  "tasks",
						Usage: "Comma-separated task names to report on (default: tasks on the board)",
					},
				},
				Action: runReport,
			},
			{
				Name:  "serve",
				Usage: "Start the web server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
					&cli.StringFlag{
						Name:    "api-token",
						Usage:   "Bearer token required by /api/v1 routes (empty disables authentication)",
						EnvVars: []string{"API_TOKEN"},
					},
				},
				Action: runServe,
			},
			snapshotCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// app bundles what the report-producing commands share.
type app struct {
	board    *domain.Board
	db       *database.DB
	service  *service.ReportService
	renderer *report.Renderer
	metrics  *metrics.Metrics
	loc      *time.Location
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// openDatabase connects and migrates when a database URL is configured; otherwise it returns nil.
func openDatabase(c *cli.Context) (*database.DB, error) {
	databaseURL := c.String("database-url")
	if databaseURL == "" {
		return nil, nil
	}

	db, err := database.New(c.Context, databaseURL, database.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(c.Context); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func newApp(c *cli.Context) (*app, error) {
	board, err := config.LoadBoard(c.String("board-config"))
	if err != nil {
		return nil, err
	}
	if c.String("conduit-url") == "" {
		return nil, errors.New("conduit-url is required")
	}

	renderer, err := report.New(board)
	if err != nil {
		return nil, err
	}
	loc := time.UTC
	if board.Timezone != "" {
		if loc, err = time.LoadLocation(board.Timezone); err != nil {
			return nil, fmt.Errorf("load board timezone: %w", err)
		}
	}

	client := conduit.NewClient(conduit.Config{
		BaseURL: c.String("conduit-url"),
		Token:   c.String("conduit-token"),
		Timeout: c.Duration("conduit-timeout"),
	})

	db, err := openDatabase(c)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	deps := service.Deps{
		Tracker:   client,
		Directory: client,
		Metrics:   m,
	}
	if db != nil {
		users := repository.NewUserRepository(db.Pool())
		deps.Directory = identity.NewCachedDirectory(users, client)
		deps.Feeds = repository.NewTransactionRepository(db.Pool())
		deps.Tasks = repository.NewTaskRepository(db.Pool())
		deps.Snapshots = repository.NewSnapshotRepository(db.Pool())
	}

	svc, err := service.NewReportService(deps, board, service.Options{
		CacheTTL: c.Duration("cache-ttl"),
		Refresh:  c.Bool("refresh"),
		Workers:  c.Int("workers"),
	})
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	return &app{
		board:    board,
		db:       db,
		service:  svc,
		renderer: renderer,
		metrics:  m,
		loc:      loc,
	}, nil
}

func runReport(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	query, err := dto.ParseReportQuery(url.Values{
		"start": {c.String("start")},
		"end":   {c.String("end")},
		"tasks": {strings.TrimSpace(c.String("tasks"))},
	}, a.loc, time.Now())
	if err != nil {
		return err
	}

	rep, err := a.service.Build(c.Context, service.ReportParams{
		Start:   query.Start,
		End:     query.End,
		TaskIDs: query.TaskIDs,
	})
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	return a.renderer.Render(c.App.Writer, rep)
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	a, err := newApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}

	cfg := handler.Config{
		Reports:  a.service,
		Renderer: a.renderer,
		Metrics:  a.metrics,
		APIToken: c.String("api-token"),
		Location: a.loc,
	}
	if a.db != nil {
		cfg.DB = a.db
	}
	h := handler.New(cfg)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server",
			"server_addr", "http://localhost:"+port,
			"auth", cfg.APIToken != "",
			"cache", a.db != nil,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
