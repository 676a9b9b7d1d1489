package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/cli"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadConfig(os.Stdout)
	logger = logger.WithComponent(log.ComponentWorker)
	startCtx := context.Background()

	logger.InfoContext(startCtx, "Starting expenses-worker")

	if cfg.AMQPURL == "" {
		logger.ErrorContext(startCtx, "AMQP_URL is required by the worker")
		os.Exit(1)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		logger.ErrorContext(startCtx, "Worker cannot log in", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.ErrorContext(startCtx, "Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	client := api.NewClient(cfg.APIURL, api.NewSession(),
		api.WithTimeout(cfg.RequestTimeout),
		api.WithMetrics(api.NewMetrics(prometheus.DefaultRegisterer)))

	syncWorker := worker.NewSnapshotWorker(client, repo,
		core.Credentials{Username: cfg.Username, Password: cfg.Password},
		cfg.SyncConcurrency)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           trace.Middleware(logger, mux),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.InfoContext(startCtx, "Serving metrics", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.ErrorContext(startCtx, "Metrics server failed", log.FieldError, err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(shutdownCtx)
		}
	})

	if err := syncWorker.Login(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to log in", log.FieldError, err)
		os.Exit(1)
	}

	// Catch up on changes missed while the worker was down
	logger.InfoContext(ctx, "Performing startup refresh...")
	if err := syncWorker.RefreshAll(ctx); err != nil {
		logger.ErrorContext(ctx, "Startup refresh failed", log.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeChanges(ctx, syncWorker.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "Message consumption failed", log.FieldError, err)
		}
	}()

	go syncWorker.Run(ctx, cfg.SyncInterval)

	cli.WaitForShutdown(ctx, done)
}
