// Command finsift runs the transaction risk and anomaly analysis pipeline
// over a CSV of transactions and writes the report files.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/finsift/internal/adapters/ingest"
	"github.com/okian/finsift/internal/adapters/report"
	"github.com/okian/finsift/internal/app"
	"github.com/okian/finsift/internal/config"
	"github.com/okian/finsift/pkg/logger"
	"github.com/okian/finsift/pkg/metrics"
)

// HTTP server timeout constants for the optional metrics listener.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env), then let flags
	// override the run-specific bits.
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	input := flag.String("input", cfg.Input, "transaction CSV path")
	output := flag.String("output", cfg.OutputDir, "report output directory")
	flag.Parse()
	cfg.Input = *input
	cfg.OutputDir = *output
	if cfg.Input == "" {
		os.Stderr.WriteString("no input: pass -input or set FINSIFT_INPUT\n")
		return 2
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Optional metrics listener for scraping long runs.
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go func() {
			loggerInstance.Info(ctx, "metrics listener starting", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				loggerInstance.Warn(ctx, "metrics listener failed", logger.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	svc, err := app.New(cfg)
	if err != nil {
		loggerInstance.Error(ctx, "invalid pipeline configuration", logger.Error(err))
		return 1
	}

	txs, err := ingest.NewLoader().LoadFile(ctx, cfg.Input)
	if err != nil {
		loggerInstance.Error(ctx, "ingest failed", logger.String("input", cfg.Input), logger.Error(err))
		return 1
	}

	res, err := svc.Run(ctx, txs)
	if err != nil {
		return 1
	}

	writer := report.NewWriter(report.WithOutputDir(cfg.OutputDir))
	if err := writer.Generate(ctx, report.Input{
		RunID:             res.RunID,
		GeneratedAt:       time.Now(),
		TotalTransactions: len(res.Transactions),
		Flags:             res.Flags,
		Index:             res.Index,
	}); err != nil {
		loggerInstance.Error(ctx, "report generation failed", logger.Error(err))
		return 1
	}

	return 0
}
