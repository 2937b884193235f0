package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iudanet/jobhunt/internal/client/api"
	"github.com/iudanet/jobhunt/internal/client/auth"
	"github.com/iudanet/jobhunt/internal/client/cli"
	"github.com/iudanet/jobhunt/internal/client/config"
	"github.com/iudanet/jobhunt/internal/client/iocli"
	"github.com/iudanet/jobhunt/internal/client/metrics"
	"github.com/iudanet/jobhunt/internal/client/storage"
	"github.com/iudanet/jobhunt/internal/client/storage/boltdb"
	"github.com/iudanet/jobhunt/internal/client/storage/sqlite"
	"github.com/iudanet/jobhunt/internal/client/token"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to YAML config")
	serverURL := flag.String("server", "", "API base URL")
	dbPath := flag.String("db", "", "Path to local token database")
	driver := flag.String("driver", "", "Token storage driver: bolt or sqlite")
	password := flag.String("password", "", "Account password (not recommended)")
	passwordFile := flag.String("password-file", "", "Path to file containing the account password")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics while watching")

	flag.Usage = func() { cli.PrintUsage(os.Stderr) }
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(os.Stderr)
		return 1
	}
	command := args[0]
	if command == "version" {
		printVersion()
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	// флаги перекрывают файл и ENV
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closer, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if cfg.Storage.Passphrase != "" {
		backend = token.NewSealedStorage(backend, cfg.Storage.Passphrase)
	}

	store, err := token.NewStore(ctx, backend, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load stored session: %v\n", err)
		return 1
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Authenticator -> LoggingTransport -> сеть
	transport := auth.NewAuthenticator(store, api.NewLoggingTransport(nil, logger), m, logger)
	apiClient := api.NewClient(cfg.Server.URL, transport, cfg.Server.Timeout)

	facade := auth.NewFacade(store, apiClient, auth.Config{
		Metrics:          m,
		RefreshLead:      cfg.Session.RefreshLead,
		RefreshTimeout:   cfg.Session.RefreshTimeout,
		RetryBase:        cfg.Session.RetryBase,
		UserFetchRetries: cfg.Session.UserFetchRetries,
	}, logger)
	defer facade.Close()

	c := cli.New(iocli.NewStdio(), facade, cli.Options{
		Gatherer: reg,
		Passwords: cli.Passwords{
			FromFile: *passwordFile,
			FromArgs: *password,
		},
		MetricsAddr: cfg.Metrics.Addr,
	}, logger)

	if err := c.Run(ctx, command, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrUnknownCommand) {
			cli.PrintUsage(os.Stderr)
		}
		return 1
	}
	return 0
}

// openStorage открывает хранилище токенов выбранного драйвера
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.TokenStorage, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.New(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := boltdb.New(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

func printVersion() {
	fmt.Printf("JobHunt Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
