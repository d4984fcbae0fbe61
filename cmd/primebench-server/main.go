package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/primebench/primebench/internal/config"
	"github.com/primebench/primebench/internal/logging"
	"github.com/primebench/primebench/internal/producer"
)

func main() {
	configPath := pflag.String("config", config.DefaultPath(), "Path to config file")
	host := pflag.String("host", "", "Override server host")
	port := pflag.Int("port", 0, "Override server port")
	maxStreams := pflag.Int("max-streams", 0, "Override server.max_concurrent_streams")
	seed := pflag.Int64("seed", 0, "Random seed for start points (0 means time-based)")
	logLevel := pflag.String("log-level", "", "Override server.log_level")
	dev := pflag.Bool("dev", false, "Development logging")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *maxStreams > 0 {
		cfg.Server.MaxConcurrentStreams = *maxStreams
	}
	if *logLevel != "" {
		cfg.Server.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Server.LogLevel, Development: *dev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	metrics := producer.NewMetrics()
	gen := producer.NewGenerator(cfg.Server.ProbablePrimeRounds, *seed, metrics)
	server := producer.NewServer(gen, metrics, log, cfg.Server.MaxConcurrentStreams)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting producer",
		"maxStreams", cfg.Server.MaxConcurrentStreams,
		"rounds", cfg.Server.ProbablePrimeRounds)
	err = producer.ListenAndServe(ctx, cfg.Server.Host, cfg.Server.Port, server.Handler(), log)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorw("server error", "error", err)
		os.Exit(1)
	}
	log.Infow("shut down")
}
