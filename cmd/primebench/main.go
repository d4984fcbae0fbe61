package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/primebench/primebench/internal/app"
	"github.com/primebench/primebench/internal/client"
	"github.com/primebench/primebench/internal/config"
	"github.com/primebench/primebench/internal/export"
	"github.com/primebench/primebench/internal/logging"
	"github.com/primebench/primebench/internal/results"
	"github.com/primebench/primebench/internal/stream"
)

const (
	sseEndpoint = "/api/generate_prime"
	wsEndpoint  = "/ws/generate_prime"
)

func main() {
	configPath := pflag.String("config", config.DefaultPath(), "Path to config file")
	baseURL := pflag.String("url", "", "Base URL of the prime producer (overrides client.base_url)")
	transport := pflag.String("transport", "", "Stream transport: sse or ws")
	itemSize := pflag.Int("item-size", 0, "Digits per prime")
	count := pflag.Int("count", 0, "Number of primes to request")
	headless := pflag.Bool("headless", false, "Run one request without the TUI and print a summary")
	csvOut := pflag.Bool("csv", false, "Headless: write a CSV export")
	pngOut := pflag.Bool("png", false, "Headless: write a PNG chart")
	archiveOut := pflag.Bool("archive", false, "Headless: write a session archive")
	progress := pflag.Bool("progress", false, "Headless: print each item as it arrives")
	openPath := pflag.String("open", "", "Open a saved archive in the TUI")
	exportDir := pflag.String("export-dir", "", "Directory for exports (overrides client.export_dir)")
	logLevel := pflag.String("log-level", "", "Log level (overrides client.log_level)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(2)
	}
	applyFlags(cfg, *baseURL, *transport, *itemSize, *count, *exportDir, *logLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	runHeadless := *headless || !term.IsTerminal(int(os.Stdout.Fd()))

	logOpts := logging.Options{Level: cfg.Client.LogLevel, File: cfg.Client.LogFile}
	if runHeadless {
		logOpts.File = ""
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()
	log := logger.Sugar()

	tr, err := stream.NewTransport(cfg.Client.Transport, cfg.Client.BaseURL,
		endpointFor(cfg.Client.Transport, cfg.Client.Endpoint), &http.Client{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	ctrl := stream.NewController(results.NewStore(), tr,
		stream.WithLogger(log),
		stream.WithIdleTimeout(cfg.Client.IdleTimeout),
	)
	renderer := export.NewImageRenderer(cfg.Client.ImageWidth, cfg.Client.ImageHeight)

	if runHeadless {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		err := app.RunHeadless(ctx, app.HeadlessOptions{
			Controller: ctrl,
			Params:     cfg.Request,
			Out:        os.Stdout,
			Log:        log,
			Renderer:   renderer,
			ExportDir:  cfg.Client.ExportDir,
			CSV:        *csvOut,
			PNG:        *pngOut,
			Archive:    *archiveOut,
			Progress:   *progress,
		})
		if err != nil {
			var ve *stream.ValidationError
			if errors.As(err, &ve) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(2)
			}
			os.Exit(1)
		}
		return
	}

	opts := app.Options{
		Controller: ctrl,
		HTTP:       client.NewHTTPClient(cfg.Client.BaseURL),
		Renderer:   renderer,
		ExportDir:  cfg.Client.ExportDir,
		Transport:  cfg.Client.Transport,
		Params:     cfg.Request,
		Log:        log,
		HelpStyle:  "dark",
	}
	if *openPath != "" {
		a, err := openArchive(*openPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		opts.Archive = a
		opts.ArchiveName = filepath.Base(*openPath)
	}

	p := tea.NewProgram(app.New(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		log.Errorw("tui exited", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config, baseURL, transport string, itemSize, count int, exportDir, logLevel string) {
	if baseURL != "" {
		cfg.Client.BaseURL = baseURL
	}
	if transport != "" {
		cfg.Client.Transport = transport
	}
	if itemSize != 0 {
		cfg.Request.ItemSize = itemSize
	}
	if count != 0 {
		cfg.Request.IterationCount = count
	}
	if exportDir != "" {
		cfg.Client.ExportDir = exportDir
	}
	if logLevel != "" {
		cfg.Client.LogLevel = logLevel
	}
}

// endpointFor swaps the default SSE path for the WebSocket route when the
// endpoint was left at its default.
func endpointFor(transport, endpoint string) string {
	if transport == stream.KindWebSocket && (endpoint == "" || endpoint == sseEndpoint) {
		return wsEndpoint
	}
	if endpoint == "" {
		return sseEndpoint
	}
	return endpoint
}

func openArchive(path string) (*export.Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	a, err := export.ReadArchive(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &a, nil
}

