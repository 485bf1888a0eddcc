package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the system MIDI driver

	"github.com/btouchard/midicue/internal/api"
	"github.com/btouchard/midicue/internal/app"
	"github.com/btouchard/midicue/internal/auth"
	"github.com/btouchard/midicue/internal/config"
	"github.com/btouchard/midicue/internal/mapping"
	midicuemcp "github.com/btouchard/midicue/internal/mcp"
	"github.com/btouchard/midicue/internal/metrics"
	"github.com/btouchard/midicue/internal/midi"
	"github.com/btouchard/midicue/internal/notify"
	"github.com/btouchard/midicue/internal/pushover"
	"github.com/btouchard/midicue/internal/state"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "version":
		fmt.Printf("midicue %s\n", version)
	case "check":
		cmdCheck(os.Args[2:])
	case "devices":
		cmdDevices()
	case "token":
		cmdToken(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: midicue <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the MIDI listener and control server\n")
	fmt.Fprintf(os.Stderr, "  check     Validate configuration\n")
	fmt.Fprintf(os.Stderr, "  devices   List MIDI input devices\n")
	fmt.Fprintf(os.Stderr, "  token     Print or rotate the control API token\n")
	fmt.Fprintf(os.Stderr, "  version   Print version\n")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	slog.Info("starting midicue",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	_, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("configuration is valid")
}

func cmdDevices() {
	defer gomidi.CloseDriver()

	names, err := midi.SystemDriver{}.Inputs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "listing MIDI devices: %v\n", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Println("no MIDI input devices found")
		return
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func cmdToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	rotate := fs.Bool("rotate", false, "replace the token with a new one")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	var token string
	if *rotate {
		token, err = auth.RotateToken(cfg.Server.SecretDir)
	} else {
		token, err = auth.LoadOrCreateToken(cfg.Server.SecretDir)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "control token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Server.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	}

	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			slog.Warn("failed to open log file, using stdout only", "path", cfg.Server.LogFile, "error", err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		}
	}

	logger := slog.New(slog.NewMultiHandler(handlers...))
	slog.SetDefault(logger)
}

func run(ctx context.Context, cfg *config.Config) error {
	defer gomidi.CloseDriver()

	// --- Saved state ---
	fileStore := state.NewFileStore(state.DefaultPath())
	loadErr := fileStore.Load()
	var le *state.LoadError
	if loadErr != nil && !errors.As(loadErr, &le) {
		return fmt.Errorf("loading state: %w", loadErr)
	}

	mappings := mapping.NewStore(fileStore)
	if err := mappings.Load(fileStore.Mappings()); err != nil {
		slog.Warn("some saved mappings were skipped", "error", err)
	}

	// --- Control token ---
	token, err := auth.LoadOrCreateToken(cfg.Server.SecretDir)
	if err != nil {
		return fmt.Errorf("control token: %w", err)
	}

	// --- Notifications ---
	board := notify.NewBoard()
	hub := notify.NewHub(notify.LogNotifier{}, board)
	ui := notify.NewAdapter(hub)

	m := metrics.New()

	// --- Controller ---
	ctrl := app.New(app.Options{
		Driver: midi.SystemDriver{},
		MIDI: midi.Config{
			PollInterval: cfg.MIDI.PollInterval,
			ErrorBackoff: cfg.MIDI.ErrorBackoff,
		},
		Mappings: mappings,
		Config:   fileStore,
		Sender: pushover.NewClient(fileStore, pushover.Options{
			Endpoint: cfg.Pushover.Endpoint,
			Title:    cfg.Pushover.Title,
			Timeout:  cfg.Pushover.Timeout,
		}),
		UI:          ui,
		Metrics:     m,
		QueueSize:   cfg.Dispatch.QueueSize,
		SendTimeout: cfg.Pushover.Timeout + 5*time.Second,
	})
	defer ctrl.Close()

	if le != nil {
		ui.UpdateStatus(fmt.Sprintf("Config error, defaults restored: %v", le.Err))
	}

	// --- MCP Server ---
	var mcpHTTP http.Handler
	if cfg.MCP.Enabled {
		mcpServer := midicuemcp.NewServer(&midicuemcp.Deps{
			Controller: ctrl,
			Version:    version,
		})
		hub.Add(notify.NewMCPNotifier(mcpServer, time.Second))
		mcpHTTP = server.NewStreamableHTTPServer(mcpServer)
	}

	// --- HTTP Router ---
	r := api.NewRouter(api.Deps{
		Controller: ctrl,
		Board:      board,
		Token:      token,
		Metrics:    m.Handler(),
		MCP:        mcpHTTP,
	})

	// --- HTTP Server ---
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("midicue is ready", "addr", addr, "state", fileStore.Path())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go ctrl.Run(ctx)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
