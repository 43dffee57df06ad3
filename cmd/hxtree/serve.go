package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/pthm/hxtree"
	"github.com/pthm/hxtree/internal/config"
	"github.com/pthm/hxtree/internal/logging"
)

var (
	configPath     string
	listenAddr     string
	logLevel       string
	sessionTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo application",
	Long: `Serve the demo application over HTTP and WebSocket.

Settings are read from the YAML file given with --config; flags override the
file. Without a configured key every restart invalidates open sessions.`,
	Example: `  # Serve on the default address
  hxtree serve

  # Serve with a config file and debug logging
  hxtree serve --config hxtree.yaml --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides the config file)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().DurationVar(&sessionTimeout, "session-timeout", 30*time.Minute, "Close sessions idle for this long")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	locale, err := language.Parse(cfg.Locale)
	if err != nil {
		return fmt.Errorf("invalid locale %q: %w", cfg.Locale, err)
	}

	key, err := cfg.Key()
	if err != nil {
		return err
	}
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		log.Warn("no key configured, sessions will not survive a restart")
	}

	opts := []hxtree.RegistryOption{
		hxtree.WithRegistryLogger(log),
		hxtree.WithSessionTimeout(sessionTimeout),
		hxtree.WithTitle("hxtree demo"),
	}
	if cfg.Sensitive {
		opts = append(opts, hxtree.WithSensitive())
	}
	reg := hxtree.NewRegistry(key, demoFactory(locale), opts...)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mount(cfg.BasePath, reg.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweep(ctx, reg, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Listen), zap.String("base", cfg.BasePath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// mount serves h below base.
func mount(base string, h http.Handler) http.Handler {
	base = "/" + strings.Trim(base, "/")
	if base == "/" {
		return h
	}
	mux := http.NewServeMux()
	mux.Handle(base+"/", http.StripPrefix(base, h))
	mux.Handle(base, http.RedirectHandler(base+"/", http.StatusMovedPermanently))
	return mux
}

// sweep closes idle sessions until ctx is done.
func sweep(ctx context.Context, reg *hxtree.Registry, log *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reg.Sweep(); n > 0 {
				log.Info("closed idle sessions", zap.Int("count", n))
			}
		}
	}
}
