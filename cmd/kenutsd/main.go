package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/WhileEndless/go-kenuts/internal/config"
	"github.com/WhileEndless/go-kenuts/internal/logging"
	"github.com/WhileEndless/go-kenuts/internal/observability"
	"github.com/WhileEndless/go-kenuts/internal/server"
	"github.com/WhileEndless/go-kenuts/pkg/fetch"
	"github.com/WhileEndless/go-kenuts/pkg/rawkenuts"
)

func main() {
	configPath := flag.String("config", "", "TOML daemon config")
	indexFile := flag.String("index", "", "index document, overrides index_file")
	addr := flag.String("addr", "", "listen address, overrides addr")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := logging.Named("kenutsd")

	cfg, err := config.LoadDaemon(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if *indexFile != "" {
		cfg.Server.IndexFile = *indexFile
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "kenutsd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Daemon, logger zerolog.Logger) error {
	observability.RegisterMetrics()
	cfg.Server.Logger = &logger

	srv, err := server.New(cfg.Server)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Stop()

	var admin *http.Server
	if cfg.AdminAddr != "" {
		admin = &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           server.NewAdminRouter(srv, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.AdminAddr).Msg("admin endpoint listening")
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("admin endpoint failed")
			}
		}()
	}

	probe(ctx, srv.Addr(), logger)

	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("admin shutdown")
		}
	}
	return nil
}

// probe fetches the index once through the loopback address to confirm the server answers
func probe(ctx context.Context, bound net.Addr, logger zerolog.Logger) {
	tcp, ok := bound.(*net.TCPAddr)
	if !ok {
		return
	}

	client := fetch.New(fetch.Options{
		Transport: rawkenuts.Options{ConnTimeout: 2 * time.Second, ReadTimeout: 5 * time.Second},
		Logger:    &logger,
		Recorder:  observability.FetchRecorder{},
	})

	host := "127.0.0.1"
	if !tcp.IP.IsUnspecified() {
		host = tcp.IP.String()
	}
	target := "kenuts://" + net.JoinHostPort(host, strconv.Itoa(tcp.Port)) + "/"
	res := client.Do(ctx, target)
	if res.Err != nil {
		logger.Warn().Err(res.Err).Str("target", target).Msg("self probe failed")
		return
	}
	logger.Info().Str("target", target).Int("bytes", len(res.Body)).Msg("self probe ok")
}
