// Command memorid runs memori as a standalone HTTP daemon: a thin
// wrapper exposing health, search, and Prometheus metrics endpoints
// over a configured memory store, for deployments that want memori as
// a sidecar rather than an embedded library.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kadirpekel/memori/pkg/config"
	"github.com/kadirpekel/memori/pkg/logger"
	"github.com/kadirpekel/memori/pkg/memori"
)

func main() {
	configPath := flag.String("config", "memori.yaml", "path to config file")
	addr := flag.String("addr", ":8088", "address to listen on")
	flag.Parse()

	cfg, err := config.Load(config.LoaderOptions{Type: config.SourceFile, Path: *configPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "memorid: load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := memori.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memorid: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	log := logger.GetLogger()
	srv := &http.Server{Addr: *addr, Handler: newRouter(m, log)}

	go func() {
		log.Info("memorid: listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("memorid: server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("memorid: shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("memorid: shutdown error", "error", err)
	}
}
