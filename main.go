package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookgo/httpdown"
	"github.com/gorilla/mux"
)

func main() {
	cfg, cfgPath, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := serve(cfg, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serve runs the hub until SIGINT or SIGTERM. Open websockets are closed
// before the HTTP server is stopped because hijacked connections do not
// count towards its stop timeout.
func serve(cfg config, cfgPath string) error {
	lvl := new(slog.LevelVar)
	lvl.Set(parseLevel(cfg.LogLevel))
	log := newLogger(os.Stderr, cfg.LogFormat, lvl)

	origins, err := newOriginPolicy(cfg.Origin)
	if err != nil {
		return err
	}
	m := newMetrics(os.Stderr, cfg.MetricsTick)
	h := newHub(cfg.hubOptions(), m, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfgPath != "" {
		go func() {
			err := watchConfig(ctx, log, cfgPath, func(c config) {
				if err := origins.set(c.Origin); err != nil {
					log.Error("origin not applied", "err", err)
				}
				lvl.Set(parseLevel(c.LogLevel))
			})
			if err != nil {
				log.Error("config watch stopped", "path", cfgPath, "err", err)
			}
		}()
	}

	// Prepare the stoppable HTTP server
	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: newHandler(cfg.Path, h, origins),
	}
	hd := &httpdown.HTTP{
		StopTimeout: cfg.StopTimeout,
		KillTimeout: cfg.KillTimeout,
	}
	s, err := hd.ListenAndServe(server)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	m.start()
	log.Info("hub listening", "addr", cfg.Addr, "path", cfg.Path)

	waitErr := make(chan error, 1)
	go func() { waitErr <- s.Wait() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		h.closeAll()
		err = s.Stop()
	case err = <-waitErr:
		h.closeAll()
	}
	m.final()
	return err
}

func newHandler(path string, h *hub, origins *originPolicy) http.Handler {
	handler := mux.NewRouter()

	// Route websocket requests
	handler.Path(path).HeadersRegexp(
		// Requests with these headers will use this handler
		"Connection", "(?i)upgrade",
		"Upgrade", "(?i)websocket",
	).Handler(newWsHandler(h, origins))

	// Plain GETs get a small test client
	handler.Path(path).Methods("GET").Handler(getHandler{path: path})
	handler.Path("/debug/metrics").Methods("GET").Handler(metricsHandler{m: h.m})

	return handler
}
