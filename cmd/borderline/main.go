// Command borderline runs the contraband logistics simulation server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/borderline/internal/api"
	"github.com/talgya/borderline/internal/catalog"
	"github.com/talgya/borderline/internal/engine"
	"github.com/talgya/borderline/internal/entropy"
	"github.com/talgya/borderline/internal/game"
)

func main() {
	var (
		port        = flag.Int("port", 8080, "HTTP API port")
		seed        = flag.Int64("seed", 0, "RNG seed; 0 = non-deterministic")
		catalogPath = flag.String("catalog", "", "catalog YAML path; empty = embedded defaults")
		interval    = flag.Duration("interval", time.Second, "tick interval")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("BORDERLINE — contraband logistics simulation")

	// ── Catalog ───────────────────────────────────────────────────────
	var cat *catalog.Catalog
	if *catalogPath != "" {
		var err error
		cat, err = catalog.Load(*catalogPath)
		if err != nil {
			slog.Error("failed to load catalog", "error", err)
			os.Exit(1)
		}
		slog.Info("catalog loaded", "path", *catalogPath)
	} else {
		cat = catalog.Default()
		slog.Info("using embedded catalog")
	}
	slog.Info("catalog ready",
		"commodities", len(cat.Commodities),
		"routes", len(cat.Routes),
		"strategies", len(cat.Strategies),
		"tech_nodes", len(cat.TechNodes),
	)

	// ── Randomness ────────────────────────────────────────────────────
	var rng entropy.Source
	if *seed != 0 {
		rng = entropy.Seeded(*seed)
		slog.Info("deterministic run", "seed", *seed)
	} else {
		rng = entropy.Crypto()
	}

	// ── Session and tick driver ───────────────────────────────────────
	session := game.NewSession(cat, rng)

	eng := engine.New()
	eng.Interval = *interval
	eng.OnTick = func(tick uint64) {
		session.Advance()
	}

	// ── HTTP / WS API ─────────────────────────────────────────────────
	adminKey := os.Getenv("BORDERLINE_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("BORDERLINE_ADMIN_KEY not set — speed control disabled")
	}

	hub := api.NewHub()
	go hub.Run()
	session.OnChange = hub.BroadcastState

	apiServer := &api.Server{
		Session:  session,
		Eng:      eng,
		Hub:      hub,
		Port:     *port,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nThe network is live. API: http://localhost:%d/api/v1/state\n", *port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()
	apiServer.Close()

	fmt.Println("Simulation stopped.")
}
