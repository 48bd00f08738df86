package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/config"
	"github.com/abelbrown/delayboard/internal/logging"
	"github.com/abelbrown/delayboard/internal/otel"
	"github.com/abelbrown/delayboard/internal/subscribe"
	"github.com/abelbrown/delayboard/internal/ui"
)

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.Logging.Dir, cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to init logging: %v", err)
	}
	defer logging.Close()

	// Event log: ~/.delayboard/events.jsonl, mirrored into the debug overlay.
	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	eventFile, err := os.OpenFile(filepath.Join(config.ConfigDir(), "events.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("Failed to open event log: %v", err)
	}
	defer eventFile.Close()
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events := otel.NewLogger(eventFile, otel.WithRing(ring))
	defer events.Close()

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		cat, err = catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	}

	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		api.WithAlertConcurrency(cfg.API.AlertConcurrency),
	)

	c := newCore(ctx, cfg, cat, client, events)
	store, scheduler, sess := c.store, c.scheduler, c.session
	defer store.Close()

	app := ui.NewApp(ui.AppConfig{
		Context:        ctx,
		Catalog:        cat,
		Snapshot:       store.Snapshot,
		TriggerRefresh: scheduler.Trigger,
		Session:        sess,
		NewSubscription: func(line string) *subscribe.Flow {
			return subscribe.New(client, line, events)
		},
		Ring:     ring,
		ShowFeed: cfg.UI.ShowFeed,
	})

	// Create program
	program := tea.NewProgram(app, tea.WithAltScreen())
	sess.SetSender(program)

	events.Emit(otel.Event{Kind: otel.KindStartup, Comp: "main", Msg: cfg.API.BaseURL, Count: cat.Len()})
	logging.Info("Starting dashboard", "api", cfg.API.BaseURL, "lines", cat.Len(), "interval", cfg.PollInterval())

	scheduler.Start(ctx, program)

	// Run UI (blocks until quit)
	if _, err := program.Run(); err != nil {
		logging.Error("Error running program", "error", err)
	}

	// Graceful shutdown: stop polling, drop the open line, then seal the
	// store so late results are discarded.
	scheduler.Stop()
	sess.Close()
	cancel()
	scheduler.Wait()
	sess.Wait()
	store.Close()

	events.Emit(otel.Event{Kind: otel.KindShutdown, Comp: "main"})
	logging.Info("Dashboard stopped")
}
