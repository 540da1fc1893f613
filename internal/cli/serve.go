package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anthropics/mcp-pulse/internal/export"
	"github.com/anthropics/mcp-pulse/internal/ingest"
	"github.com/anthropics/mcp-pulse/internal/monitor"
	"github.com/anthropics/mcp-pulse/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the headless monitor (receiver + dashboard API)",
		Long: `Start the event receiver and the dashboard API without the TUI.
When export is enabled, snapshots are also written periodically to the
snapshot database.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	engine := newEngine(cfg)
	engine.Start()
	defer engine.Stop()

	receiver := ingest.NewReceiver(ingest.ReceiverConfig{
		Port:        cfg.Server.IngestPort,
		BindAddress: cfg.Server.BindAddress,
	}, engine)
	if err := receiver.Start(); err != nil {
		return fmt.Errorf("starting receiver: %w", err)
	}

	server := web.NewServer(web.ServerConfig{
		Port:          cfg.Server.DashboardPort,
		BindAddress:   cfg.Server.BindAddress,
		ExportEnabled: cfg.Export.Enabled,
	}, engine)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting dashboard: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Export.Enabled {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		exporter, err := export.NewExporter(cfg.Export.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening snapshot database: %w", err)
		}
		defer exporter.Close()
		go exportLoop(ctx, engine, exporter, cfg.Export.Interval)
	}

	log.Printf("mcp-pulse serving: ingest on %s, dashboard on %s", receiver.Address(), server.Address())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Printf("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("dashboard shutdown: %v", err)
	}
	return receiver.Stop(shutdownCtx)
}

// exportLoop periodically persists a snapshot until ctx is cancelled.
func exportLoop(ctx context.Context, engine *monitor.Engine, exporter *export.Exporter, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := exporter.SaveSnapshot(ctx, engine.Snapshot()); err != nil {
				log.Printf("snapshot export failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
