// Package cli provides the command-line interface for MCP Pulse.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anthropics/mcp-pulse/internal/config"
	"github.com/anthropics/mcp-pulse/internal/ingest"
	"github.com/anthropics/mcp-pulse/internal/monitor"
	"github.com/anthropics/mcp-pulse/internal/tui"
)

var (
	// Global flags
	cfgFile       string
	serverName    string
	retentionDays int
	refresh       int

	// Version info (set at build time)
	Version   = "dev"
	BuildDate = "unknown"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mcp-pulse",
		Short: "Live instrumentation and statistics for MCP servers",
		Long: `MCP Pulse records tool, resource, and prompt invocations and derives
live aggregate statistics from the raw event stream.

Run without a subcommand to launch the terminal dashboard over a live
event receiver. Use 'serve' for the headless HTTP API.`,
		RunE: runDashboard,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/mcp-pulse/config.toml)")
	rootCmd.PersistentFlags().StringVar(&serverName, "name", "", "Server display name")
	rootCmd.PersistentFlags().IntVar(&retentionDays, "retention-days", 0, "Days before records are evicted")
	rootCmd.Flags().IntVar(&refresh, "refresh", 0, "TUI refresh interval in seconds")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// runDashboard launches the TUI dashboard over a live engine and receiver.
func runDashboard(cmd *cobra.Command, args []string) error {
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

	tuiConfig := tui.AppConfig{RefreshInterval: cfg.TUI.RefreshInterval}
	if refresh > 0 {
		tuiConfig.RefreshInterval = time.Duration(refresh) * time.Second
	}
	app := tui.NewApp(tuiConfig, engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		app.Stop()
		cancel()
	}()

	err = app.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if stopErr := receiver.Stop(shutdownCtx); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg.ApplyEnvOverrides()
	} else {
		cfg, err = config.Load()
		if err != nil {
			return nil, err
		}
	}

	if serverName != "" {
		cfg.Server.Name = serverName
	}
	if retentionDays > 0 {
		cfg.Monitor.RetentionDays = retentionDays
	}
	return cfg, nil
}

// newEngine builds an engine from config.
func newEngine(cfg *config.Config) *monitor.Engine {
	return monitor.NewEngine(monitor.Options{
		ServerName:    cfg.Server.Name,
		RetentionDays: cfg.Monitor.RetentionDays,
		SweepInterval: cfg.Monitor.SweepInterval,
	})
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
