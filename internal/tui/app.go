// Package tui provides the terminal dashboard.
package tui

import (
	"context"
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"

	"github.com/anthropics/mcp-pulse/internal/monitor"
)

// App represents the TUI application.
type App struct {
	config    AppConfig
	engine    *monitor.Engine
	dashboard *Dashboard
	stopChan  chan struct{}
}

// AppConfig configures the TUI application.
type AppConfig struct {
	RefreshInterval time.Duration
}

// DefaultAppConfig returns default TUI configuration.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		RefreshInterval: 2 * time.Second,
	}
}

// NewApp creates a TUI application over the given engine.
func NewApp(config AppConfig, engine *monitor.Engine) *App {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = 2 * time.Second
	}
	return &App{
		config:   config,
		engine:   engine,
		stopChan: make(chan struct{}),
	}
}

// Run starts the TUI and blocks until exit.
func (a *App) Run(ctx context.Context) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	defer ui.Close()

	a.dashboard = NewDashboard()
	a.refresh()
	a.render()

	ticker := time.NewTicker(a.config.RefreshInterval)
	defer ticker.Stop()

	events := ui.PollEvents()

	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "r":
				a.refresh()
				a.render()
			case "<Resize>":
				a.render()
			}
		case <-ticker.C:
			a.refresh()
			a.render()
		case <-a.stopChan:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop signals the app to exit.
func (a *App) Stop() {
	select {
	case <-a.stopChan:
	default:
		close(a.stopChan)
	}
}

func (a *App) refresh() {
	snap := a.engine.Snapshot()
	a.dashboard.Update(snap)
}

func (a *App) render() {
	width, height := ui.TerminalDimensions()
	a.dashboard.Resize(width, height)
	ui.Render(a.dashboard.Widgets()...)
}
