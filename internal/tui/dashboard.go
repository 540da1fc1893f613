package tui

import (
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/anthropics/mcp-pulse/internal/monitor"
)

// volumeHistory is how many refresh ticks of request volume the sparkline
// keeps.
const volumeHistory = 60

// Dashboard holds all TUI widgets.
type Dashboard struct {
	header         *widgets.Paragraph
	perf           *widgets.Paragraph
	toolTable      *widgets.Table
	sparkline      *widgets.Sparkline
	sparklineGroup *widgets.SparklineGroup
	errorList      *widgets.List
	footer         *widgets.Paragraph

	volume []float64
}

// NewDashboard creates a new dashboard.
func NewDashboard() *Dashboard {
	d := &Dashboard{}

	d.header = widgets.NewParagraph()
	d.header.Border = true
	d.header.BorderStyle = ui.NewStyle(ui.ColorCyan)
	d.header.TitleStyle = ui.NewStyle(ui.ColorCyan, ui.ColorClear, ui.ModifierBold)

	d.perf = widgets.NewParagraph()
	d.perf.Title = " Performance "
	d.perf.BorderStyle = ui.NewStyle(ui.ColorGreen)
	d.perf.TitleStyle = ui.NewStyle(ui.ColorGreen, ui.ColorClear, ui.ModifierBold)

	d.toolTable = widgets.NewTable()
	d.toolTable.Title = " Tools "
	d.toolTable.TextStyle = ui.NewStyle(ui.ColorWhite)
	d.toolTable.RowSeparator = false
	d.toolTable.BorderStyle = ui.NewStyle(ui.ColorBlue)
	d.toolTable.TitleStyle = ui.NewStyle(ui.ColorBlue, ui.ColorClear, ui.ModifierBold)

	d.sparkline = widgets.NewSparkline()
	d.sparkline.LineColor = ui.ColorGreen
	d.sparklineGroup = widgets.NewSparklineGroup(d.sparkline)
	d.sparklineGroup.Title = " Requests/min "
	d.sparklineGroup.BorderStyle = ui.NewStyle(ui.ColorMagenta)
	d.sparklineGroup.TitleStyle = ui.NewStyle(ui.ColorMagenta, ui.ColorClear, ui.ModifierBold)

	d.errorList = widgets.NewList()
	d.errorList.Title = " Recent Errors "
	d.errorList.TextStyle = ui.NewStyle(ui.ColorWhite)
	d.errorList.BorderStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.TitleStyle = ui.NewStyle(ui.ColorYellow, ui.ColorClear, ui.ModifierBold)

	d.footer = widgets.NewParagraph()
	d.footer.Border = false
	d.footer.Text = " [q](fg:red) quit  [r](fg:green) refresh "
	d.footer.TextStyle = ui.NewStyle(ui.ColorWhite)

	return d
}

// Update refreshes all widgets from a snapshot.
func (d *Dashboard) Update(snap monitor.Snapshot) {
	d.updateHeader(snap)
	d.updatePerf(snap.Performance)
	d.updateToolTable(snap.Tools)
	d.updateSparkline(snap.Performance.RequestsPerMinute)
	d.updateErrorList(snap.RecentErrors)
}

func (d *Dashboard) updateHeader(snap monitor.Snapshot) {
	d.header.Title = fmt.Sprintf(" MCP Pulse - %s ", snap.ServerName)
	d.header.Text = fmt.Sprintf(
		" Uptime: [%s](fg:cyan)  |  Requests: [%d](fg:green)  |  OK: [%d](fg:green)  |  Failed: [%d](fg:red)  |  Updated: [%s](fg:yellow) ",
		formatUptime(snap.UptimeMs),
		snap.TotalRequests,
		snap.SuccessfulRequests,
		snap.FailedRequests,
		snap.TakenAt.Format("15:04:05"),
	)
}

func (d *Dashboard) updatePerf(p monitor.Performance) {
	d.perf.Text = fmt.Sprintf(
		" Avg: [%s](fg:cyan)   p50: [%s](fg:green)   p95: [%s](fg:yellow)   p99: [%s](fg:red)\n"+
			" Req/s: [%d](fg:cyan)   Req/min: [%d](fg:cyan)   Success: [%.1f%%](fg:green)   Errors: [%.1f%%](fg:red)",
		formatLatency(p.AvgLatencyMs),
		formatLatency(p.P50LatencyMs),
		formatLatency(p.P95LatencyMs),
		formatLatency(p.P99LatencyMs),
		p.RequestsPerSecond,
		p.RequestsPerMinute,
		p.SuccessRatePct,
		p.ErrorRatePct,
	)
}

func (d *Dashboard) updateToolTable(tools []monitor.ToolAggregate) {
	rows := [][]string{
		{"Tool", "Calls", "OK", "Errors", "Avg", "Last Called"},
	}

	for _, t := range tools {
		rows = append(rows, []string{
			t.Name,
			fmt.Sprintf("%d", t.CallCount),
			fmt.Sprintf("%d", t.SuccessCount),
			fmt.Sprintf("%d", t.ErrorCount),
			formatLatency(t.AvgDurationMs),
			t.LastCalledAt.Format("15:04:05"),
		})
	}

	if len(rows) == 1 {
		rows = append(rows, []string{"(no tool calls)", "-", "-", "-", "-", "-"})
	}

	d.toolTable.Rows = rows
}

func (d *Dashboard) updateSparkline(requestsPerMinute int) {
	d.volume = append(d.volume, float64(requestsPerMinute))
	if len(d.volume) > volumeHistory {
		d.volume = d.volume[len(d.volume)-volumeHistory:]
	}
	d.sparkline.Data = d.volume
}

func (d *Dashboard) updateErrorList(errs []monitor.ErrorRecord) {
	var items []string
	for i := len(errs) - 1; i >= 0; i-- {
		e := errs[i]
		items = append(items, fmt.Sprintf("[%s](fg:red) %s [%s] %s",
			e.Timestamp.Format("15:04:05"), e.Name, e.Type, e.Message))
	}
	if len(items) == 0 {
		items = []string{"(no errors)"}
	}
	d.errorList.Rows = items
}

// Resize lays the widgets out for the given terminal dimensions.
func (d *Dashboard) Resize(width, height int) {
	half := width / 2

	d.header.SetRect(0, 0, width, 3)
	d.perf.SetRect(0, 3, width, 7)
	d.toolTable.SetRect(0, 7, half, height-9)
	d.errorList.SetRect(half, 7, width, height-9)
	d.sparklineGroup.SetRect(0, height-9, width, height-1)
	d.footer.SetRect(0, height-1, width, height)
}

// Widgets returns everything to render, in z-order.
func (d *Dashboard) Widgets() []ui.Drawable {
	return []ui.Drawable{
		d.header, d.perf, d.toolTable, d.errorList, d.sparklineGroup, d.footer,
	}
}

func formatUptime(ms int64) string {
	dur := time.Duration(ms) * time.Millisecond
	if dur < time.Minute {
		return fmt.Sprintf("%ds", int(dur.Seconds()))
	}
	if dur < time.Hour {
		return fmt.Sprintf("%dm%ds", int(dur.Minutes()), int(dur.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(dur.Hours()), int(dur.Minutes())%60)
}

func formatLatency(ms float64) string {
	if ms <= 0 {
		return "-"
	}
	if ms < 1000 {
		return fmt.Sprintf("%.0fms", ms)
	}
	return fmt.Sprintf("%.1fs", ms/1000)
}
