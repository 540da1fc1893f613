package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anthropics/mcp-pulse/internal/export"
)

var historyLimit int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List exported snapshots",
		Long:  `Display snapshots previously written to the snapshot database.`,
		RunE:  runHistory,
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum snapshots to list")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	exporter, err := export.NewExporter(cfg.Export.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening snapshot database: %w", err)
	}
	defer exporter.Close()

	rows, err := exporter.ListSnapshots(context.Background(), historyLimit)
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	if len(rows) == 0 {
		fmt.Println("No snapshots exported yet.")
		return nil
	}

	fmt.Printf("\n%-20s %-16s %10s %10s %10s %10s\n",
		"Taken At", "Server", "Requests", "Failed", "Avg ms", "Err %")
	fmt.Println("────────────────────────────────────────────────────────────────────────────────")
	for _, row := range rows {
		fmt.Printf("%-20s %-16s %10d %10d %10.1f %10.1f\n",
			row.TakenAt.Format("2006-01-02 15:04:05"),
			row.ServerName,
			row.TotalRequests,
			row.FailedRequests,
			row.AvgLatencyMs,
			row.ErrorRatePct,
		)
	}
	fmt.Println()
	return nil
}
