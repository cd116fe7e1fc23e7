package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plancore/internal/reports"
)

var reportCmd = &cobra.Command{
	Use:   "report <scenario-a> <scenario-b>",
	Short: "Export a comparison report to the artifact store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		store, err := openBlob(cmd, cfg.Blob)
		if err != nil {
			return err
		}
		formats, _ := cmd.Flags().GetStringSlice("format")
		input := reports.Input{ScenarioA: args[0], ScenarioB: args[1], RequestedBy: author}
		for _, f := range formats {
			input.Formats = append(input.Formats, reports.Format(f))
		}

		exporter := reports.NewExporter(svc, store, nil)
		exporter.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = exporter.Stop(stopCtx)
		}()

		record, err := exporter.Enqueue(cmd.Context(), input)
		if err != nil {
			return err
		}
		record, err = waitForExport(cmd.Context(), exporter, record.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(record)
		}
		for _, artifact := range record.Artifacts {
			fmt.Printf("%s (%s, %d bytes)\n", artifact.Key, artifact.ContentType, artifact.SizeBytes)
		}
		return nil
	},
}

func waitForExport(ctx context.Context, exporter *reports.Exporter, id string) (reports.Record, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		record, ok := exporter.Get(id)
		if !ok {
			return reports.Record{}, fmt.Errorf("export %s vanished", id)
		}
		switch record.Status {
		case reports.StatusSucceeded:
			return record, nil
		case reports.StatusFailed:
			return reports.Record{}, fmt.Errorf("export failed: %s", record.Error)
		}
		select {
		case <-ctx.Done():
			return reports.Record{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func init() {
	reportCmd.Flags().StringSlice("format", nil, "Report formats (json, csv); default both")
	rootCmd.AddCommand(reportCmd)
}
