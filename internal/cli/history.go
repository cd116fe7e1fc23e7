package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plancore/pkg/domain"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show commit history, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		scenario, _ := cmd.Flags().GetString("scenario")
		entityType, _ := cmd.Flags().GetString("type")
		entityID, _ := cmd.Flags().GetString("id")
		limit, _ := cmd.Flags().GetInt("limit")
		records, err := svc.History(cmd.Context(), domain.HistoryFilter{
			ScenarioID: scenario,
			EntityType: domain.EntityType(entityType),
			EntityID:   entityID,
			Limit:      limit,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(records)
		}
		for _, rec := range records {
			fmt.Printf("%s  %-6s %s %s/%s  %s (%s)\n",
				rec.Timestamp.Format(time.RFC3339), rec.Action, rec.ScenarioID,
				rec.EntityType, rec.EntityID, rec.Message, rec.Author)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("scenario", "", "Filter by scenario id")
	historyCmd.Flags().String("type", "", "Filter by entity type")
	historyCmd.Flags().String("id", "", "Filter by entity id")
	historyCmd.Flags().Int("limit", 0, "Maximum records to return")
	rootCmd.AddCommand(historyCmd)
}
