package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"plancore/pkg/domain"
)

var compareCmd = &cobra.Command{
	Use:   "compare <scenario-a> <scenario-b>",
	Short: "Compare two scenarios field by field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		result, err := svc.CompareScenarios(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(result)
		}
		if result.Empty() {
			fmt.Println("scenarios are equivalent")
			return nil
		}
		fmt.Printf("%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)
		for _, diff := range result.Differences {
			name := diff.EntityName
			if name == "" {
				name = diff.EntityID
			}
			switch diff.Kind {
			case domain.DiffAdded:
				fmt.Printf("  + %s %s\n", diff.EntityType, name)
			case domain.DiffRemoved:
				fmt.Printf("  - %s %s\n", diff.EntityType, name)
			case domain.DiffModified:
				fmt.Printf("  ~ %s %s\n", diff.EntityType, name)
				for _, fc := range diff.Fields {
					fmt.Printf("      %s: %v -> %v\n", fc.Field, fc.Old, fc.New)
				}
			}
		}
		if result.Impact.Utilization.NewlyOverAllocated > 0 {
			fmt.Printf("newly over-allocated people: %d\n", result.Impact.Utilization.NewlyOverAllocated)
		}
		if len(result.Impact.Timeline.AtRiskProjects) > 0 {
			fmt.Printf("at-risk projects: %v\n", result.Impact.Timeline.AtRiskProjects)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
