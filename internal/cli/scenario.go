package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"plancore/internal/core"
	"plancore/pkg/domain"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Manage planning scenarios",
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("kind")
		status, _ := cmd.Flags().GetString("status")
		scenarios, err := svc.ListScenarios(cmd.Context(), domain.ScenarioFilter{
			Kind:   domain.ScenarioKind(kind),
			Status: domain.ScenarioStatus(status),
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(scenarios)
		}
		if len(scenarios) == 0 {
			fmt.Println("no scenarios")
			return nil
		}
		for _, sc := range scenarios {
			parent := "-"
			if sc.ParentID != nil {
				parent = *sc.ParentID
			}
			fmt.Printf("%s  %-8s %-8s parent=%s  %s\n", sc.ID, sc.Kind, sc.Status, parent, sc.Name)
		}
		return nil
	},
}

var scenarioShowCmd = &cobra.Command{
	Use:   "show <scenario-id>",
	Short: "Show one scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		sc, err := svc.GetScenario(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return outputJSON(sc)
	},
}

var scenarioCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a baseline, branch, or sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		base, _ := cmd.Flags().GetString("base")
		kind, _ := cmd.Flags().GetString("kind")
		description, _ := cmd.Flags().GetString("description")

		var created core.Scenario
		if domain.ScenarioKind(kind) == domain.KindBaseline {
			created, err = svc.CreateBaseline(cmd.Context(), args[0], description, author)
		} else {
			created, err = svc.CreateBranch(cmd.Context(), core.CreateBranchRequest{
				Name:           args[0],
				Description:    description,
				BaseScenarioID: base,
				Kind:           domain.ScenarioKind(kind),
				Author:         author,
			})
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(created)
		}
		fmt.Printf("created %s %s\n", created.Kind, created.ID)
		return nil
	},
}

var scenarioArchiveCmd = &cobra.Command{
	Use:   "archive <scenario-id>",
	Short: "Archive a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		archived, err := svc.ArchiveScenario(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(archived)
		}
		fmt.Printf("archived %s\n", archived.ID)
		return nil
	},
}

func init() {
	scenarioListCmd.Flags().String("kind", "", "Filter by kind (baseline|branch|sandbox)")
	scenarioListCmd.Flags().String("status", "", "Filter by status (active|archived|merged)")
	scenarioCreateCmd.Flags().String("base", "", "Base scenario id (required for branch and sandbox)")
	scenarioCreateCmd.Flags().String("kind", "branch", "Scenario kind (baseline|branch|sandbox)")
	scenarioCreateCmd.Flags().String("description", "", "Scenario description")

	scenarioCmd.AddCommand(scenarioListCmd, scenarioShowCmd, scenarioCreateCmd, scenarioArchiveCmd)
	rootCmd.AddCommand(scenarioCmd)
}
