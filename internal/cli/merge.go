package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <branch-id>",
	Short: "Merge a branch back into its parent",
	Long: `Folds the branch's changes onto its parent scenario. Branch values win
on conflict. The branch becomes merged and read-only.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		merged, warnings, err := svc.MergeBranch(cmd.Context(), args[0], author)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(struct {
				Scenario any `json:"scenario"`
				Warnings any `json:"warnings,omitempty"`
			}{merged, warnings})
		}
		fmt.Printf("merged %s into its parent\n", merged.ID)
		for _, w := range warnings {
			fmt.Printf("warning [%s]: %s\n", w.Code, w.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
