package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"plancore/pkg/domain"
)

var seedCmd = &cobra.Command{
	Use:   "seed <entity-type> <entity-id>",
	Short: "Install a canonical baseline record",
	Long: `Reads entity JSON from --file (or stdin) and installs it as canonical
baseline data visible to every scenario. Intended for data import; day-to-day
edits go through 'entity put' on a scenario.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")
		payload, err := readPayload(file)
		if err != nil {
			return err
		}
		if err := svc.SeedCanonical(cmd.Context(), domain.EntityType(args[0]), args[1], payload); err != nil {
			return err
		}
		fmt.Printf("seeded %s %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "JSON payload file (default stdin)")
	rootCmd.AddCommand(seedCmd)
}
