package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"plancore/pkg/domain"
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Edit and inspect entities within a scenario",
}

func readPayload(path string) (json.RawMessage, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return data, nil
}

var entityPutCmd = &cobra.Command{
	Use:   "put <scenario-id> <entity-type> <entity-id>",
	Short: "Add or modify an entity in a scenario",
	Long:  `Reads the entity JSON from --file (or stdin) and records it in the scenario's overlay.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")
		message, _ := cmd.Flags().GetString("message")
		payload, err := readPayload(file)
		if err != nil {
			return err
		}
		entry, err := svc.PutEntity(cmd.Context(), args[0], domain.EntityType(args[1]), args[2], payload, author, message)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(entry)
		}
		fmt.Printf("put %s %s in %s\n", entry.EntityType, entry.EntityID, entry.ScenarioID)
		return nil
	},
}

var entityRemoveCmd = &cobra.Command{
	Use:   "remove <scenario-id> <entity-type> <entity-id>",
	Short: "Remove an entity from a scenario",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		message, _ := cmd.Flags().GetString("message")
		entry, err := svc.RemoveEntity(cmd.Context(), args[0], domain.EntityType(args[1]), args[2], author, message)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(entry)
		}
		fmt.Printf("removed %s %s from %s\n", entry.EntityType, entry.EntityID, entry.ScenarioID)
		return nil
	},
}

var entityResolveCmd = &cobra.Command{
	Use:   "resolve <scenario-id> <entity-type> <entity-id>",
	Short: "Show the effective value of an entity as seen from a scenario",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		res, err := svc.ResolveEntity(cmd.Context(), args[0], domain.EntityType(args[1]), args[2])
		if err != nil {
			return err
		}
		if !res.Present {
			fmt.Println("not present")
			return nil
		}
		if jsonOutput {
			return outputJSON(res)
		}
		fmt.Printf("source=%s\n%s\n", res.Source, res.Payload)
		return nil
	},
}

var entityListCmd = &cobra.Command{
	Use:   "list <scenario-id> <entity-type>",
	Short: "List every entity of a type visible from a scenario",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		set, err := svc.EffectiveEntities(cmd.Context(), args[0], domain.EntityType(args[1]))
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(set)
		}
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	entityPutCmd.Flags().StringP("file", "f", "", "JSON payload file (default stdin)")
	entityPutCmd.Flags().StringP("message", "m", "", "Commit message")
	entityRemoveCmd.Flags().StringP("message", "m", "", "Commit message")

	entityCmd.AddCommand(entityPutCmd, entityRemoveCmd, entityResolveCmd, entityListCmd)
	rootCmd.AddCommand(entityCmd)
}
