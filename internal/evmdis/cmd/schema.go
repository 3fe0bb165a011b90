package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"evmdis/internal/config"
	"evmdis/internal/listing"
)

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for the evmdis configuration, or for the JSON listing with --document",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		document, _ := cmd.Flags().GetBool("document")

		reflector := new(jsonschema.Reflector)
		var schema *jsonschema.Schema
		if document {
			schema = reflector.Reflect(&listing.Document{})
		} else {
			schema = reflector.Reflect(&config.Config{})
		}
		bts, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bts))
		return nil
	},
}

func init() {
	schemaCmd.Flags().Bool("document", false, "Describe the JSON listing instead of the config file")

	rootCmd.AddCommand(schemaCmd)
}
