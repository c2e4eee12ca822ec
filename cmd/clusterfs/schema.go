package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/clusterfs/pkg/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSchemaCmd())
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [output]",
		Short: "Write the JSON schema of the configuration file",
		Long: `Write a JSON schema describing config.yaml, for editor completion and
validation. The schema goes to config.schema.json unless an output path is
given; "-" writes to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaJSON, err := generateSchema()
			if err != nil {
				return err
			}

			outputFile := "config.schema.json"
			if len(args) == 1 {
				outputFile = args[0]
			}

			if outputFile == "-" {
				_, err := cmd.OutOrStdout().Write(append(schemaJSON, '\n'))
				return err
			}

			if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
				return fmt.Errorf("failed to write schema file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", outputFile)
			return nil
		},
	}
}

func generateSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		// Keys in config.yaml follow the mapstructure tags
		FieldNameTag: "mapstructure",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "clusterfs Configuration"
	schema.Description = "Configuration schema for the clusterfs server"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return schemaJSON, nil
}
