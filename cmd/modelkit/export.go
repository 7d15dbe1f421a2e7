package main

import (
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/modelkit/jsonschema"
)

func registerExportCmd(rootCmd *cobra.Command) {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "print the JSON Schema of a compiled class",
		Long:  "export compiles --schema and prints the class back as a normalized JSON Schema document.",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	exportCmd.Flags().String("name", "", "class to export (required when the schema yields several)")
	exportCmd.Flags().StringP("output", "o", "", "output file (stdout when empty)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")
	out, _ := cmd.Flags().GetString("output")
	classes, err := loadClasses(cmd, name)
	if err != nil {
		return err
	}
	c, err := pick(classes, name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(jsonschema.Export(c), "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd, out, append(data, '\n'))
}
