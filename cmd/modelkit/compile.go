package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/render"
)

func registerCompileCmd(rootCmd *cobra.Command) {
	compileCmd := &cobra.Command{
		Use:   "compile",
		Short: "generate Go class declarations from a schema",
		Long:  "compile renders the classes compiled from --schema as Go source using the builder DSL.",
		Args:  cobra.NoArgs,
		RunE:  runCompile,
	}
	compileCmd.Flags().String("name", "", "class name (defaults to the schema file name; OpenAPI: all components)")
	compileCmd.Flags().String("package", "models", "package clause of the generated file")
	compileCmd.Flags().StringP("output", "o", "", "output file (stdout when empty)")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")
	pkg, _ := cmd.Flags().GetString("package")
	out, _ := cmd.Flags().GetString("output")

	classes, err := loadClasses(cmd, name)
	if err != nil {
		return err
	}
	var selected []*modelkit.Class
	if name != "" {
		c, err := pick(classes, name)
		if err != nil {
			return err
		}
		selected = append(selected, c)
	} else {
		for _, n := range sortedNames(classes) {
			selected = append(selected, classes[n])
		}
	}

	src, err := render.Render(pkg, selected...)
	if err != nil {
		return err
	}
	log.Debug().Int("classes", len(selected)).Str("package", pkg).Msg("rendered classes")
	return writeOutput(cmd, out, src)
}
