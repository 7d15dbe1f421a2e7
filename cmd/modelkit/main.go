// Command modelkit compiles JSON Schema, OpenAPI and CRD documents into modelkit
// class declarations, validates documents against them and exports classes
// back to JSON Schema.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ettle/strcase"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/jsonschema"
	"github.com/reoring/modelkit/kubeopenapi"
	"github.com/reoring/modelkit/openapi"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("modelkit failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "modelkit",
		Short:         "Compile, validate and export modelkit schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), verbose)
			return nil
		},
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("schema", "", "JSON Schema or OpenAPI document (.json, .yaml, .yml)")
	rootCmd.PersistentFlags().Bool("openapi", false, "treat --schema as an OpenAPI 3 document")
	rootCmd.PersistentFlags().String("crd-kind", "", "treat --schema as a CRD bundle and import this kind")
	rootCmd.PersistentFlags().Bool("strict", false, "reject unknown keys in every compiled class")

	registerCompileCmd(rootCmd)
	registerValidateCmd(rootCmd)
	registerExportCmd(rootCmd)
	return rootCmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

// loadClasses compiles the --schema document. A plain JSON Schema yields a
// single class called name; an OpenAPI document yields one class per object
// component.
func loadClasses(cmd *cobra.Command, name string) (map[string]*modelkit.Class, error) {
	path, _ := cmd.Flags().GetString("schema")
	if path == "" {
		return nil, errors.New("--schema is required")
	}
	isOpenAPI, _ := cmd.Flags().GetBool("openapi")
	crdKind, _ := cmd.Flags().GetString("crd-kind")
	strict, _ := cmd.Flags().GetBool("strict")
	opt := jsonschema.CompileOpt{Strict: strict}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Bool("openapi", isOpenAPI).Bool("strict", strict).Msg("loading schema")

	if crdKind != "" {
		c, err := kubeopenapi.ImportYAMLForCRDKind(data, crdKind, kubeopenapi.Options{Compile: opt})
		if err != nil {
			return nil, err
		}
		log.Debug().Str("kind", crdKind).Msg("imported CRD")
		return map[string]*modelkit.Class{c.Name(): c}, nil
	}

	if isOpenAPI {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		classes, err := openapi.Import(ctx, data, opt)
		if err != nil {
			return nil, err
		}
		log.Debug().Int("classes", len(classes)).Msg("imported openapi components")
		return classes, nil
	}

	var s *jsonschema.Schema
	if isYAML(path) {
		s, err = jsonschema.ParseYAML(data)
	} else {
		s, err = jsonschema.Parse(data)
	}
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = defaultName(path)
	}
	c, err := jsonschema.Compile(name, s, opt)
	if err != nil {
		return nil, err
	}
	return map[string]*modelkit.Class{name: c}, nil
}

// pick returns the class called name, or the only class when name is empty.
func pick(classes map[string]*modelkit.Class, name string) (*modelkit.Class, error) {
	if name != "" {
		c, ok := classes[name]
		if !ok {
			return nil, fmt.Errorf("no class named %q (have %s)", name, strings.Join(sortedNames(classes), ", "))
		}
		return c, nil
	}
	if len(classes) != 1 {
		return nil, fmt.Errorf("--name is required, choose one of %s", strings.Join(sortedNames(classes), ", "))
	}
	for _, c := range classes {
		return c, nil
	}
	return nil, errors.New("no classes")
}

func sortedNames(classes map[string]*modelkit.Class) []string {
	names := make([]string, 0, len(classes))
	for n := range classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// defaultName derives a class name from the schema file name.
func defaultName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		return "Model"
	}
	return strcase.ToGoPascal(base)
}

func writeOutput(cmd *cobra.Command, out string, data []byte) error {
	if out == "" || out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	log.Info().Str("path", out).Int("bytes", len(data)).Msg("wrote output")
	return nil
}
