package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/codec"
)

var errInvalid = errors.New("one or more documents are invalid")

func registerValidateCmd(rootCmd *cobra.Command) {
	validateCmd := &cobra.Command{
		Use:   "validate [documents...]",
		Short: "validate JSON or YAML documents against a schema",
		Long:  "validate constructs an instance from every document and runs its validation, reporting the first failure per document.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runValidate,
	}
	validateCmd.Flags().String("name", "", "class to validate against (required when the schema yields several)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	classes, err := loadClasses(cmd, name)
	if err != nil {
		return err
	}
	c, err := pick(classes, name)
	if err != nil {
		return err
	}

	invalid := 0
	for _, path := range args {
		if err := validateFile(c, path); err != nil {
			invalid++
			event := log.Error().Str("path", path)
			if ve, ok := modelkit.AsValidationError(err); ok {
				event = event.Str("field", ve.Field).Str("code", ve.Code)
			}
			event.Msg(err.Error())
			continue
		}
		log.Info().Str("path", path).Str("class", c.Name()).Bool("valid", true).Msg("document validated")
	}
	if invalid > 0 {
		return fmt.Errorf("%w (%d of %d)", errInvalid, invalid, len(args))
	}
	return nil
}

func validateFile(c *modelkit.Class, path string) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	// text timestamps and durations become time values first
	doc, err = codec.Default().Document(c, doc)
	if err != nil {
		return err
	}
	inst, err := c.New(doc)
	if err != nil {
		return err
	}
	log.Debug().Str("path", path).Strs("fields", inst.FieldNames()).Msg("constructed instance")
	return inst.Validate()
}

func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		doc = modelkit.NormalizeYAML(doc)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: document is not an object", path)
	}
	return m, nil
}
