package kubeopenapi_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/jsonschema"
	"github.com/reoring/modelkit/kubeopenapi"
)

const bundle = `
apiVersion: v1
kind: ConfigMap
metadata:
  name: unrelated
data:
  a: b
---
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: widgets.example.com
spec:
  group: example.com
  names:
    kind: Widget
    plural: widgets
  scope: Namespaced
  versions:
    - name: v1alpha1
      served: true
      storage: false
      schema:
        openAPIV3Schema:
          type: object
          properties:
            spec:
              type: object
              properties:
                count:
                  type: integer
    - name: v1
      served: true
      storage: true
      schema:
        openAPIV3Schema:
          type: object
          properties:
            apiVersion:
              type: string
            kind:
              type: string
            metadata:
              type: object
            spec:
              type: object
              required: [size]
              properties:
                size:
                  type: integer
                  minimum: 1
                color:
                  type: string
                  enum: [red, blue]
                  default: red
                labels:
                  type: object
                  additionalProperties:
                    type: string
                replicas:
                  x-kubernetes-int-or-string: true
`

func TestImportYAMLForCRDKind_StorageVersion(t *testing.T) {
	c, err := kubeopenapi.ImportYAMLForCRDKind([]byte(bundle), "Widget", kubeopenapi.Options{})
	require.NoError(t, err)
	require.Equal(t, "Widget", c.Name())
	require.Equal(t, []string{"apiVersion", "kind", "metadata", "spec"}, c.FieldNames())

	spec, ok := c.Field("spec")
	require.True(t, ok)
	require.Equal(t, modelkit.KindEmbedded, spec.Kind())
	require.Equal(t, "WidgetSpec", spec.Target().Name())
	require.Equal(t, []string{"color", "labels", "replicas", "size"}, spec.Target().FieldNames())

	meta, _ := c.Field("metadata")
	require.Equal(t, modelkit.KindDict, meta.Kind())
	replicas, _ := spec.Target().Field("replicas")
	require.Equal(t, modelkit.KindGeneric, replicas.Kind())

	inst, err := c.New(map[string]any{
		"apiVersion": "example.com/v1",
		"kind":       "Widget",
		"metadata":   map[string]any{"name": "w"},
		"spec":       map[string]any{"size": 3, "replicas": "50%"},
	})
	require.NoError(t, err)
	require.Equal(t, "red", inst.Get("spec").(*modelkit.Instance).Get("color"))
}

func TestImportYAMLForCRDKind_InstancesFollowSchema(t *testing.T) {
	c, err := kubeopenapi.ImportYAMLForCRDKind([]byte(bundle), "Widget", kubeopenapi.Options{})
	require.NoError(t, err)

	cases := []struct {
		spec  map[string]any
		code  string
		field string
	}{
		{map[string]any{"size": 0}, modelkit.CodeValidation, "spec.size"},
		{map[string]any{"size": nil}, modelkit.CodeNotNullable, "spec.size"},
		{map[string]any{"size": 1, "color": "green"}, modelkit.CodeValidation, "spec.color"},
		{map[string]any{"size": 1, "labels": map[string]any{"a": 1}}, modelkit.CodeInvalidType, "spec.labels['a']"},
	}
	for _, tc := range cases {
		_, err := c.New(map[string]any{"spec": tc.spec})
		ve, ok := modelkit.AsValidationError(err)
		require.True(t, ok, "spec %v: %v", tc.spec, err)
		require.Equal(t, tc.code, ve.Code, "spec %v", tc.spec)
		require.Equal(t, tc.field, ve.Field, "spec %v", tc.spec)
	}
}

func TestImport_VersionAndName(t *testing.T) {
	c, err := kubeopenapi.ImportYAMLForCRDName([]byte(bundle), "widgets.example.com", kubeopenapi.Options{Version: "v1alpha1"})
	require.NoError(t, err)
	spec, _ := c.Field("spec")
	require.Equal(t, []string{"count"}, spec.Target().FieldNames())

	_, err = kubeopenapi.ImportYAMLForCRDName([]byte(bundle), "widgets.example.com", kubeopenapi.Options{Version: "v2"})
	require.ErrorContains(t, err, `version "v2" not found`)
}

func TestImport_StrictOption(t *testing.T) {
	c, err := kubeopenapi.ImportYAMLForCRDKind([]byte(bundle), "Widget", kubeopenapi.Options{
		Compile: jsonschema.CompileOpt{Strict: true},
	})
	require.NoError(t, err)
	_, err = c.New(map[string]any{"spec": map[string]any{"size": 1, "colour": "red"}})
	ve, ok := modelkit.AsValidationError(err)
	require.True(t, ok)
	require.Equal(t, modelkit.CodeUnknownKey, ve.Code)
	require.Equal(t, "spec.colour", ve.Field)
}

func TestImport_NotFound(t *testing.T) {
	_, err := kubeopenapi.ImportYAMLForCRDKind([]byte(bundle), "Gadget", kubeopenapi.Options{})
	require.ErrorIs(t, err, kubeopenapi.ErrNotFound)

	_, err = kubeopenapi.ImportYAMLForCRDKind([]byte("a: [\n"), "Widget", kubeopenapi.Options{})
	require.Error(t, err)

	_, err = kubeopenapi.Import(map[string]any{"spec": map[string]any{"names": map[string]any{"kind": "X"}}}, kubeopenapi.Options{})
	require.ErrorContains(t, err, "no openAPIV3Schema")
}
