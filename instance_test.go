package modelkit_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	modelkit "github.com/reoring/modelkit"
)

func engineClasses() (inner, outer *modelkit.Class) {
	inner = modelkit.NewClass("Engine").
		Field("a", modelkit.Integer(modelkit.WithDefault(0))).
		Field("inner", modelkit.String(modelkit.NotNull(), modelkit.WithDefault("v8"))).
		MustBuild()
	outer = modelkit.NewClass("Vehicle").
		Field("outer", modelkit.Embedded(inner)).
		MustBuild()
	return inner, outer
}

func TestEmbedded_MappingEquivalentToInstance(t *testing.T) {
	inner, outer := engineClasses()
	fromMap := outer.MustNew(map[string]any{"outer": map[string]any{"a": 1}})
	fromInst := outer.MustNew(map[string]any{"outer": inner.MustNew(map[string]any{"a": 1})})
	if diff := cmp.Diff(fromInst.ToJSON(), fromMap.ToJSON()); diff != "" {
		t.Fatalf("mapping vs instance mismatch (-inst +map):\n%s", diff)
	}
	if _, ok := fromMap.Get("outer").(*modelkit.Instance); !ok {
		t.Fatalf("mapping should be expanded into an instance, got %T", fromMap.Get("outer"))
	}
}

func TestEmbedded_NoDefensiveCopy(t *testing.T) {
	inner, outer := engineClasses()
	shared := inner.MustNew(nil)
	a := outer.MustNew(map[string]any{"outer": shared})
	b := outer.MustNew(map[string]any{"outer": shared})
	if err := shared.Set("a", 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Get("outer") != b.Get("outer") || a.Get("outer").(*modelkit.Instance).Get("a") != 9 {
		t.Fatalf("pre-built instances should be stored as-is")
	}
}

func TestEmbedded_NestedFailurePath(t *testing.T) {
	_, outer := engineClasses()
	_, err := outer.New(map[string]any{"outer": map[string]any{"inner": nil}})
	ve := mustCode(t, err, modelkit.CodeNotNullable)
	if ve.Field != "outer.inner" {
		t.Fatalf("want outer.inner, got %q", ve.Field)
	}

	deep := modelkit.NewClass("Fleet").Field("lead", modelkit.Embedded(outer)).MustBuild()
	_, err = deep.New(map[string]any{"lead": map[string]any{"outer": map[string]any{"a": "x"}}})
	ve = mustCode(t, err, modelkit.CodeInvalidType)
	if ve.Field != "lead.outer.a" {
		t.Fatalf("want lead.outer.a, got %q", ve.Field)
	}
}

func TestEmbedded_RejectsOtherValues(t *testing.T) {
	_, outer := engineClasses()
	other := modelkit.NewClass("Other").MustBuild()
	for _, bad := range []any{nil, 5, other.MustNew(nil), []any{}} {
		_, err := outer.New(map[string]any{"outer": bad})
		ve := mustCode(t, err, modelkit.CodeNotInstance)
		if ve.Field != "outer" {
			t.Fatalf("unexpected path %q", ve.Field)
		}
	}

	// subclasses of the target are accepted
	inner, _ := engineClasses()
	turbo := modelkit.NewClass("Turbo").Extends(inner).Field("boost", modelkit.Float()).MustBuild()
	holder := modelkit.NewClass("Holder").Field("e", modelkit.Embedded(inner)).MustBuild()
	if _, err := holder.New(map[string]any{"e": turbo.MustNew(nil)}); err != nil {
		t.Fatalf("subclass instance should be accepted: %v", err)
	}
}

func TestEmbedded_DefaultIsFreshInstance(t *testing.T) {
	_, outer := engineClasses()
	a, b := outer.MustNew(nil), outer.MustNew(nil)
	if a.Get("outer") == b.Get("outer") {
		t.Fatalf("embedded default should not be shared")
	}
	want := map[string]any{"outer": map[string]any{"a": 0, "inner": "v8"}}
	if diff := cmp.Diff(want, a.ToJSON()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestInstance_DeleteRederivesDefault(t *testing.T) {
	calls := 0
	c := modelkit.NewClass("Counter").
		Field("n", modelkit.Integer(modelkit.WithDefaultFunc(func() any { calls++; return calls * 10 }))).
		MustBuild()
	inst := c.MustNew(map[string]any{"n": 1})
	if err := inst.Delete("n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.IsSet("n") {
		t.Fatalf("delete should unset the cell")
	}
	first, second := inst.Get("n"), inst.Get("n")
	if first == second {
		t.Fatalf("unset reads should re-derive the default, got %v twice", first)
	}
	v, err := inst.Materialize("n")
	if err != nil || !inst.IsSet("n") || inst.Get("n") != v {
		t.Fatalf("materialize should store the derived value")
	}
	mustCode(t, inst.Delete("missing"), modelkit.CodeUnknownKey)
}

func TestInstance_SetUnknownAndFailedSet(t *testing.T) {
	car := carClass()
	c := car.MustNew(map[string]any{"model": "T"})
	mustCode(t, c.Set("colour", "red"), modelkit.CodeUnknownKey)
	mustCode(t, c.Set("wheels", "four"), modelkit.CodeInvalidType)
	if c.Get("wheels") != 4 {
		t.Fatalf("failed set must keep the previous value, got %v", c.Get("wheels"))
	}
	if _, ok := c.Lookup("colour"); ok {
		t.Fatalf("Lookup should report unknown names")
	}
}

func TestInstance_UpdateIsNotAtomic(t *testing.T) {
	c := modelkit.NewClass("Pair").
		Field("first", modelkit.Integer()).
		Field("second", modelkit.Integer()).
		Field("third", modelkit.Integer(modelkit.WithDefault(3))).
		MustBuild()
	inst := c.MustNew(nil)
	err := inst.Update(map[string]any{"second": "bad", "first": 1})
	mustCode(t, err, modelkit.CodeInvalidType)
	if inst.Get("first") != 1 {
		t.Fatalf("fields before the failure (registry order) stay committed")
	}
	if inst.Get("third") != 3 {
		t.Fatalf("unmentioned fields must be untouched")
	}
}

func TestInstance_ConstructionFailsOnFirstFieldInRegistryOrder(t *testing.T) {
	c := modelkit.NewClass("Order").
		Field("z", modelkit.Integer()).
		Field("a", modelkit.Integer()).
		MustBuild()
	_, err := c.New(map[string]any{"a": "x", "z": "y"})
	ve := mustCode(t, err, modelkit.CodeInvalidType)
	if ve.Field != "z" {
		t.Fatalf("want first registry field z, got %q", ve.Field)
	}
}

func TestInstance_ValidateRefineChain(t *testing.T) {
	var trace []string
	base := modelkit.NewClass("Base").
		Field("lo", modelkit.Integer(modelkit.WithDefault(0))).
		Field("hi", modelkit.Integer(modelkit.WithDefault(0))).
		Refine("ordered", func(i *modelkit.Instance) error {
			trace = append(trace, "base")
			if i.Get("lo").(int) > i.Get("hi").(int) {
				return errors.New("lo must not exceed hi")
			}
			return nil
		}).
		MustBuild()
	child := modelkit.NewClass("Child").
		Extends(base).
		Refine("positive", func(i *modelkit.Instance) error {
			trace = append(trace, "child")
			if i.Get("lo").(int) < 0 {
				return modelkit.NewValidationError(modelkit.CodeCustom, "lo", "must be positive")
			}
			return nil
		}).
		MustBuild()

	inst := child.MustNew(map[string]any{"lo": 5, "hi": 1})
	err := inst.Validate()
	ve := mustCode(t, err, modelkit.CodeCustom)
	if ve.Message != "lo must not exceed hi" {
		t.Fatalf("unexpected message %q", ve.Message)
	}
	if diff := cmp.Diff([]string{"base"}, trace); diff != "" {
		t.Fatalf("inherited refine must run first (-want +got):\n%s", diff)
	}

	trace = nil
	_ = inst.Update(map[string]any{"lo": -1})
	ve = mustCode(t, inst.Validate(), modelkit.CodeCustom)
	if ve.Field != "lo" {
		t.Fatalf("want lo, got %q", ve.Field)
	}
	if diff := cmp.Diff([]string{"base", "child"}, trace); diff != "" {
		t.Fatalf("refine order mismatch (-want +got):\n%s", diff)
	}
}

func TestInstance_ValidateRecursesIntoNested(t *testing.T) {
	leaf := modelkit.NewClass("Leaf").
		Field("n", modelkit.Integer(modelkit.WithDefault(0))).
		Refine("small", func(i *modelkit.Instance) error {
			if i.Get("n").(int) > 10 {
				return fmt.Errorf("n too large")
			}
			return nil
		}).
		MustBuild()
	tree := modelkit.NewClass("Tree").
		Field("root", modelkit.Embedded(leaf)).
		Field("leaves", modelkit.List(modelkit.Values(modelkit.Embedded(leaf)))).
		Field("named", modelkit.Dict(modelkit.Values(modelkit.Embedded(leaf)))).
		MustBuild()

	inst := tree.MustNew(map[string]any{"root": map[string]any{"n": 99}})
	ve := mustCode(t, inst.Validate(), modelkit.CodeCustom)
	if ve.Field != "root" {
		t.Fatalf("want root, got %q", ve.Field)
	}

	inst = tree.MustNew(map[string]any{"leaves": []any{map[string]any{"n": 1}, map[string]any{"n": 50}}})
	ve = mustCode(t, inst.Validate(), modelkit.CodeCustom)
	if ve.Field != "leaves" {
		t.Fatalf("want leaves, got %q", ve.Field)
	}

	inst = tree.MustNew(map[string]any{"named": map[string]any{"big": map[string]any{"n": 11}}})
	ve = mustCode(t, inst.Validate(), modelkit.CodeCustom)
	if ve.Field != "named['big']" {
		t.Fatalf("want named['big'], got %q", ve.Field)
	}

	if err := tree.MustNew(nil).Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestInstance_ToJSONStableAndPlain(t *testing.T) {
	_, outer := engineClasses()
	c := modelkit.NewClass("Garage").
		Field("cars", modelkit.List(modelkit.Values(modelkit.Embedded(outer)))).
		Field("tags", modelkit.SetOf()).
		Field("slots", modelkit.Dict()).
		MustBuild()
	inst := c.MustNew(map[string]any{
		"cars":  []any{map[string]any{}},
		"tags":  modelkit.NewSet("b", "a"),
		"slots": map[int]string{2: "y", 1: "x"},
	})
	first, second := inst.ToJSON(), inst.ToJSON()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("to_json not stable (-first +second):\n%s", diff)
	}
	want := map[string]any{
		"cars":  []any{map[string]any{"outer": map[string]any{"a": 0, "inner": "v8"}}},
		"tags":  []any{"a", "b"},
		"slots": map[string]any{"1": "x", "2": "y"},
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("to_json mismatch (-want +got):\n%s", diff)
	}
	if got := inst.String(); got != `{"cars":[{"outer":{"a":0,"inner":"v8"}}],"slots":{"1":"x","2":"y"},"tags":["a","b"]}` {
		t.Fatalf("unexpected JSON: %s", got)
	}
}

func TestInstance_ToJSONKeysThatPrintAlike(t *testing.T) {
	c := modelkit.NewClass("Table").Field("d", modelkit.Dict()).MustBuild()
	inst := c.MustNew(map[string]any{"d": map[any]any{1: "int", "1": "str"}})
	want := map[string]any{"d": map[string]any{"1": "str"}}
	for i := 0; i < 50; i++ {
		if diff := cmp.Diff(want, inst.ToJSON()); diff != "" {
			t.Fatalf("call %d: to_json mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestInstance_DecodeDocuments(t *testing.T) {
	car := carClass()
	c, err := car.DecodeJSON([]byte(`{"wheels": 6, "model": "Bus"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Get("wheels") != 6 || c.Get("model") != "Bus" {
		t.Fatalf("unexpected values: %v", c)
	}

	_, outer := engineClasses()
	y, err := outer.DecodeYAML([]byte("outer:\n  a: 3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if y.Get("outer").(*modelkit.Instance).Get("a") != 3 {
		t.Fatalf("nested YAML mapping not expanded: %v", y)
	}

	_, err = car.DecodeJSON([]byte(`[1,2]`))
	mustCode(t, err, modelkit.CodeInvalidType)
	if _, err := car.DecodeJSON([]byte(`{`)); err == nil {
		t.Fatalf("expected syntax error")
	}
}
