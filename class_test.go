package modelkit_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	modelkit "github.com/reoring/modelkit"
)

func carClass() *modelkit.Class {
	return modelkit.NewClass("Car").
		Field("wheels", modelkit.Integer(modelkit.WithDefault(4))).
		Field("model", modelkit.String()).
		MustBuild()
}

func TestClass_CarScenario(t *testing.T) {
	car := carClass()
	c, err := car.New(map[string]any{"model": "Tesla"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"wheels": 4, "model": "Tesla"}
	if diff := cmp.Diff(want, c.ToJSON()); diff != "" {
		t.Fatalf("to_json mismatch (-want +got):\n%s", diff)
	}

	_, err = car.New(map[string]any{"wheels": true})
	ve := mustCode(t, err, modelkit.CodeInvalidType)
	if ve.Field != "wheels" {
		t.Fatalf("want path wheels, got %q", ve.Field)
	}
}

func TestClass_TruckOverridesDefault(t *testing.T) {
	car := carClass()
	truck := modelkit.NewClass("Truck").
		Extends(car).
		Field("wheels", modelkit.Integer(modelkit.WithDefault(18))).
		Field("payload", modelkit.Float()).
		MustBuild()

	if got := truck.MustNew(nil).ToJSON()["wheels"]; got != 18 {
		t.Fatalf("Truck wheels: want 18, got %v", got)
	}
	if got := car.MustNew(nil).ToJSON()["wheels"]; got != 4 {
		t.Fatalf("Car wheels: want 4, got %v", got)
	}
	// overrides keep the inherited position; own fields follow
	if diff := cmp.Diff([]string{"wheels", "model", "payload"}, truck.FieldNames()); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
	if !truck.IsA(car) || car.IsA(truck) {
		t.Fatalf("IsA mismatch")
	}
}

func TestClass_FieldNamesIsACopy(t *testing.T) {
	car := carClass()
	names := car.FieldNames()
	names[0] = "mutated"
	if car.FieldNames()[0] != "wheels" {
		t.Fatalf("FieldNames exposed the registry")
	}
}

func TestClass_MultipleParents_LaterWins(t *testing.T) {
	a := modelkit.NewClass("A").Field("x", modelkit.Integer(modelkit.WithDefault(1))).MustBuild()
	b := modelkit.NewClass("B").Field("x", modelkit.Integer(modelkit.WithDefault(2))).Field("y", modelkit.String()).MustBuild()
	c := modelkit.NewClass("C").Extends(a, b).MustBuild()
	if got := c.MustNew(nil).Get("x"); got != 2 {
		t.Fatalf("want later parent to win, got %v", got)
	}
	if diff := cmp.Diff([]string{"x", "y"}, c.FieldNames()); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
}

func TestClass_BindOnce(t *testing.T) {
	shared := modelkit.String()
	var bound []string
	hook := func(c *modelkit.Class, f *modelkit.Field) { bound = append(bound, c.Name()+"."+f.Name()) }

	parent := modelkit.NewClass("Parent").OnBind(hook).Field("title", shared).MustBuild()
	modelkit.NewClass("Child").OnBind(hook).Extends(parent).Field("extra", modelkit.Integer()).MustBuild()

	if diff := cmp.Diff([]string{"Parent.title", "Child.extra"}, bound); diff != "" {
		t.Fatalf("bind hooks mismatch (-want +got):\n%s", diff)
	}
	if shared.Name() != "title" || shared.String() != "title" {
		t.Fatalf("descriptor should be bound as title, got %q", shared.Name())
	}

	// same descriptor under another name is a definition-time error
	_, err := modelkit.NewClass("Other").Field("heading", shared).Build()
	var ue *modelkit.UsageError
	if !errors.As(err, &ue) || ue.Field != "heading" {
		t.Fatalf("expected UsageError for heading, got %v", err)
	}

	// nothing is bound when a build fails
	fresh := modelkit.String()
	_, err = modelkit.NewClass("Broken").
		Field("ok", fresh).
		Field("bad", modelkit.String(modelkit.Keys(modelkit.String()))).
		Build()
	if !errors.As(err, &ue) || ue.Field != "bad" {
		t.Fatalf("expected UsageError for bad, got %v", err)
	}
	if fresh.Name() != "" {
		t.Fatalf("failed build bound %q", fresh.Name())
	}
}

func TestClass_BuilderMisuse(t *testing.T) {
	if _, err := modelkit.NewClass("X").Field("", modelkit.String()).Build(); err == nil {
		t.Fatalf("empty field name should fail")
	}
	if _, err := modelkit.NewClass("X").Field("a", nil).Build(); err == nil {
		t.Fatalf("nil descriptor should fail")
	}
	if _, err := modelkit.NewClass("X").Extends(nil).Build(); err == nil {
		t.Fatalf("nil parent should fail")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("MustBuild should panic on misuse")
		}
	}()
	modelkit.NewClass("X").Field("a", modelkit.Integer(modelkit.Values(modelkit.String()))).MustBuild()
}

func TestClass_UnknownPolicy(t *testing.T) {
	lax := carClass()
	if _, err := lax.New(map[string]any{"model": "x", "colour": "red"}); err != nil {
		t.Fatalf("unknown keys should be ignored by default: %v", err)
	}

	strict := modelkit.NewClass("StrictCar").Extends(lax).UnknownStrict().MustBuild()
	_, err := strict.New(map[string]any{"wheels": true, "zeta": 1, "alpha": 2})
	ve := mustCode(t, err, modelkit.CodeUnknownKey)
	if ve.Field != "alpha" {
		t.Fatalf("unknown keys should be reported first and sorted, got %q", ve.Field)
	}
	if strict.UnknownPolicy() != modelkit.UnknownStrict {
		t.Fatalf("policy mismatch")
	}
	// policy is inherited unless overridden
	child := modelkit.NewClass("Child").Extends(strict).MustBuild()
	if child.UnknownPolicy() != modelkit.UnknownStrict {
		t.Fatalf("policy should be inherited")
	}
}
