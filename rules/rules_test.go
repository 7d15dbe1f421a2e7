package rules_test

import (
	"errors"
	"testing"
	"time"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/rules"
)

func TestPredicates_Numeric(t *testing.T) {
	cases := []struct {
		name string
		p    modelkit.Predicate
		ok   []any
		bad  []any
	}{
		{"min", rules.Min(3), []any{3, 3.5, uint(10), nil}, []any{2, -1.0, "5", true}},
		{"max", rules.Max(3), []any{3, -7}, []any{3.01, 4}},
		{"xmin", rules.ExclusiveMin(0), []any{0.1, 1}, []any{0, -1}},
		{"xmax", rules.ExclusiveMax(10), []any{9}, []any{10, 11}},
		{"multiple", rules.MultipleOf(0.5), []any{1, 1.5, 0}, []any{1.2}},
	}
	for _, c := range cases {
		for _, v := range c.ok {
			if !c.p(v) {
				t.Fatalf("%s: expected %v to pass", c.name, v)
			}
		}
		for _, v := range c.bad {
			if c.p(v) {
				t.Fatalf("%s: expected %v to fail", c.name, v)
			}
		}
	}
	if rules.MultipleOf(0)(4) {
		t.Fatalf("multipleOf 0 should never pass")
	}
}

func TestPredicates_Length(t *testing.T) {
	if !rules.MinLen(2)("héé") || rules.MaxLen(2)("héé") {
		t.Fatalf("string length should count runes")
	}
	if !rules.MaxLen(1)([]any{1}) || rules.MaxLen(1)([]any{1, 2}) {
		t.Fatalf("list length mismatch")
	}
	if !rules.MinLen(1)(modelkit.NewSet("a")) || rules.MinLen(1)(map[any]any{}) {
		t.Fatalf("set/dict length mismatch")
	}
	if rules.MinLen(0)(5) {
		t.Fatalf("numbers have no length")
	}
}

func TestPredicates_Strings(t *testing.T) {
	p := rules.Pattern(`^[a-z]+$`)
	if !p("abc") || p("ABC") || p(5) || !p(nil) {
		t.Fatalf("pattern mismatch")
	}
	e := rules.Email()
	if !e("a@example.com") || e("Alice <a@example.com>") || e("nope") {
		t.Fatalf("email mismatch")
	}
	r := rules.RFC3339()
	if !r("2024-05-01T10:00:00Z") || !r(time.Now()) || r("2024-05-01") || r(5) {
		t.Fatalf("rfc3339 mismatch")
	}
}

func TestPredicates_EnumAndUnique(t *testing.T) {
	en := rules.Enum("a", "b", 1)
	if !en("a") || !en(1.0) || en("c") || !en(nil) {
		t.Fatalf("enum mismatch")
	}
	u := rules.Unique()
	if !u([]any{1, 2, "1"}) || u([]any{1, 1.0}) || u("abc") {
		t.Fatalf("unique mismatch")
	}
}

func TestPredicates_OnField(t *testing.T) {
	c := modelkit.NewClass("Product").
		Field("qty", modelkit.Integer(modelkit.WithValidator(modelkit.AllOf(rules.Min(1), rules.Max(99))))).
		MustBuild()
	if _, err := c.New(map[string]any{"qty": 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := c.New(map[string]any{"qty": 0})
	ve, ok := modelkit.AsValidationError(err)
	if !ok || ve.Code != modelkit.CodeValidation || ve.Field != "qty" {
		t.Fatalf("expected validation error at qty, got %v", err)
	}
}

func orderClass(refines ...rules.Rule) *modelkit.Class {
	item := modelkit.NewClass("Item").
		Field("sku", modelkit.String()).
		MustBuild()
	b := modelkit.NewClass("Order").
		Field("status", modelkit.String(modelkit.WithDefault("draft"))).
		Field("total", modelkit.Float(modelkit.WithDefault(0))).
		Field("items", modelkit.List(modelkit.Values(modelkit.Embedded(item)))).
		Field("note", modelkit.String())
	for i, r := range refines {
		b = b.Refine(string(rune('a'+i)), r)
	}
	return b.MustBuild()
}

func TestRules_AtLeastOne(t *testing.T) {
	c := orderClass(rules.AtLeastOne("items"))
	err := c.MustNew(nil).Validate()
	ve, ok := modelkit.AsValidationError(err)
	if !ok || ve.Field != "items" || ve.Code != modelkit.CodeCustom {
		t.Fatalf("expected custom error at items, got %v", err)
	}
	inst := c.MustNew(map[string]any{"items": []any{map[string]any{"sku": "x"}}})
	if err := inst.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRules_UniqueBy(t *testing.T) {
	c := orderClass(rules.UniqueBy("items", "sku"))
	inst := c.MustNew(map[string]any{"items": []any{
		map[string]any{"sku": "a"},
		map[string]any{"sku": "b"},
		map[string]any{"sku": "a"},
	}})
	err := inst.Validate()
	ve, ok := modelkit.AsValidationError(err)
	if !ok || ve.Field != "items" {
		t.Fatalf("expected duplicate error at items, got %v", err)
	}
	if ve.Message != `duplicate sku "a" (items 0 and 2)` {
		t.Fatalf("unexpected message %q", ve.Message)
	}
}

func TestRules_Conditional(t *testing.T) {
	submitted := rules.If("status", rules.Eq, "submitted")
	c := orderClass(
		submitted.Then(rules.AtLeastOne("items")),
		rules.IfAll(submitted, rules.If("total", rules.Gt, 100)).Then(rules.Require("note")),
	)

	if err := c.MustNew(nil).Validate(); err != nil {
		t.Fatalf("draft orders are unconstrained: %v", err)
	}

	one := []any{map[string]any{"sku": "a"}}
	if err := c.MustNew(map[string]any{"status": "submitted"}).Validate(); err == nil {
		t.Fatalf("submitted order without items should fail")
	}
	if err := c.MustNew(map[string]any{"status": "submitted", "items": one, "total": 50}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := c.MustNew(map[string]any{"status": "submitted", "items": one, "total": 150}).Validate()
	ve, ok := modelkit.AsValidationError(err)
	if !ok || ve.Field != "note" {
		t.Fatalf("expected note to be required, got %v", err)
	}

	either := rules.IfAny(rules.If("status", rules.Eq, "paid"), rules.If("total", rules.Ge, 1000))
	c2 := orderClass(either.Then(rules.Require("note")))
	if err := c2.MustNew(map[string]any{"total": 1000}).Validate(); err == nil {
		t.Fatalf("IfAny should trigger on total")
	}
	if err := c2.MustNew(map[string]any{"status": "open", "total": 5}).Validate(); err != nil {
		t.Fatalf("IfAny should not trigger: %v", err)
	}
}

func TestRules_AndOr(t *testing.T) {
	boom := errors.New("boom")
	fail := func(*modelkit.Instance) error { return boom }
	pass := func(*modelkit.Instance) error { return nil }
	inst := orderClass().MustNew(nil)
	if err := rules.Or(fail, pass)(inst); err != nil {
		t.Fatalf("Or should pass when any rule passes")
	}
	if err := rules.Or(fail, fail)(inst); !errors.Is(err, boom) {
		t.Fatalf("Or should return the first failure, got %v", err)
	}
	if err := rules.And(pass, fail)(inst); !errors.Is(err, boom) {
		t.Fatalf("And should fail, got %v", err)
	}
}
