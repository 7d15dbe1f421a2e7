// Package lazy builds instances whose scalar defaults are never stored.
//
// An unset scalar cell reads as the field's current default, so changing a
// default in code changes every persisted document that never set the field,
// without a data migration. Collections and embedded instances are still
// materialized at construction because callers mutate them in place.
//
//	truck, _ := lazy.New(Truck, nil)
//	truck.Get("wheels")   // 16, derived
//	lazy.ToJSON(truck)    // {} (wheels omitted)
package lazy

import (
	modelkit "github.com/reoring/modelkit"
)

// New constructs an instance of c with only collection and embedded fields
// materialized, then applies kwargs through the assignment pipeline.
func New(c *modelkit.Class, kwargs map[string]any) (*modelkit.Instance, error) {
	inst := c.Blank()
	for _, f := range c.Fields() {
		if !eager(f) {
			continue
		}
		if _, err := inst.Materialize(f.Name()); err != nil {
			return nil, err
		}
	}
	if err := inst.Update(kwargs); err != nil {
		return nil, err
	}
	return inst, nil
}

func eager(f *modelkit.Field) bool {
	return f.Kind().IsCollection() || f.Kind() == modelkit.KindEmbedded
}

// Materialized lists the fields holding a stored value, in registry order.
func Materialized(inst *modelkit.Instance) []string {
	var out []string
	for _, n := range inst.FieldNames() {
		if inst.IsSet(n) {
			out = append(out, n)
		}
	}
	return out
}

// ToJSON projects the stored fields only; fields still reading their default
// are omitted.
func ToJSON(inst *modelkit.Instance) map[string]any {
	out := map[string]any{}
	for _, n := range Materialized(inst) {
		out[n] = modelkit.Project(inst.Get(n))
	}
	return out
}

// Validate re-assigns every stored value through its pipeline, so values
// stored before a descriptor changed are checked against the current one,
// then runs the instance's own validation.
func Validate(inst *modelkit.Instance) error {
	for _, n := range Materialized(inst) {
		if err := inst.Set(n, inst.Get(n)); err != nil {
			return err
		}
	}
	return inst.Validate()
}
