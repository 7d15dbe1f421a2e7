package modelkit

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

type cell struct {
	set   bool
	value any
}

// Instance holds one value cell per registered field of its Class. Unset
// cells read as the field's default, re-derived on every read.
//
// An Instance is not safe for concurrent mutation.
type Instance struct {
	class *Class
	cells map[string]cell
}

// Blank returns an instance with every cell unset.
func (c *Class) Blank() *Instance {
	return &Instance{class: c, cells: make(map[string]cell, len(c.order))}
}

// seeded returns an instance whose cells hold a materialized default.
// Defaults are stored as derived, without running the pipeline.
func (c *Class) seeded() *Instance {
	inst := c.Blank()
	for _, n := range c.order {
		inst.cells[n] = cell{set: true, value: c.fields[n].derive()}
	}
	return inst
}

// New constructs an instance: every field starts at its default, then
// kwargs are applied through the assignment pipeline in declaration order.
// The first failure aborts construction.
func (c *Class) New(kwargs map[string]any) (*Instance, error) {
	inst := c.seeded()
	if err := inst.Update(kwargs); err != nil {
		return nil, err
	}
	return inst, nil
}

// MustNew is like New but panics on error.
func (c *Class) MustNew(kwargs map[string]any) *Instance {
	inst, err := c.New(kwargs)
	if err != nil {
		panic(err)
	}
	return inst
}

func (i *Instance) Class() *Class { return i.class }

// FieldNames returns the registry names of the instance's class.
func (i *Instance) FieldNames() []string { return i.class.FieldNames() }

func (i *Instance) field(name string) (*Field, error) {
	f, ok := i.class.fields[name]
	if !ok {
		return nil, fail(CodeUnknownKey, name, nil)
	}
	return f, nil
}

// Get returns the stored value, or the derived default when the cell is
// unset. Unknown names read as nil.
func (i *Instance) Get(name string) any {
	v, _ := i.Lookup(name)
	return v
}

// Lookup is Get that also reports whether name is a registered field.
func (i *Instance) Lookup(name string) (any, bool) {
	f, ok := i.class.fields[name]
	if !ok {
		return nil, false
	}
	if c := i.cells[name]; c.set {
		return c.value, true
	}
	return f.derive(), true
}

// Set runs v through the field pipeline and commits the result. On failure
// the stored value is unchanged.
func (i *Instance) Set(name string, v any) error {
	f, err := i.field(name)
	if err != nil {
		return err
	}
	cv, err := f.Check(v)
	if err != nil {
		return err
	}
	i.cells[name] = cell{set: true, value: cv}
	return nil
}

// Delete unsets the cell; subsequent reads re-derive the default.
func (i *Instance) Delete(name string) error {
	if _, err := i.field(name); err != nil {
		return err
	}
	delete(i.cells, name)
	return nil
}

// IsSet reports whether the cell holds an explicit (or seeded) value.
func (i *Instance) IsSet(name string) bool { return i.cells[name].set }

// Materialize stores the current default in an unset cell, bypassing the
// pipeline, and returns the stored value.
func (i *Instance) Materialize(name string) (any, error) {
	f, err := i.field(name)
	if err != nil {
		return nil, err
	}
	if c := i.cells[name]; c.set {
		return c.value, nil
	}
	v := f.derive()
	i.cells[name] = cell{set: true, value: v}
	return v, nil
}

// Update applies kv through the assignment pipeline in declaration order.
// Unknown keys follow the class UnknownPolicy. Fields applied before a
// failure keep their new values.
func (i *Instance) Update(kv map[string]any) error {
	if i.class.unknown == UnknownStrict {
		var unknown []string
		for k := range kv {
			if _, ok := i.class.fields[k]; !ok {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return fail(CodeUnknownKey, unknown[0], nil)
		}
	}
	for _, n := range i.class.order {
		v, ok := kv[n]
		if !ok {
			continue
		}
		if err := i.Set(n, v); err != nil {
			return err
		}
	}
	return nil
}

// Validate re-checks nested instances (embedded fields and instances held
// in collections), then runs the class refines, inherited ones first.
func (i *Instance) Validate() error {
	for _, n := range i.class.order {
		if err := validateNested(i.Get(n)); err != nil {
			return err.under(n)
		}
	}
	for _, r := range i.class.chain {
		if err := r.fn(i); err != nil {
			return toValidationError(CodeCustom, "", err)
		}
	}
	return nil
}

func validateNested(v any) *ValidationError {
	switch t := v.(type) {
	case *Instance:
		if t == nil {
			return nil
		}
		if err := t.Validate(); err != nil {
			return toValidationError(CodeCustom, "", err)
		}
	case []any:
		for _, e := range t {
			if err := validateNested(e); err != nil {
				return err
			}
		}
	case Set:
		for _, e := range t.Items() {
			if err := validateNested(e); err != nil {
				return err
			}
		}
	case map[any]any:
		keys, vals, _ := dictEntries(t)
		for j, k := range keys {
			if err := validateNested(vals[j]); err != nil {
				return err.under(keyPath("", k))
			}
		}
	}
	return nil
}

// ToJSON projects the instance to plain maps, slices and scalars. Repeated
// calls on an unmodified instance return equal results.
func (i *Instance) ToJSON() map[string]any {
	out := make(map[string]any, len(i.class.order))
	for _, n := range i.class.order {
		out[n] = Project(i.Get(n))
	}
	return out
}

// MarshalJSON encodes ToJSON with keys in sorted order.
func (i *Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.ToJSON())
}

// String returns the JSON encoding of the instance.
func (i *Instance) String() string {
	b, err := i.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%s<%v>", i.class.name, err)
	}
	return string(b)
}
