package modelkit

import "fmt"

// Class is an immutable field registry: the union of inherited and own fields
// in declaration order, most-derived descriptor winning on a name collision.
// A built Class is safe for concurrent use.
type Class struct {
	name    string
	parents []*Class
	order   []string
	fields  map[string]*Field
	chain   []refine // inherited refines first, then own
	unknown UnknownPolicy
}

type refine struct {
	name string
	fn   func(*Instance) error
}

// BindHook runs once for every descriptor newly bound by a class build. Hooks
// may attach side metadata with Field.SetExtra.
type BindHook func(c *Class, f *Field)

// ClassBuilder composes a Class.
type ClassBuilder struct {
	name       string
	parents    []*Class
	order      []string
	fields     map[string]*Field
	refines    []refine
	hooks      []BindHook
	unknown    UnknownPolicy
	unknownSet bool
	err        error
}

// NewClass creates a new class builder with safe defaults (UnknownStrip).
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{name: name, fields: map[string]*Field{}}
}

func (b *ClassBuilder) misuse(field, msg string) *ClassBuilder {
	if b.err == nil {
		b.err = &UsageError{Field: field, Message: msg}
	}
	return b
}

// Extends inherits the registries of parents. Later parents override earlier
// ones; own fields override all of them.
func (b *ClassBuilder) Extends(parents ...*Class) *ClassBuilder {
	for _, p := range parents {
		if p == nil {
			return b.misuse("", "nil parent class")
		}
		b.parents = append(b.parents, p)
	}
	return b
}

// Field declares a field. Redeclaring a name in the same builder replaces the
// descriptor and keeps the original position.
func (b *ClassBuilder) Field(name string, f *Field) *ClassBuilder {
	if name == "" {
		return b.misuse("", "empty field name")
	}
	if f == nil {
		return b.misuse(name, "nil descriptor")
	}
	if _, dup := b.fields[name]; !dup {
		b.order = append(b.order, name)
	}
	b.fields[name] = f
	return b
}

// Refine adds a class-level invariant run by Instance.Validate after the
// structural pass and after every inherited refine.
func (b *ClassBuilder) Refine(name string, fn func(*Instance) error) *ClassBuilder {
	if fn == nil {
		return b
	}
	b.refines = append(b.refines, refine{name: name, fn: fn})
	return b
}

// OnBind registers a hook fired for each descriptor this build binds.
func (b *ClassBuilder) OnBind(h BindHook) *ClassBuilder {
	if h != nil {
		b.hooks = append(b.hooks, h)
	}
	return b
}

// UnknownStrict makes New and Update reject unknown keys.
func (b *ClassBuilder) UnknownStrict() *ClassBuilder {
	b.unknown, b.unknownSet = UnknownStrict, true
	return b
}

// UnknownStrip makes New and Update ignore unknown keys.
func (b *ClassBuilder) UnknownStrip() *ClassBuilder {
	b.unknown, b.unknownSet = UnknownStrip, true
	return b
}

// Build merges the registry, binds descriptor names and returns the Class.
// Descriptor misuse is reported here as a *UsageError.
func (b *ClassBuilder) Build() (*Class, error) {
	if b.err != nil {
		return nil, b.err
	}
	c := &Class{
		name:    b.name,
		parents: append([]*Class(nil), b.parents...),
		fields:  map[string]*Field{},
		unknown: b.unknown,
	}
	if !b.unknownSet && len(b.parents) > 0 {
		c.unknown = b.parents[len(b.parents)-1].unknown
	}
	for _, p := range b.parents {
		for _, n := range p.order {
			c.put(n, p.fields[n])
		}
	}
	for _, n := range b.order {
		c.put(n, b.fields[n])
	}

	// check everything before binding anything
	pending := map[*Field]string{}
	for _, n := range c.order {
		f := c.fields[n]
		if err := f.Err(); err != nil {
			if ue, ok := err.(*UsageError); ok {
				return nil, &UsageError{Field: n, Message: ue.Message}
			}
			return nil, err
		}
		bound := f.name
		if bound == "" {
			bound = pending[f]
		}
		if bound != "" && bound != n {
			return nil, &UsageError{Field: n, Message: fmt.Sprintf("descriptor already bound as %q", bound)}
		}
		if f.name == "" {
			pending[f] = n
		}
	}
	for _, n := range c.order {
		f := c.fields[n]
		if f.name != "" {
			continue
		}
		f.name = n
		for _, h := range b.hooks {
			h(c, f)
		}
	}

	seen := map[*Class]bool{}
	for _, p := range c.parents {
		c.chain = appendChain(c.chain, p, seen)
	}
	c.chain = append(c.chain, b.refines...)
	return c, nil
}

// MustBuild is like Build but panics on error.
func (b *ClassBuilder) MustBuild() *Class {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Class) put(name string, f *Field) {
	if _, ok := c.fields[name]; !ok {
		c.order = append(c.order, name)
	}
	c.fields[name] = f
}

// appendChain appends p's full refine chain once, even under diamond
// inheritance.
func appendChain(dst []refine, p *Class, seen map[*Class]bool) []refine {
	if seen[p] {
		return dst
	}
	seen[p] = true
	return append(dst, p.chain...)
}

func (c *Class) Name() string { return c.name }

func (c *Class) String() string { return c.name }

// FieldNames returns a copy of the registry names in declaration order.
func (c *Class) FieldNames() []string { return append([]string(nil), c.order...) }

// Field returns the registered descriptor for name.
func (c *Class) Field(name string) (*Field, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// Fields returns the registered descriptors in declaration order.
func (c *Class) Fields() []*Field {
	out := make([]*Field, len(c.order))
	for i, n := range c.order {
		out[i] = c.fields[n]
	}
	return out
}

func (c *Class) Parents() []*Class { return append([]*Class(nil), c.parents...) }

func (c *Class) UnknownPolicy() UnknownPolicy { return c.unknown }

// IsA reports whether c is other or extends it, directly or transitively.
func (c *Class) IsA(other *Class) bool {
	if c == other {
		return true
	}
	for _, p := range c.parents {
		if p.IsA(other) {
			return true
		}
	}
	return false
}

// RefineNames returns the names of the refine chain in execution order.
func (c *Class) RefineNames() []string {
	out := make([]string, len(c.chain))
	for i, r := range c.chain {
		out[i] = r.name
	}
	return out
}
