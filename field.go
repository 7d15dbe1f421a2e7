package modelkit

// Field is a reusable field descriptor: a default, an optional validator and
// mutator, a nullable flag and, depending on the kind, inner descriptors or an
// embedded class. Construct fields with Generic, String, Integer, Float, Bool,
// DateTime, Duration, List, SetOf, Dict or Embedded and register them on a
// ClassBuilder.
//
// A field's name is bound once when the first class that declares it is
// built; fields used only as inner element/key descriptors stay unbound.
type Field struct {
	name      string
	kind      Kind
	def       DefaultValue
	validator Predicate
	mutator   Mutator
	nullable  bool
	key       *Field
	value     *Field
	class     *Class
	extra     map[string]any
	coerce    func(f *Field, v any) (any, error)
	err       error
}

// Option configures a Field at construction time.
type Option func(*Field)

func newField(kind Kind, coerce func(*Field, any) (any, error), opts []Option) *Field {
	f := &Field{kind: kind, nullable: true, coerce: coerce}
	f.apply(opts)
	return f
}

func (f *Field) apply(opts []Option) {
	for _, o := range opts {
		if o != nil {
			o(f)
		}
	}
}

func (f *Field) misuse(msg string) {
	if f.err == nil {
		f.err = &UsageError{Message: msg}
	}
}

// WithDefault sets a static default returned whenever the field is unset.
func WithDefault(v any) Option {
	return func(f *Field) { f.def = StaticDefault{Value: v} }
}

// WithDefaultFunc sets a default factory invoked on every derivation.
func WithDefaultFunc(fn func() any) Option {
	return func(f *Field) {
		if fn == nil {
			f.misuse("default factory must not be nil")
			return
		}
		f.def = ComputedDefault{Fn: fn}
	}
}

// WithValidator sets the predicate checked after mutation and nullability.
func WithValidator(p Predicate) Option {
	return func(f *Field) { f.validator = p }
}

// WithMutator sets the transform applied after kind coercion.
func WithMutator(m Mutator) Option {
	return func(f *Field) { f.mutator = m }
}

// NotNull rejects nil after mutation.
func NotNull() Option {
	return func(f *Field) { f.nullable = false }
}

// Nullable sets the nullable flag explicitly. Collections ignore it.
func Nullable(b bool) Option {
	return func(f *Field) { f.nullable = b }
}

// Values sets the inner element descriptor of a List, SetOf or Dict.
func Values(d *Field) Option {
	return func(f *Field) {
		if !f.kind.IsCollection() {
			f.misuse("Values applies to List, SetOf and Dict only, not " + f.kind.String())
			return
		}
		f.value = d
	}
}

// Keys sets the key descriptor of a Dict.
func Keys(d *Field) Option {
	return func(f *Field) {
		if f.kind != KindDict {
			f.misuse("Keys applies to Dict only, not " + f.kind.String())
			return
		}
		f.key = d
	}
}

// WithExtra attaches side metadata that validation never reads.
func WithExtra(key string, v any) Option {
	return func(f *Field) { f.SetExtra(key, v) }
}

// Name returns the bound name ("" while unbound).
func (f *Field) Name() string { return f.name }

// String returns the bound name.
func (f *Field) String() string { return f.name }

func (f *Field) Kind() Kind { return f.kind }

// Default returns the tagged default, or nil when none was declared.
func (f *Field) Default() DefaultValue { return f.def }

func (f *Field) Validator() Predicate { return f.validator }

func (f *Field) Mutator() Mutator { return f.mutator }

func (f *Field) Nullable() bool { return f.nullable }

// KeyField returns the Dict key descriptor, if any.
func (f *Field) KeyField() *Field { return f.key }

// ValueField returns the collection element descriptor, if any.
func (f *Field) ValueField() *Field { return f.value }

// Target returns the embedded class of an Embedded field.
func (f *Field) Target() *Class { return f.class }

// Extra returns side metadata attached with WithExtra or SetExtra.
func (f *Field) Extra(key string) (any, bool) {
	v, ok := f.extra[key]
	return v, ok
}

// SetExtra attaches side metadata. Call it at definition time only (options or
// OnBind hooks); registries are shared without locking afterwards.
func (f *Field) SetExtra(key string, v any) {
	if f.extra == nil {
		f.extra = map[string]any{}
	}
	f.extra[key] = v
}

// Err reports definition-time misuse of this field or its inner descriptors.
func (f *Field) Err() error {
	if f.err != nil {
		return f.err
	}
	for _, inner := range []*Field{f.key, f.value} {
		if inner == nil {
			continue
		}
		if err := inner.Err(); err != nil {
			return err
		}
	}
	return nil
}

// derive returns the default for an unset cell.
func (f *Field) derive() any {
	if f.def == nil {
		return nil
	}
	return f.def.Derive()
}

// Check runs the assignment pipeline without committing: kind coercion,
// mutator, nullability, validator. It returns the value that a set would
// store.
func (f *Field) Check(v any) (any, error) {
	if f.coerce != nil {
		cv, err := f.coerce(f, v)
		if err != nil {
			return nil, err
		}
		v = cv
	}
	if f.mutator != nil {
		mv, err := f.mutator(v)
		if err != nil {
			if ve, ok := AsValidationError(err); ok {
				return nil, ve.under(f.name)
			}
			e := fail(CodeMutation, f.name, map[string]string{"value": repr(v), "detail": err.Error()})
			e.Cause = err
			return nil, e
		}
		v = mv
	}
	if v == nil && !f.nullable {
		return nil, fail(CodeNotNullable, f.name, nil)
	}
	if f.validator != nil && !f.validator(v) {
		return nil, fail(CodeValidation, f.name, map[string]string{"value": repr(v)})
	}
	return v, nil
}
