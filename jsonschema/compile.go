package jsonschema

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ettle/strcase"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/render"
	"github.com/reoring/modelkit/rules"
)

// ExtraSchema is the Extra key under which compiled fields keep their source
// property schema. Export reads it back.
const ExtraSchema = "jsonschema.schema"

// CompileOpt configures Compile.
type CompileOpt struct {
	// Strict makes every compiled class reject unknown keys, regardless of
	// additionalProperties.
	Strict bool
	// OnBind hooks are registered on every compiled class, nested ones
	// included.
	OnBind []modelkit.BindHook
}

// Compile builds a class from an object schema using only the public
// registry API. Properties are declared in sorted order; nested object
// properties become embedded classes named <Parent><Prop>.
//
// Type mapping: string, integer, number, boolean, array, object, and the
// legacy names datetime, duration (timedelta), list, set and map. A required
// property becomes NotNull (a null or missing value is rejected on
// assignment, not on construction from defaults). Bound keywords become
// validators from the rules package. Defaults run through the field pipeline
// at compile time.
func Compile(name string, s *Schema, opts ...CompileOpt) (*modelkit.Class, error) {
	var opt CompileOpt
	if len(opts) > 0 {
		opt = opts[0]
	}
	c := &compiler{opt: opt}
	return c.class(name, s)
}

type compiler struct{ opt CompileOpt }

func (c *compiler) class(name string, s *Schema) (*modelkit.Class, error) {
	if s == nil {
		return nil, fmt.Errorf("jsonschema: %s: nil schema", name)
	}
	if t := s.Type.Primary(); t != "" && t != "object" {
		return nil, fmt.Errorf("jsonschema: %s: only object schemas compile to classes, got %q", name, t)
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		if _, ok := s.Properties[r]; !ok {
			return nil, fmt.Errorf("jsonschema: %s: required property %q is not declared", name, r)
		}
		required[r] = true
	}

	b := modelkit.NewClass(name)
	for _, h := range c.opt.OnBind {
		b.OnBind(h)
	}
	props := make([]string, 0, len(s.Properties))
	for p := range s.Properties {
		props = append(props, p)
	}
	sort.Strings(props)
	for _, p := range props {
		f, err := c.field(name+strcase.ToGoPascal(p), name+"."+p, s.Properties[p], required[p])
		if err != nil {
			return nil, err
		}
		b.Field(p, f)
	}
	if c.opt.Strict || s.Closed() {
		b.UnknownStrict()
	}
	cls, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("jsonschema: %s: %w", name, err)
	}
	return cls, nil
}

type validators struct {
	preds []modelkit.Predicate
	exprs []string
}

func (v *validators) add(p modelkit.Predicate, expr string) {
	v.preds = append(v.preds, p)
	v.exprs = append(v.exprs, expr)
}

func (v *validators) options() []modelkit.Option {
	switch len(v.preds) {
	case 0:
		return nil
	case 1:
		return []modelkit.Option{
			modelkit.WithValidator(v.preds[0]),
			modelkit.WithExtra(render.ValidatorExpr, v.exprs[0]),
		}
	}
	return []modelkit.Option{
		modelkit.WithValidator(modelkit.AllOf(v.preds...)),
		modelkit.WithExtra(render.ValidatorExpr, "modelkit.AllOf("+strings.Join(v.exprs, ", ")+")"),
	}
}

// field compiles one property. hint names nested classes; where locates
// errors.
func (c *compiler) field(hint, where string, ps *Schema, required bool) (*modelkit.Field, error) {
	if ps == nil {
		return nil, fmt.Errorf("jsonschema: %s: nil schema", where)
	}
	var (
		v      validators
		opts   []modelkit.Option
		ctor   func(...modelkit.Option) *modelkit.Field
		target *modelkit.Class
	)
	typ := ps.Type.Primary()
	switch typ {
	case "string":
		ctor = modelkit.String
		if err := stringRules(where, ps, &v); err != nil {
			return nil, err
		}
	case "integer":
		ctor = modelkit.Integer
		numberRules(ps, &v)
	case "number":
		ctor = modelkit.Float
		numberRules(ps, &v)
	case "boolean":
		ctor = modelkit.Bool
	case "datetime":
		ctor = modelkit.DateTime
	case "duration", "timedelta":
		ctor = modelkit.Duration
	case "array", "list", "set":
		ctor = modelkit.List
		if typ == "set" {
			ctor = modelkit.SetOf
		}
		if ps.Items != nil {
			inner, err := c.field(hint+"Item", where+"[]", ps.Items, false)
			if err != nil {
				return nil, err
			}
			opts = append(opts, modelkit.Values(inner))
		}
		sizeRules(ps.MinItems, ps.MaxItems, &v)
		if ps.UniqueItems && typ != "set" {
			v.add(rules.Unique(), "rules.Unique()")
		}
	case "object", "map", "":
		switch {
		case len(ps.Properties) > 0 && typ != "map":
			cls, err := c.class(hint, ps)
			if err != nil {
				return nil, err
			}
			target = cls
			ctor = func(o ...modelkit.Option) *modelkit.Field { return modelkit.Embedded(cls, o...) }
		case typ == "":
			ctor = modelkit.Generic
		default:
			ctor = modelkit.Dict
			opts = append(opts, modelkit.Keys(modelkit.String()))
			if ap := ps.AdditionalProperties; ap != nil && ap.Schema != nil {
				inner, err := c.field(hint+"Value", where+"[*]", ap.Schema, false)
				if err != nil {
					return nil, err
				}
				opts = append(opts, modelkit.Values(inner))
			}
		}
	default:
		return nil, fmt.Errorf("jsonschema: %s: unsupported type %q", where, typ)
	}

	if len(ps.Enum) > 0 {
		lits := make([]string, len(ps.Enum))
		for i, e := range ps.Enum {
			lit, err := render.Literal(e)
			if err != nil {
				return nil, fmt.Errorf("jsonschema: %s: enum: %w", where, err)
			}
			lits[i] = lit
		}
		v.add(rules.Enum(ps.Enum...), "rules.Enum("+strings.Join(lits, ", ")+")")
	}
	opts = append(opts, v.options()...)
	if required && !ps.Type.Has("null") {
		opts = append(opts, modelkit.NotNull())
	}
	opts = append(opts, modelkit.WithExtra(ExtraSchema, ps))

	if ps.Default == nil {
		return ctor(opts...), nil
	}
	raw, err := legacyDefault(typ, ps.Default)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: %s: default: %w", where, err)
	}
	probe := ctor(opts...)
	dv, err := probe.Check(raw)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: %s: default: %w", where, err)
	}
	switch {
	case target != nil:
		lit, err := render.Literal(modelkit.Project(dv))
		if err != nil {
			return nil, fmt.Errorf("jsonschema: %s: default: %w", where, err)
		}
		opts = append(opts,
			modelkit.WithDefaultFunc(func() any { v, _ := probe.Check(raw); return v }),
			modelkit.WithExtra(render.DefaultExpr, "func() any { return "+strcase.ToGoPascal(target.Name())+".MustNew("+lit+") }"),
		)
	case probe.Kind().IsCollection():
		lit, err := render.Literal(dv)
		if err != nil {
			return nil, fmt.Errorf("jsonschema: %s: default: %w", where, err)
		}
		// fresh container per derivation
		opts = append(opts,
			modelkit.WithDefaultFunc(func() any { v, _ := probe.Check(raw); return v }),
			modelkit.WithExtra(render.DefaultExpr, "func() any { return "+lit+" }"),
		)
	default:
		opts = append(opts, modelkit.WithDefault(dv))
	}
	return ctor(opts...), nil
}

func numberRules(ps *Schema, v *validators) {
	num := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
	if ps.Minimum != nil {
		v.add(rules.Min(*ps.Minimum), "rules.Min("+num(*ps.Minimum)+")")
	}
	if ps.Maximum != nil {
		v.add(rules.Max(*ps.Maximum), "rules.Max("+num(*ps.Maximum)+")")
	}
	if ps.ExclusiveMinimum != nil {
		v.add(rules.ExclusiveMin(*ps.ExclusiveMinimum), "rules.ExclusiveMin("+num(*ps.ExclusiveMinimum)+")")
	}
	if ps.ExclusiveMaximum != nil {
		v.add(rules.ExclusiveMax(*ps.ExclusiveMaximum), "rules.ExclusiveMax("+num(*ps.ExclusiveMaximum)+")")
	}
	if ps.MultipleOf != nil {
		v.add(rules.MultipleOf(*ps.MultipleOf), "rules.MultipleOf("+num(*ps.MultipleOf)+")")
	}
}

func sizeRules(lo, hi *int, v *validators) {
	if lo != nil {
		v.add(rules.MinLen(*lo), "rules.MinLen("+strconv.Itoa(*lo)+")")
	}
	if hi != nil {
		v.add(rules.MaxLen(*hi), "rules.MaxLen("+strconv.Itoa(*hi)+")")
	}
}

func stringRules(where string, ps *Schema, v *validators) error {
	sizeRules(ps.MinLength, ps.MaxLength, v)
	if ps.Pattern != "" {
		if _, err := regexp.Compile(ps.Pattern); err != nil {
			return fmt.Errorf("jsonschema: %s: pattern: %w", where, err)
		}
		v.add(rules.Pattern(ps.Pattern), "rules.Pattern("+strconv.Quote(ps.Pattern)+")")
	}
	// other formats are annotations only
	switch ps.Format {
	case "date-time":
		v.add(rules.RFC3339(), "rules.RFC3339()")
	case "email":
		v.add(rules.Email(), "rules.Email()")
	}
	return nil
}

// legacyDefault converts textual defaults of the temporal legacy types.
func legacyDefault(typ string, raw any) (any, error) {
	switch typ {
	case "datetime":
		if s, ok := raw.(string); ok {
			return time.Parse(time.RFC3339, s)
		}
	case "duration", "timedelta":
		switch t := raw.(type) {
		case string:
			return time.ParseDuration(t)
		case interface{ Float64() (float64, error) }:
			secs, err := t.Float64()
			if err != nil {
				return nil, err
			}
			return time.Duration(secs * float64(time.Second)), nil
		}
	}
	return raw, nil
}
