package render

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"github.com/ettle/strcase"
	modelkit "github.com/reoring/modelkit"
)

// Extra keys carrying Go source for values that cannot be recovered from a
// compiled descriptor. Producers (for example jsonschema.Compile) attach them
// with modelkit.WithExtra.
const (
	// ValidatorExpr holds an expression of type modelkit.Predicate.
	ValidatorExpr = "render.validator"
	// MutatorExpr holds an expression of type modelkit.Mutator.
	MutatorExpr = "render.mutator"
	// DefaultExpr holds an expression of type func() any.
	DefaultExpr = "render.default"
)

// ErrUnrenderable reports a descriptor attribute with no source form.
var ErrUnrenderable = errors.New("render: value cannot be rendered as source")

const modelkitPath = "github.com/reoring/modelkit"

// Render emits gofmt-formatted Go source declaring classes with the builder
// DSL. Parents and embedded classes are declared first, each once.
func Render(pkg string, classes ...*modelkit.Class) ([]byte, error) {
	r := &renderer{imports: map[string]string{}, seen: map[*modelkit.Class]bool{}, names: map[string]*modelkit.Class{}}
	for _, c := range classes {
		if c == nil {
			return nil, errors.New("render: nil class")
		}
		if err := r.visit(c); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	out.WriteString("// Code generated by modelkit. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", pkg)
	out.WriteString("import (\n")
	fmt.Fprintf(&out, "\tmodelkit %q\n", modelkitPath)
	paths := make([]string, 0, len(r.imports))
	for p := range r.imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(&out, "\t%q\n", p)
	}
	out.WriteString(")\n")
	out.Write(r.body.Bytes())

	src, err := format.Source(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("render: format: %w", err)
	}
	return src, nil
}

type renderer struct {
	body    bytes.Buffer
	imports map[string]string // path -> package name
	seen    map[*modelkit.Class]bool
	names   map[string]*modelkit.Class
}

func varName(c *modelkit.Class) string { return strcase.ToGoPascal(c.Name()) }

func (r *renderer) visit(c *modelkit.Class) error {
	if r.seen[c] {
		return nil
	}
	r.seen[c] = true
	name := varName(c)
	if other, dup := r.names[name]; dup && other != c {
		return fmt.Errorf("render: two classes named %s", name)
	}
	r.names[name] = c
	if refs := c.RefineNames(); len(refs) > 0 {
		return fmt.Errorf("%w: class %s refine %q", ErrUnrenderable, c.Name(), refs[0])
	}

	for _, p := range c.Parents() {
		if err := r.visit(p); err != nil {
			return err
		}
	}
	own := ownFields(c)
	for _, n := range own {
		f, _ := c.Field(n)
		if err := r.visitTargets(f); err != nil {
			return err
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nvar %s = modelkit.NewClass(%q).\n", name, c.Name())
	if ps := c.Parents(); len(ps) > 0 {
		names := make([]string, len(ps))
		for i, p := range ps {
			names[i] = varName(p)
		}
		fmt.Fprintf(&b, "\tExtends(%s).\n", strings.Join(names, ", "))
	}
	for _, n := range own {
		f, _ := c.Field(n)
		expr, err := r.fieldExpr(f)
		if err != nil {
			return fmt.Errorf("render: %s.%s: %w", c.Name(), n, err)
		}
		fmt.Fprintf(&b, "\tField(%q, %s).\n", n, expr)
	}
	if c.UnknownPolicy() == modelkit.UnknownStrict && !inheritsStrict(c) {
		b.WriteString("\tUnknownStrict().\n")
	}
	b.WriteString("\tMustBuild()\n")
	r.body.WriteString(b.String())
	return nil
}

func (r *renderer) visitTargets(f *modelkit.Field) error {
	if f == nil {
		return nil
	}
	if t := f.Target(); t != nil {
		if err := r.visit(t); err != nil {
			return err
		}
	}
	if err := r.visitTargets(f.KeyField()); err != nil {
		return err
	}
	return r.visitTargets(f.ValueField())
}

// ownFields lists fields declared (or overridden) by c itself.
func ownFields(c *modelkit.Class) []string {
	var out []string
	for _, n := range c.FieldNames() {
		f, _ := c.Field(n)
		inherited := false
		for _, p := range c.Parents() {
			if pf, ok := p.Field(n); ok && pf == f {
				inherited = true
				break
			}
		}
		if !inherited {
			out = append(out, n)
		}
	}
	return out
}

func inheritsStrict(c *modelkit.Class) bool {
	ps := c.Parents()
	return len(ps) > 0 && ps[len(ps)-1].UnknownPolicy() == modelkit.UnknownStrict
}

func (r *renderer) fieldExpr(f *modelkit.Field) (string, error) {
	var opts []string
	if f.Kind() == modelkit.KindEmbedded {
		opts = append(opts, varName(f.Target()))
	}

	if src, ok := extraString(f, DefaultExpr); ok {
		r.scanImports(src)
		opts = append(opts, "modelkit.WithDefaultFunc("+src+")")
	} else {
		switch d := f.Default().(type) {
		case modelkit.StaticDefault:
			lit, err := r.literal(d.Value)
			if err != nil {
				return "", err
			}
			opts = append(opts, "modelkit.WithDefault("+lit+")")
		case modelkit.ComputedDefault:
			// collections and embedded fields carry a built-in factory
			if !f.Kind().IsCollection() && f.Kind() != modelkit.KindEmbedded {
				name, err := r.funcRef(d.Fn)
				if err != nil {
					return "", fmt.Errorf("default: %w", err)
				}
				opts = append(opts, "modelkit.WithDefaultFunc("+name+")")
			}
		}
	}

	if f.Validator() != nil {
		src, err := r.hookExpr(f, ValidatorExpr, f.Validator())
		if err != nil {
			return "", fmt.Errorf("validator: %w", err)
		}
		opts = append(opts, "modelkit.WithValidator("+src+")")
	}
	if f.Mutator() != nil {
		src, err := r.hookExpr(f, MutatorExpr, f.Mutator())
		if err != nil {
			return "", fmt.Errorf("mutator: %w", err)
		}
		opts = append(opts, "modelkit.WithMutator("+src+")")
	}
	if !f.Nullable() && !f.Kind().IsCollection() {
		opts = append(opts, "modelkit.NotNull()")
	}
	if k := f.KeyField(); k != nil {
		src, err := r.fieldExpr(k)
		if err != nil {
			return "", fmt.Errorf("key: %w", err)
		}
		opts = append(opts, "modelkit.Keys("+src+")")
	}
	if v := f.ValueField(); v != nil {
		src, err := r.fieldExpr(v)
		if err != nil {
			return "", fmt.Errorf("value: %w", err)
		}
		opts = append(opts, "modelkit.Values("+src+")")
	}
	return "modelkit." + f.Kind().String() + "(" + strings.Join(opts, ", ") + ")", nil
}

func (r *renderer) hookExpr(f *modelkit.Field, key string, fn any) (string, error) {
	if src, ok := extraString(f, key); ok {
		r.scanImports(src)
		return src, nil
	}
	return r.funcRef(fn)
}

func extraString(f *modelkit.Field, key string) (string, bool) {
	v, ok := f.Extra(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// funcRef resolves a top-level function to pkg.Name and records its import.
// Closures, method values and functions in package main have no reference.
func (r *renderer) funcRef(fn any) (string, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return "", ErrUnrenderable
	}
	rf := runtime.FuncForPC(rv.Pointer())
	if rf == nil {
		return "", ErrUnrenderable
	}
	full := rf.Name()
	slash := strings.LastIndex(full, "/")
	dir, last := "", full
	if slash >= 0 {
		dir, last = full[:slash+1], full[slash+1:]
	}
	parts := strings.Split(last, ".")
	if len(parts) != 2 || parts[0] == "main" || strings.ContainsAny(parts[1], "-()*[") {
		return "", fmt.Errorf("%w: %s", ErrUnrenderable, full)
	}
	path := dir + parts[0]
	if path != modelkitPath {
		r.imports[path] = parts[0]
	}
	return parts[0] + "." + parts[1], nil
}

// scanImports records imports for the well-known packages an annotation may
// reference.
func (r *renderer) scanImports(src string) {
	known := map[string]string{
		"rules.": modelkitPath + "/rules",
		"time.":  "time",
	}
	for prefix, path := range known {
		if strings.Contains(src, prefix) {
			r.imports[path] = strings.TrimSuffix(prefix, ".")
		}
	}
}

func (r *renderer) literal(v any) (string, error) {
	lit, usesTime, err := literal(v)
	if err != nil {
		return "", err
	}
	if usesTime {
		r.imports["time"] = "time"
	}
	return lit, nil
}
