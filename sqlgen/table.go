// Package sqlgen maps modelkit classes onto SQL tables with squirrel.
//
// Every registered field is one column. Scalars are bound as-is, durations as
// int64 nanoseconds and composite values (lists, sets, dicts, embedded
// instances) as JSON text, with temporal values inside them written through
// the table's codec set. Statements are only built here; executing them is
// up to the caller's database/sql handle.
package sqlgen

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/ettle/strcase"
	json "github.com/goccy/go-json"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/codec"
)

// Extra keys set by ColumnHook.
const (
	ExtraColumn    = "sqlgen.column"
	ExtraQualified = "sqlgen.qualified"
)

// ColumnHook returns a bind hook that names the column of every field as it
// is bound: the snake_case field name, qualified by table. Register it with
// ClassBuilder.OnBind.
func ColumnHook(table string) modelkit.BindHook {
	return func(_ *modelkit.Class, f *modelkit.Field) {
		if _, ok := f.Extra(ExtraColumn); !ok {
			f.SetExtra(ExtraColumn, strcase.ToSnake(f.Name()))
		}
		f.SetExtra(ExtraQualified, table+"."+Column(f))
	}
}

// Qualified returns the "<table>.<column>" name recorded by ColumnHook, or
// the bare column name.
func Qualified(f *modelkit.Field) string {
	if v, ok := f.Extra(ExtraQualified); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return Column(f)
}

// Column returns the column name of f: its ExtraColumn, or the snake_case
// field name.
func Column(f *modelkit.Field) string {
	if v, ok := f.Extra(ExtraColumn); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return strcase.ToSnake(f.Name())
}

// Opt configures a Table.
type Opt struct {
	// Placeholder defaults to sq.Question.
	Placeholder sq.PlaceholderFormat
	// Codecs converts values nested in JSON columns. Defaults to
	// codec.Default().
	Codecs codec.Set
}

// Table builds statements for one class stored in one table.
type Table struct {
	name    string
	class   *modelkit.Class
	fields  []*modelkit.Field
	columns []string
	byCol   map[string]*modelkit.Field
	builder sq.StatementBuilderType
	codecs  codec.Set
}

// NewTable maps c onto the table name.
func NewTable(name string, c *modelkit.Class, opts ...Opt) *Table {
	var opt Opt
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Placeholder == nil {
		opt.Placeholder = sq.Question
	}
	if opt.Codecs == nil {
		opt.Codecs = codec.Default()
	}
	t := &Table{
		name:    name,
		class:   c,
		fields:  c.Fields(),
		byCol:   map[string]*modelkit.Field{},
		builder: sq.StatementBuilder.PlaceholderFormat(opt.Placeholder),
		codecs:  opt.Codecs,
	}
	for _, f := range t.fields {
		col := Column(f)
		t.columns = append(t.columns, col)
		t.byCol[col] = f
	}
	return t
}

func (t *Table) Name() string { return t.name }

func (t *Table) Class() *modelkit.Class { return t.class }

// Columns returns the column names in registry order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Insert validates inst and builds an INSERT of every column.
func (t *Table) Insert(inst *modelkit.Instance) (string, []any, error) {
	vals, err := t.values(inst)
	if err != nil {
		return "", nil, err
	}
	return t.builder.Insert(t.name).Columns(t.columns...).Values(vals...).ToSql()
}

// Update validates inst and builds an UPDATE of every column matching where.
// where is keyed by field name.
func (t *Table) Update(inst *modelkit.Instance, where map[string]any) (string, []any, error) {
	vals, err := t.values(inst)
	if err != nil {
		return "", nil, err
	}
	cond, err := t.Eq(where)
	if err != nil {
		return "", nil, err
	}
	set := make(map[string]any, len(vals))
	for i, col := range t.columns {
		set[col] = vals[i]
	}
	return t.builder.Update(t.name).SetMap(set).Where(cond).ToSql()
}

// Select builds a SELECT of every column. orderBy entries are "field" or
// "field ASC|DESC".
func (t *Table) Select(where map[string]any, orderBy ...string) (string, []any, error) {
	q := t.builder.Select(t.columns...).From(t.name)
	if len(where) > 0 {
		cond, err := t.Eq(where)
		if err != nil {
			return "", nil, err
		}
		q = q.Where(cond)
	}
	if len(orderBy) > 0 {
		ob, err := t.OrderBy(orderBy...)
		if err != nil {
			return "", nil, err
		}
		q = q.OrderBy(ob...)
	}
	return q.ToSql()
}

// Delete builds a DELETE matching where. An empty where is rejected.
func (t *Table) Delete(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, fmt.Errorf("sqlgen: %s: delete without condition", t.name)
	}
	cond, err := t.Eq(where)
	if err != nil {
		return "", nil, err
	}
	return t.builder.Delete(t.name).Where(cond).ToSql()
}

// Eq translates a field-keyed condition into column equality. Values run
// through the field pipeline first; nil compiles to IS NULL.
func (t *Table) Eq(where map[string]any) (sq.Eq, error) {
	out := make(sq.Eq, len(where))
	for name, v := range where {
		f, ok := t.class.Field(name)
		if !ok {
			return nil, fmt.Errorf("sqlgen: %s: unknown field %q", t.name, name)
		}
		if v != nil {
			cv, err := f.Check(v)
			if err != nil {
				return nil, fmt.Errorf("sqlgen: %s: %w", t.name, err)
			}
			v = cv
		}
		arg, err := t.arg(f, v)
		if err != nil {
			return nil, fmt.Errorf("sqlgen: %s.%s: %w", t.name, name, err)
		}
		out[Column(f)] = arg
	}
	return out, nil
}

// OrderBy translates "field [ASC|DESC]" terms into column terms.
func (t *Table) OrderBy(terms ...string) ([]string, error) {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		parts := strings.Fields(term)
		if len(parts) == 0 || len(parts) > 2 {
			return nil, fmt.Errorf("sqlgen: %s: bad order term %q", t.name, term)
		}
		f, ok := t.class.Field(parts[0])
		if !ok {
			return nil, fmt.Errorf("sqlgen: %s: unknown field %q", t.name, parts[0])
		}
		col := Column(f)
		if len(parts) == 2 {
			dir := strings.ToUpper(parts[1])
			if dir != "ASC" && dir != "DESC" {
				return nil, fmt.Errorf("sqlgen: %s: bad order direction %q", t.name, parts[1])
			}
			col += " " + dir
		}
		out = append(out, col)
	}
	return out, nil
}

func (t *Table) values(inst *modelkit.Instance) ([]any, error) {
	if inst == nil || !inst.Class().IsA(t.class) {
		return nil, fmt.Errorf("sqlgen: %s: instance of %v is not a %s", t.name, className(inst), t.class.Name())
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	vals := make([]any, len(t.fields))
	for i, f := range t.fields {
		v, err := t.arg(f, inst.Get(f.Name()))
		if err != nil {
			return nil, fmt.Errorf("sqlgen: %s.%s: %w", t.name, f.Name(), err)
		}
		vals[i] = v
	}
	return vals, nil
}

func className(inst *modelkit.Instance) string {
	if inst == nil {
		return "nil"
	}
	return inst.Class().Name()
}

func (t *Table) arg(f *modelkit.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind() {
	case modelkit.KindDuration:
		if d, ok := v.(time.Duration); ok {
			return int64(d), nil
		}
	case modelkit.KindList, modelkit.KindSet, modelkit.KindDict, modelkit.KindEmbedded:
		ev, err := t.codecs.EncodeValue(f, v)
		if err != nil {
			return nil, err
		}
		return jsonText(ev)
	case modelkit.KindGeneric:
		switch v.(type) {
		case []any, modelkit.Set, map[any]any, map[string]any, *modelkit.Instance:
			return jsonText(v)
		}
	}
	return v, nil
}

func jsonText(v any) (any, error) {
	b, err := json.Marshal(modelkit.Project(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan builds an instance from a row keyed by column name, decoding the JSON
// text of composite columns. Unknown columns are ignored.
func (t *Table) Scan(row map[string]any) (*modelkit.Instance, error) {
	kwargs := make(map[string]any, len(row))
	for col, v := range row {
		f, ok := t.byCol[col]
		if !ok {
			continue
		}
		fv, err := t.fromColumn(f, v)
		if err != nil {
			return nil, fmt.Errorf("sqlgen: %s.%s: %w", t.name, col, err)
		}
		kwargs[f.Name()] = fv
	}
	return t.class.New(kwargs)
}

func (t *Table) fromColumn(f *modelkit.Field, v any) (any, error) {
	if b, ok := v.([]byte); ok && f.Kind() != modelkit.KindString {
		v = string(b)
	}
	switch f.Kind() {
	case modelkit.KindDuration:
		if n, ok := v.(int64); ok {
			return time.Duration(n), nil
		}
	case modelkit.KindList, modelkit.KindSet, modelkit.KindDict, modelkit.KindEmbedded:
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
		doc, err := t.codecs.DecodeValue(f, doc)
		if err != nil {
			return nil, modelkit.ErrorUnder(f.Name(), err)
		}
		if items, ok := doc.([]any); ok && f.Kind() == modelkit.KindSet {
			return setOf(f, items)
		}
		return doc, nil
	}
	return v, nil
}

// setOf runs decoded items through the element descriptor, so embedded
// documents become instances, before hashing them into a Set.
func setOf(f *modelkit.Field, items []any) (modelkit.Set, error) {
	out := modelkit.NewSet()
	for _, it := range items {
		if vf := f.ValueField(); vf != nil {
			ev, err := vf.Check(it)
			if err != nil {
				return nil, modelkit.ErrorUnder(f.Name(), err)
			}
			it = ev
		}
		if it != nil && !reflect.TypeOf(it).Comparable() {
			return nil, modelkit.NewValidationError(modelkit.CodeUnhashable, f.Name(), fmt.Sprintf("%v is not hashable", it))
		}
		out.Add(it)
	}
	return out, nil
}
