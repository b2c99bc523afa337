package table

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/jmoiron/sqlx/reflectx"
)

var (
	ErrNotStruct     = errors.New("table: binder target must be a struct")
	ErrUnknownColumn = errors.New("table: unknown column")
)

// FieldKind decides whether a field is emitted by a Binder.
type FieldKind uint8

const (
	// Plain fields are always emitted.
	Plain FieldKind = iota
	// Optional fields (pointers) are emitted only when non-nil.
	Optional
	// Marker fields (zero-size types) are never emitted.
	Marker
)

func (k FieldKind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Optional:
		return "optional"
	case Marker:
		return "marker"
	default:
		return fmt.Sprintf("FieldKind(%d)", uint8(k))
	}
}

// Field is one named struct field and the column it binds to.
type Field struct {
	Column string
	Index  int
	Kind   FieldKind
}

// Descriptor is the ordered field list of a struct type.
type Descriptor struct {
	Type   reflect.Type
	Fields []Field
}

var (
	mapper   = reflectx.NewMapperFunc("db", snakeCase)
	registry sync.Map // reflect.Type -> *Descriptor
)

// Register describes the type of v and caches it. It panics if v is not a
// bindable struct, so it is meant for package-level vars.
func Register(v any) *Descriptor {
	d, err := Describe(reflect.TypeOf(v))
	if err != nil {
		panic(err)
	}
	return d
}

// Describe returns the cached descriptor for t, building it on first use.
// Fields appear in declaration order. Unexported fields and fields tagged
// db:"-" are left out; embedded fields are rejected.
func Describe(t reflect.Type) (*Descriptor, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %v", ErrNotStruct, t)
	}
	if d, ok := registry.Load(t); ok {
		return d.(*Descriptor), nil
	}

	tm := mapper.TypeMap(t)
	d := &Descriptor{Type: t}
	for i, fi := range tm.Tree.Children {
		if fi == nil {
			continue
		}
		if fi.Embedded {
			return nil, fmt.Errorf("table: %v.%s: embedded fields cannot be bound", t, fi.Field.Name)
		}
		d.Fields = append(d.Fields, Field{
			Column: fi.Name,
			Index:  i,
			Kind:   kindOf(fi.Field.Type),
		})
	}

	actual, _ := registry.LoadOrStore(t, d)
	return actual.(*Descriptor), nil
}

func kindOf(t reflect.Type) FieldKind {
	switch {
	case t.Size() == 0:
		return Marker
	case t.Kind() == reflect.Pointer:
		return Optional
	default:
		return Plain
	}
}

// Columns returns the bound column names of v in declaration order.
func Columns(v any) []string {
	rv, d := mustDescribe(v)
	cols := make([]string, 0, len(d.Fields))
	d.walk(rv, func(f Field, _ reflect.Value) {
		cols = append(cols, f.Column)
	})
	return cols
}

// AppendValues appends the bound values of v to args, in the same order as
// Columns. Optional fields contribute the value they point at.
func AppendValues(args []any, v any) []any {
	rv, d := mustDescribe(v)
	d.walk(rv, func(_ Field, fv reflect.Value) {
		args = append(args, fv.Interface())
	})
	return args
}

// Bound returns the columns and values of v together.
func Bound(v any) ([]string, []any) {
	rv, d := mustDescribe(v)
	var (
		cols []string
		vals []any
	)
	d.walk(rv, func(f Field, fv reflect.Value) {
		cols = append(cols, f.Column)
		vals = append(vals, fv.Interface())
	})
	return cols, vals
}

// Row returns every non-marker column of v with its value. Unlike Bound,
// unset optional fields are included as nil, which is what a full-row
// write needs to clear them.
func Row(v any) ([]string, []any) {
	rv, d := mustDescribe(v)
	var (
		cols []string
		vals []any
	)
	for _, f := range d.Fields {
		if f.Kind == Marker {
			continue
		}
		fv := rv.Field(f.Index)
		cols = append(cols, f.Column)
		if f.Kind == Optional {
			if fv.IsNil() {
				vals = append(vals, nil)
				continue
			}
			fv = fv.Elem()
		}
		vals = append(vals, fv.Interface())
	}
	return cols, vals
}

// SchemaColumns lists every non-marker column of v's type in declaration
// order, whether or not v sets it.
func SchemaColumns(v any) []string {
	_, d := mustDescribe(v)
	cols := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.Kind != Marker {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// walk calls fn for every emitted field with its (dereferenced) value.
func (d *Descriptor) walk(rv reflect.Value, fn func(Field, reflect.Value)) {
	for _, f := range d.Fields {
		fv := rv.Field(f.Index)
		switch f.Kind {
		case Marker:
			continue
		case Optional:
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		fn(f, fv)
	}
}

func (d *Descriptor) field(column string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return Field{}, false
}

func mustDescribe(v any) (reflect.Value, *Descriptor) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	d, err := Describe(rv.Type())
	if err != nil {
		panic(err)
	}
	return rv, d
}

// Matches reports whether every column bound by filter is present in
// entity with an equal value. An empty filter matches everything.
// Values implementing driver.Valuer are compared by their stored form.
func Matches(filter, entity Binder) bool {
	cols := filter.BoundColumns()
	want := filter.BindValues(nil)

	have := make(map[string]any)
	ecols := entity.BoundColumns()
	evals := entity.BindValues(nil)
	for i, c := range ecols {
		have[c] = evals[i]
	}

	for i, c := range cols {
		v, ok := have[c]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(stored(v), stored(want[i])) {
			return false
		}
	}
	return true
}

func stored(v any) any {
	if vr, ok := v.(driver.Valuer); ok {
		if sv, err := vr.Value(); err == nil {
			return sv
		}
	}
	return v
}

// Assign copies every column bound by src onto the field of dst with the
// same column name. dst must be a pointer to a struct. A plain value is
// wrapped in a new pointer when the destination field is optional.
func Assign(dst any, src Binder) error {
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("%w: Assign needs a non-nil pointer, got %T", ErrNotStruct, dst)
	}
	dv = dv.Elem()
	dd, err := Describe(dv.Type())
	if err != nil {
		return err
	}

	srv, sd := mustDescribe(src)
	var assignErr error
	sd.walk(srv, func(f Field, sv reflect.Value) {
		if assignErr != nil {
			return
		}
		df, ok := dd.field(f.Column)
		if !ok {
			assignErr = fmt.Errorf("%w: %s on %v", ErrUnknownColumn, f.Column, dd.Type)
			return
		}
		target := dv.Field(df.Index)
		switch {
		case sv.Type().AssignableTo(target.Type()):
			target.Set(sv)
		case target.Kind() == reflect.Pointer && sv.Type().AssignableTo(target.Type().Elem()):
			p := reflect.New(target.Type().Elem())
			p.Elem().Set(sv)
			target.Set(p)
		default:
			assignErr = fmt.Errorf("table: cannot assign %v to %v.%s", sv.Type(), dd.Type, f.Column)
		}
	})
	return assignErr
}

// snakeCase maps Go field names to column names: UserID -> user_id.
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
