package output

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter renders a command result as FIELD/VALUE rows.
//
// Nested structs such as the build info in a state response are
// flattened with dotted names ("build.version"). Fields tagged
// `table:"wide"` only appear in wide mode, and empty omitempty fields are
// skipped. Anything that is not a struct falls back to JSON.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format writes data as a table.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	if v.Kind() != reflect.Struct || v.Type() == timeType {
		return (&JSONFormatter{}).Format(w, data)
	}

	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	f.addFields(t, "", v)
	return t.Render(w, f.NoHeaders)
}

func (f *TableFormatter) addFields(t *Table, prefix string, v reflect.Value) {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		switch field.Tag.Get("table") {
		case "-":
			continue
		case "wide":
			if !f.Wide {
				continue
			}
		}
		name, omitEmpty, ok := fieldName(field)
		if !ok {
			continue
		}

		fv := v.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		if nested, ok := nestedStruct(fv); ok {
			f.addFields(t, prefix+name+".", nested)
			continue
		}
		t.AddRow(prefix+name, formatValue(fv))
	}
}

// fieldName returns the json name of a field.
func fieldName(field reflect.StructField) (name string, omitEmpty, ok bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, false
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = toSnakeCase(field.Name)
	}
	return name, strings.Contains(opts, "omitempty"), true
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

func nestedStruct(v reflect.Value) (reflect.Value, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.Kind() == reflect.Struct && v.Type() != timeType
}

// formatValue renders a scalar cell. Empty values print as "-".
func formatValue(v reflect.Value) string {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}

	switch v.Type() {
	case timeType:
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.Format(time.RFC3339)
	case durationType:
		return time.Duration(v.Int()).String()
	}

	switch v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return "-"
		}
		return v.String()
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = formatValue(v.Index(i))
		}
		return strings.Join(parts, ",")
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	default:
		return fmt.Sprint(v.Interface())
	}
}

// toSnakeCase converts CamelCase to snake_case.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Table is a set of rows aligned into columns.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table, optionally without the header line.
func (t *Table) Render(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
