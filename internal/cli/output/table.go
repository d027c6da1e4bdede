package output

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"
)

// Table is a rendered grid of cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table aligned with tabs expanded to spaces.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// TableFormatter renders a *Table, or a slice of structs with one column
// per exported field. Column names come from json tags.
type TableFormatter struct{}

func (TableFormatter) Format(w io.Writer, data any) error {
	switch d := data.(type) {
	case nil:
		return nil
	case *Table:
		return d.Render(w)
	case Table:
		return d.Render(w)
	}

	t, err := structTable(reflect.ValueOf(data))
	if err != nil {
		return JSONFormatter{}.Format(w, data)
	}
	return t.Render(w)
}

func structTable(v reflect.Value) (*Table, error) {
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() == reflect.Struct {
		s := reflect.New(reflect.SliceOf(v.Type())).Elem()
		v = reflect.Append(s, v)
	}
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("unsupported type %s", v.Kind())
	}

	elem := v.Type().Elem()
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unsupported element type %s", elem.Kind())
	}

	t := &Table{}
	var fields []int
	for i := 0; i < elem.NumField(); i++ {
		f := elem.Field(i)
		name, skip := columnName(f)
		if skip {
			continue
		}
		t.Headers = append(t.Headers, name)
		fields = append(fields, i)
	}

	for i := 0; i < v.Len(); i++ {
		row := v.Index(i)
		if row.Kind() == reflect.Pointer {
			if row.IsNil() {
				continue
			}
			row = row.Elem()
		}
		cells := make([]string, len(fields))
		for j, idx := range fields {
			cells[j] = formatValue(row.Field(idx))
		}
		t.AddRow(cells...)
	}
	return t, nil
}

func columnName(f reflect.StructField) (string, bool) {
	if !f.IsExported() || f.Tag.Get("table") == "-" {
		return "", true
	}
	name := f.Name
	if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == "-" {
		return "", true
	} else if tag != "" {
		name = tag
	}
	return strings.ToUpper(name), false
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return "-"
	}
	switch x := v.Interface().(type) {
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return x.Format(time.RFC3339)
	case time.Duration:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return formatValue(v.Elem())
	case reflect.Slice:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = formatValue(v.Index(i))
		}
		return strings.Join(parts, ",")
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
	}
	return fmt.Sprint(v.Interface())
}
