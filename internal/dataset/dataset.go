package dataset

import (
	"fmt"
	"strings"
	"time"
)

// Type is the caller-declared semantic category of a column. It is supplied
// metadata, never inferred from the values.
type Type string

const (
	TypeBool     Type = "boolean"
	TypeInt      Type = "integer"
	TypeFloat    Type = "float"
	TypeString   Type = "string"
	TypeDatetime Type = "datetime"
	TypeOther    Type = "other"
)

// ParseType maps a declared-type string to a Type. Unrecognized names are an
// error rather than silently falling back to TypeOther — a schema file typo
// should not change audit semantics.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeBool:
		return TypeBool, nil
	case TypeInt:
		return TypeInt, nil
	case TypeFloat:
		return TypeFloat, nil
	case TypeString:
		return TypeString, nil
	case TypeDatetime:
		return TypeDatetime, nil
	case TypeOther:
		return TypeOther, nil
	}
	return "", fmt.Errorf("unknown column type %q (allowed: boolean, integer, float, string, datetime, other)", s)
}

// Column describes a single named, typed column.
type Column struct {
	Name string
	Type Type
}

// Dataset is an immutable-by-convention, row-major tabular dataset.
// Cell values are plain Go scalars: bool, int64, float64, string or
// time.Time; nil represents null. Audits never mutate a Dataset.
type Dataset struct {
	columns []Column
	rows    [][]any
}

// New creates an empty dataset with the given column layout. Column names
// must be unique and non-empty.
func New(columns []Column) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("dataset needs at least one column")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column name must not be empty")
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return &Dataset{columns: append([]Column(nil), columns...)}, nil
}

// AppendRow adds one row of values in column order.
func (d *Dataset) AppendRow(values ...any) error {
	if len(values) != len(d.columns) {
		return fmt.Errorf("row has %d values, dataset has %d columns", len(values), len(d.columns))
	}
	for i, v := range values {
		if err := checkValue(d.columns[i], v); err != nil {
			return fmt.Errorf("row %d: %w", len(d.rows), err)
		}
	}
	d.rows = append(d.rows, append([]any(nil), values...))
	return nil
}

// checkValue enforces the scalar representation for a declared type.
// "other" columns accept anything.
func checkValue(col Column, v any) error {
	if v == nil {
		return nil
	}
	var ok bool
	switch col.Type {
	case TypeBool:
		_, ok = v.(bool)
	case TypeInt:
		_, ok = v.(int64)
	case TypeFloat:
		_, ok = v.(float64)
	case TypeString:
		_, ok = v.(string)
	case TypeDatetime:
		_, ok = v.(time.Time)
	default:
		ok = true
	}
	if !ok {
		return fmt.Errorf("column %q (%s): unsupported value of type %T", col.Name, col.Type, v)
	}
	return nil
}

// Columns returns a copy of the column layout in dataset order.
func (d *Dataset) Columns() []Column {
	return append([]Column(nil), d.columns...)
}

// Column returns the descriptor for the named column.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int {
	return len(d.rows)
}

// Row returns the backing slice for row i. Callers must treat it as read-only.
func (d *Dataset) Row(i int) []any {
	return d.rows[i]
}
