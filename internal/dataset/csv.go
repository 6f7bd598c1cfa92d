package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// schemaFile is the YAML shape of a dataset schema: a mapping from column
// name to declared type. Column order comes from the CSV header, not from
// this file.
type schemaFile struct {
	Columns map[string]string `yaml:"columns"`
}

// LoadSchema reads a schema YAML file and returns the column-name → type
// mapping.
func LoadSchema(path string) (map[string]Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing schema YAML: %w", err)
	}
	if len(sf.Columns) == 0 {
		return nil, fmt.Errorf("schema file %q declares no columns", path)
	}

	types := make(map[string]Type, len(sf.Columns))
	for name, raw := range sf.Columns {
		t, err := ParseType(raw)
		if err != nil {
			return nil, fmt.Errorf("schema column %q: %w", name, err)
		}
		types[name] = t
	}
	return types, nil
}

// datetimeLayouts are tried in order when parsing datetime cells.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ReadCSV parses CSV data into a Dataset. The first record is the header;
// every header name must appear in types and every declared column must be
// present in the header. Empty cells in non-string columns become null;
// string cells are kept verbatim so the missingness rules can judge them.
func ReadCSV(r io.Reader, types map[string]Type) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	columns := make([]Column, 0, len(header))
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		t, ok := types[name]
		if !ok {
			return nil, fmt.Errorf("CSV column %q is not declared in the schema", name)
		}
		columns = append(columns, Column{Name: name, Type: t})
		seen[name] = true
	}
	for name := range types {
		if !seen[name] {
			return nil, fmt.Errorf("schema column %q is missing from the CSV header", name)
		}
	}

	ds, err := New(columns)
	if err != nil {
		return nil, err
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}
		row := make([]any, len(columns))
		for i, cell := range record {
			v, err := parseCell(cell, columns[i].Type)
			if err != nil {
				return nil, fmt.Errorf("CSV line %d, column %q: %w", line, columns[i].Name, err)
			}
			row[i] = v
		}
		if err := ds.AppendRow(row...); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// ReadCSVFile loads a CSV file against a schema YAML file.
func ReadCSVFile(csvPath, schemaPath string) (*Dataset, error) {
	types, err := LoadSchema(schemaPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("opening CSV file: %w", err)
	}
	defer f.Close()

	ds, err := ReadCSV(f, types)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", csvPath, err)
	}
	return ds, nil
}

func parseCell(cell string, t Type) (any, error) {
	if t == TypeString {
		return cell, nil
	}
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil, nil
	}

	switch t {
	case TypeBool:
		b, err := strconv.ParseBool(strings.ToLower(trimmed))
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", cell)
		}
		return b, nil
	case TypeInt:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", cell)
		}
		return n, nil
	case TypeFloat:
		// ParseFloat accepts "NaN", "Inf" and "-Inf"; those are real float
		// values here, not nulls — the audit itself counts them.
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", cell)
		}
		return f, nil
	case TypeDatetime:
		for _, layout := range datetimeLayouts {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("invalid datetime %q", cell)
	default:
		return cell, nil
	}
}

// WriteCSV writes the dataset back out as CSV, header first. Null cells are
// written as empty strings.
func WriteCSV(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)

	cols := ds.Columns()
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	record := make([]string, len(cols))
	for i := 0; i < ds.NumRows(); i++ {
		for j, v := range ds.Row(i) {
			record[j] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
