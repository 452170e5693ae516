package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// Tabular is implemented by results with a natural row layout. Anything else is printed as field/value pairs.
type Tabular interface {
	TableHeader() []string
	TableRows() [][]string
}

type Formatter struct {
	format string
	out    io.Writer
}

func NewFormatter(format string, out io.Writer) *Formatter {
	if format == "" {
		format = FormatTable
	}
	return &Formatter{format: format, out: out}
}

func (f *Formatter) Print(data any) error {
	switch f.format {
	case FormatJSON:
		return f.printJSON(data)
	case FormatYAML:
		return f.printYAML(data)
	case FormatTable:
		if tabular, ok := data.(Tabular); ok {
			return f.printTable(tabular.TableHeader(), tabular.TableRows())
		}
		return f.printFields(data)
	default:
		return fmt.Errorf("unsupported output format: %s", f.format)
	}
}

func (f *Formatter) printJSON(data any) error {
	encoder := json.NewEncoder(f.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) printYAML(data any) error {
	encoder := yaml.NewEncoder(f.out)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return encoder.Close()
}

func (f *Formatter) printTable(header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(f.out, "No data found")
		return err
	}

	table := tablewriter.NewWriter(f.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetBorder(true)
	table.AppendBulk(rows)
	table.Render()
	return nil
}

// printFields renders a struct or map through its JSON form, one row per top-level field in key order.
func (f *Formatter) printFields(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		// scalars and lists have no field layout
		_, err := fmt.Fprintln(f.out, string(raw))
		return err
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fieldValue(obj[key])})
	}
	return f.printTable([]string{"Field", "Value"}, rows)
}

func fieldValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	default:
		return fmt.Sprintf("%v", v)
	}
}
