package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vitaliisemenov/methodtrace/internal/vfs"
)

const (
	overridesInputName  = "method_overrides.csv"
	overridesOutputName = "method_overrides.template"
	fullNameColumn      = "FullName"
)

// overrideRow is one parsed row of method_overrides.csv: the static
// column values that replace a matching record's attribute parameters.
type overrideRow struct {
	fullName string
	values   map[string]string
}

// observedRow is one (FullName, static-columns...) tuple captured for
// the output template, in first-seen order.
type observedRow struct {
	fullName string
	values   map[string]string
}

// OverrideManager applies method_overrides.csv to matching records and
// accumulates the method_overrides.template written on reporter
// completion (§4.8).
type OverrideManager struct {
	fs  vfs.FS
	dir string

	overrides map[string]overrideRow // keyed by exact FullName

	seenLower map[string]struct{} // case-insensitive FullName dedup for the template
	observed  []observedRow
	columns   []string
	columnSet map[string]struct{} // case-insensitive
}

// Load reads dir/method_overrides.csv if it exists; a missing file is
// not an error (the override table is simply empty).
func Load(fs vfs.FS, dir string) (*OverrideManager, error) {
	m := &OverrideManager{
		fs:        fs,
		dir:       dir,
		overrides: make(map[string]overrideRow),
		seenLower: make(map[string]struct{}),
		columnSet: make(map[string]struct{}),
	}

	path := filepath.Join(dir, overridesInputName)
	if !fs.Exists(path) {
		return m, nil
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("report: parsing %s: %w", overridesInputName, err)
	}
	if len(records) == 0 {
		return m, nil
	}
	header := records[0]
	fullNameIdx := -1
	for i, col := range header {
		if col == fullNameColumn {
			fullNameIdx = i
			break
		}
	}
	if fullNameIdx < 0 {
		return nil, fmt.Errorf("report: %s header must contain %q", overridesInputName, fullNameColumn)
	}
	for _, row := range records[1:] {
		if fullNameIdx >= len(row) {
			continue
		}
		values := make(map[string]string, len(header)-1)
		for i, col := range header {
			if i == fullNameIdx || i >= len(row) {
				continue
			}
			values[col] = row[i]
		}
		m.overrides[row[fullNameIdx]] = overrideRow{fullName: row[fullNameIdx], values: values}
	}
	return m, nil
}

// Apply replaces item's static (attribute) parameters with any matching
// override row's values, returning a new Item that shares no mutable
// state with item.Parameters. Dynamic parameters are never touched.
func (m *OverrideManager) Apply(item Item) Item {
	row, ok := m.overrides[item.FullName]
	if !ok {
		return item
	}
	item.Parameters = item.Parameters.Clone()
	for col, value := range row.values {
		if item.AttributeParameters.Has(col) {
			item.Parameters.Set(col, value)
		}
	}
	return item
}

// Observe records item's (FullName, static-columns...) tuple for the
// output template. Gap records are excluded (§4.8). Duplicate FullNames
// (case-insensitive) are recorded once, first occurrence wins.
func (m *OverrideManager) Observe(item Item) {
	if item.IsGap() {
		return
	}
	lower := strings.ToLower(item.FullName)
	if _, ok := m.seenLower[lower]; ok {
		return
	}
	m.seenLower[lower] = struct{}{}

	values := make(map[string]string, len(item.AttributeParameters))
	for col := range item.AttributeParameters {
		value, _ := item.Parameters.Get(col)
		values[col] = value
		m.addColumn(col)
	}
	m.observed = append(m.observed, observedRow{fullName: item.FullName, values: values})
}

func (m *OverrideManager) addColumn(col string) {
	lower := strings.ToLower(col)
	if _, ok := m.columnSet[lower]; ok {
		return
	}
	m.columnSet[lower] = struct{}{}
	m.columns = append(m.columns, col)
}

// SaveTemplate writes dir/method_overrides.template, overwriting any
// prior content. Saving the same observed set twice yields
// byte-identical output (§8 testable property).
func (m *OverrideManager) SaveTemplate() error {
	columns := append([]string{}, m.columns...)
	sort.Strings(columns)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := append([]string{fullNameColumn}, columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range m.observed {
		record := make([]string, len(header))
		record[0] = row.fullName
		for i, col := range columns {
			record[i+1] = row.values[col]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return m.fs.WriteFile(filepath.Join(m.dir, overridesOutputName), data)
}
