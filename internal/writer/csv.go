package writer

import (
	"bytes"
	"encoding/csv"
	"path/filepath"

	"github.com/vitaliisemenov/methodtrace/internal/report"
	"github.com/vitaliisemenov/methodtrace/internal/reporter"
	"github.com/vitaliisemenov/methodtrace/internal/vfs"
)

// CSVWriter renders one row per non-gap-excluded record to a single CSV
// file, re-rendering the whole file on every Flush since the header
// (the union of observed custom columns) can grow as new rows arrive
// (§4.7).
type CSVWriter struct {
	base
	path string
	rows []report.Item
}

// NewCSVWriter constructs a CSVWriter backed by fs, optionally rotating
// a prior run's output via archiver (nil disables archiving).
func NewCSVWriter(fs vfs.FS, archiver *Archiver) *CSVWriter {
	return &CSVWriter{base: newBase(fs, archiver)}
}

func (w *CSVWriter) SetParameters(p reporter.Params) error { return w.setParameters(p) }

func (w *CSVWriter) Initialize(reporterName string) error {
	_, baseFile := w.resolveNames(reporterName)
	dir, baseFile, err := w.initializeDir(reporterName, []string{baseFile + ".csv", "summary.txt"})
	if err != nil {
		return err
	}
	w.path = filepath.Join(dir, baseFile+".csv")
	return nil
}

func (w *CSVWriter) WriteStart(report.Item) error { return nil }

func (w *CSVWriter) WriteItem(item report.Item) error {
	item = w.applyOverrides(item)
	w.mu.Lock()
	w.rows = append(w.rows, item)
	w.rows = applyLimit(w.rows, w.limit)
	w.mu.Unlock()
	return nil
}

func (w *CSVWriter) WriteSummary(line string) error { return w.writeSummary(line) }
func (w *CSVWriter) WriteError(err error) error      { return w.writeError(err) }
func (w *CSVWriter) SetLimitOptions(l reporter.LimitOptions) {
	w.setLimitOptions(l)
	w.mu.Lock()
	w.rows = applyLimit(w.rows, l)
	w.mu.Unlock()
}
func (w *CSVWriter) GetLimitOptions() reporter.LimitOptions { return w.getLimitOptions() }

// Flush re-renders the entire CSV file from the current row buffer.
func (w *CSVWriter) Flush() error {
	w.mu.Lock()
	rows := append([]report.Item{}, w.rows...)
	path := w.path
	w.mu.Unlock()

	data, err := renderCSV(rows)
	if err != nil {
		return err
	}
	return w.fs.WriteFile(path, data)
}

func (w *CSVWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.saveOverrideTemplate(); err != nil {
		return err
	}
	return w.flushSummaryFile()
}

// renderCSV serializes items per §4.7: header is fixed columns plus the
// case-insensitive union of observed custom columns; no trailing
// newline; empty fields are written as empty strings.
func renderCSV(rows []report.Item) ([]byte, error) {
	custom := caseInsensitiveColumns(rows)
	header := append(append([]string{}, report.FixedColumns...), custom...)

	records := make([][]string, 0, len(rows))
	for _, item := range rows {
		record := make([]string, len(header))
		record[0] = item.Id
		record[1] = item.ParentId
		record[2] = item.MethodName
		record[3] = item.FullName
		record[4] = item.StartTime.Format(timeLayout)
		record[5] = item.EndTime.Format(timeLayout)
		record[6] = item.Duration.String()
		for i, col := range custom {
			if item.Parameters == nil {
				continue
			}
			v, _ := item.Parameters.Get(col)
			record[len(report.FixedColumns)+i] = v
		}
		records = append(records, record)
	}
	return writeCSVRows(header, records)
}

// writeCSVRows serializes header+records via encoding/csv, trimming the
// trailing newline csv.Writer always appends (§4.7 "no trailing newline").
func writeCSVRows(header []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

const timeLayout = "2006-01-02T15:04:05.000000Z07:00"
