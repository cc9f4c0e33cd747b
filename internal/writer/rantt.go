package writer

import (
	"encoding/xml"
	"path/filepath"

	"github.com/vitaliisemenov/methodtrace/internal/report"
	"github.com/vitaliisemenov/methodtrace/internal/reporter"
	"github.com/vitaliisemenov/methodtrace/internal/vfs"
)

// RanttVersion is the descriptor version stamped into every .rprjx
// file this writer produces.
const RanttVersion = "4.1"

// ranttProject is the XML shape of the .rprjx project descriptor
// (§4.7: required tags Project[@RanttVersion], DataSets,
// Operations[@Source], Relationships[@Source]).
type ranttProject struct {
	XMLName       xml.Name `xml:"Project"`
	RanttVersion  string   `xml:"RanttVersion,attr"`
	DataSets      struct{} `xml:"DataSets"`
	Operations    struct {
		Source string `xml:"Source,attr"`
	} `xml:"Operations"`
	Relationships struct {
		Source string `xml:"Source,attr"`
	} `xml:"Relationships"`
}

// RanttWriter produces a Rantt project descriptor plus operations and
// relationships CSVs (§4.7).
type RanttWriter struct {
	base
	projectPath       string
	operationsPath    string
	relationshipsPath string
	rows              []report.Item
}

// NewRanttWriter constructs a RanttWriter backed by fs.
func NewRanttWriter(fs vfs.FS, archiver *Archiver) *RanttWriter {
	return &RanttWriter{base: newBase(fs, archiver)}
}

func (w *RanttWriter) SetParameters(p reporter.Params) error { return w.setParameters(p) }

func (w *RanttWriter) Initialize(reporterName string) error {
	_, baseFile := w.resolveNames(reporterName)
	rotateNames := []string{baseFile + ".rprjx", baseFile + ".csv", baseFile + ".relationships.csv", "summary.txt"}
	dir, baseFile, err := w.initializeDir(reporterName, rotateNames)
	if err != nil {
		return err
	}
	w.projectPath = filepath.Join(dir, baseFile+".rprjx")
	w.operationsPath = filepath.Join(dir, baseFile+".csv")
	w.relationshipsPath = filepath.Join(dir, baseFile+".relationships.csv")
	return nil
}

func (w *RanttWriter) WriteStart(report.Item) error { return nil }

func (w *RanttWriter) WriteItem(item report.Item) error {
	item = w.applyOverrides(item)
	w.mu.Lock()
	w.rows = append(w.rows, item)
	w.rows = applyLimit(w.rows, w.limit)
	w.mu.Unlock()
	return nil
}

func (w *RanttWriter) WriteSummary(line string) error { return w.writeSummary(line) }
func (w *RanttWriter) WriteError(err error) error      { return w.writeError(err) }
func (w *RanttWriter) SetLimitOptions(l reporter.LimitOptions) {
	w.setLimitOptions(l)
	w.mu.Lock()
	w.rows = applyLimit(w.rows, l)
	w.mu.Unlock()
}
func (w *RanttWriter) GetLimitOptions() reporter.LimitOptions { return w.getLimitOptions() }

func (w *RanttWriter) Flush() error {
	w.mu.Lock()
	rows := append([]report.Item{}, w.rows...)
	opsPath, relPath, projectPath := w.operationsPath, w.relationshipsPath, w.projectPath
	w.mu.Unlock()

	opsData, err := renderCSV(rows)
	if err != nil {
		return err
	}
	if err := w.fs.WriteFile(opsPath, opsData); err != nil {
		return err
	}

	relData, err := renderRelationships(rows)
	if err != nil {
		return err
	}
	if err := w.fs.WriteFile(relPath, relData); err != nil {
		return err
	}

	proj := ranttProject{RanttVersion: RanttVersion}
	proj.Operations.Source = filepath.Base(opsPath)
	proj.Relationships.Source = filepath.Base(relPath)
	projData, err := xml.MarshalIndent(proj, "", "  ")
	if err != nil {
		return err
	}
	return w.fs.WriteFile(projectPath, projData)
}

func (w *RanttWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.saveOverrideTemplate(); err != nil {
		return err
	}
	return w.flushSummaryFile()
}

// renderRelationships emits one row per non-root item: ChildId,
// ParentId, RelationshipKind (§4.7).
func renderRelationships(rows []report.Item) ([]byte, error) {
	var items []report.Item
	for _, item := range rows {
		if item.ParentId == "" {
			continue
		}
		items = append(items, item)
	}

	header := []string{"ChildId", "ParentId", "RelationshipKind"}
	var records [][]string
	for _, item := range items {
		records = append(records, []string{item.Id, item.ParentId, string(item.Relationship())})
	}
	return writeCSVRows(header, records)
}
