package formatter

import (
	"io"

	"github.com/aot-inspect/internal/aot"
	"github.com/aot-inspect/pkg/model"
	"github.com/aot-inspect/pkg/writer"
)

// JSONFormatter renders results as JSON documents, one per call.
type JSONFormatter struct {
	Pretty bool
}

func writeJSON[T any](pretty bool, w io.Writer, v T) error {
	jw := writer.NewJSONWriter[T]()
	if pretty {
		jw = writer.NewPrettyJSONWriter[T]()
	}
	return jw.Write(v, w)
}

// Header writes the header sections.
func (f *JSONFormatter) Header(w io.Writer, sections []aot.Section) error {
	return writeJSON(f.Pretty, w, sections)
}

// Classes writes the class list.
func (f *JSONFormatter) Classes(w io.Writer, classes []model.ClassFootprint) error {
	if classes == nil {
		classes = []model.ClassFootprint{}
	}
	return writeJSON(f.Pretty, w, classes)
}

// Sizes writes the size rows.
func (f *JSONFormatter) Sizes(w io.Writer, sizes []SizeRow) error {
	if sizes == nil {
		sizes = []SizeRow{}
	}
	return writeJSON(f.Pretty, w, sizes)
}

// Class writes one decoded record.
func (f *JSONFormatter) Class(w io.Writer, class ClassDump) error {
	return writeJSON(f.Pretty, w, class)
}

// Report writes the full report.
func (f *JSONFormatter) Report(w io.Writer, report *model.CacheReport) error {
	return writeJSON(f.Pretty, w, report)
}

// Snapshots writes stored snapshot headers.
func (f *JSONFormatter) Snapshots(w io.Writer, snapshots []model.Snapshot) error {
	if snapshots == nil {
		snapshots = []model.Snapshot{}
	}
	return writeJSON(f.Pretty, w, snapshots)
}

type historyDoc struct {
	Name   string                    `json:"name"`
	Points []model.ClassHistoryPoint `json:"points"`
}

// History writes a class's size history.
func (f *JSONFormatter) History(w io.Writer, name string, points []model.ClassHistoryPoint) error {
	if points == nil {
		points = []model.ClassHistoryPoint{}
	}
	return writeJSON(f.Pretty, w, historyDoc{Name: name, Points: points})
}
