// Package formatter renders query results for the command line.
package formatter

import (
	"fmt"
	"io"
	"sort"

	"github.com/aot-inspect/internal/aot"
	"github.com/aot-inspect/pkg/model"
)

// SizeRow is the answer to one class-size query.
type SizeRow struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Found bool   `json:"found"`
}

// ClassDump is a fully decoded class record.
type ClassDump struct {
	Name   string      `json:"name"`
	Kind   string      `json:"kind"`
	Offset int64       `json:"offset"`
	Size   int64       `json:"size"`
	Fields []aot.Field `json:"fields"`
}

// NewClassDump flattens a decoded entry.
func NewClassDump(e *aot.ClassEntry) ClassDump {
	k := e.Record.Common()
	return ClassDump{
		Name:   e.Name,
		Kind:   k.Kind.String(),
		Offset: k.Offset,
		Size:   e.Size(),
		Fields: e.Record.Fields(),
	}
}

// Formatter renders each command's result to w.
type Formatter interface {
	Header(w io.Writer, sections []aot.Section) error
	Classes(w io.Writer, classes []model.ClassFootprint) error
	Sizes(w io.Writer, sizes []SizeRow) error
	Class(w io.Writer, class ClassDump) error
	Report(w io.Writer, report *model.CacheReport) error
	Snapshots(w io.Writer, snapshots []model.Snapshot) error
	History(w io.Writer, name string, points []model.ClassHistoryPoint) error
}

// Registry maps output format names to formatters.
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a registry holding the text and json formatters.
func NewRegistry(pretty bool) *Registry {
	r := &Registry{formatters: make(map[string]Formatter)}
	r.Register("text", &TextFormatter{})
	r.Register("json", &JSONFormatter{Pretty: pretty})
	return r
}

// Register adds or replaces a formatter.
func (r *Registry) Register(name string, f Formatter) {
	r.formatters[name] = f
}

// Get returns the formatter registered under name.
func (r *Registry) Get(name string) (Formatter, error) {
	f, ok := r.formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format: %s (available: %v)", name, r.Names())
	}
	return f, nil
}

// Names lists registered formats in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
