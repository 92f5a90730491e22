package formatter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/aot-inspect/internal/aot"
	"github.com/aot-inspect/pkg/model"
)

// largestInReport is how many classes the text report lists by size.
const largestInReport = 10

// TextFormatter renders human-readable output: "- name: value" dumps for
// headers and records, tables for everything else.
type TextFormatter struct{}

// lines accumulates the first write error so callers check once.
type lines struct {
	w   io.Writer
	err error
}

func (l *lines) printf(format string, args ...interface{}) {
	if l.err != nil {
		return
	}
	_, l.err = fmt.Fprintf(l.w, format, args...)
}

func (l *lines) field(name, value string) {
	l.printf("- %-32s%s\n", name+":", value)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

func byteSize(n int64) string {
	if n < 0 {
		return strconv.FormatInt(n, 10)
	}
	return humanize.Bytes(uint64(n))
}

// Header prints every section's fields in file order.
func (f *TextFormatter) Header(w io.Writer, sections []aot.Section) error {
	l := &lines{w: w}
	for i, s := range sections {
		if i > 0 {
			l.printf("\n")
		}
		l.printf("%s:\n", s.Title)
		for _, fd := range s.Fields {
			l.field(fd.Name, fd.Value)
		}
	}
	return l.err
}

// Classes prints one row per class with a total footer.
func (f *TextFormatter) Classes(w io.Writer, classes []model.ClassFootprint) error {
	table := newTable(w, "Name", "Kind", "Category", "Size")
	var total int64
	for _, c := range classes {
		table.Append([]string{c.Name, c.Kind, c.Category, strconv.FormatInt(c.Size, 10)})
		total += c.Size
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d classes", len(classes)), byteSize(total)})
	table.Render()
	return nil
}

// Sizes prints one row per queried name, marking the ones not present.
func (f *TextFormatter) Sizes(w io.Writer, sizes []SizeRow) error {
	table := newTable(w, "Name", "Size")
	for _, s := range sizes {
		size := "not found"
		if s.Found {
			size = strconv.FormatInt(s.Size, 10)
		}
		table.Append([]string{s.Name, size})
	}
	table.Render()
	return nil
}

// Class prints a decoded record as a field dump.
func (f *TextFormatter) Class(w io.Writer, class ClassDump) error {
	l := &lines{w: w}
	l.printf("%s (%s, %d bytes at rw+0x%x):\n", class.Name, class.Kind, class.Size, class.Offset)
	for _, fd := range class.Fields {
		l.field(fd.Name, fd.Value)
	}
	return l.err
}

// Report prints the summary, the kind and category breakdowns and the largest classes.
func (f *TextFormatter) Report(w io.Writer, r *model.CacheReport) error {
	l := &lines{w: w}
	l.field("source", r.Source)
	l.field("generated_at", r.GeneratedAt.Format(time.RFC3339))
	l.field("version", fmt.Sprintf("0x%x", r.Version))
	l.field("jvm_ident", r.JVMIdent)
	l.field("base_address", fmt.Sprintf("0x%x", r.BaseAddress))
	l.field("classes", strconv.Itoa(r.ClassCount()))
	l.field("total_bytes", fmt.Sprintf("%d (%s)", r.TotalBytes, byteSize(r.TotalBytes)))
	l.printf("\nRegions:\n")
	if l.err != nil {
		return l.err
	}

	regions := newTable(w, "Region", "File Offset", "Used", "Read Only")
	for _, reg := range r.Regions {
		regions.Append([]string{reg.Name, fmt.Sprintf("0x%x", reg.FileOffset),
			humanize.Bytes(reg.Used), strconv.FormatBool(reg.ReadOnly)})
	}
	regions.Render()

	for _, b := range []struct {
		title string
		rows  []model.Breakdown
	}{{"Kinds", r.Kinds}, {"Categories", r.Categories}} {
		l.printf("\n%s:\n", b.title)
		if l.err != nil {
			return l.err
		}
		table := newTable(w, "Key", "Classes", "Bytes")
		for _, row := range b.rows {
			table.Append([]string{row.Key, strconv.Itoa(row.Classes), byteSize(row.Bytes)})
		}
		table.Render()
	}

	l.printf("\nLargest classes:\n")
	if l.err != nil {
		return l.err
	}
	if err := f.Classes(w, r.Largest(largestInReport)); err != nil {
		return err
	}

	if len(r.Violations) > 0 {
		l.printf("\nLayout violations (%d):\n", len(r.Violations))
		for _, v := range r.Violations {
			l.printf("  %s\n", v)
		}
	}
	return l.err
}

// Snapshots prints stored snapshot headers.
func (f *TextFormatter) Snapshots(w io.Writer, snapshots []model.Snapshot) error {
	table := newTable(w, "ID", "Source", "Version", "Classes", "Total", "Created")
	for _, s := range snapshots {
		table.Append([]string{
			strconv.FormatInt(s.ID, 10),
			s.Source,
			fmt.Sprintf("0x%x", s.Version),
			strconv.Itoa(s.Classes),
			byteSize(s.TotalBytes),
			s.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
	return nil
}

// History prints a class's size per snapshot with the change from the previous one.
func (f *TextFormatter) History(w io.Writer, name string, points []model.ClassHistoryPoint) error {
	if len(points) == 0 {
		_, err := fmt.Fprintf(w, "no snapshots contain %s\n", name)
		return err
	}

	table := newTable(w, "Snapshot", "Source", "Size", "Delta", "Created")
	for i, p := range points {
		delta := "-"
		if i > 0 {
			delta = fmt.Sprintf("%+d", p.Size-points[i-1].Size)
		}
		table.Append([]string{
			strconv.FormatInt(p.SnapshotID, 10),
			p.Source,
			strconv.FormatInt(p.Size, 10),
			delta,
			p.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
	return nil
}
