// Package report turns decoded class records into footprint reports.
package report

import (
	"errors"

	"github.com/hashicorp/go-multierror"

	"github.com/aot-inspect/internal/aot"
	"github.com/aot-inspect/pkg/filter"
	"github.com/aot-inspect/pkg/model"
	"github.com/aot-inspect/pkg/utils"
)

// Builder assembles CacheReports.
type Builder struct {
	filter *filter.ClassFilter
	clock  utils.Clock
}

// Option configures a Builder.
type Option func(*Builder)

// WithFilter sets the class filter used for categories.
func WithFilter(f *filter.ClassFilter) Option {
	return func(b *Builder) { b.filter = f }
}

// WithClock sets the clock that stamps reports.
func WithClock(c utils.Clock) Option {
	return func(b *Builder) { b.clock = c }
}

// NewBuilder creates a Builder using the default class filter.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{filter: filter.DefaultFilter, clock: utils.NewRealClock()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Footprint converts one decoded entry.
func (b *Builder) Footprint(e aot.ClassEntry) model.ClassFootprint {
	k := e.Record.Common()
	fp := model.ClassFootprint{
		Name:      e.Name,
		Kind:      k.Kind.String(),
		Category:  b.filter.Classify(e.Name).String(),
		Size:      e.Size(),
		VtableLen: k.VtableLen,
	}
	if ik, ok := e.Record.(*aot.InstanceKlass); ok {
		fp.ItableLen = ik.ItableLen
		fp.OopMapCount = ik.NonStaticOopMapSize
		fp.Interface = ik.IsInterface()
	}
	return fp
}

// Footprints converts every entry, keeping decode order.
func (b *Builder) Footprints(entries []aot.ClassEntry) []model.ClassFootprint {
	out := make([]model.ClassFootprint, len(entries))
	for i, e := range entries {
		out[i] = b.Footprint(e)
	}
	return out
}

// Build assembles the report of one cache. violations is the error returned
// alongside the entries by ListClasses, if any.
func (b *Builder) Build(source string, hdr *aot.Header, entries []aot.ClassEntry, violations error) *model.CacheReport {
	r := &model.CacheReport{
		Source:      source,
		GeneratedAt: b.clock.Now().UTC(),
		Version:     hdr.Generic.Version,
		JVMIdent:    hdr.FileMap.JVMIdent,
		BaseAddress: hdr.FileMap.RequestedBaseAddress,
		Classes:     b.Footprints(entries),
		Violations:  violationList(violations),
	}

	for i, desc := range hdr.Regions {
		r.Regions = append(r.Regions, model.RegionUsage{
			Name:       aot.RegionKind(i).String(),
			FileOffset: desc.FileOffset,
			Used:       desc.Used,
			ReadOnly:   desc.ReadOnly != 0,
		})
	}
	for _, c := range r.Classes {
		r.TotalBytes += c.Size
	}
	r.Kinds = model.Summarize(r.Classes, func(c model.ClassFootprint) string { return c.Kind })
	r.Categories = model.Summarize(r.Classes, func(c model.ClassFootprint) string { return c.Category })
	return r
}

func violationList(err error) []string {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		out := make([]string, len(merr.Errors))
		for i, e := range merr.Errors {
			out[i] = e.Error()
		}
		return out
	}
	return []string{err.Error()}
}

// Select filters footprints.
type Select struct {
	Category *filter.ClassCategory
	MinSize  int64
}

// Apply returns the footprints matching s, keeping their order.
func (s Select) Apply(fs []model.ClassFootprint) []model.ClassFootprint {
	out := make([]model.ClassFootprint, 0, len(fs))
	for _, f := range fs {
		if f.Size < s.MinSize {
			continue
		}
		if s.Category != nil && f.Category != s.Category.String() {
			continue
		}
		out = append(out, f)
	}
	return out
}
