// Package model holds the serialisable results produced from an AOT cache:
// per-class footprints, cache reports and persisted snapshots.
package model

import (
	"sort"
	"time"
)

// ClassFootprint is the archived footprint of one class record.
type ClassFootprint struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Size        int64  `json:"size"`
	VtableLen   int32  `json:"vtable_len"`
	ItableLen   int32  `json:"itable_len,omitempty"`
	OopMapCount int32  `json:"oop_map_count,omitempty"`
	Interface   bool   `json:"interface,omitempty"`
}

// RegionUsage describes how much of one region the cache uses.
type RegionUsage struct {
	Name       string `json:"name"`
	FileOffset uint64 `json:"file_offset"`
	Used       uint64 `json:"used"`
	ReadOnly   bool   `json:"read_only"`
}

// Breakdown totals a group of classes.
type Breakdown struct {
	Key     string `json:"key"`
	Classes int    `json:"classes"`
	Bytes   int64  `json:"bytes"`
}

// CacheReport summarises the class records of one cache file.
type CacheReport struct {
	Source      string           `json:"source"`
	GeneratedAt time.Time        `json:"generated_at"`
	Version     uint32           `json:"version"`
	JVMIdent    string           `json:"jvm_ident"`
	BaseAddress uint64           `json:"base_address"`
	Regions     []RegionUsage    `json:"regions"`
	Classes     []ClassFootprint `json:"classes"`
	Kinds       []Breakdown      `json:"kinds"`
	Categories  []Breakdown      `json:"categories"`
	TotalBytes  int64            `json:"total_bytes"`
	Violations  []string         `json:"violations,omitempty"`
}

// ClassCount returns the number of classes in the report.
func (r *CacheReport) ClassCount() int {
	return len(r.Classes)
}

// Find returns the footprint with the exact stored name.
func (r *CacheReport) Find(name string) (ClassFootprint, bool) {
	for _, c := range r.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return ClassFootprint{}, false
}

// Largest returns up to n footprints in descending size order.
func (r *CacheReport) Largest(n int) []ClassFootprint {
	out := make([]ClassFootprint, len(r.Classes))
	copy(out, r.Classes)
	SortFootprints(out, SortBySize)
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// SortOrder selects how footprints are ordered.
type SortOrder string

const (
	SortByName SortOrder = "name"
	SortBySize SortOrder = "size"
)

// SortFootprints orders footprints in place. Size order is descending with
// ties broken by name.
func SortFootprints(fs []ClassFootprint, order SortOrder) {
	switch order {
	case SortBySize:
		sort.SliceStable(fs, func(i, j int) bool {
			if fs[i].Size != fs[j].Size {
				return fs[i].Size > fs[j].Size
			}
			return fs[i].Name < fs[j].Name
		})
	default:
		sort.SliceStable(fs, func(i, j int) bool { return fs[i].Name < fs[j].Name })
	}
}

// Summarize groups footprints by key and returns the totals in descending
// byte order.
func Summarize(fs []ClassFootprint, key func(ClassFootprint) string) []Breakdown {
	idx := make(map[string]int)
	var out []Breakdown
	for _, f := range fs {
		k := key(f)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Breakdown{Key: k})
		}
		out[i].Classes++
		out[i].Bytes += f.Size
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Key < out[j].Key
	})
	return out
}
