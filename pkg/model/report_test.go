package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleReport() *CacheReport {
	return &CacheReport{
		Classes: []ClassFootprint{
			{Name: "java/lang/String", Kind: "InstanceKlass", Category: "jdk", Size: 600},
			{Name: "[I", Kind: "TypeArrayKlass", Category: "primitive", Size: 232},
			{Name: "com/example/App", Kind: "InstanceKlass", Category: "application", Size: 600},
			{Name: "java/lang/Object", Kind: "InstanceKlass", Category: "jdk", Size: 512},
		},
	}
}

func TestCacheReport_Find(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 4, r.ClassCount())

	c, ok := r.Find("[I")
	assert.True(t, ok)
	assert.Equal(t, int64(232), c.Size)

	_, ok = r.Find("java.lang.String")
	assert.False(t, ok, "Find takes stored names")
}

func TestCacheReport_Largest(t *testing.T) {
	r := sampleReport()

	top := r.Largest(2)
	assert.Equal(t, []string{"com/example/App", "java/lang/String"}, []string{top[0].Name, top[1].Name})
	assert.Len(t, r.Largest(-1), 4)
	assert.Len(t, r.Largest(10), 4)
	assert.Equal(t, "java/lang/String", r.Classes[0].Name, "Largest does not reorder the report")
}

func TestSortFootprints(t *testing.T) {
	fs := sampleReport().Classes
	SortFootprints(fs, SortByName)
	assert.Equal(t, "[I", fs[0].Name)
	assert.Equal(t, "java/lang/String", fs[3].Name)
}

func TestSummarize(t *testing.T) {
	got := Summarize(sampleReport().Classes, func(c ClassFootprint) string { return c.Category })
	assert.Equal(t, []Breakdown{
		{Key: "jdk", Classes: 2, Bytes: 1112},
		{Key: "application", Classes: 1, Bytes: 600},
		{Key: "primitive", Classes: 1, Bytes: 232},
	}, got)

	assert.Empty(t, Summarize(nil, func(c ClassFootprint) string { return c.Kind }))
}
