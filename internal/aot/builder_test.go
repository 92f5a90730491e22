package aot

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testBase    uint64 = 0x800000000
	testVersion uint32 = 0x13
)

// le appends little-endian fields.
type le []byte

func (b *le) u8(v uint8)   { *b = append(*b, v) }
func (b *le) u16(v uint16) { *b = binary.LittleEndian.AppendUint16(*b, v) }
func (b *le) u32(v uint32) { *b = binary.LittleEndian.AppendUint32(*b, v) }
func (b *le) u64(v uint64) { *b = binary.LittleEndian.AppendUint64(*b, v) }
func (b *le) i32(v int32)  { b.u32(uint32(v)) }
func (b *le) zero(n int)   { *b = append(*b, make([]byte, n)...) }

// cacheBuilder lays out header | ro (symbols) | rw (records). Symbols are
// addressed before rw grows, so their pointers stay fixed.
type cacheBuilder struct {
	magic   uint32
	version uint32
	base    uint64
	ro      le
	rw      le
}

func newCacheBuilder() *cacheBuilder {
	return &cacheBuilder{magic: Magic, version: testVersion, base: testBase}
}

// symbol stores a symbol in ro and returns the pointer addressing it.
func (b *cacheBuilder) symbol(name string) uint64 {
	ptr := b.base + HeaderEnd + uint64(len(b.ro))
	b.ro.u32(0xcafe0001) // hash and refcount
	b.ro.u16(uint16(len(name)))
	b.ro = append(b.ro, name...)
	for len(b.ro)%8 != 0 {
		b.ro.u8(0)
	}
	return ptr
}

type recordShape struct {
	kind        KlassKind
	sigDelta    uint64
	namePtr     uint64
	vtable      []uint64
	accessFlags uint16

	// instance only
	itable          []uint64
	itableLen       *int32
	oopMaps         []OopMapBlock
	staticFieldSize int32
	fieldSize       int32
	oopMapLen       *int32
}

func instanceShape(namePtr uint64) recordShape {
	return recordShape{kind: KindInstance, sigDelta: deltaInstanceKlass, namePtr: namePtr}
}

// itableWords lays out interface entries, the null terminator entry and the
// method slots as raw words.
func itableWords(ifaces []InterfaceEntry, methods ...uint64) []uint64 {
	var words []uint64
	for _, e := range ifaces {
		words = append(words, e.Klass, uint64(e.Offset))
	}
	words = append(words, 0, 0)
	return append(words, methods...)
}

func int32p(v int32) *int32 { return &v }

func (b *cacheBuilder) writePrefix(s recordShape) {
	w := &b.rw
	w.u64(b.base + s.sigDelta)
	w.i32(0x18) // layout helper
	w.u16(uint16(s.kind))
	w.u8(0x01) // misc flags
	w.zero(1)
	w.i32(0x38) // super check offset
	w.zero(4)
	w.u64(s.namePtr)
	w.u64(0) // secondary super cache
	w.u64(b.base + 0x9000)
	for i := 0; i < 8; i++ {
		w.u64(uint64(i))
	}
	w.u64(b.base + 0xa000) // java mirror
	w.u64(b.base + 0xb000) // super
	w.u64(0)
	w.u64(0)
	w.u64(0)
	w.u64(b.base + 0xc000) // class loader data
	w.u64(0x1)             // prototype header
	w.u64(0xff)            // secondary supers bitmap
	w.u8(0x2a)             // hash slot
	w.u16(uint16(0xfffe))  // shared class path index: -2
	w.u16(0x0004)          // aot class flags
	w.zero(3)
	w.i32(int32(len(s.vtable)))
	w.i32(-1) // archived mirror index
	w.u64(0x77)
}

// instance appends an instance klass record and returns its rw offset.
func (b *cacheBuilder) instance(s recordShape) int64 {
	off := int64(len(b.rw))
	b.writePrefix(s)
	w := &b.rw
	for i := 0; i < 10; i++ {
		w.u64(b.base + 0x10000 + uint64(i)*8)
	}
	itableLen := int32(len(s.itable))
	if s.itableLen != nil {
		itableLen = *s.itableLen
	}
	oopMapLen := int32(len(s.oopMaps))
	if s.oopMapLen != nil {
		oopMapLen = *s.oopMapLen
	}
	w.i32(s.fieldSize)
	w.i32(s.staticFieldSize)
	w.i32(oopMapLen)
	w.i32(itableLen)
	w.u16(7)  // nest host index
	w.u16(3)  // this class index
	w.u16(1)  // static oop field count
	w.u16(12) // idnum allocated count
	w.u8(4)   // init state
	w.u8(0)   // reference type
	w.u16(s.accessFlags)
	w.u16(0x0102)
	w.u8(0x03)
	w.zero(1)
	for i := 0; i < 20; i++ {
		w.u64(b.base + 0x20000 + uint64(i)*8)
	}
	for _, v := range s.vtable {
		w.u64(v)
	}
	for _, v := range s.itable {
		w.u64(v)
	}
	for _, m := range s.oopMaps {
		w.u32(m.Offset)
		w.u32(m.Count)
	}
	return off
}

// objArray appends an object array klass record.
func (b *cacheBuilder) objArray(namePtr, element uint64, vtable []uint64) int64 {
	off := int64(len(b.rw))
	s := recordShape{kind: KindObjArray, sigDelta: deltaObjArrayKlass, namePtr: namePtr, vtable: vtable}
	b.writePrefix(s)
	w := &b.rw
	w.i32(1)
	w.zero(4)
	w.u64(0)
	w.u64(0)
	w.u64(element)
	w.u64(element)
	for _, v := range vtable {
		w.u64(v)
	}
	return off
}

// typeArray appends a primitive array klass record.
func (b *cacheBuilder) typeArray(namePtr uint64, maxLength int32) int64 {
	off := int64(len(b.rw))
	b.writePrefix(recordShape{kind: KindTypeArray, sigDelta: deltaTypeArrayKlass, namePtr: namePtr})
	w := &b.rw
	w.i32(1)
	w.zero(4)
	w.u64(b.base + 0x30000)
	w.u64(0)
	w.i32(maxLength)
	w.zero(4)
	return off
}

// word appends one raw rw word.
func (b *cacheBuilder) word(v uint64) int64 {
	off := int64(len(b.rw))
	b.rw.u64(v)
	return off
}

func (b *cacheBuilder) rwOffset() uint64 {
	return HeaderEnd + uint64(len(b.ro))
}

func (b *cacheBuilder) header() le {
	var h le
	h.u32(b.magic)
	h.u32(0x1234)
	h.u32(b.version)
	h.u32(HeaderEnd)
	h.u32(0)
	h.u32(0)

	spans := [NumRegions][2]uint64{
		RegionRW: {b.rwOffset(), uint64(len(b.rw))},
		RegionRO: {HeaderEnd, uint64(len(b.ro))},
	}
	for i := range spans {
		used := spans[i][1]
		h.i32(int32(i + 1)) // crc
		h.i32(boolInt(RegionKind(i) == RegionRO))
		h.i32(0)
		h.i32(boolInt(RegionKind(i) == RegionHeap))
		h.i32(boolInt(RegionKind(i) == RegionBitmap))
		h.i32(1)
		h.u64(spans[i][0])
		h.u64(spans[i][0])
		h.u64(used)
		h.u64(0)
		h.u64(0)
		h.u64(0)
		h.u64(0)
		h.zero(16)
	}

	h.u64(0x1000) // core region alignment
	h.i32(8)
	h.zero(4)
	h.u64(0)
	h.i32(3)
	h.u8(1)
	h.u8(0)
	h.zero(2)
	h.u64(1 << 30)
	h.i32(1)
	h.u8(0)
	h.u8(1)
	h.u8(1)
	h.zero(1)
	h.i32(22)
	h.i32(0)
	h.u64(0x2000)
	h.u64(0x3000)
	h.u64(0x4000)
	ident := make([]byte, JVMIdentSize)
	copy(ident, "OpenJDK 64-Bit Server VM (test)\x00garbage")
	h = append(h, ident...)
	h.u64(0x5000)
	h.u8(0)
	h.u8(1)
	h.u8(1)
	h.zero(5)
	h.u64(b.base)
	h.u64(b.base)
	h.u8(1)
	h.u8(1)
	h.u8(0)
	h.zero(5)
	h.u64(0x10)
	h.u64(0x20)
	// mapped heap header
	h.u64(0x30)
	h.u64(0x40)
	h.u64(0x50)
	h.u64(2)
	h.i32(100)
	h.i32(4096)
	h.i32(512)
	h.zero(4)
	// streamed heap header
	h.u64(0x60)
	h.u64(0x70)
	h.u64(9)
	h.u64(0x80)
	h.u64(1234)
	// profiling flags
	h.i32(111)
	h.i32(2)
	h.i32(2)
	h.zero(4)
	h.u64(uint64(2))
	h.u64(uint64(2))
	h.u8(1)
	h.u8(1)
	h.zero(2)
	h.i32(3)
	return h
}

func boolInt(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

func (b *cacheBuilder) bytes() []byte {
	h := b.header()
	if len(h) != HeaderEnd {
		panic("test header has wrong size")
	}
	out := append([]byte{}, h...)
	out = append(out, b.ro...)
	return append(out, b.rw...)
}

// write stores the cache in a temp file and returns its path.
func (b *cacheBuilder) write(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.aot")
	require.NoError(t, os.WriteFile(path, b.bytes(), 0o644))
	return path
}
