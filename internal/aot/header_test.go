package aot

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHeader(t *testing.T) {
	b := newCacheBuilder()
	b.symbol("java/lang/Object")
	b.instance(instanceShape(testBase))
	data := b.bytes()

	c := newTestCursor(data)
	h, err := DecodeHeader(c)
	require.NoError(t, err)
	assert.Equal(t, int64(HeaderEnd), c.Pos())

	assert.Equal(t, Magic, h.Generic.Magic)
	assert.Equal(t, uint32(0x1234), h.Generic.CRC)
	assert.Equal(t, testVersion, h.Generic.Version)
	assert.Equal(t, uint32(HeaderEnd), h.Generic.HeaderSize)

	rw := h.Region(RegionRW)
	assert.Equal(t, b.rwOffset(), rw.FileOffset)
	assert.Equal(t, uint64(InstanceKlassSize), rw.Used)
	assert.Equal(t, int32(1), rw.CRC)
	ro := h.Region(RegionRO)
	assert.Equal(t, uint64(HeaderEnd), ro.FileOffset)
	assert.Equal(t, int32(1), ro.ReadOnly)
	assert.Equal(t, int32(1), h.Region(RegionHeap).IsHeapRegion)
	assert.Equal(t, int32(1), h.Region(RegionBitmap).IsBitmapRegion)
	assert.Equal(t, int32(5), h.Region(RegionCode).CRC)

	f := h.FileMap
	assert.Equal(t, uint64(0x1000), f.CoreRegionAlignment)
	assert.Equal(t, int32(8), f.ObjAlignment)
	assert.Equal(t, int32(3), f.NarrowOopShift)
	assert.True(t, f.CompactStrings)
	assert.False(t, f.CompactHeaders)
	assert.Equal(t, uint64(1<<30), f.MaxHeapSize)
	assert.False(t, f.ObjectStreamingMode)
	assert.True(t, f.CompressedOops)
	assert.True(t, f.CompressedClassPointers)
	assert.Equal(t, int32(22), f.NarrowKlassPointerBits)
	assert.Equal(t, uint64(0x2000), f.ClonedVtablesOffset)
	assert.Equal(t, uint64(0x4000), f.SerializedDataOffset)
	assert.Equal(t, "OpenJDK 64-Bit Server VM (test)", f.JVMIdent)
	assert.Equal(t, uint64(0x5000), f.ClassLocationConfigOffset)
	assert.False(t, f.VerifyLocal)
	assert.True(t, f.VerifyRemote)
	assert.Equal(t, testBase, f.RequestedBaseAddress)
	assert.Equal(t, testBase, f.MappedBaseAddress)
	assert.True(t, f.HasAOTLinkedClasses)
	assert.False(t, f.HasFullModuleGraph)
	assert.Equal(t, uint64(0x20), f.ROPtrmapStartPos)

	assert.Equal(t, uint64(0x40), f.MappedHeap.OopmapStartPos)
	assert.Equal(t, HeapRootSegments{
		BaseOffset: 0x50, Count: 2, RootsCount: 100, MaxSizeInBytes: 4096, MaxSizeInElems: 512,
	}, f.MappedHeap.RootSegments)
	assert.Equal(t, StreamedHeapHeader{
		ForwardingOffset: 0x60, RootsOffset: 0x70, NumRoots: 9,
		RootHighestObjectIndexTableOffset: 0x80, NumArchivedObjects: 1234,
	}, f.StreamedHeap)
	assert.Equal(t, ProfilingFlags{
		TypeProfileLevel: 111, TypeProfileArgsLimit: 2, TypeProfileParmsLimit: 2,
		TypeProfileWidth: 2, BCIProfileWidth: 2, ProfileTraps: true, TypeProfileCasts: true,
		SpecTrapLimitExtraEntries: 3,
	}, f.Profiling)
}

func TestDecodeHeader_BadMagic(t *testing.T) {
	for _, magic := range []uint32{0, 0xf00baba3, 0xcafebabe, 0xa2ba0bf0} {
		data := binary.LittleEndian.AppendUint32(nil, magic)

		h, err := DecodeHeader(newTestCursor(data))
		require.Error(t, err)
		assert.Nil(t, h)
		assert.True(t, errors.Is(err, ErrFormat), "magic %08x", magic)
		assert.False(t, errors.Is(err, ErrTruncated), "format is checked before anything else is read")
		assert.Contains(t, err.Error(), "magic number mismatch")
	}
}

func TestDecodeHeader_Truncated(t *testing.T) {
	full := newCacheBuilder().bytes()
	require.Len(t, full, HeaderEnd)

	cuts := []int{0, 3, 4, 23, 24, 100, 503, 504, 700, HeaderEnd - 1}
	for _, n := range cuts {
		h, err := DecodeHeader(newTestCursor(full[:n]))
		require.Error(t, err, "cut at %d", n)
		assert.Nil(t, h, "no partial header at cut %d", n)
		assert.True(t, errors.Is(err, ErrTruncated), "cut at %d: %v", n, err)
	}
}

func TestDecodeHeader_NoRegionsUsed(t *testing.T) {
	h, err := DecodeHeader(newTestCursor(newCacheBuilder().bytes()))
	require.NoError(t, err)
	for i := range h.Regions {
		assert.Zero(t, h.Regions[i].Used)
	}
}

func TestRegionKind_String(t *testing.T) {
	assert.Equal(t, "rw", RegionRW.String())
	assert.Equal(t, "ro", RegionRO.String())
	assert.Equal(t, "bm", RegionBitmap.String())
	assert.Equal(t, "hp", RegionHeap.String())
	assert.Equal(t, "ac", RegionCode.String())
	assert.Equal(t, "unknown", RegionKind(9).String())
}

func TestLoadRegions(t *testing.T) {
	b := newCacheBuilder()
	b.symbol("java/lang/Object")
	b.word(0xdeadbeef)
	data := b.bytes()

	h, err := DecodeHeader(newTestCursor(data))
	require.NoError(t, err)

	snaps, err := LoadRegions(newTestCursor(data).r, int64(len(data)), h)
	require.NoError(t, err)

	assert.Equal(t, RegionRW, snaps[RegionRW].Kind)
	assert.Equal(t, []byte(b.rw), snaps[RegionRW].Data)
	assert.Equal(t, int64(b.rwOffset()), snaps[RegionRW].Offset)
	assert.Equal(t, []byte(b.ro), snaps[RegionRO].Data)
	for _, k := range []RegionKind{RegionBitmap, RegionHeap, RegionCode} {
		assert.Equal(t, k, snaps[k].Kind)
		assert.Zero(t, snaps[k].Len())
	}

	// snapshots are independent copies
	snaps[RegionRW].Data[0] = 0
	assert.NotEqual(t, byte(0), data[b.rwOffset()])
}

func TestLoadRegions_PastEOF(t *testing.T) {
	b := newCacheBuilder()
	b.word(1)
	b.word(2)
	data := b.bytes()
	data = data[:len(data)-4]

	h, err := DecodeHeader(newTestCursor(data))
	require.NoError(t, err)

	_, err = LoadRegions(newTestCursor(data).r, int64(len(data)), h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))
	assert.Contains(t, err.Error(), "region rw")
}
