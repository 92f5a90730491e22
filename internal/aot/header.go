package aot

import (
	"bytes"
)

// Magic identifies an AOT cache file (cds.h, AOT_DYNAMIC_MAGIC family).
const Magic uint32 = 0xf00baba2

// Layout sizes of the pinned 64-bit header format.
const (
	GenericHeaderSize    = 24
	RegionDescriptorSize = 96
	FileMapHeaderSize    = 520
	NumRegions           = 5
	JVMIdentSize         = 256

	// HeaderEnd is the offset of the first byte after the file-map header.
	HeaderEnd = GenericHeaderSize + NumRegions*RegionDescriptorSize + FileMapHeaderSize
)

// RegionKind names one of the fixed cache regions, in file order.
type RegionKind int

const (
	RegionRW RegionKind = iota
	RegionRO
	RegionBitmap
	RegionHeap
	RegionCode
)

// String returns the short region name used by the JVM.
func (k RegionKind) String() string {
	switch k {
	case RegionRW:
		return "rw"
	case RegionRO:
		return "ro"
	case RegionBitmap:
		return "bm"
	case RegionHeap:
		return "hp"
	case RegionCode:
		return "ac"
	default:
		return "unknown"
	}
}

// GenericHeader is the format-independent prefix of every cache file.
type GenericHeader struct {
	Magic                 uint32 `json:"magic"`
	CRC                   uint32 `json:"crc"`
	Version               uint32 `json:"version"`
	HeaderSize            uint32 `json:"header_size"`
	BaseArchiveNameOffset uint32 `json:"base_archive_name_offset"`
	BaseArchiveNameSize   uint32 `json:"base_archive_name_size"`
}

// RegionDescriptor describes one region's placement in the file.
// The trailing mapped-base pointer and in-reserved-space flag are runtime-only
// and are skipped.
type RegionDescriptor struct {
	CRC              int32  `json:"crc"`
	ReadOnly         int32  `json:"read_only"`
	AllowExec        int32  `json:"allow_exec"`
	IsHeapRegion     int32  `json:"is_heap_region"`
	IsBitmapRegion   int32  `json:"is_bitmap_region"`
	MappedFromFile   int32  `json:"mapped_from_file"`
	FileOffset       uint64 `json:"file_offset"`
	MappingOffset    uint64 `json:"mapping_offset"`
	Used             uint64 `json:"used"`
	OopmapOffset     uint64 `json:"oopmap_offset"`
	OopmapSizeInBits uint64 `json:"oopmap_size_in_bits"`
	PtrmapOffset     uint64 `json:"ptrmap_offset"`
	PtrmapSizeInBits uint64 `json:"ptrmap_size_in_bits"`
}

// HeapRootSegments locates the archived heap root segments.
type HeapRootSegments struct {
	BaseOffset     uint64 `json:"base_offset"`
	Count          uint64 `json:"count"`
	RootsCount     int32  `json:"roots_count"`
	MaxSizeInBytes int32  `json:"max_size_in_bytes"`
	MaxSizeInElems int32  `json:"max_size_in_elems"`
}

// MappedHeapHeader is the 48-byte header of a mapped (non-streamed) heap.
type MappedHeapHeader struct {
	PtrmapStartPos uint64           `json:"ptrmap_start_pos"`
	OopmapStartPos uint64           `json:"oopmap_start_pos"`
	RootSegments   HeapRootSegments `json:"root_segments"`
}

// StreamedHeapHeader is the 40-byte header of a streamed heap.
type StreamedHeapHeader struct {
	ForwardingOffset                  uint64 `json:"forwarding_offset"`
	RootsOffset                       uint64 `json:"roots_offset"`
	NumRoots                          uint64 `json:"num_roots"`
	RootHighestObjectIndexTableOffset uint64 `json:"root_highest_object_index_table_offset"`
	NumArchivedObjects                uint64 `json:"num_archived_objects"`
}

// ProfilingFlags records the method-profiling tunables the cache was dumped with.
type ProfilingFlags struct {
	TypeProfileLevel          int32 `json:"type_profile_level"`
	TypeProfileArgsLimit      int32 `json:"type_profile_args_limit"`
	TypeProfileParmsLimit     int32 `json:"type_profile_parms_limit"`
	TypeProfileWidth          int64 `json:"type_profile_width"`
	BCIProfileWidth           int64 `json:"bci_profile_width"`
	ProfileTraps              bool  `json:"profile_traps"`
	TypeProfileCasts          bool  `json:"type_profile_casts"`
	SpecTrapLimitExtraEntries int32 `json:"spec_trap_limit_extra_entries"`
}

// FileMapHeader is the format-specific header following the region table.
type FileMapHeader struct {
	CoreRegionAlignment        uint64             `json:"core_region_alignment"`
	ObjAlignment               int32              `json:"obj_alignment"`
	NarrowOopBase              uint64             `json:"narrow_oop_base"`
	NarrowOopShift             int32              `json:"narrow_oop_shift"`
	CompactStrings             bool               `json:"compact_strings"`
	CompactHeaders             bool               `json:"compact_headers"`
	MaxHeapSize                uint64             `json:"max_heap_size"`
	NarrowOopMode              int32              `json:"narrow_oop_mode"`
	ObjectStreamingMode        bool               `json:"object_streaming_mode"`
	CompressedOops             bool               `json:"compressed_oops"`
	CompressedClassPointers    bool               `json:"compressed_class_pointers"`
	NarrowKlassPointerBits     int32              `json:"narrow_klass_pointer_bits"`
	NarrowKlassShift           int32              `json:"narrow_klass_shift"`
	ClonedVtablesOffset        uint64             `json:"cloned_vtables_offset"`
	EarlySerializedDataOffset  uint64             `json:"early_serialized_data_offset"`
	SerializedDataOffset       uint64             `json:"serialized_data_offset"`
	JVMIdent                   string             `json:"jvm_ident"`
	ClassLocationConfigOffset  uint64             `json:"class_location_config_offset"`
	VerifyLocal                bool               `json:"verify_local"`
	VerifyRemote               bool               `json:"verify_remote"`
	HasPlatformOrAppClasses    bool               `json:"has_platform_or_app_classes"`
	RequestedBaseAddress       uint64             `json:"requested_base_address"`
	MappedBaseAddress          uint64             `json:"mapped_base_address"`
	UseOptimizedModuleHandling bool               `json:"use_optimized_module_handling"`
	HasAOTLinkedClasses        bool               `json:"has_aot_linked_classes"`
	HasFullModuleGraph         bool               `json:"has_full_module_graph"`
	RWPtrmapStartPos           uint64             `json:"rw_ptrmap_start_pos"`
	ROPtrmapStartPos           uint64             `json:"ro_ptrmap_start_pos"`
	MappedHeap                 MappedHeapHeader   `json:"mapped_heap_header"`
	StreamedHeap               StreamedHeapHeader `json:"streamed_heap_header"`
	Profiling                  ProfilingFlags     `json:"profiling"`
}

// Header is the complete decoded file header.
type Header struct {
	Generic GenericHeader                `json:"generic_header"`
	Regions [NumRegions]RegionDescriptor `json:"regions"`
	FileMap FileMapHeader                `json:"file_map_header"`
}

// Region returns the descriptor for kind.
func (h *Header) Region(kind RegionKind) *RegionDescriptor {
	return &h.Regions[kind]
}

// DecodeHeader decodes the generic header, the region table and the file-map
// header starting at offset 0. The magic is validated before anything else is
// read past it.
func DecodeHeader(c *Cursor) (*Header, error) {
	if err := c.Seek(0); err != nil {
		return nil, err
	}

	d := newDecoder(c)
	h := &Header{}

	h.Generic.Magic = d.u32("magic")
	if d.err != nil {
		return nil, d.err
	}
	if h.Generic.Magic != Magic {
		return nil, &FormatError{Magic: h.Generic.Magic}
	}
	h.Generic.CRC = d.u32("crc")
	h.Generic.Version = d.u32("version")
	h.Generic.HeaderSize = d.u32("header_size")
	h.Generic.BaseArchiveNameOffset = d.u32("base_archive_name_offset")
	h.Generic.BaseArchiveNameSize = d.u32("base_archive_name_size")

	for i := range h.Regions {
		decodeRegionDescriptor(d, &h.Regions[i])
	}

	decodeFileMapHeader(d, &h.FileMap)
	if d.err != nil {
		return nil, d.err
	}
	return h, nil
}

func decodeRegionDescriptor(d *decoder, r *RegionDescriptor) {
	r.CRC = d.i32("region.crc")
	r.ReadOnly = d.i32("region.read_only")
	r.AllowExec = d.i32("region.allow_exec")
	r.IsHeapRegion = d.i32("region.is_heap_region")
	r.IsBitmapRegion = d.i32("region.is_bitmap_region")
	r.MappedFromFile = d.i32("region.mapped_from_file")
	r.FileOffset = d.u64("region.file_offset")
	r.MappingOffset = d.u64("region.mapping_offset")
	r.Used = d.u64("region.used")
	r.OopmapOffset = d.u64("region.oopmap_offset")
	r.OopmapSizeInBits = d.u64("region.oopmap_size_in_bits")
	r.PtrmapOffset = d.u64("region.ptrmap_offset")
	r.PtrmapSizeInBits = d.u64("region.ptrmap_size_in_bits")
	// mapped base pointer, in-reserved-space bool, 7 bytes padding
	d.pad(8 + 1 + 7)
}

func decodeFileMapHeader(d *decoder, f *FileMapHeader) {
	f.CoreRegionAlignment = d.u64("core_region_alignment")
	f.ObjAlignment = d.i32("obj_alignment")
	d.pad(4)
	f.NarrowOopBase = d.u64("narrow_oop_base")
	f.NarrowOopShift = d.i32("narrow_oop_shift")
	f.CompactStrings = d.boolean("compact_strings")
	f.CompactHeaders = d.boolean("compact_headers")
	d.pad(2)
	f.MaxHeapSize = d.u64("max_heap_size")
	f.NarrowOopMode = d.i32("narrow_oop_mode")
	f.ObjectStreamingMode = d.boolean("object_streaming_mode")
	f.CompressedOops = d.boolean("compressed_oops")
	f.CompressedClassPointers = d.boolean("compressed_class_pointers")
	d.pad(1)
	f.NarrowKlassPointerBits = d.i32("narrow_klass_pointer_bits")
	f.NarrowKlassShift = d.i32("narrow_klass_shift")
	f.ClonedVtablesOffset = d.u64("cloned_vtables_offset")
	f.EarlySerializedDataOffset = d.u64("early_serialized_data_offset")
	f.SerializedDataOffset = d.u64("serialized_data_offset")
	f.JVMIdent = cString(d.bytes("jvm_ident", JVMIdentSize))
	f.ClassLocationConfigOffset = d.u64("class_location_config_offset")
	f.VerifyLocal = d.boolean("verify_local")
	f.VerifyRemote = d.boolean("verify_remote")
	f.HasPlatformOrAppClasses = d.boolean("has_platform_or_app_classes")
	d.pad(5)
	f.RequestedBaseAddress = d.u64("requested_base_address")
	f.MappedBaseAddress = d.u64("mapped_base_address")
	f.UseOptimizedModuleHandling = d.boolean("use_optimized_module_handling")
	f.HasAOTLinkedClasses = d.boolean("has_aot_linked_classes")
	f.HasFullModuleGraph = d.boolean("has_full_module_graph")
	d.pad(5)
	f.RWPtrmapStartPos = d.u64("rw_ptrmap_start_pos")
	f.ROPtrmapStartPos = d.u64("ro_ptrmap_start_pos")

	f.MappedHeap.PtrmapStartPos = d.u64("mapped_heap.ptrmap_start_pos")
	f.MappedHeap.OopmapStartPos = d.u64("mapped_heap.oopmap_start_pos")
	seg := &f.MappedHeap.RootSegments
	seg.BaseOffset = d.u64("root_segments.base_offset")
	seg.Count = d.u64("root_segments.count")
	seg.RootsCount = d.i32("root_segments.roots_count")
	seg.MaxSizeInBytes = d.i32("root_segments.max_size_in_bytes")
	seg.MaxSizeInElems = d.i32("root_segments.max_size_in_elems")
	d.pad(4)

	f.StreamedHeap.ForwardingOffset = d.u64("streamed_heap.forwarding_offset")
	f.StreamedHeap.RootsOffset = d.u64("streamed_heap.roots_offset")
	f.StreamedHeap.NumRoots = d.u64("streamed_heap.num_roots")
	f.StreamedHeap.RootHighestObjectIndexTableOffset = d.u64("streamed_heap.root_highest_object_index_table_offset")
	f.StreamedHeap.NumArchivedObjects = d.u64("streamed_heap.num_archived_objects")

	p := &f.Profiling
	p.TypeProfileLevel = d.i32("type_profile_level")
	p.TypeProfileArgsLimit = d.i32("type_profile_args_limit")
	p.TypeProfileParmsLimit = d.i32("type_profile_parms_limit")
	d.pad(4)
	p.TypeProfileWidth = d.i64("type_profile_width")
	p.BCIProfileWidth = d.i64("bci_profile_width")
	p.ProfileTraps = d.boolean("profile_traps")
	p.TypeProfileCasts = d.boolean("type_profile_casts")
	d.pad(2)
	p.SpecTrapLimitExtraEntries = d.i32("spec_trap_limit_extra_entries")
}

// cString returns the text before the first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
