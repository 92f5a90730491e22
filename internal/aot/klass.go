package aot

import (
	"fmt"
)

// Fixed on-disk sizes of each record layout, before trailing sections.
const (
	KlassPrefixSize    = 200
	InstanceKlassSize  = 472
	ArrayKlassSize     = 224
	ObjArrayKlassSize  = 240
	TypeArrayKlassSize = 232

	accInterface    = 0x0200
	oopMapBlockSize = 8
	vtableEntrySize = 8
)

// KlassKind is the kind discriminant stored in every record's common prefix.
type KlassKind uint16

const (
	KindInstance KlassKind = iota
	KindInstanceRef
	KindInstanceMirror
	KindInstanceClassLoader
	KindInstanceStackChunk
	KindTypeArray
	KindObjArray
)

func (k KlassKind) String() string {
	switch k {
	case KindInstance:
		return "InstanceKlass"
	case KindInstanceRef:
		return "InstanceRefKlass"
	case KindInstanceMirror:
		return "InstanceMirrorKlass"
	case KindInstanceClassLoader:
		return "InstanceClassLoaderKlass"
	case KindInstanceStackChunk:
		return "InstanceStackChunkKlass"
	case KindTypeArray:
		return "TypeArrayKlass"
	case KindObjArray:
		return "ObjArrayKlass"
	default:
		return fmt.Sprintf("Kind(%d)", uint16(k))
	}
}

// IsInstance reports whether k uses the instance klass layout.
func (k KlassKind) IsInstance() bool {
	return k <= KindInstanceStackChunk
}

// LayoutProfile switches on record sections that the nominal klass layout
// declares but that the pinned cache format does not store.
type LayoutProfile struct {
	// InlineStaticFields stores static_field_size words after the itable.
	InlineStaticFields bool
	// EmbeddedImplementor stores one implementor pointer after the oop maps
	// of interface klasses.
	EmbeddedImplementor bool
}

// layoutProfiles holds format versions whose layout differs from the default.
var layoutProfiles = map[uint32]LayoutProfile{}

// ProfileFor returns the record layout profile for a cache format version.
func ProfileFor(version uint32) LayoutProfile {
	if p, ok := layoutProfiles[version]; ok {
		return p
	}
	return LayoutProfile{}
}

// Klass is the prefix shared by every class record.
type Klass struct {
	Offset int64  `json:"offset"` // record offset within the rw region
	Name   string `json:"name"`

	VtablePtr             uint64    `json:"vtable_ptr"`
	LayoutHelper          int32     `json:"layout_helper"`
	Kind                  KlassKind `json:"kind"`
	MiscFlags             uint8     `json:"misc_flags"`
	SuperCheckOffset      int32     `json:"super_check_offset"`
	NamePtr               uint64    `json:"name_ptr"`
	SecondarySuperCache   uint64    `json:"secondary_super_cache"`
	SecondarySupers       uint64    `json:"secondary_supers"`
	PrimarySupers         [8]uint64 `json:"primary_supers"`
	JavaMirror            uint64    `json:"java_mirror"`
	Super                 uint64    `json:"super"`
	Subklass              uint64    `json:"subklass"`
	NextSibling           uint64    `json:"next_sibling"`
	NextLink              uint64    `json:"next_link"`
	ClassLoaderData       uint64    `json:"class_loader_data"`
	PrototypeHeader       uint64    `json:"prototype_header"`
	SecondarySupersBitmap uint64    `json:"secondary_supers_bitmap"`
	HashSlot              uint8     `json:"hash_slot"`
	SharedClassPathIndex  int16     `json:"shared_class_path_index"`
	AOTClassFlags         int16     `json:"aot_class_flags"`
	VtableLen             int32     `json:"vtable_len"`
	ArchivedMirrorIndex   int32     `json:"archived_mirror_index"`
	TraceID               uint64    `json:"trace_id"`

	Vtable []uint64 `json:"vtable"`
}

// Common returns the shared prefix.
func (k *Klass) Common() *Klass {
	return k
}

// Record is a decoded class record. The set of implementations is closed:
// *InstanceKlass, *ObjArrayKlass and *TypeArrayKlass.
type Record interface {
	Common() *Klass
	// Size is the record's on-disk footprint in bytes.
	Size() int64
	// Fields lists the record's decoded fields in layout order.
	Fields() []Field
	record()
}

// OopMapBlock describes one run of reference fields in an instance.
type OopMapBlock struct {
	Offset uint32 `json:"offset"`
	Count  uint32 `json:"count"`
}

// InstanceStatus is the packed flags/status pair of an instance klass.
type InstanceStatus struct {
	Flags  uint16 `json:"flags"`
	Status uint8  `json:"status"`
}

// InstanceKlass is the record of an ordinary class or interface, including the
// reference, mirror, class loader and stack chunk subtypes.
type InstanceKlass struct {
	Klass

	Annotations          uint64 `json:"annotations"`
	PackageEntry         uint64 `json:"package_entry"`
	ArrayKlasses         uint64 `json:"array_klasses"`
	Constants            uint64 `json:"constants"`
	InnerClasses         uint64 `json:"inner_classes"`
	NestMembers          uint64 `json:"nest_members"`
	NestHost             uint64 `json:"nest_host"`
	PermittedSubclasses  uint64 `json:"permitted_subclasses"`
	RecordComponents     uint64 `json:"record_components"`
	SourceDebugExtension uint64 `json:"source_debug_extension"`

	NonStaticFieldSize  int32 `json:"nonstatic_field_size"`
	StaticFieldSize     int32 `json:"static_field_size"`
	NonStaticOopMapSize int32 `json:"nonstatic_oop_map_size"`
	ItableLen           int32 `json:"itable_len"`

	NestHostIndex       int16          `json:"nest_host_index"`
	ThisClassIndex      int16          `json:"this_class_index"`
	StaticOopFieldCount int16          `json:"static_oop_field_count"`
	IdnumAllocatedCount int16          `json:"idnum_allocated_count"`
	InitState           uint8          `json:"init_state"`
	ReferenceType       uint8          `json:"reference_type"`
	AccessFlags         uint16         `json:"access_flags"`
	Status              InstanceStatus `json:"status"`

	InitThread               uint64 `json:"init_thread"`
	OopMapCache              uint64 `json:"oop_map_cache"`
	JNIIDs                   uint64 `json:"jni_ids"`
	MethodsJmethodIDs        uint64 `json:"methods_jmethod_ids"`
	DepContext               uint64 `json:"dep_context"`
	DepContextLastCleaned    uint64 `json:"dep_context_last_cleaned"`
	OSRNmethodsHead          uint64 `json:"osr_nmethods_head"`
	Breakpoints              uint64 `json:"breakpoints"`
	PreviousVersions         uint64 `json:"previous_versions"`
	CachedClassFile          uint64 `json:"cached_class_file"`
	JVMTICachedClassFieldMap uint64 `json:"jvmti_cached_class_field_map"`
	Methods                  uint64 `json:"methods"`
	DefaultMethods           uint64 `json:"default_methods"`
	LocalInterfaces          uint64 `json:"local_interfaces"`
	TransitiveInterfaces     uint64 `json:"transitive_interfaces"`
	MethodOrdering           uint64 `json:"method_ordering"`
	DefaultVtableIndices     uint64 `json:"default_vtable_indices"`
	FieldInfoStream          uint64 `json:"field_info_stream"`
	FieldInfoSearchTable     uint64 `json:"field_info_search_table"`
	FieldsStatus             uint64 `json:"fields_status"`

	ITable  ITable        `json:"itable"`
	OopMaps []OopMapBlock `json:"oop_maps"`

	// Present only under a LayoutProfile that stores them.
	StaticFields []uint64 `json:"static_fields,omitempty"`
	Implementor  uint64   `json:"implementor,omitempty"`

	profile LayoutProfile
}

func (*InstanceKlass) record() {}

// IsInterface reports whether the class is an interface.
func (k *InstanceKlass) IsInterface() bool {
	return k.AccessFlags&accInterface != 0
}

// Size returns the fixed layout size plus the vtable, itable and oop map bytes.
func (k *InstanceKlass) Size() int64 {
	size := int64(InstanceKlassSize) +
		(int64(k.VtableLen)+int64(k.ItableLen)+int64(k.NonStaticOopMapSize))*8
	if k.profile.InlineStaticFields {
		size += int64(k.StaticFieldSize) * 8
	}
	if k.profile.EmbeddedImplementor && k.IsInterface() {
		size += 8
	}
	return size
}

// ArrayKlass is the block shared by both array record kinds.
type ArrayKlass struct {
	Klass

	Dimension       int32  `json:"dimension"`
	HigherDimension uint64 `json:"higher_dimension"`
	LowerDimension  uint64 `json:"lower_dimension"`
}

// ObjArrayKlass is the record of an array of references.
type ObjArrayKlass struct {
	ArrayKlass

	ElementKlass uint64 `json:"element_klass"`
	BottomKlass  uint64 `json:"bottom_klass"`
}

func (*ObjArrayKlass) record() {}

// Size returns the fixed layout size plus the vtable bytes.
func (k *ObjArrayKlass) Size() int64 {
	return ObjArrayKlassSize + int64(k.VtableLen)*vtableEntrySize
}

// TypeArrayKlass is the record of a primitive array class.
type TypeArrayKlass struct {
	ArrayKlass

	MaxLength int32 `json:"max_length"`
}

func (*TypeArrayKlass) record() {}

// Size returns the fixed layout size plus the vtable bytes.
func (k *TypeArrayKlass) Size() int64 {
	return TypeArrayKlassSize + int64(k.VtableLen)*vtableEntrySize
}

// DecodeRecord decodes the class record starting at off in the rw snapshot
// behind c. Truncation and unknown kinds are record-level noise; a layout
// violation carries the record offset.
func DecodeRecord(c *Cursor, off int64, profile LayoutProfile) (Record, error) {
	if err := c.Seek(off); err != nil {
		return nil, err
	}
	d := newDecoder(c)

	var k Klass
	k.Offset = off
	decodeKlassPrefix(d, &k)
	if d.err != nil {
		return nil, d.err
	}

	var (
		rec Record
		err error
	)
	switch {
	case k.Kind.IsInstance():
		rec, err = decodeInstanceKlass(d, k, profile)
	case k.Kind == KindObjArray:
		rec, err = decodeObjArrayKlass(d, k)
	case k.Kind == KindTypeArray:
		rec, err = decodeTypeArrayKlass(d, k)
	default:
		return nil, fmt.Errorf("record at rw+0x%x: %w: %d", off, ErrUnknownKind, k.Kind)
	}
	if err != nil {
		if le, ok := err.(*LayoutError); ok {
			le.Offset = off
		}
		return nil, err
	}
	return rec, nil
}

func decodeKlassPrefix(d *decoder, k *Klass) {
	k.VtablePtr = d.u64("vtable_ptr")
	k.LayoutHelper = d.i32("layout_helper")
	k.Kind = KlassKind(d.u16("kind"))
	k.MiscFlags = d.u8("misc_flags")
	d.pad(1)
	k.SuperCheckOffset = d.i32("super_check_offset")
	d.pad(4)
	k.NamePtr = d.u64("name")
	k.SecondarySuperCache = d.u64("secondary_super_cache")
	k.SecondarySupers = d.u64("secondary_supers")
	for i := range k.PrimarySupers {
		k.PrimarySupers[i] = d.u64("primary_supers")
	}
	k.JavaMirror = d.u64("java_mirror")
	k.Super = d.u64("super")
	k.Subklass = d.u64("subklass")
	k.NextSibling = d.u64("next_sibling")
	k.NextLink = d.u64("next_link")
	k.ClassLoaderData = d.u64("class_loader_data")
	k.PrototypeHeader = d.u64("prototype_header")
	k.SecondarySupersBitmap = d.u64("secondary_supers_bitmap")
	k.HashSlot = d.u8("hash_slot")
	k.SharedClassPathIndex = d.i16("shared_class_path_index")
	k.AOTClassFlags = d.i16("aot_class_flags")
	d.pad(3)
	k.VtableLen = d.i32("vtable_len")
	k.ArchivedMirrorIndex = d.i32("archived_mirror_index")
	k.TraceID = d.u64("trace_id")
}

// words reads n consecutive u64 values, checking the count against the bytes
// left before allocating.
func (d *decoder) words(field string, n int64) []uint64 {
	if d.err != nil {
		return nil
	}
	if n < 0 {
		d.err = &LayoutError{Field: field, Detail: fmt.Sprintf("negative length %d", n)}
		return nil
	}
	if n*8 > d.c.Remaining() {
		d.fail(field, &TruncationError{Offset: d.c.Pos(), Need: n * 8, Have: d.c.Remaining()})
		return nil
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = d.u64(field)
	}
	return out
}

func decodeVtable(d *decoder, k *Klass) {
	k.Vtable = d.words("vtable", int64(k.VtableLen))
}

func decodeInstanceKlass(d *decoder, k Klass, profile LayoutProfile) (*InstanceKlass, error) {
	ik := &InstanceKlass{Klass: k, profile: profile}

	ik.Annotations = d.u64("annotations")
	ik.PackageEntry = d.u64("package_entry")
	ik.ArrayKlasses = d.u64("array_klasses")
	ik.Constants = d.u64("constants")
	ik.InnerClasses = d.u64("inner_classes")
	ik.NestMembers = d.u64("nest_members")
	ik.NestHost = d.u64("nest_host")
	ik.PermittedSubclasses = d.u64("permitted_subclasses")
	ik.RecordComponents = d.u64("record_components")
	ik.SourceDebugExtension = d.u64("source_debug_extension")

	ik.NonStaticFieldSize = d.i32("nonstatic_field_size")
	ik.StaticFieldSize = d.i32("static_field_size")
	ik.NonStaticOopMapSize = d.i32("nonstatic_oop_map_size")
	ik.ItableLen = d.i32("itable_len")

	ik.NestHostIndex = d.i16("nest_host_index")
	ik.ThisClassIndex = d.i16("this_class_index")
	ik.StaticOopFieldCount = d.i16("static_oop_field_count")
	ik.IdnumAllocatedCount = d.i16("idnum_allocated_count")
	ik.InitState = d.u8("init_state")
	ik.ReferenceType = d.u8("reference_type")
	ik.AccessFlags = d.u16("access_flags")
	ik.Status.Flags = d.u16("misc_flags.flags")
	ik.Status.Status = d.u8("misc_flags.status")
	d.pad(1)

	ik.InitThread = d.u64("init_thread")
	ik.OopMapCache = d.u64("oop_map_cache")
	ik.JNIIDs = d.u64("jni_ids")
	ik.MethodsJmethodIDs = d.u64("methods_jmethod_ids")
	ik.DepContext = d.u64("dep_context")
	ik.DepContextLastCleaned = d.u64("dep_context_last_cleaned")
	ik.OSRNmethodsHead = d.u64("osr_nmethods_head")
	ik.Breakpoints = d.u64("breakpoints")
	ik.PreviousVersions = d.u64("previous_versions")
	ik.CachedClassFile = d.u64("cached_class_file")
	ik.JVMTICachedClassFieldMap = d.u64("jvmti_cached_class_field_map")
	ik.Methods = d.u64("methods")
	ik.DefaultMethods = d.u64("default_methods")
	ik.LocalInterfaces = d.u64("local_interfaces")
	ik.TransitiveInterfaces = d.u64("transitive_interfaces")
	ik.MethodOrdering = d.u64("method_ordering")
	ik.DefaultVtableIndices = d.u64("default_vtable_indices")
	ik.FieldInfoStream = d.u64("field_info_stream")
	ik.FieldInfoSearchTable = d.u64("field_info_search_table")
	ik.FieldsStatus = d.u64("fields_status")

	decodeVtable(d, &ik.Klass)
	if d.err != nil {
		return nil, d.err
	}

	it, err := decodeITable(d, int64(ik.ItableLen)*8)
	if err != nil {
		return nil, err
	}
	ik.ITable = it

	if profile.InlineStaticFields {
		ik.StaticFields = d.words("static_fields", int64(ik.StaticFieldSize))
	}

	ik.OopMaps = decodeOopMaps(d, int64(ik.NonStaticOopMapSize))

	if profile.EmbeddedImplementor && ik.IsInterface() {
		ik.Implementor = d.u64("implementor")
	}
	if d.err != nil {
		return nil, d.err
	}
	return ik, nil
}

func decodeOopMaps(d *decoder, n int64) []OopMapBlock {
	if d.err != nil {
		return nil
	}
	if n < 0 {
		d.err = &LayoutError{Field: "nonstatic_oop_map_size", Detail: fmt.Sprintf("negative length %d", n)}
		return nil
	}
	if n*oopMapBlockSize > d.c.Remaining() {
		d.fail("oop_maps", &TruncationError{Offset: d.c.Pos(), Need: n * oopMapBlockSize, Have: d.c.Remaining()})
		return nil
	}
	out := make([]OopMapBlock, n)
	for i := range out {
		out[i].Offset = d.u32("oop_map.offset")
		out[i].Count = d.u32("oop_map.count")
	}
	return out
}

func decodeArrayKlass(d *decoder, a *ArrayKlass) {
	a.Dimension = d.i32("dimension")
	d.pad(4)
	a.HigherDimension = d.u64("higher_dimension")
	a.LowerDimension = d.u64("lower_dimension")
}

func decodeObjArrayKlass(d *decoder, k Klass) (*ObjArrayKlass, error) {
	ak := &ObjArrayKlass{ArrayKlass: ArrayKlass{Klass: k}}
	decodeArrayKlass(d, &ak.ArrayKlass)
	ak.ElementKlass = d.u64("element_klass")
	ak.BottomKlass = d.u64("bottom_klass")
	decodeVtable(d, &ak.Klass)
	if d.err != nil {
		return nil, d.err
	}
	return ak, nil
}

func decodeTypeArrayKlass(d *decoder, k Klass) (*TypeArrayKlass, error) {
	tk := &TypeArrayKlass{ArrayKlass: ArrayKlass{Klass: k}}
	decodeArrayKlass(d, &tk.ArrayKlass)
	tk.MaxLength = d.i32("max_length")
	d.pad(4)
	decodeVtable(d, &tk.Klass)
	if d.err != nil {
		return nil, d.err
	}
	return tk, nil
}
