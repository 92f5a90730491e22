package aot

import (
	"fmt"
	"strconv"
	"strings"
)

// Field is one named, formatted value of a decoded structure.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Section groups the fields of one header part.
type Section struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// fieldDef binds a field name to the accessor that formats it.
type fieldDef[T any] struct {
	name   string
	format func(T) string
}

func render[T any](defs []fieldDef[T], v T) []Field {
	out := make([]Field, 0, len(defs))
	for _, def := range defs {
		out = append(out, Field{Name: def.name, Value: def.format(v)})
	}
	return out
}

func hex[N ~uint8 | ~uint16 | ~uint32 | ~uint64](v N) string {
	return "0x" + strconv.FormatUint(uint64(v), 16)
}

func dec[N ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64](v N) string {
	return fmt.Sprint(v)
}

func flag(v bool) string {
	return strconv.FormatBool(v)
}

func hexList(vs []uint64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = hex(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

var genericHeaderFields = []fieldDef[*GenericHeader]{
	{"magic", func(g *GenericHeader) string { return hex(g.Magic) }},
	{"crc", func(g *GenericHeader) string { return hex(g.CRC) }},
	{"version", func(g *GenericHeader) string { return hex(g.Version) }},
	{"header_size", func(g *GenericHeader) string { return dec(g.HeaderSize) }},
	{"base_archive_name_offset", func(g *GenericHeader) string { return dec(g.BaseArchiveNameOffset) }},
	{"base_archive_name_size", func(g *GenericHeader) string { return dec(g.BaseArchiveNameSize) }},
}

var regionFields = []fieldDef[*RegionDescriptor]{
	{"crc", func(r *RegionDescriptor) string { return dec(r.CRC) }},
	{"read_only", func(r *RegionDescriptor) string { return dec(r.ReadOnly) }},
	{"allow_exec", func(r *RegionDescriptor) string { return dec(r.AllowExec) }},
	{"is_heap_region", func(r *RegionDescriptor) string { return dec(r.IsHeapRegion) }},
	{"is_bitmap_region", func(r *RegionDescriptor) string { return dec(r.IsBitmapRegion) }},
	{"mapped_from_file", func(r *RegionDescriptor) string { return dec(r.MappedFromFile) }},
	{"file_offset", func(r *RegionDescriptor) string { return hex(r.FileOffset) }},
	{"mapping_offset", func(r *RegionDescriptor) string { return hex(r.MappingOffset) }},
	{"used", func(r *RegionDescriptor) string { return hex(r.Used) }},
	{"oopmap_offset", func(r *RegionDescriptor) string { return hex(r.OopmapOffset) }},
	{"oopmap_size_in_bits", func(r *RegionDescriptor) string { return hex(r.OopmapSizeInBits) }},
	{"ptrmap_offset", func(r *RegionDescriptor) string { return hex(r.PtrmapOffset) }},
	{"ptrmap_size_in_bits", func(r *RegionDescriptor) string { return hex(r.PtrmapSizeInBits) }},
}

var fileMapFields = []fieldDef[*FileMapHeader]{
	{"core_region_alignment", func(f *FileMapHeader) string { return hex(f.CoreRegionAlignment) }},
	{"obj_alignment", func(f *FileMapHeader) string { return dec(f.ObjAlignment) }},
	{"narrow_oop_base", func(f *FileMapHeader) string { return hex(f.NarrowOopBase) }},
	{"narrow_oop_shift", func(f *FileMapHeader) string { return dec(f.NarrowOopShift) }},
	{"compact_strings", func(f *FileMapHeader) string { return flag(f.CompactStrings) }},
	{"compact_headers", func(f *FileMapHeader) string { return flag(f.CompactHeaders) }},
	{"max_heap_size", func(f *FileMapHeader) string { return hex(f.MaxHeapSize) }},
	{"narrow_oop_mode", func(f *FileMapHeader) string { return dec(f.NarrowOopMode) }},
	{"object_streaming_mode", func(f *FileMapHeader) string { return flag(f.ObjectStreamingMode) }},
	{"compressed_oops", func(f *FileMapHeader) string { return flag(f.CompressedOops) }},
	{"compressed_class_pointers", func(f *FileMapHeader) string { return flag(f.CompressedClassPointers) }},
	{"narrow_klass_pointer_bits", func(f *FileMapHeader) string { return dec(f.NarrowKlassPointerBits) }},
	{"narrow_klass_shift", func(f *FileMapHeader) string { return dec(f.NarrowKlassShift) }},
	{"cloned_vtables_offset", func(f *FileMapHeader) string { return hex(f.ClonedVtablesOffset) }},
	{"early_serialized_data_offset", func(f *FileMapHeader) string { return hex(f.EarlySerializedDataOffset) }},
	{"serialized_data_offset", func(f *FileMapHeader) string { return hex(f.SerializedDataOffset) }},
	{"jvm_ident", func(f *FileMapHeader) string { return f.JVMIdent }},
	{"class_location_config_offset", func(f *FileMapHeader) string { return hex(f.ClassLocationConfigOffset) }},
	{"verify_local", func(f *FileMapHeader) string { return flag(f.VerifyLocal) }},
	{"verify_remote", func(f *FileMapHeader) string { return flag(f.VerifyRemote) }},
	{"has_platform_or_app_classes", func(f *FileMapHeader) string { return flag(f.HasPlatformOrAppClasses) }},
	{"requested_base_address", func(f *FileMapHeader) string { return hex(f.RequestedBaseAddress) }},
	{"mapped_base_address", func(f *FileMapHeader) string { return hex(f.MappedBaseAddress) }},
	{"use_optimized_module_handling", func(f *FileMapHeader) string { return flag(f.UseOptimizedModuleHandling) }},
	{"has_aot_linked_classes", func(f *FileMapHeader) string { return flag(f.HasAOTLinkedClasses) }},
	{"has_full_module_graph", func(f *FileMapHeader) string { return flag(f.HasFullModuleGraph) }},
	{"rw_ptrmap_start_pos", func(f *FileMapHeader) string { return hex(f.RWPtrmapStartPos) }},
	{"ro_ptrmap_start_pos", func(f *FileMapHeader) string { return hex(f.ROPtrmapStartPos) }},
	{"mapped_heap.ptrmap_start_pos", func(f *FileMapHeader) string { return hex(f.MappedHeap.PtrmapStartPos) }},
	{"mapped_heap.oopmap_start_pos", func(f *FileMapHeader) string { return hex(f.MappedHeap.OopmapStartPos) }},
	{"mapped_heap.root_segments.base_offset", func(f *FileMapHeader) string { return hex(f.MappedHeap.RootSegments.BaseOffset) }},
	{"mapped_heap.root_segments.count", func(f *FileMapHeader) string { return hex(f.MappedHeap.RootSegments.Count) }},
	{"mapped_heap.root_segments.roots_count", func(f *FileMapHeader) string { return dec(f.MappedHeap.RootSegments.RootsCount) }},
	{"mapped_heap.root_segments.max_size_in_bytes", func(f *FileMapHeader) string { return dec(f.MappedHeap.RootSegments.MaxSizeInBytes) }},
	{"mapped_heap.root_segments.max_size_in_elems", func(f *FileMapHeader) string { return dec(f.MappedHeap.RootSegments.MaxSizeInElems) }},
	{"streamed_heap.forwarding_offset", func(f *FileMapHeader) string { return hex(f.StreamedHeap.ForwardingOffset) }},
	{"streamed_heap.roots_offset", func(f *FileMapHeader) string { return hex(f.StreamedHeap.RootsOffset) }},
	{"streamed_heap.num_roots", func(f *FileMapHeader) string { return hex(f.StreamedHeap.NumRoots) }},
	{"streamed_heap.root_highest_object_index_table_offset", func(f *FileMapHeader) string {
		return hex(f.StreamedHeap.RootHighestObjectIndexTableOffset)
	}},
	{"streamed_heap.num_archived_objects", func(f *FileMapHeader) string { return hex(f.StreamedHeap.NumArchivedObjects) }},
	{"type_profile_level", func(f *FileMapHeader) string { return dec(f.Profiling.TypeProfileLevel) }},
	{"type_profile_args_limit", func(f *FileMapHeader) string { return dec(f.Profiling.TypeProfileArgsLimit) }},
	{"type_profile_parms_limit", func(f *FileMapHeader) string { return dec(f.Profiling.TypeProfileParmsLimit) }},
	{"type_profile_width", func(f *FileMapHeader) string { return dec(f.Profiling.TypeProfileWidth) }},
	{"bci_profile_width", func(f *FileMapHeader) string { return dec(f.Profiling.BCIProfileWidth) }},
	{"profile_traps", func(f *FileMapHeader) string { return flag(f.Profiling.ProfileTraps) }},
	{"type_profile_casts", func(f *FileMapHeader) string { return flag(f.Profiling.TypeProfileCasts) }},
	{"spec_trap_limit_extra_entries", func(f *FileMapHeader) string { return dec(f.Profiling.SpecTrapLimitExtraEntries) }},
}

// Sections returns the header as titled field groups in file order.
func (h *Header) Sections() []Section {
	out := make([]Section, 0, 2+NumRegions)
	out = append(out, Section{Title: "GenericHeader", Fields: render(genericHeaderFields, &h.Generic)})
	for i := range h.Regions {
		out = append(out, Section{
			Title:  fmt.Sprintf("Region %d (%s)", i, RegionKind(i)),
			Fields: render(regionFields, &h.Regions[i]),
		})
	}
	out = append(out, Section{Title: "FileMapHeader", Fields: render(fileMapFields, &h.FileMap)})
	return out
}

var klassFields = []fieldDef[*Klass]{
	{"vtable_ptr", func(k *Klass) string { return hex(k.VtablePtr) }},
	{"layout_helper", func(k *Klass) string { return dec(k.LayoutHelper) }},
	{"kind", func(k *Klass) string { return k.Kind.String() }},
	{"misc_flags", func(k *Klass) string { return hex(k.MiscFlags) }},
	{"super_check_offset", func(k *Klass) string { return dec(k.SuperCheckOffset) }},
	{"name", func(k *Klass) string { return hex(k.NamePtr) }},
	{"secondary_super_cache", func(k *Klass) string { return hex(k.SecondarySuperCache) }},
	{"secondary_supers", func(k *Klass) string { return hex(k.SecondarySupers) }},
	{"primary_supers", func(k *Klass) string { return hexList(k.PrimarySupers[:]) }},
	{"java_mirror", func(k *Klass) string { return hex(k.JavaMirror) }},
	{"super", func(k *Klass) string { return hex(k.Super) }},
	{"subklass", func(k *Klass) string { return hex(k.Subklass) }},
	{"next_sibling", func(k *Klass) string { return hex(k.NextSibling) }},
	{"next_link", func(k *Klass) string { return hex(k.NextLink) }},
	{"class_loader_data", func(k *Klass) string { return hex(k.ClassLoaderData) }},
	{"prototype_header", func(k *Klass) string { return hex(k.PrototypeHeader) }},
	{"secondary_supers_bitmap", func(k *Klass) string { return hex(k.SecondarySupersBitmap) }},
	{"hash_slot", func(k *Klass) string { return dec(k.HashSlot) }},
	{"shared_class_path_index", func(k *Klass) string { return dec(k.SharedClassPathIndex) }},
	{"aot_class_flags", func(k *Klass) string { return dec(k.AOTClassFlags) }},
	{"vtable_len", func(k *Klass) string { return dec(k.VtableLen) }},
	{"archived_mirror_index", func(k *Klass) string { return dec(k.ArchivedMirrorIndex) }},
	{"trace_id", func(k *Klass) string { return hex(k.TraceID) }},
}

var instanceKlassFields = []fieldDef[*InstanceKlass]{
	{"annotations", func(k *InstanceKlass) string { return hex(k.Annotations) }},
	{"package_entry", func(k *InstanceKlass) string { return hex(k.PackageEntry) }},
	{"array_klasses", func(k *InstanceKlass) string { return hex(k.ArrayKlasses) }},
	{"constants", func(k *InstanceKlass) string { return hex(k.Constants) }},
	{"inner_classes", func(k *InstanceKlass) string { return hex(k.InnerClasses) }},
	{"nest_members", func(k *InstanceKlass) string { return hex(k.NestMembers) }},
	{"nest_host", func(k *InstanceKlass) string { return hex(k.NestHost) }},
	{"permitted_subclasses", func(k *InstanceKlass) string { return hex(k.PermittedSubclasses) }},
	{"record_components", func(k *InstanceKlass) string { return hex(k.RecordComponents) }},
	{"source_debug_extension", func(k *InstanceKlass) string { return hex(k.SourceDebugExtension) }},
	{"nonstatic_field_size", func(k *InstanceKlass) string { return dec(k.NonStaticFieldSize) }},
	{"static_field_size", func(k *InstanceKlass) string { return dec(k.StaticFieldSize) }},
	{"nonstatic_oop_map_size", func(k *InstanceKlass) string { return dec(k.NonStaticOopMapSize) }},
	{"itable_len", func(k *InstanceKlass) string { return dec(k.ItableLen) }},
	{"nest_host_index", func(k *InstanceKlass) string { return dec(k.NestHostIndex) }},
	{"this_class_index", func(k *InstanceKlass) string { return dec(k.ThisClassIndex) }},
	{"static_oop_field_count", func(k *InstanceKlass) string { return dec(k.StaticOopFieldCount) }},
	{"idnum_allocated_count", func(k *InstanceKlass) string { return dec(k.IdnumAllocatedCount) }},
	{"init_state", func(k *InstanceKlass) string { return dec(k.InitState) }},
	{"reference_type", func(k *InstanceKlass) string { return dec(k.ReferenceType) }},
	{"access_flags", func(k *InstanceKlass) string { return hex(k.AccessFlags) }},
	{"is_interface", func(k *InstanceKlass) string { return flag(k.IsInterface()) }},
	{"misc_flags.flags", func(k *InstanceKlass) string { return hex(k.Status.Flags) }},
	{"misc_flags.status", func(k *InstanceKlass) string { return hex(k.Status.Status) }},
	{"init_thread", func(k *InstanceKlass) string { return hex(k.InitThread) }},
	{"oop_map_cache", func(k *InstanceKlass) string { return hex(k.OopMapCache) }},
	{"jni_ids", func(k *InstanceKlass) string { return hex(k.JNIIDs) }},
	{"methods_jmethod_ids", func(k *InstanceKlass) string { return hex(k.MethodsJmethodIDs) }},
	{"dep_context", func(k *InstanceKlass) string { return hex(k.DepContext) }},
	{"dep_context_last_cleaned", func(k *InstanceKlass) string { return hex(k.DepContextLastCleaned) }},
	{"osr_nmethods_head", func(k *InstanceKlass) string { return hex(k.OSRNmethodsHead) }},
	{"breakpoints", func(k *InstanceKlass) string { return hex(k.Breakpoints) }},
	{"previous_versions", func(k *InstanceKlass) string { return hex(k.PreviousVersions) }},
	{"cached_class_file", func(k *InstanceKlass) string { return hex(k.CachedClassFile) }},
	{"jvmti_cached_class_field_map", func(k *InstanceKlass) string { return hex(k.JVMTICachedClassFieldMap) }},
	{"methods", func(k *InstanceKlass) string { return hex(k.Methods) }},
	{"default_methods", func(k *InstanceKlass) string { return hex(k.DefaultMethods) }},
	{"local_interfaces", func(k *InstanceKlass) string { return hex(k.LocalInterfaces) }},
	{"transitive_interfaces", func(k *InstanceKlass) string { return hex(k.TransitiveInterfaces) }},
	{"method_ordering", func(k *InstanceKlass) string { return hex(k.MethodOrdering) }},
	{"default_vtable_indices", func(k *InstanceKlass) string { return hex(k.DefaultVtableIndices) }},
	{"field_info_stream", func(k *InstanceKlass) string { return hex(k.FieldInfoStream) }},
	{"field_info_search_table", func(k *InstanceKlass) string { return hex(k.FieldInfoSearchTable) }},
	{"fields_status", func(k *InstanceKlass) string { return hex(k.FieldsStatus) }},
	{"vtable", func(k *InstanceKlass) string { return hexList(k.Vtable) }},
	{"itable.interfaces", func(k *InstanceKlass) string { return formatInterfaces(k.ITable.Interfaces) }},
	{"itable.methods", func(k *InstanceKlass) string { return hexList(k.ITable.Methods) }},
	{"oop_maps", func(k *InstanceKlass) string { return formatOopMaps(k.OopMaps) }},
}

var arrayKlassFields = []fieldDef[*ArrayKlass]{
	{"dimension", func(a *ArrayKlass) string { return dec(a.Dimension) }},
	{"higher_dimension", func(a *ArrayKlass) string { return hex(a.HigherDimension) }},
	{"lower_dimension", func(a *ArrayKlass) string { return hex(a.LowerDimension) }},
}

var objArrayKlassFields = []fieldDef[*ObjArrayKlass]{
	{"element_klass", func(k *ObjArrayKlass) string { return hex(k.ElementKlass) }},
	{"bottom_klass", func(k *ObjArrayKlass) string { return hex(k.BottomKlass) }},
	{"vtable", func(k *ObjArrayKlass) string { return hexList(k.Vtable) }},
}

var typeArrayKlassFields = []fieldDef[*TypeArrayKlass]{
	{"max_length", func(k *TypeArrayKlass) string { return dec(k.MaxLength) }},
	{"vtable", func(k *TypeArrayKlass) string { return hexList(k.Vtable) }},
}

func formatInterfaces(entries []InterfaceEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("{klass: %s, offset: %d}", hex(e.Klass), e.Offset)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatOopMaps(blocks []OopMapBlock) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = fmt.Sprintf("{offset: %d, count: %d}", b.Offset, b.Count)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Fields lists the common prefix followed by the instance block and trailing
// sections.
func (k *InstanceKlass) Fields() []Field {
	out := render(klassFields, &k.Klass)
	out = append(out, render(instanceKlassFields, k)...)
	if k.profile.InlineStaticFields {
		out = append(out, Field{Name: "static_fields", Value: hexList(k.StaticFields)})
	}
	if k.profile.EmbeddedImplementor && k.IsInterface() {
		out = append(out, Field{Name: "implementor", Value: hex(k.Implementor)})
	}
	return out
}

// Fields lists the common prefix, the array block and the object array fields.
func (k *ObjArrayKlass) Fields() []Field {
	out := render(klassFields, &k.Klass)
	out = append(out, render(arrayKlassFields, &k.ArrayKlass)...)
	return append(out, render(objArrayKlassFields, k)...)
}

// Fields lists the common prefix, the array block and the type array fields.
func (k *TypeArrayKlass) Fields() []Field {
	out := render(klassFields, &k.Klass)
	out = append(out, render(arrayKlassFields, &k.ArrayKlass)...)
	return append(out, render(typeArrayKlassFields, k)...)
}
