package aot

import (
	"encoding/binary"
	"sort"
)

// Signature deltas: the compiler-emitted vtable address of each klass subtype,
// relative to the requested base address.
const (
	deltaInstanceKlass    uint64 = 0x1080
	deltaObjArrayKlass    uint64 = 0x18f0
	deltaTypeArrayKlass   uint64 = 0x1a60
	deltaMirrorKlass      uint64 = 0x1350
	deltaStackChunkKlass  uint64 = 0x1620
	deltaRefKlass         uint64 = 0x14b8
	deltaClassLoaderKlass uint64 = 0x11e8
)

// SignatureKind names the klass subtype a vtable signature belongs to.
type SignatureKind int

const (
	SigInstance SignatureKind = iota
	SigObjArray
	SigTypeArray
	SigMirror
	SigStackChunk
	SigReference
	SigClassLoader
)

func (k SignatureKind) String() string {
	switch k {
	case SigInstance:
		return "InstanceKlass"
	case SigObjArray:
		return "ObjArrayKlass"
	case SigTypeArray:
		return "TypeArrayKlass"
	case SigMirror:
		return "InstanceMirrorKlass"
	case SigStackChunk:
		return "InstanceStackChunkKlass"
	case SigReference:
		return "InstanceRefKlass"
	case SigClassLoader:
		return "InstanceClassLoaderKlass"
	default:
		return "UnknownKlass"
	}
}

// Signatures maps each of the seven vtable pointer values to its subtype.
type Signatures map[uint64]SignatureKind

// SignaturesFor builds the signature set for a cache mapped at base.
func SignaturesFor(base uint64) Signatures {
	return Signatures{
		base + deltaInstanceKlass:    SigInstance,
		base + deltaObjArrayKlass:    SigObjArray,
		base + deltaTypeArrayKlass:   SigTypeArray,
		base + deltaMirrorKlass:      SigMirror,
		base + deltaStackChunkKlass:  SigStackChunk,
		base + deltaRefKlass:         SigReference,
		base + deltaClassLoaderKlass: SigClassLoader,
	}
}

// Values returns the signature pointer values in ascending order.
func (s Signatures) Values() []uint64 {
	out := make([]uint64, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Candidate is a possible class record start inside the rw snapshot.
type Candidate struct {
	Offset    int64
	Signature SignatureKind
}

// Scan slides an 8-byte aligned window over data and returns every offset
// whose word matches a signature. Only full words are examined; nothing past
// len(data) is read.
func Scan(data []byte, sigs Signatures) []Candidate {
	var out []Candidate
	for off := 0; off+8 <= len(data); off += 8 {
		word := binary.LittleEndian.Uint64(data[off : off+8])
		if kind, ok := sigs[word]; ok {
			out = append(out, Candidate{Offset: int64(off), Signature: kind})
		}
	}
	return out
}
