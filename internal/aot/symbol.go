package aot

import (
	"strings"
	"unicode/utf8"
)

// SymbolResolver maps name pointers to the symbols they address. Pointers are
// relative to the cache's requested base address and resolve against the
// whole file.
type SymbolResolver struct {
	c    *Cursor
	base uint64
}

// NewSymbolResolver creates a resolver over the file behind c.
func NewSymbolResolver(c *Cursor, base uint64) *SymbolResolver {
	return &SymbolResolver{c: c, base: base}
}

// Offset normalizes ptr to a file offset. ok is false when the offset falls
// outside the file.
func (r *SymbolResolver) Offset(ptr uint64) (off int64, ok bool) {
	if ptr < r.base {
		return 0, false
	}
	rel := ptr - r.base
	if rel >= uint64(r.c.Len()) {
		return 0, false
	}
	return int64(rel), true
}

// Resolve returns the symbol text ptr refers to. An out-of-range pointer is
// not an error: it returns ok=false. A symbol whose body runs past the end of
// the file returns a truncation error. The cursor position is unchanged on
// return.
func (r *SymbolResolver) Resolve(ptr uint64) (name string, ok bool, err error) {
	off, ok := r.Offset(ptr)
	if !ok {
		return "", false, nil
	}

	err = r.c.Peek(off, func(c *Cursor) error {
		d := newDecoder(c)
		d.pad(4) // hash and refcount
		n := d.u16("symbol.length")
		body := d.bytes("symbol.body", int(n))
		if d.err != nil {
			return d.err
		}
		name = decodeModifiedUTF8(body)
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// decodeModifiedUTF8 decodes a symbol body in the VM's modified UTF-8: NUL is
// stored as C0 80 and supplementary characters as a pair of three-byte
// surrogates. Malformed bytes become U+FFFD.
func decodeModifiedUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b))
	for i := 0; i < len(b); {
		r, n := modifiedRune(b[i:])
		if isHighSurrogate(r) {
			if lo, m := modifiedRune(b[i+n:]); isLowSurrogate(lo) {
				r = 0x10000 + (r-0xd800)<<10 + (lo - 0xdc00)
				n += m
			} else {
				r = utf8.RuneError
			}
		} else if isLowSurrogate(r) {
			r = utf8.RuneError
		}
		sb.WriteRune(r)
		i += n
	}
	return sb.String()
}

// modifiedRune decodes one one-, two- or three-byte sequence, keeping
// surrogate halves and the overlong NUL that strict UTF-8 rejects. Anything
// else falls back to the standard decoder.
func modifiedRune(b []byte) (rune, int) {
	if len(b) == 0 {
		return utf8.RuneError, 0
	}
	c0 := b[0]
	switch {
	case c0 < 0x80:
		return rune(c0), 1
	case c0&0xe0 == 0xc0 && len(b) >= 2 && b[1]&0xc0 == 0x80:
		return rune(c0&0x1f)<<6 | rune(b[1]&0x3f), 2
	case c0&0xf0 == 0xe0 && len(b) >= 3 && b[1]&0xc0 == 0x80 && b[2]&0xc0 == 0x80:
		return rune(c0&0x0f)<<12 | rune(b[1]&0x3f)<<6 | rune(b[2]&0x3f), 3
	}
	return utf8.DecodeRune(b)
}

func isHighSurrogate(r rune) bool { return r >= 0xd800 && r < 0xdc00 }
func isLowSurrogate(r rune) bool  { return r >= 0xdc00 && r < 0xe000 }
