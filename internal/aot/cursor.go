package aot

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Cursor provides positioned little-endian reads over a random-access source.
// It is stateful: every read advances the position. Callers that need to look
// elsewhere and come back use Peek.
type Cursor struct {
	r    io.ReaderAt
	size int64
	pos  int64
	buf  [8]byte
}

// NewCursor creates a cursor over r, which holds size bytes.
func NewCursor(r io.ReaderAt, size int64) *Cursor {
	return &Cursor{r: r, size: size}
}

// Pos returns the current absolute position.
func (c *Cursor) Pos() int64 {
	return c.pos
}

// Len returns the total length of the source.
func (c *Cursor) Len() int64 {
	return c.size
}

// Remaining returns the number of bytes between the position and the end.
func (c *Cursor) Remaining() int64 {
	if c.pos >= c.size {
		return 0
	}
	return c.size - c.pos
}

// Seek moves to an absolute position. Seeking to the end is allowed.
func (c *Cursor) Seek(off int64) error {
	if off < 0 || off > c.size {
		return &TruncationError{Offset: off, Need: 0, Have: c.size}
	}
	c.pos = off
	return nil
}

// Skip advances the position by n bytes.
func (c *Cursor) Skip(n int64) error {
	if n < 0 {
		return fmt.Errorf("negative skip %d at offset %d", n, c.pos)
	}
	if n > c.Remaining() {
		return &TruncationError{Offset: c.pos, Need: n, Have: c.Remaining()}
	}
	c.pos += n
	return nil
}

// Peek runs fn with the cursor positioned at off and restores the previous
// position afterwards, whatever fn returns.
func (c *Cursor) Peek(off int64, fn func(*Cursor) error) error {
	saved := c.pos
	defer func() { c.pos = saved }()

	if err := c.Seek(off); err != nil {
		return err
	}
	return fn(c)
}

// fill reads exactly len(p) bytes at the position.
func (c *Cursor) fill(p []byte) error {
	n := int64(len(p))
	if n > c.Remaining() {
		return &TruncationError{Offset: c.pos, Need: n, Have: c.Remaining()}
	}
	if _, err := c.r.ReadAt(p, c.pos); err != nil {
		if err == io.EOF {
			return &TruncationError{Offset: c.pos, Need: n, Have: c.Remaining()}
		}
		return fmt.Errorf("read at offset %d: %w", c.pos, err)
	}
	c.pos += n
	return nil
}

// Bytes reads n bytes into a new slice.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d at offset %d", n, c.pos)
	}
	if int64(n) > c.Remaining() {
		return nil, &TruncationError{Offset: c.pos, Need: int64(n), Have: c.Remaining()}
	}
	p := make([]byte, n)
	if err := c.fill(p); err != nil {
		return nil, err
	}
	return p, nil
}

// U8 reads an unsigned byte.
func (c *Cursor) U8() (uint8, error) {
	if err := c.fill(c.buf[:1]); err != nil {
		return 0, err
	}
	return c.buf[0], nil
}

// Bool reads one byte; any nonzero value is true.
func (c *Cursor) Bool() (bool, error) {
	b, err := c.U8()
	return b != 0, err
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	if err := c.fill(c.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(c.buf[:2]), nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	if err := c.fill(c.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(c.buf[:4]), nil
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	if err := c.fill(c.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(c.buf[:8]), nil
}

// I8 reads a signed byte.
func (c *Cursor) I8() (int8, error) {
	v, err := c.U8()
	return int8(v), err
}

// I16 reads a little-endian int16.
func (c *Cursor) I16() (int16, error) {
	v, err := c.U16()
	return int16(v), err
}

// I32 reads a little-endian int32.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// I64 reads a little-endian int64.
func (c *Cursor) I64() (int64, error) {
	v, err := c.U64()
	return int64(v), err
}

// decoder layers a sticky error over a Cursor so a long, fixed field sequence
// reads as straight-line code. After the first failure every read is a no-op
// returning zero, and err names the field that failed.
type decoder struct {
	c   *Cursor
	err error
}

func newDecoder(c *Cursor) *decoder {
	return &decoder{c: c}
}

func (d *decoder) fail(field string, err error) {
	if d.err != nil {
		return
	}
	if te, ok := err.(*TruncationError); ok && te.Field == "" {
		te.Field = field
	}
	d.err = err
}

func (d *decoder) u8(field string) uint8 {
	if d.err != nil {
		return 0
	}
	v, err := d.c.U8()
	if err != nil {
		d.fail(field, err)
	}
	return v
}

func (d *decoder) i8(field string) int8 {
	return int8(d.u8(field))
}

func (d *decoder) boolean(field string) bool {
	return d.u8(field) != 0
}

func (d *decoder) u16(field string) uint16 {
	if d.err != nil {
		return 0
	}
	v, err := d.c.U16()
	if err != nil {
		d.fail(field, err)
	}
	return v
}

func (d *decoder) i16(field string) int16 {
	return int16(d.u16(field))
}

func (d *decoder) u32(field string) uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.c.U32()
	if err != nil {
		d.fail(field, err)
	}
	return v
}

func (d *decoder) i32(field string) int32 {
	return int32(d.u32(field))
}

func (d *decoder) u64(field string) uint64 {
	if d.err != nil {
		return 0
	}
	v, err := d.c.U64()
	if err != nil {
		d.fail(field, err)
	}
	return v
}

func (d *decoder) i64(field string) int64 {
	return int64(d.u64(field))
}

func (d *decoder) bytes(field string, n int) []byte {
	if d.err != nil {
		return nil
	}
	v, err := d.c.Bytes(n)
	if err != nil {
		d.fail(field, err)
	}
	return v
}

// pad skips n bytes of alignment padding.
func (d *decoder) pad(n int64) {
	if d.err != nil {
		return
	}
	if err := d.c.Skip(n); err != nil {
		d.fail("padding", err)
	}
}
