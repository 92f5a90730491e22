package aot

import "fmt"

const itableEntrySize = 16

// InterfaceEntry is one (interface klass, method block offset) pair of an itable.
type InterfaceEntry struct {
	Klass  uint64 `json:"klass"`
	Offset uint32 `json:"offset"`
}

// ITable is an instance klass's interface table: the interface entries
// followed by the flat array of implementing method slots.
type ITable struct {
	Interfaces []InterfaceEntry `json:"interfaces"`
	Methods    []uint64         `json:"methods"`
}

// decodeITable reads an itable occupying budget bytes. Interface entries are
// read while at least one full entry fits and the next class pointer is
// non-null; what is left of the budget must be whole 8-byte method slots.
func decodeITable(d *decoder, budget int64) (ITable, error) {
	var it ITable
	if d.err != nil {
		return it, d.err
	}
	if budget < 0 {
		return it, &LayoutError{Field: "itable_len", Detail: fmt.Sprintf("negative itable byte budget %d", budget)}
	}

	for budget >= itableEntrySize {
		var klass uint64
		err := d.c.Peek(d.c.Pos(), func(c *Cursor) error {
			var err error
			klass, err = c.U64()
			return err
		})
		if err != nil {
			d.fail("itable.interface_klass", err)
			return it, d.err
		}
		if klass == 0 {
			break
		}

		e := InterfaceEntry{
			Klass:  d.u64("itable.interface_klass"),
			Offset: d.u32("itable.offset"),
		}
		d.pad(4)
		if d.err != nil {
			return it, d.err
		}
		it.Interfaces = append(it.Interfaces, e)
		budget -= itableEntrySize
	}

	if budget%8 != 0 {
		return it, &LayoutError{
			Field:  "itable_len",
			Detail: fmt.Sprintf("remaining itable byte budget %d is not divisible by 8", budget),
		}
	}

	n := budget / 8
	if n*8 > d.c.Remaining() {
		d.fail("itable.methods", &TruncationError{Offset: d.c.Pos(), Need: n * 8, Have: d.c.Remaining()})
		return it, d.err
	}
	it.Methods = make([]uint64, n)
	for i := range it.Methods {
		it.Methods[i] = d.u64("itable.method")
	}
	return it, d.err
}
