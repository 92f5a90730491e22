package aot

import (
	"bytes"
	"fmt"
	"io"
)

// RegionSnapshot is an independent in-memory copy of one region's used bytes.
type RegionSnapshot struct {
	Kind   RegionKind
	Offset int64 // file offset the data was read from
	Data   []byte
}

// Len returns the snapshot length.
func (s *RegionSnapshot) Len() int {
	return len(s.Data)
}

// Cursor returns a cursor over the snapshot data.
func (s *RegionSnapshot) Cursor() *Cursor {
	return NewCursor(bytes.NewReader(s.Data), int64(len(s.Data)))
}

// LoadRegions reads every region's [FileOffset, FileOffset+Used) span into its
// own buffer, in descriptor order. A span that runs past the end of the file is
// a truncation.
func LoadRegions(r io.ReaderAt, size int64, hdr *Header) ([NumRegions]RegionSnapshot, error) {
	var snaps [NumRegions]RegionSnapshot

	for i := range hdr.Regions {
		kind := RegionKind(i)
		desc := &hdr.Regions[i]
		snaps[i].Kind = kind

		if desc.Used == 0 {
			continue
		}

		off, used := desc.FileOffset, desc.Used
		if off > uint64(size) || used > uint64(size)-off {
			return snaps, &TruncationError{
				Field:  fmt.Sprintf("region %s", kind),
				Offset: int64(off),
				Need:   int64(used),
				Have:   max(size-int64(off), 0),
			}
		}

		c := NewCursor(r, size)
		if err := c.Seek(int64(off)); err != nil {
			return snaps, err
		}
		data, err := c.Bytes(int(used))
		if err != nil {
			return snaps, fmt.Errorf("load region %s: %w", kind, err)
		}

		snaps[i].Offset = int64(off)
		snaps[i].Data = data
	}

	return snaps, nil
}
