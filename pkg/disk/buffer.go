package disk

import (
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// Buffer is an in-memory disk.
type Buffer struct {
	data []byte
}

func NewBuffer(sectors uint32) *Buffer {
	return &Buffer{data: make([]byte, Byte(sectors)*SectorSize)}
}

// NewBufferFrom wraps an existing image. Trailing bytes that do not fill a
// whole sector are ignored.
func NewBufferFrom(data []byte) *Buffer {
	return &Buffer{data: data[:Byte(len(data))/SectorSize*SectorSize]}
}

func (b *Buffer) Sectors() uint32 { return uint32(Byte(len(b.data)) / SectorSize) }

func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) ReadSectors(lba LBA, p []byte) error {
	if err := checkRange(b, lba, p); err != nil {
		return fmt.Errorf("reading from buffer: %w", err)
	}
	start := Byte(lba) * SectorSize
	copy(p, b.data[start:start+Byte(len(p))])
	return nil
}

func (b *Buffer) WriteSectors(lba LBA, p []byte) error {
	if err := checkRange(b, lba, p); err != nil {
		return fmt.Errorf("writing to buffer: %w", err)
	}
	start := Byte(lba) * SectorSize
	copy(b.data[start:start+Byte(len(p))], p)
	return nil
}
