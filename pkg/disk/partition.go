package disk

import (
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// Partition is a window onto a contiguous sector range of another disk.
// Sector 0 of the partition is sector `Start` of the underlying disk.
type Partition struct {
	Name    string
	Start   LBA
	inner   Disk
	sectors uint32
}

func NewPartition(
	inner Disk,
	name string,
	start LBA,
	sectors uint32,
) (*Partition, error) {
	if uint64(start)+uint64(sectors) > uint64(inner.Sectors()) {
		return nil, fmt.Errorf(
			"creating partition `%s` at sector `%d` with `%d` sectors "+
				"(disk has `%d`): %w",
			name,
			start,
			sectors,
			inner.Sectors(),
			OutOfRangeErr,
		)
	}
	return &Partition{Name: name, Start: start, inner: inner, sectors: sectors}, nil
}

// WholeDisk returns a partition spanning all of `inner`.
func WholeDisk(inner Disk, name string) *Partition {
	return &Partition{Name: name, inner: inner, sectors: inner.Sectors()}
}

func (p *Partition) Sectors() uint32 { return p.sectors }

func (p *Partition) ReadSectors(lba LBA, buf []byte) error {
	if err := checkRange(p, lba, buf); err != nil {
		return fmt.Errorf("reading partition `%s`: %w", p.Name, err)
	}
	if err := p.inner.ReadSectors(lba+p.Start, buf); err != nil {
		return fmt.Errorf(
			"reading partition `%s` sector `%d` (disk sector `%d`): %w",
			p.Name,
			lba,
			lba+p.Start,
			err,
		)
	}
	return nil
}

func (p *Partition) WriteSectors(lba LBA, buf []byte) error {
	if err := checkRange(p, lba, buf); err != nil {
		return fmt.Errorf("writing partition `%s`: %w", p.Name, err)
	}
	if err := p.inner.WriteSectors(lba+p.Start, buf); err != nil {
		return fmt.Errorf(
			"writing partition `%s` sector `%d` (disk sector `%d`): %w",
			p.Name,
			lba,
			lba+p.Start,
			err,
		)
	}
	return nil
}
