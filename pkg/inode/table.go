package inode

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/encode"
	"github.com/weberc2/sectorfs/pkg/types"
)

// Table is the packed on-disk inode array. Records are InodeSize bytes and
// are not sector aligned, so a record may begin in one sector and end in
// the next.
type Table struct {
	disk  disk.Disk
	lba   types.LBA
	count uint32
}

func NewTable(d disk.Disk, lba types.LBA, count uint32) *Table {
	return &Table{disk: d, lba: lba, count: count}
}

type location struct {
	lba    types.LBA
	offset types.Byte
	twoSec bool
}

func (t *Table) locate(ino types.Ino) location {
	if uint32(ino) >= t.count {
		panic(fmt.Sprintf(
			"inode table: ino `%d` out of range (`%d` inodes)",
			ino,
			t.count,
		))
	}
	byteOffset := types.Byte(ino) * types.InodeSize
	offset := byteOffset % types.SectorSize
	return location{
		lba:    t.lba + types.LBA(byteOffset/types.SectorSize),
		offset: offset,
		twoSec: offset+types.InodeSize > types.SectorSize,
	}
}

func (loc location) sectors() types.Byte {
	if loc.twoSec {
		return 2
	}
	return 1
}

func (t *Table) Read(ino types.Ino, out *types.Inode) error {
	loc := t.locate(ino)
	var buf [2 * types.SectorSize]byte
	p := buf[:loc.sectors()*types.SectorSize]
	if err := t.disk.ReadSectors(loc.lba, p); err != nil {
		return fmt.Errorf("reading inode `%d`: %w", ino, err)
	}
	encode.DecodeInode(out, (*[types.InodeSize]byte)(p[loc.offset:]))
	return nil
}

// Write stores `inode` at its slot, leaving neighboring records in the same
// sector(s) untouched.
func (t *Table) Write(inode *types.Inode) error {
	loc := t.locate(inode.Ino)
	var buf [2 * types.SectorSize]byte
	p := buf[:loc.sectors()*types.SectorSize]
	if err := t.disk.ReadSectors(loc.lba, p); err != nil {
		return fmt.Errorf("writing inode `%d`: %w", inode.Ino, err)
	}
	encode.EncodeInode(inode, (*[types.InodeSize]byte)(p[loc.offset:]))
	if err := t.disk.WriteSectors(loc.lba, p); err != nil {
		return fmt.Errorf("writing inode `%d`: %w", inode.Ino, err)
	}
	return nil
}

// Zero wipes the record for `ino`.
func (t *Table) Zero(ino types.Ino) error {
	return t.Write(&types.Inode{Ino: ino})
}
