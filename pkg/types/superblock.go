package types

import "github.com/google/uuid"

const SuperblockMagic uint32 = 0x19590318

// Superblock describes the geometry of one formatted partition. Every LBA is
// relative to the start of the partition and the regions appear in strictly
// increasing order: block bitmap, inode bitmap, inode table, data.
type Superblock struct {
	Magic            uint32    `json:"magic"`
	SectorCount      uint32    `json:"sectorCount"`
	InodeCount       uint32    `json:"inodeCount"`
	PartLBABase      LBA       `json:"partLbaBase"`
	BlockBitmapLBA   LBA       `json:"blockBitmapLba"`
	BlockBitmapSects uint32    `json:"blockBitmapSects"`
	InodeBitmapLBA   LBA       `json:"inodeBitmapLba"`
	InodeBitmapSects uint32    `json:"inodeBitmapSects"`
	InodeTableLBA    LBA       `json:"inodeTableLba"`
	InodeTableSects  uint32    `json:"inodeTableSects"`
	DataStartLBA     LBA       `json:"dataStartLba"`
	RootIno          Ino       `json:"rootIno"`
	DirEntrySize     Byte      `json:"dirEntrySize"`
	VolumeID         uuid.UUID `json:"volumeId"`
}

// DirEntriesPerSector is the number of directory entries that fit in one
// block. Entries never span a block boundary, so the tail of each block is
// unused.
func (sb *Superblock) DirEntriesPerSector() int {
	return int(SectorSize / sb.DirEntrySize)
}

// DataBlocks is the number of sectors in the data region.
func (sb *Superblock) DataBlocks() uint32 {
	return sb.SectorCount - uint32(sb.DataStartLBA)
}
