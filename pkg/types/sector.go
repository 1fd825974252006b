package types

// LBA is a partition-relative sector address.
type LBA uint32

// Byte is a byte count or byte offset within a file, directory or sector run.
type Byte uint32

const (
	SectorSize    Byte = 512
	BlockSize     Byte = SectorSize
	BitsPerSector      = uint32(SectorSize) * 8

	BootSectorLBA LBA = 0
	SuperblockLBA LBA = 1

	// LBANil marks an unallocated block pointer. Sector 0 is the boot
	// sector, so it can never be handed out as a data block.
	LBANil LBA = 0

	BlockPointerSize Byte = 4
)
