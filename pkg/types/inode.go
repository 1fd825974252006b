package types

type Ino uint32

const (
	DirectBlocksCount = 12
	IndirectSlot      = DirectBlocksCount
	BlockSlotsCount   = DirectBlocksCount + 1
	PointersPerBlock  = int(BlockSize / BlockPointerSize)

	// MaxBlocks is the number of data blocks reachable from one inode: the
	// direct pointers plus every slot of the single indirect block.
	MaxBlocks = DirectBlocksCount + PointersPerBlock

	MaxFileSize = Byte(MaxBlocks) * BlockSize

	// InodeSize is the size of one packed inode table record. It is not a
	// divisor of the sector size, so some records straddle two sectors.
	InodeSize Byte = 76

	InoRoot Ino = 0

	MaxFilesPerPartition uint32 = 4096
)

// Inode is the persistent part of an inode. Open counts and the write-deny
// flag live on the in-memory handle and are never written to disk.
type Inode struct {
	Ino     Ino
	Size    Byte
	Sectors [BlockSlotsCount]LBA
}

// Indirect returns the inode's indirect block pointer.
func (inode *Inode) Indirect() LBA { return inode.Sectors[IndirectSlot] }
