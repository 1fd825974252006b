package partition

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/weberc2/sectorfs/pkg/math"
	. "github.com/weberc2/sectorfs/pkg/types"
)

const TooSmallErr ConstError = "partition too small"

// Geometry is a superblock plus the number of block bitmap bits that
// describe real data blocks. The remaining bits of the last bitmap sector
// are pre-marked as used.
type Geometry struct {
	Superblock
	BlockBits uint32
}

// NewGeometry lays out a partition of `sectors` sectors holding `inodes`
// inodes.
func NewGeometry(
	sectors uint32,
	inodes uint32,
	base LBA,
	volumeID uuid.UUID,
) (Geometry, error) {
	if inodes < 1 || inodes > MaxFilesPerPartition {
		return Geometry{}, fmt.Errorf(
			"laying out partition: inode count `%d` not in [1, %d]: %w",
			inodes,
			MaxFilesPerPartition,
			InvalidArgumentErr,
		)
	}

	inodeBitmapSects := math.DivRoundUp(inodes, BitsPerSector)
	inodeTableSects := math.DivRoundUp(
		inodes*uint32(InodeSize),
		uint32(SectorSize),
	)
	used := uint32(SuperblockLBA) + 1 + inodeBitmapSects + inodeTableSects
	if sectors <= used+1 {
		return Geometry{}, fmt.Errorf(
			"laying out partition: `%d` sectors: %w",
			sectors,
			TooSmallErr,
		)
	}

	// the block bitmap has to describe the blocks left over after the
	// bitmap itself is carved out of the free space
	free := sectors - used
	blockBitmapSects := math.DivRoundUp(free, BitsPerSector)
	blockBits := free - blockBitmapSects
	blockBitmapSects = math.DivRoundUp(blockBits, BitsPerSector)

	sb := Superblock{
		Magic:            SuperblockMagic,
		SectorCount:      sectors,
		InodeCount:       inodes,
		PartLBABase:      base,
		BlockBitmapLBA:   SuperblockLBA + 1,
		BlockBitmapSects: blockBitmapSects,
		RootIno:          InoRoot,
		DirEntrySize:     DirEntrySize,
		VolumeID:         volumeID,
	}
	sb.InodeBitmapLBA = sb.BlockBitmapLBA + LBA(blockBitmapSects)
	sb.InodeBitmapSects = inodeBitmapSects
	sb.InodeTableLBA = sb.InodeBitmapLBA + LBA(inodeBitmapSects)
	sb.InodeTableSects = inodeTableSects
	sb.DataStartLBA = sb.InodeTableLBA + LBA(inodeTableSects)

	if sb.DataStartLBA >= LBA(sectors) {
		return Geometry{}, fmt.Errorf(
			"laying out partition: `%d` sectors: %w",
			sectors,
			TooSmallErr,
		)
	}

	return Geometry{
		Superblock: sb,
		BlockBits:  math.Min(blockBits, sb.DataBlocks()),
	}, nil
}
