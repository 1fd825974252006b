package inode

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/encode"
	"github.com/weberc2/sectorfs/pkg/types"
)

// BlockMap is the flattened list of an inode's data block pointers: the
// direct pointers followed by the contents of the indirect block.
type BlockMap [types.MaxBlocks]types.LBA

// LoadBlockMap fills `out` from `inode` and returns how many slots are
// meaningful: DirectBlocksCount when the inode has no indirect block,
// MaxBlocks otherwise.
func LoadBlockMap(d disk.Disk, inode *types.Inode, out *BlockMap) (int, error) {
	copy(out[:types.DirectBlocksCount], inode.Sectors[:types.DirectBlocksCount])
	for i := types.DirectBlocksCount; i < types.MaxBlocks; i++ {
		out[i] = types.LBANil
	}
	if inode.Indirect() == types.LBANil {
		return types.DirectBlocksCount, nil
	}

	var buf [types.SectorSize]byte
	if err := d.ReadSectors(inode.Indirect(), buf[:]); err != nil {
		return 0, fmt.Errorf(
			"loading indirect block `%d` of inode `%d`: %w",
			inode.Indirect(),
			inode.Ino,
			err,
		)
	}
	encode.DecodeBlockPointers(out[types.DirectBlocksCount:], buf[:])
	return types.MaxBlocks, nil
}

// StoreIndirect writes the indirect half of the map to block `lba`.
func (bm *BlockMap) StoreIndirect(d disk.Disk, lba types.LBA) error {
	var buf [types.SectorSize]byte
	encode.EncodeBlockPointers(bm[types.DirectBlocksCount:], buf[:])
	if err := d.WriteSectors(lba, buf[:]); err != nil {
		return fmt.Errorf("storing indirect block `%d`: %w", lba, err)
	}
	return nil
}

// Direct copies the direct half of the map back into `inode`.
func (bm *BlockMap) Direct(inode *types.Inode) {
	copy(inode.Sectors[:types.DirectBlocksCount], bm[:types.DirectBlocksCount])
}
