package alloc

import . "github.com/weberc2/sectorfs/pkg/types"

// BlockAllocator hands out data-region LBAs. Bit `i` is the block at
// `DataStart + i`.
type BlockAllocator struct {
	*Allocator
	DataStart LBA
}

func (ba BlockAllocator) Alloc() (LBA, error) {
	if bit, ok := ba.Allocator.Alloc(); ok {
		return ba.DataStart + LBA(bit), nil
	}
	return LBANil, OutOfBlocksErr
}

func (ba BlockAllocator) Free(lba LBA) { ba.Allocator.Free(ba.bit(lba)) }

func (ba BlockAllocator) Reserve(lba LBA) { ba.Allocator.Reserve(ba.bit(lba)) }

func (ba BlockAllocator) Test(lba LBA) bool { return ba.Allocator.Test(ba.bit(lba)) }

func (ba BlockAllocator) Sync(lba LBA) error { return ba.Allocator.Sync(ba.bit(lba)) }

func (ba BlockAllocator) bit(lba LBA) uint32 {
	if lba < ba.DataStart {
		panic("block allocator: LBA precedes the data region")
	}
	return uint32(lba - ba.DataStart)
}
