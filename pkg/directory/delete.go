package directory

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/encode"
	"github.com/weberc2/sectorfs/pkg/inode"
	"github.com/weberc2/sectorfs/pkg/rollback"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Delete removes the entry referring to inode `ino`. When that entry is the
// only one left in a block other than the first, the block itself is given
// back (and the indirect block too, if this was its last pointer);
// otherwise the slot becomes a tombstone. `.` and `..` are never matched.
func (d *Dir) Delete(ino Ino) error {
	var blocks inode.BlockMap
	var removeErr error
	found, err := d.walk(&blocks, func(
		idx int,
		lba LBA,
		block *[BlockSize]byte,
		slot int,
		entry *DirEntry,
	) (bool, error) {
		if !entry.Live() || entry.IsDot() || entry.Ino != ino {
			return false, nil
		}
		removeErr = d.remove(idx, lba, block, slot, &blocks)
		return true, nil
	})
	if err == nil {
		err = removeErr
	}
	if err != nil {
		return fmt.Errorf(
			"deleting inode `%d` from directory `%d`: %w",
			ino,
			d.Ino(),
			err,
		)
	}
	if !found {
		return fmt.Errorf(
			"deleting inode `%d` from directory `%d`: %w",
			ino,
			d.Ino(),
			NotFoundErr,
		)
	}
	return nil
}

func (d *Dir) remove(
	idx int,
	lba LBA,
	block *[BlockSize]byte,
	slot int,
	blocks *inode.BlockMap,
) error {
	live := 0
	var entry DirEntry
	for i := 0; i < d.p.Superblock.DirEntriesPerSector(); i++ {
		encode.DecodeDirEntry(&entry, encode.DirEntryAt(block[:], i))
		if entry.Live() && !entry.IsDot() {
			live++
		}
	}

	var undo rollback.Stack
	reclaimed := live == 1 && idx != 0
	if reclaimed {
		if err := d.reclaim(idx, lba, blocks, &undo); err != nil {
			return undo.Abort(err)
		}
	} else {
		var saved [DirEntrySize]byte
		copy(saved[:], encode.DirEntryAt(block[:], slot))
		encode.ClearDirEntry(encode.DirEntryAt(block[:], slot))
		if err := d.p.WriteBlock(lba, block); err != nil {
			copy(encode.DirEntryAt(block[:], slot), saved[:])
			return err
		}
		undo.Push("tombstone", func() error {
			copy(encode.DirEntryAt(block[:], slot), saved[:])
			return d.p.WriteBlock(lba, block)
		})
	}

	d.Inode.Size -= d.p.Superblock.DirEntrySize
	undo.Push("directory size", func() error {
		d.Inode.Size += d.p.Superblock.DirEntrySize
		return nil
	})
	if err := d.p.Inodes.Sync(d.Inode); err != nil {
		return undo.Abort(err)
	}

	undo.Commit()
	if reclaimed {
		d.p.Logger.Debug("reclaimed directory block", "dir", d.Ino(), "block", lba)
	}
	return nil
}

// reclaim frees block slot `idx` and unhooks it from the inode, pushing the
// undo of each step onto `undo`.
func (d *Dir) reclaim(
	idx int,
	lba LBA,
	blocks *inode.BlockMap,
	undo *rollback.Stack,
) error {
	if err := d.p.FreeBlock(lba); err != nil {
		return err
	}
	undo.Push("block release", func() error { return d.p.ReserveBlock(lba) })

	if idx < DirectBlocksCount {
		d.Inode.Sectors[idx] = LBANil
		undo.Push("direct pointer", func() error {
			d.Inode.Sectors[idx] = lba
			return nil
		})
		return nil
	}

	indirectLive := 0
	for _, ptr := range blocks[DirectBlocksCount:] {
		if ptr != LBANil {
			indirectLive++
		}
	}

	indirect := d.Inode.Indirect()
	if indirectLive == 1 {
		if err := d.p.FreeBlock(indirect); err != nil {
			return err
		}
		undo.Push("indirect block release", func() error {
			return d.p.ReserveBlock(indirect)
		})
		d.Inode.Sectors[IndirectSlot] = LBANil
		undo.Push("indirect pointer", func() error {
			d.Inode.Sectors[IndirectSlot] = indirect
			return nil
		})
		return nil
	}

	blocks[idx] = LBANil
	if err := blocks.StoreIndirect(d.p.Disk, indirect); err != nil {
		blocks[idx] = lba
		return err
	}
	undo.Push("indirect slot", func() error {
		blocks[idx] = lba
		return blocks.StoreIndirect(d.p.Disk, indirect)
	})
	return nil
}
