package directory

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/encode"
	"github.com/weberc2/sectorfs/pkg/inode"
	"github.com/weberc2/sectorfs/pkg/rollback"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Append stores `entry` in the directory. A free slot in an allocated block
// is reused if there is one; otherwise the first unallocated block slot is
// filled with a new block (and the indirect block on first use). The
// directory inode is synced before Append returns. Blocks claimed by a
// failed Append are released again.
//
// Append does not check for an existing entry with the same name.
func (d *Dir) Append(entry *DirEntry) error {
	if !entry.Live() {
		return fmt.Errorf(
			"appending `%s` to directory `%d`: file type `%d`: %w",
			entry.Name,
			d.Ino(),
			entry.FileType,
			InvalidArgumentErr,
		)
	}
	var encoded [DirEntrySize]byte
	if err := encode.EncodeDirEntry(entry, encoded[:]); err != nil {
		return fmt.Errorf("appending to directory `%d`: %w", d.Ino(), err)
	}

	var blocks inode.BlockMap
	var reuseErr error
	reused, err := d.walk(&blocks, func(
		_ int,
		lba LBA,
		block *[BlockSize]byte,
		slot int,
		existing *DirEntry,
	) (bool, error) {
		if existing.Live() {
			return false, nil
		}
		reuseErr = d.reuse(lba, block, slot, &encoded)
		return true, nil
	})
	if err != nil {
		return fmt.Errorf(
			"appending `%s` to directory `%d`: %w",
			entry.Name,
			d.Ino(),
			err,
		)
	}
	if reused {
		if reuseErr != nil {
			return fmt.Errorf(
				"appending `%s` to directory `%d`: %w",
				entry.Name,
				d.Ino(),
				reuseErr,
			)
		}
		return nil
	}

	for idx, lba := range blocks {
		if lba == LBANil {
			if err := d.grow(idx, &blocks, &encoded); err != nil {
				return fmt.Errorf(
					"appending `%s` to directory `%d`: %w",
					entry.Name,
					d.Ino(),
					err,
				)
			}
			d.p.Logger.Debug(
				"grew directory",
				"dir", d.Ino(),
				"slot", idx,
				"block", d.blockAt(idx, &blocks),
			)
			return nil
		}
	}

	return fmt.Errorf(
		"appending `%s` to directory `%d`: %w",
		entry.Name,
		d.Ino(),
		DirFullErr,
	)
}

func (d *Dir) blockAt(idx int, blocks *inode.BlockMap) LBA {
	if idx < DirectBlocksCount {
		return d.Inode.Sectors[idx]
	}
	return blocks[idx]
}

func (d *Dir) reuse(
	lba LBA,
	block *[BlockSize]byte,
	slot int,
	encoded *[DirEntrySize]byte,
) error {
	copy(encode.DirEntryAt(block[:], slot), encoded[:])
	if err := d.p.WriteBlock(lba, block); err != nil {
		return err
	}

	d.Inode.Size += d.p.Superblock.DirEntrySize
	if err := d.p.Inodes.Sync(d.Inode); err != nil {
		d.Inode.Size -= d.p.Superblock.DirEntrySize
		encode.ClearDirEntry(encode.DirEntryAt(block[:], slot))
		if undoErr := d.p.WriteBlock(lba, block); undoErr != nil {
			return fmt.Errorf("%w (clearing slot: %v)", err, undoErr)
		}
		return err
	}
	return nil
}

// grow fills block slot `idx` with a new block whose first entry is
// `encoded`.
func (d *Dir) grow(
	idx int,
	blocks *inode.BlockMap,
	encoded *[DirEntrySize]byte,
) error {
	var undo rollback.Stack

	indirect := d.Inode.Indirect()
	freshIndirect := false
	if idx >= DirectBlocksCount && indirect == LBANil {
		lba, err := d.p.AllocBlock()
		if err != nil {
			return fmt.Errorf("allocating indirect block: %w", err)
		}
		indirect, freshIndirect = lba, true
		undo.Push("indirect block allocation", func() error {
			return d.p.FreeBlock(lba)
		})
	}

	lba, err := d.p.AllocBlock()
	if err != nil {
		return undo.Abort(fmt.Errorf("allocating block: %w", err))
	}
	undo.Push("block allocation", func() error { return d.p.FreeBlock(lba) })

	var block [BlockSize]byte
	copy(block[:DirEntrySize], encoded[:])
	if err := d.p.WriteBlock(lba, &block); err != nil {
		return undo.Abort(err)
	}

	if idx < DirectBlocksCount {
		d.Inode.Sectors[idx] = lba
		undo.Push("direct pointer", func() error {
			d.Inode.Sectors[idx] = LBANil
			return nil
		})
	} else {
		blocks[idx] = lba
		if err := blocks.StoreIndirect(d.p.Disk, indirect); err != nil {
			blocks[idx] = LBANil
			return undo.Abort(err)
		}
		if freshIndirect {
			d.Inode.Sectors[IndirectSlot] = indirect
			undo.Push("indirect pointer", func() error {
				d.Inode.Sectors[IndirectSlot] = LBANil
				return nil
			})
		} else {
			undo.Push("indirect slot", func() error {
				blocks[idx] = LBANil
				return blocks.StoreIndirect(d.p.Disk, indirect)
			})
		}
	}

	d.Inode.Size += d.p.Superblock.DirEntrySize
	undo.Push("directory size", func() error {
		d.Inode.Size -= d.p.Superblock.DirEntrySize
		return nil
	})
	if err := d.p.Inodes.Sync(d.Inode); err != nil {
		return undo.Abort(err)
	}

	undo.Commit()
	return nil
}
