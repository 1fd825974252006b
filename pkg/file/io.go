package file

import (
	"fmt"
	"io"

	"github.com/weberc2/sectorfs/pkg/inode"
	"github.com/weberc2/sectorfs/pkg/math"
	"github.com/weberc2/sectorfs/pkg/rollback"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Read copies up to len(buf) bytes from the current position and advances
// it. Unallocated blocks read as zeros. Read returns io.EOF when the
// position is already at the end of the file.
func (f *File) Read(buf []byte) (int, error) {
	if !f.Flags.Readable() {
		return 0, fmt.Errorf("reading inode `%d`: %w", f.Inode.Ino, BadFileDescriptorErr)
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if f.Pos >= f.Inode.Size {
		return 0, io.EOF
	}

	count := math.Min(Byte(len(buf)), f.Inode.Size-f.Pos)

	var blocks inode.BlockMap
	if _, err := inode.LoadBlockMap(f.Partition.Disk, &f.Inode.Inode, &blocks); err != nil {
		return 0, fmt.Errorf("reading inode `%d`: %w", f.Inode.Ino, err)
	}

	var block [BlockSize]byte
	done := Byte(0)
	for done < count {
		pos := f.Pos + done
		offset := pos % BlockSize
		chunk := math.Min(count-done, BlockSize-offset)
		lba := blocks[pos/BlockSize]
		if lba == LBANil {
			block = [BlockSize]byte{}
		} else if err := f.Partition.ReadBlock(lba, &block); err != nil {
			f.Pos += done
			return int(done), fmt.Errorf("reading inode `%d`: %w", f.Inode.Ino, err)
		}
		copy(buf[done:done+chunk], block[offset:offset+chunk])
		done += chunk
	}

	f.Pos += done
	return int(done), nil
}

// Write copies `buf` into the file at the current position, growing the
// file as needed, and advances the position. Every block the write needs
// is allocated before any data is written; if the partition runs out of
// blocks, nothing is written and the blocks claimed so far are released.
func (f *File) Write(buf []byte) (int, error) {
	p := f.Partition
	ino := f.Inode.Ino
	if !f.Flags.Writable() {
		return 0, fmt.Errorf("writing inode `%d`: %w", ino, NotWritableErr)
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if uint64(f.Pos)+uint64(len(buf)) > uint64(MaxFileSize) {
		return 0, fmt.Errorf(
			"writing `%d` bytes at `%d` to inode `%d`: %w",
			len(buf),
			f.Pos,
			ino,
			FileTooLargeErr,
		)
	}

	count := Byte(len(buf))
	first := int(f.Pos / BlockSize)
	last := int((f.Pos + count - 1) / BlockSize)

	var blocks inode.BlockMap
	if _, err := inode.LoadBlockMap(p.Disk, &f.Inode.Inode, &blocks); err != nil {
		return 0, fmt.Errorf("writing inode `%d`: %w", ino, err)
	}

	fresh, err := f.allocate(&blocks, first, last)
	if err != nil {
		return 0, fmt.Errorf("writing inode `%d`: %w", ino, err)
	}

	var block [BlockSize]byte
	done := Byte(0)
	for done < count {
		pos := f.Pos + done
		idx := int(pos / BlockSize)
		offset := pos % BlockSize
		chunk := math.Min(count-done, BlockSize-offset)
		lba := blocks[idx]

		// partially overwritten blocks keep their other bytes
		if fresh[idx] || chunk == BlockSize {
			block = [BlockSize]byte{}
		} else if err := p.ReadBlock(lba, &block); err != nil {
			return int(done), f.finishWrite(done, fmt.Errorf("writing inode `%d`: %w", ino, err))
		}
		copy(block[offset:offset+chunk], buf[done:done+chunk])
		if err := p.WriteBlock(lba, &block); err != nil {
			return int(done), f.finishWrite(done, fmt.Errorf("writing inode `%d`: %w", ino, err))
		}
		done += chunk
	}

	return int(done), f.finishWrite(done, nil)
}

// finishWrite advances the position past `done` written bytes, grows the
// size to match and syncs the inode.
func (f *File) finishWrite(done Byte, err error) error {
	f.Pos += done
	if f.Pos > f.Inode.Size {
		f.Inode.Size = f.Pos
	}
	if syncErr := f.Partition.Inodes.Sync(f.Inode); syncErr != nil {
		if err != nil {
			return fmt.Errorf("%w (syncing inode: %v)", err, syncErr)
		}
		return fmt.Errorf("writing inode `%d`: %w", f.Inode.Ino, syncErr)
	}
	return err
}

// allocate fills every unallocated slot in [first, last] with a fresh
// block, claiming the indirect block too if the range reaches it. Fresh
// blocks are hooked into the inode (and the indirect block is stored)
// only after every claim has succeeded.
func (f *File) allocate(
	blocks *inode.BlockMap,
	first int,
	last int,
) (map[int]bool, error) {
	p := f.Partition
	var undo rollback.Stack
	fresh := map[int]bool{}

	indirect := f.Inode.Indirect()
	freshIndirect := false
	if last >= DirectBlocksCount && indirect == LBANil {
		lba, err := p.AllocBlock()
		if err != nil {
			return nil, err
		}
		indirect, freshIndirect = lba, true
		undo.Push("indirect block", func() error { return p.FreeBlock(lba) })
	}

	for idx := first; idx <= last; idx++ {
		if blocks[idx] != LBANil {
			continue
		}
		lba, err := p.AllocBlock()
		if err != nil {
			return nil, undo.Abort(err)
		}
		idx := idx
		blocks[idx] = lba
		fresh[idx] = true
		undo.Push("data block", func() error {
			blocks[idx] = LBANil
			return p.FreeBlock(lba)
		})
	}

	if last >= DirectBlocksCount && (freshIndirect || anyFreshIndirect(fresh)) {
		if err := blocks.StoreIndirect(p.Disk, indirect); err != nil {
			return nil, undo.Abort(err)
		}
	}
	undo.Commit()

	blocks.Direct(&f.Inode.Inode)
	f.Inode.Sectors[IndirectSlot] = indirect
	if len(fresh) > 0 {
		p.Logger.Debug(
			"allocated file blocks",
			"ino", f.Inode.Ino,
			"count", len(fresh),
			"indirect", indirect,
		)
	}
	return fresh, nil
}

func anyFreshIndirect(fresh map[int]bool) bool {
	for idx := range fresh {
		if idx >= DirectBlocksCount {
			return true
		}
	}
	return false
}

// Seek moves the position to `offset` relative to `whence`. The result must
// lie in [0, size).
func (f *File) Seek(offset int64, whence Whence) (Byte, error) {
	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = int64(f.Pos)
	case SeekEnd:
		base = int64(f.Inode.Size)
	default:
		return f.Pos, fmt.Errorf("seeking: whence `%d`: %w", whence, InvalidArgumentErr)
	}

	pos := base + offset
	if pos < 0 || pos >= int64(f.Inode.Size) {
		return f.Pos, fmt.Errorf(
			"seeking to `%d` in inode `%d` of size `%d`: %w",
			pos,
			f.Inode.Ino,
			f.Inode.Size,
			InvalidArgumentErr,
		)
	}
	f.Pos = Byte(pos)
	return f.Pos, nil
}
