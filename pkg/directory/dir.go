package directory

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/encode"
	"github.com/weberc2/sectorfs/pkg/inode"
	"github.com/weberc2/sectorfs/pkg/partition"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Dir is an open directory: a reference on its inode plus a readdir cursor.
type Dir struct {
	p         *partition.Partition
	Inode     *inode.Inode
	Pos       Byte
	permanent bool
}

func Open(p *partition.Partition, ino Ino) (*Dir, error) {
	h, err := p.Inodes.Open(ino)
	if err != nil {
		return nil, fmt.Errorf("opening directory `%d`: %w", ino, err)
	}
	return &Dir{p: p, Inode: h}, nil
}

// OpenRoot opens the partition's root directory. Closing the returned Dir
// does nothing; it lives as long as the partition is mounted.
func OpenRoot(p *partition.Partition) (*Dir, error) {
	d, err := Open(p, p.Superblock.RootIno)
	if err != nil {
		return nil, err
	}
	d.permanent = true
	return d, nil
}

func (d *Dir) Close() {
	if d.permanent {
		return
	}
	d.p.Inodes.Close(d.Inode)
}

func (d *Dir) Ino() Ino { return d.Inode.Ino }

func (d *Dir) Partition() *partition.Partition { return d.p }

// IsRoot reports whether `d` is the partition's root directory.
func (d *Dir) IsRoot() bool { return d.Inode.Ino == d.p.Superblock.RootIno }

// IsEmpty reports whether only `.` and `..` remain.
func (d *Dir) IsEmpty() bool {
	return d.Inode.Size == 2*d.p.Superblock.DirEntrySize
}

func (d *Dir) Rewind() { d.Pos = 0 }

// ParentIno returns the inode number stored in the `..` entry.
func (d *Dir) ParentIno() (Ino, error) {
	lba := d.Inode.Sectors[0]
	if lba == LBANil {
		panic(fmt.Sprintf("directory `%d` has no first block", d.Ino()))
	}
	var block [BlockSize]byte
	if err := d.p.ReadBlock(lba, &block); err != nil {
		return 0, fmt.Errorf("reading parent of directory `%d`: %w", d.Ino(), err)
	}
	var dotdot DirEntry
	encode.DecodeDirEntry(&dotdot, encode.DirEntryAt(block[:], 1))
	if dotdot.Name != ".." || dotdot.FileType != FileTypeDir {
		panic(fmt.Sprintf("directory `%d` is missing its `..` entry", d.Ino()))
	}
	return dotdot.Ino, nil
}

// visitor is called for every slot of every allocated block, live or not.
// Returning `true` stops the walk.
type visitor func(
	idx int,
	lba LBA,
	block *[BlockSize]byte,
	slot int,
	entry *DirEntry,
) (bool, error)

// walk visits the directory's blocks in block map order and reports whether
// the visitor stopped it.
func (d *Dir) walk(blocks *inode.BlockMap, visit visitor) (bool, error) {
	n, err := inode.LoadBlockMap(d.p.Disk, &d.Inode.Inode, blocks)
	if err != nil {
		return false, err
	}
	perBlock := d.p.Superblock.DirEntriesPerSector()

	var block [BlockSize]byte
	var entry DirEntry
	for idx, lba := range blocks[:n] {
		if lba == LBANil {
			continue
		}
		if err := d.p.ReadBlock(lba, &block); err != nil {
			return false, err
		}
		for slot := 0; slot < perBlock; slot++ {
			encode.DecodeDirEntry(&entry, encode.DirEntryAt(block[:], slot))
			stop, err := visit(idx, lba, &block, slot, &entry)
			if err != nil {
				return false, err
			}
			if stop {
				return true, nil
			}
		}
	}
	return false, nil
}

// Find looks up the live entry called `name`; the first match wins.
func (d *Dir) Find(name string, out *DirEntry) (bool, error) {
	var blocks inode.BlockMap
	found, err := d.walk(&blocks, func(
		_ int,
		_ LBA,
		_ *[BlockSize]byte,
		_ int,
		entry *DirEntry,
	) (bool, error) {
		if entry.Live() && entry.Name == name {
			*out = *entry
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return false, fmt.Errorf(
			"finding `%s` in directory `%d`: %w",
			name,
			d.Ino(),
			err,
		)
	}
	return found, nil
}

// FindIno looks up the live entry, other than `.` and `..`, that refers to
// inode `ino`.
func (d *Dir) FindIno(ino Ino, out *DirEntry) (bool, error) {
	var blocks inode.BlockMap
	found, err := d.walk(&blocks, func(
		_ int,
		_ LBA,
		_ *[BlockSize]byte,
		_ int,
		entry *DirEntry,
	) (bool, error) {
		if entry.Live() && !entry.IsDot() && entry.Ino == ino {
			*out = *entry
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return false, fmt.Errorf(
			"finding inode `%d` in directory `%d`: %w",
			ino,
			d.Ino(),
			err,
		)
	}
	return found, nil
}
