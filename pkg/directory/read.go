package directory

import (
	"fmt"
	"io"

	"github.com/weberc2/sectorfs/pkg/inode"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Read returns the next live entry and advances the cursor by one entry.
// It returns io.EOF once the cursor reaches the directory's size.
func (d *Dir) Read(out *DirEntry) error {
	if d.Pos >= d.Inode.Size {
		return io.EOF
	}

	entrySize := d.p.Superblock.DirEntrySize
	var pos Byte
	var blocks inode.BlockMap
	found, err := d.walk(&blocks, func(
		_ int,
		_ LBA,
		_ *[BlockSize]byte,
		_ int,
		entry *DirEntry,
	) (bool, error) {
		if !entry.Live() {
			return false, nil
		}
		if pos < d.Pos {
			pos += entrySize
			return false, nil
		}
		*out = *entry
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("reading directory `%d`: %w", d.Ino(), err)
	}
	if !found {
		return io.EOF
	}
	d.Pos += entrySize
	return nil
}

// ReadAll rewinds the directory and returns every live entry.
func (d *Dir) ReadAll() ([]DirEntry, error) {
	d.Rewind()
	var entries []DirEntry
	for {
		var entry DirEntry
		if err := d.Read(&entry); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, err
		}
		entries = append(entries, entry)
	}
}
