package file

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/directory"
	"github.com/weberc2/sectorfs/pkg/partition"
	"github.com/weberc2/sectorfs/pkg/rollback"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Create makes an empty regular file called `name` in `parent` and opens
// it. Every step that commits before a failure is undone, so a failed
// Create leaves the bitmaps, the parent and the table as they were.
func (t *Table) Create(
	p *partition.Partition,
	parent *directory.Dir,
	name string,
	flags Flags,
) (int, error) {
	var undo rollback.Stack

	ino, err := p.Inos.Alloc()
	if err != nil {
		return -1, fmt.Errorf("creating `%s`: %w", name, err)
	}
	undo.Push("inode allocation", func() error {
		p.Inos.Free(ino)
		return nil
	})

	f := &File{
		Flags:     flags,
		Inode:     nil,
		Partition: p,
	}
	idx, err := t.install(f)
	if err != nil {
		return -1, undo.Abort(fmt.Errorf("creating `%s`: %w", name, err))
	}
	undo.Push("file table slot", func() error {
		t.remove(idx)
		return nil
	})

	if err := parent.Append(&DirEntry{
		Name:     name,
		Ino:      ino,
		FileType: FileTypeRegular,
	}); err != nil {
		return -1, undo.Abort(fmt.Errorf("creating `%s`: %w", name, err))
	}
	undo.Push("directory entry", func() error { return parent.Delete(ino) })

	record := Inode{Ino: ino}
	h := p.Inodes.Adopt(&record)
	undo.Push("inode cache entry", func() error {
		p.Inodes.Close(h)
		return nil
	})
	if err := p.Inodes.Sync(h); err != nil {
		return -1, undo.Abort(fmt.Errorf("creating `%s`: %w", name, err))
	}

	if err := p.Inos.Sync(ino); err != nil {
		return -1, undo.Abort(fmt.Errorf("creating `%s`: %w", name, err))
	}

	if flags.Writable() {
		p.Inodes.DenyWrite(h)
	}
	t.mutex.Lock()
	f.Inode = h
	t.mutex.Unlock()
	undo.Commit()

	p.Logger.Debug(
		"created file",
		"name", name,
		"ino", ino,
		"parent", parent.Ino(),
		"fd", idx,
	)
	return idx, nil
}

// Open opens inode `ino`. Any number of readers may share a file; a writer
// needs the file to be otherwise unopened and takes the write-deny flag
// until it closes.
func (t *Table) Open(p *partition.Partition, ino Ino, flags Flags) (int, error) {
	h, err := p.Inodes.Open(ino)
	if err != nil {
		return -1, fmt.Errorf("opening inode `%d`: %w", ino, err)
	}

	if flags.Writable() {
		if t.Holds(ino) || !p.Inodes.DenyWrite(h) {
			p.Inodes.Close(h)
			return -1, fmt.Errorf("opening inode `%d` for writing: %w", ino, BusyErr)
		}
	}

	idx, err := t.install(&File{Flags: flags, Inode: h, Partition: p})
	if err != nil {
		if flags.Writable() {
			p.Inodes.AllowWrite(h)
		}
		p.Inodes.Close(h)
		return -1, fmt.Errorf("opening inode `%d`: %w", ino, err)
	}
	return idx, nil
}

// Close releases slot `idx`, clearing the write-deny flag if the file was
// opened for writing.
func (t *Table) Close(idx int) error {
	f := t.Get(idx)
	if f == nil {
		return fmt.Errorf("closing file `%d`: %w", idx, BadFileDescriptorErr)
	}
	if f.Flags.Writable() {
		f.Partition.Inodes.AllowWrite(f.Inode)
	}
	f.Partition.Inodes.Close(f.Inode)
	t.remove(idx)
	return nil
}
