package fs

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/directory"
	"github.com/weberc2/sectorfs/pkg/lookup"
	"github.com/weberc2/sectorfs/pkg/partition"
	"github.com/weberc2/sectorfs/pkg/rollback"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Mkdir creates an empty directory at `path`. The parent must exist and
// `path` must not. A failure at any step undoes the steps before it.
func (proc *Process) Mkdir(path string) error {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	p := fs.partition

	var record lookup.SearchRecord
	defer record.Close()
	_, found, err := lookup.Search(fs.root, proc.cwd, path, &record)
	if err != nil {
		return fmt.Errorf("making directory `%s`: %w", path, err)
	}
	if err := checkWalk(path, found, &record); err != nil {
		return fmt.Errorf("making directory `%s`: %w", path, err)
	}
	if found {
		return fmt.Errorf("making directory `%s`: %w", path, ExistsErr)
	}
	name := lookup.Base(path)
	if err := checkName(name); err != nil {
		return fmt.Errorf("making directory `%s`: %w", path, err)
	}
	parent := record.Parent

	var undo rollback.Stack

	ino, err := p.Inos.Alloc()
	if err != nil {
		return fmt.Errorf("making directory `%s`: %w", path, err)
	}
	undo.Push("inode allocation", func() error {
		p.Inos.Free(ino)
		return nil
	})

	lba, err := p.AllocBlock()
	if err != nil {
		return undo.Abort(fmt.Errorf("making directory `%s`: %w", path, err))
	}
	undo.Push("block allocation", func() error { return p.FreeBlock(lba) })

	var block [BlockSize]byte
	if err := partition.WriteDotEntries(block[:], ino, parent.Ino()); err != nil {
		return undo.Abort(fmt.Errorf("making directory `%s`: %w", path, err))
	}
	if err := p.WriteBlock(lba, &block); err != nil {
		return undo.Abort(fmt.Errorf("making directory `%s`: %w", path, err))
	}

	if err := parent.Append(&DirEntry{
		Name:     name,
		Ino:      ino,
		FileType: FileTypeDir,
	}); err != nil {
		return undo.Abort(fmt.Errorf("making directory `%s`: %w", path, err))
	}
	undo.Push("parent entry", func() error { return parent.Delete(ino) })

	inode := Inode{Ino: ino, Size: 2 * p.Superblock.DirEntrySize}
	inode.Sectors[0] = lba
	h := p.Inodes.Adopt(&inode)
	defer p.Inodes.Close(h)
	if err := p.Inodes.Sync(h); err != nil {
		return undo.Abort(fmt.Errorf("making directory `%s`: %w", path, err))
	}

	if err := p.Inos.Sync(ino); err != nil {
		return undo.Abort(fmt.Errorf("making directory `%s`: %w", path, err))
	}
	undo.Commit()

	fs.Logger.Debug("made directory", "path", path, "ino", ino, "block", lba)
	return nil
}

// Rmdir removes the empty directory at `path`. The root, `.` and `..`,
// and directories that are open or are some process's working directory
// cannot be removed.
func (proc *Process) Rmdir(path string) error {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	var record lookup.SearchRecord
	defer record.Close()
	ino, found, err := lookup.Search(fs.root, proc.cwd, path, &record)
	if err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	if err := checkWalk(path, found, &record); err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	if !found {
		return fmt.Errorf("removing directory `%s`: %w", path, NotFoundErr)
	}
	if record.FileType != FileTypeDir {
		return fmt.Errorf("removing directory `%s`: %w", path, NotADirErr)
	}
	if ino == fs.root.Ino() {
		return fmt.Errorf("removing directory `%s`: root: %w", path, BusyErr)
	}
	if base := lookup.Base(path); base == "." || base == ".." {
		return fmt.Errorf("removing directory `%s`: %w", path, InvalidArgumentErr)
	}
	if fs.cwds[ino] > 0 {
		return fmt.Errorf(
			"removing directory `%s`: working directory: %w",
			path,
			BusyErr,
		)
	}
	if fs.partition.Inodes.IsOpen(ino) {
		return fmt.Errorf("removing directory `%s`: open: %w", path, BusyErr)
	}

	dir, err := directory.Open(fs.partition, ino)
	if err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	empty := dir.IsEmpty()
	dir.Close()
	if !empty {
		return fmt.Errorf("removing directory `%s`: %w", path, NotEmptyErr)
	}

	if err := record.Parent.Delete(ino); err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	if err := fs.partition.ReleaseInode(ino); err != nil {
		return fmt.Errorf("removing directory `%s`: %w", path, err)
	}
	fs.Logger.Debug("removed directory", "path", path, "ino", ino)
	return nil
}

// OpenDir returns a fresh directory handle with its cursor at the first
// entry. Every handle must be closed with CloseDir.
func (proc *Process) OpenDir(path string) (*directory.Dir, error) {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	ino := fs.root.Ino()
	if !lookup.IsRoot(path) {
		var record lookup.SearchRecord
		defer record.Close()
		var found bool
		var err error
		ino, found, err = lookup.Search(fs.root, proc.cwd, path, &record)
		if err != nil {
			return nil, fmt.Errorf("opening directory `%s`: %w", path, err)
		}
		if err := checkWalk(path, found, &record); err != nil {
			return nil, fmt.Errorf("opening directory `%s`: %w", path, err)
		}
		if !found {
			return nil, fmt.Errorf("opening directory `%s`: %w", path, NotFoundErr)
		}
		if record.FileType != FileTypeDir {
			return nil, fmt.Errorf("opening directory `%s`: %w", path, NotADirErr)
		}
	}

	dir, err := directory.Open(fs.partition, ino)
	if err != nil {
		return nil, fmt.Errorf("opening directory `%s`: %w", path, err)
	}
	return dir, nil
}

func (proc *Process) CloseDir(dir *directory.Dir) {
	proc.fs.mutex.Lock()
	defer proc.fs.mutex.Unlock()
	dir.Close()
}

// ReadDir returns the next entry of `dir`, or io.EOF after the last one.
func (proc *Process) ReadDir(dir *directory.Dir, out *DirEntry) error {
	proc.fs.mutex.Lock()
	defer proc.fs.mutex.Unlock()
	return dir.Read(out)
}

func (proc *Process) RewindDir(dir *directory.Dir) {
	proc.fs.mutex.Lock()
	defer proc.fs.mutex.Unlock()
	dir.Rewind()
}
