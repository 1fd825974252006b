package fs

import (
	"fmt"
	"io"
	"strings"

	"github.com/weberc2/sectorfs/pkg/file"
	"github.com/weberc2/sectorfs/pkg/lookup"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// checkWalk rejects a search that stopped before the last component of
// `path`: either a component along the way is missing, or it is a regular
// file.
func checkWalk(path string, found bool, record *lookup.SearchRecord) error {
	if record.Complete(path) {
		return nil
	}
	if found && record.FileType == FileTypeRegular {
		return fmt.Errorf(
			"`%s` is not a directory: %w",
			record.Searched,
			NotADirErr,
		)
	}
	return fmt.Errorf("`%s` does not exist: %w", record.Searched, NotFoundErr)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return InvalidArgumentErr
	}
	if len(name) > MaxFileNameLen {
		return NameTooLongErr
	}
	return nil
}

// Open opens the regular file at `path` and returns a descriptor for it.
// With file.Create the file must not exist yet and is created empty.
func (proc *Process) Open(path string, flags file.Flags) (int, error) {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if err := flags.Validate(); err != nil {
		return -1, fmt.Errorf("opening `%s`: %w", path, err)
	}
	if strings.HasSuffix(path, "/") {
		return -1, fmt.Errorf("opening `%s`: %w", path, IsADirErr)
	}
	fd, err := proc.freeSlot()
	if err != nil {
		return -1, fmt.Errorf("opening `%s`: %w", path, err)
	}

	var record lookup.SearchRecord
	defer record.Close()
	ino, found, err := lookup.Search(fs.root, proc.cwd, path, &record)
	if err != nil {
		return -1, fmt.Errorf("opening `%s`: %w", path, err)
	}
	if found && record.FileType == FileTypeDir {
		return -1, fmt.Errorf("opening `%s`: %w", path, IsADirErr)
	}
	if err := checkWalk(path, found, &record); err != nil {
		return -1, fmt.Errorf("opening `%s`: %w", path, err)
	}

	create := flags&file.Create != 0
	flags &^= file.Create

	var global int
	switch {
	case !found && !create:
		return -1, fmt.Errorf("opening `%s`: %w", path, NotFoundErr)
	case found && create:
		return -1, fmt.Errorf("creating `%s`: %w", path, ExistsErr)
	case create:
		name := lookup.Base(path)
		if err := checkName(name); err != nil {
			return -1, fmt.Errorf("creating `%s`: %w", path, err)
		}
		global, err = fs.files.Create(fs.partition, record.Parent, name, flags)
	default:
		global, err = fs.files.Open(fs.partition, ino, flags)
	}
	if err != nil {
		return -1, fmt.Errorf("opening `%s`: %w", path, err)
	}

	proc.fds[fd] = global
	return fd, nil
}

func (proc *Process) Close(fd int) error {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	global, err := proc.global(fd)
	if err != nil {
		return fmt.Errorf("closing: %w", err)
	}
	if err := fs.files.Close(global); err != nil {
		return fmt.Errorf("closing descriptor `%d`: %w", fd, err)
	}
	proc.fds[fd] = -1
	return nil
}

// Read reads from descriptor `fd`. It returns io.EOF at the end of a file.
func (proc *Process) Read(fd int, buf []byte) (int, error) {
	switch fd {
	case Stdin:
		if proc.Stdin == nil {
			return 0, fmt.Errorf("reading stdin: %w", BadFileDescriptorErr)
		}
		return proc.Stdin.Read(buf)
	case Stdout, Stderr:
		return 0, fmt.Errorf("reading descriptor `%d`: %w", fd, BadFileDescriptorErr)
	}

	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	f, err := proc.file(fd)
	if err != nil {
		return 0, fmt.Errorf("reading: %w", err)
	}
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("reading descriptor `%d`: %w", fd, err)
	}
	return n, err
}

func (proc *Process) Write(fd int, buf []byte) (int, error) {
	var w io.Writer
	switch fd {
	case Stdin:
		return 0, fmt.Errorf("writing stdin: %w", BadFileDescriptorErr)
	case Stdout:
		w = proc.Stdout
	case Stderr:
		w = proc.Stderr
	}
	if fd == Stdout || fd == Stderr {
		if w == nil {
			return 0, fmt.Errorf("writing descriptor `%d`: %w", fd, BadFileDescriptorErr)
		}
		return w.Write(buf)
	}

	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	f, err := proc.file(fd)
	if err != nil {
		return 0, fmt.Errorf("writing: %w", err)
	}
	n, err := f.Write(buf)
	if err != nil {
		return n, fmt.Errorf("writing descriptor `%d`: %w", fd, err)
	}
	return n, nil
}

// Lseek moves the position of `fd` and returns the new position.
func (proc *Process) Lseek(fd int, offset int64, whence file.Whence) (Byte, error) {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	f, err := proc.file(fd)
	if err != nil {
		return 0, fmt.Errorf("seeking: %w", err)
	}
	pos, err := f.Seek(offset, whence)
	if err != nil {
		return pos, fmt.Errorf("seeking descriptor `%d`: %w", fd, err)
	}
	return pos, nil
}

// Unlink removes the regular file at `path` and releases its inode and
// blocks. Open files cannot be unlinked.
func (proc *Process) Unlink(path string) error {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	var record lookup.SearchRecord
	defer record.Close()
	ino, found, err := lookup.Search(fs.root, proc.cwd, path, &record)
	if err != nil {
		return fmt.Errorf("unlinking `%s`: %w", path, err)
	}
	if err := checkWalk(path, found, &record); err != nil {
		return fmt.Errorf("unlinking `%s`: %w", path, err)
	}
	if !found {
		return fmt.Errorf("unlinking `%s`: %w", path, NotFoundErr)
	}
	if record.FileType == FileTypeDir {
		return fmt.Errorf("unlinking `%s`: %w", path, IsADirErr)
	}
	if fs.files.Holds(ino) || fs.partition.Inodes.IsOpen(ino) {
		return fmt.Errorf("unlinking `%s`: file is open: %w", path, BusyErr)
	}

	if err := record.Parent.Delete(ino); err != nil {
		return fmt.Errorf("unlinking `%s`: %w", path, err)
	}
	if err := fs.partition.ReleaseInode(ino); err != nil {
		return fmt.Errorf("unlinking `%s`: %w", path, err)
	}
	fs.Logger.Debug("unlinked file", "path", path, "ino", ino)
	return nil
}
