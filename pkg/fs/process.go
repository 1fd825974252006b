package fs

import (
	"fmt"
	"io"

	"github.com/weberc2/sectorfs/pkg/file"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// MaxFilesOpenPerProc is the size of each process's descriptor table,
// including the three standard descriptors.
const MaxFilesOpenPerProc = 8

const (
	Stdin  = 0
	Stdout = 1
	Stderr = 2
)

// Process is one caller of the filesystem: a private descriptor table that
// maps onto the shared open file table, and a working directory.
type Process struct {
	fs     *FileSystem
	fds    [MaxFilesOpenPerProc]int
	cwd    Ino
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (proc *Process) FileSystem() *FileSystem { return proc.fs }

// Cwd returns the inode number of the working directory.
func (proc *Process) Cwd() Ino { return proc.cwd }

func (proc *Process) freeSlot() (int, error) {
	for i := file.ReservedFDs; i < MaxFilesOpenPerProc; i++ {
		if proc.fds[i] == -1 {
			return i, nil
		}
	}
	return -1, ProcFileTableErr
}

func (proc *Process) global(fd int) (int, error) {
	if fd < file.ReservedFDs || fd >= MaxFilesOpenPerProc || proc.fds[fd] == -1 {
		return -1, fmt.Errorf("descriptor `%d`: %w", fd, BadFileDescriptorErr)
	}
	return proc.fds[fd], nil
}

func (proc *Process) file(fd int) (*file.File, error) {
	global, err := proc.global(fd)
	if err != nil {
		return nil, err
	}
	f := proc.fs.files.Get(global)
	if f == nil {
		panic(fmt.Sprintf(
			"descriptor `%d` maps to free open file slot `%d`",
			fd,
			global,
		))
	}
	return f, nil
}

// Exit closes every descriptor the process still holds and releases its
// working directory. The process must not be used afterwards.
func (proc *Process) Exit() {
	proc.fs.mutex.Lock()
	defer proc.fs.mutex.Unlock()
	for fd := file.ReservedFDs; fd < MaxFilesOpenPerProc; fd++ {
		if proc.fds[fd] != -1 {
			if err := proc.fs.files.Close(proc.fds[fd]); err != nil {
				proc.fs.Logger.Error(
					"closing descriptor on exit",
					"fd", fd,
					"err", err.Error(),
				)
			}
			proc.fds[fd] = -1
		}
	}
	proc.fs.leave(proc)
}

// setCwd moves `proc` to directory `ino`, keeping count of how many
// processes sit in each directory. Callers hold the filesystem mutex.
func (fs *FileSystem) setCwd(proc *Process, ino Ino) {
	fs.leave(proc)
	proc.cwd = ino
	fs.cwds[ino]++
}

func (fs *FileSystem) leave(proc *Process) {
	if fs.cwds[proc.cwd]--; fs.cwds[proc.cwd] == 0 {
		delete(fs.cwds, proc.cwd)
	}
}
