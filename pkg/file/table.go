package file

import (
	"sync"

	"github.com/weberc2/sectorfs/pkg/inode"
	"github.com/weberc2/sectorfs/pkg/partition"
	. "github.com/weberc2/sectorfs/pkg/types"
)

const (
	// MaxFileOpen is the size of the system-wide open file table.
	MaxFileOpen = 32

	// ReservedFDs are the leading slots of every descriptor table that are
	// set aside for stdin, stdout and stderr.
	ReservedFDs = 3
)

// File is one open file description.
type File struct {
	Pos       Byte
	Flags     Flags
	Inode     *inode.Inode
	Partition *partition.Partition
}

// Table is the system-wide open file table.
type Table struct {
	mutex sync.Mutex
	files [MaxFileOpen]*File
}

func NewTable() *Table { return &Table{} }

// install puts `f` in the first free slot at or after ReservedFDs.
func (t *Table) install(f *File) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for i := ReservedFDs; i < MaxFileOpen; i++ {
		if t.files[i] == nil {
			t.files[i] = f
			return i, nil
		}
	}
	return -1, FileTableFullErr
}

func (t *Table) remove(idx int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.files[idx] = nil
}

// Get returns the file in slot `idx`, or nil if the slot is out of range
// or free.
func (t *Table) Get(idx int) *File {
	if idx < ReservedFDs || idx >= MaxFileOpen {
		return nil
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.files[idx]
}

// Holds reports whether any open file refers to inode `ino`.
func (t *Table) Holds(ino Ino) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, f := range t.files {
		if f != nil && f.Inode != nil && f.Inode.Ino == ino {
			return true
		}
	}
	return false
}

// Len is the number of open files.
func (t *Table) Len() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	n := 0
	for _, f := range t.files {
		if f != nil {
			n++
		}
	}
	return n
}
