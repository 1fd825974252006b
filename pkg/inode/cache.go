package inode

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/weberc2/sectorfs/pkg/types"
)

// Inode is the shared in-memory copy of an on-disk inode. Every opener of
// the same number holds the same *Inode. The embedded record is mutated
// directly by callers; the open count and write-deny flag are owned by the
// Cache.
type Inode struct {
	types.Inode
	openCount int
	writeDeny bool
}

// Cache is a partition's registry of open inodes.
type Cache struct {
	mutex  sync.Mutex
	table  *Table
	open   map[types.Ino]*Inode
	Logger *slog.Logger
}

func NewCache(table *Table, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		table:  table,
		open:   make(map[types.Ino]*Inode),
		Logger: logger,
	}
}

// Open acquires a reference to inode `ino`, loading it from the table when
// nobody else holds it.
func (c *Cache) Open(ino types.Ino) (*Inode, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if inode, ok := c.open[ino]; ok {
		inode.openCount++
		return inode, nil
	}

	inode := Inode{openCount: 1}
	if err := c.table.Read(ino, &inode.Inode); err != nil {
		return nil, fmt.Errorf("opening inode: %w", err)
	}
	c.open[ino] = &inode
	c.Logger.Debug("loaded inode", "ino", ino, "size", inode.Size)
	return &inode, nil
}

// Adopt registers a freshly built inode with an open count of one. The
// inode must not already be open.
func (c *Cache) Adopt(record *types.Inode) *Inode {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, ok := c.open[record.Ino]; ok {
		panic(fmt.Sprintf("inode cache: adopting open inode `%d`", record.Ino))
	}
	inode := &Inode{Inode: *record, openCount: 1}
	c.open[record.Ino] = inode
	return inode
}

// Close releases one reference. The last release drops the inode from the
// registry; unsynced changes are lost.
func (c *Cache) Close(inode *Inode) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if inode.openCount < 1 {
		panic(fmt.Sprintf("inode cache: closing unopened inode `%d`", inode.Ino))
	}
	inode.openCount--
	if inode.openCount == 0 {
		delete(c.open, inode.Ino)
		c.Logger.Debug("evicted inode", "ino", inode.Ino)
	}
}

func (c *Cache) Sync(inode *Inode) error {
	if err := c.table.Write(&inode.Inode); err != nil {
		return fmt.Errorf("syncing inode: %w", err)
	}
	return nil
}

// Zero wipes the on-disk record of `ino`.
func (c *Cache) Zero(ino types.Ino) error { return c.table.Zero(ino) }

// DenyWrite sets the write-deny flag if it was clear and reports whether it
// did.
func (c *Cache) DenyWrite(inode *Inode) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if inode.writeDeny {
		return false
	}
	inode.writeDeny = true
	return true
}

func (c *Cache) AllowWrite(inode *Inode) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	inode.writeDeny = false
}

func (c *Cache) WriteDenied(inode *Inode) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return inode.writeDeny
}

func (c *Cache) OpenCount(inode *Inode) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return inode.openCount
}

// IsOpen reports whether anybody holds `ino`.
func (c *Cache) IsOpen(ino types.Ino) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.open[ino]
	return ok
}

// Len is the number of distinct open inodes.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.open)
}
