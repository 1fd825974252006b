package alloc

import (
	"fmt"
	"sync"

	"github.com/weberc2/sectorfs/pkg/disk"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Allocator is a bitmap with a home on disk. Alloc, Free and Reserve only
// touch memory; the caller decides when a flip is durable and calls Sync for
// the bit it flipped.
type Allocator struct {
	mutex  sync.Mutex
	bitmap Bitmap
	disk   disk.Disk
	lba    LBA
}

func NewAllocator(bitmap Bitmap, d disk.Disk, lba LBA) *Allocator {
	return &Allocator{bitmap: bitmap, disk: d, lba: lba}
}

// Load reads `sects` bitmap sectors starting at `lba`.
func Load(d disk.Disk, lba LBA, sects uint32, bits uint32) (*Allocator, error) {
	buf := make([]byte, Byte(sects)*SectorSize)
	if err := d.ReadSectors(lba, buf); err != nil {
		return nil, fmt.Errorf(
			"loading bitmap at sector `%d` (`%d` sectors): %w",
			lba,
			sects,
			err,
		)
	}
	return NewAllocator(FromBytes(buf, bits), d, lba), nil
}

func (a *Allocator) Alloc() (uint32, bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.bitmap.Alloc()
}

func (a *Allocator) Free(idx uint32) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.bitmap.Clear(idx)
}

func (a *Allocator) Reserve(idx uint32) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.bitmap.Set(idx)
}

func (a *Allocator) Test(idx uint32) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.bitmap.Test(idx)
}

func (a *Allocator) Used() uint32 {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.bitmap.Count()
}

func (a *Allocator) Len() uint32 { return a.bitmap.Len() }

// Sync writes the single bitmap sector that holds bit `idx`.
func (a *Allocator) Sync(idx uint32) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	sector := idx / BitsPerSector
	start := Byte(sector) * SectorSize
	lba := a.lba + LBA(sector)
	if err := a.disk.WriteSectors(
		lba,
		a.bitmap.bytes[start:start+SectorSize],
	); err != nil {
		return fmt.Errorf("syncing bit `%d` to sector `%d`: %w", idx, lba, err)
	}
	return nil
}
