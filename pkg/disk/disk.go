package disk

import (
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// Disk is a sector-granular block device. The length of every buffer passed
// to ReadSectors or WriteSectors must be a multiple of the sector size; the
// number of sectors transferred is implied by that length. Calls block until
// the transfer is complete.
type Disk interface {
	ReadSectors(lba LBA, buf []byte) error
	WriteSectors(lba LBA, buf []byte) error
	Sectors() uint32
}

const (
	OutOfRangeErr    ConstError = "sector range out of bounds"
	UnalignedBufErr  ConstError = "buffer length is not a multiple of the sector size"
	MissingSectorErr ConstError = "sector count missing from image metadata"
)

func checkRange(d Disk, lba LBA, buf []byte) error {
	if Byte(len(buf))%SectorSize != 0 {
		return fmt.Errorf(
			"transferring `%d` bytes at sector `%d`: %w",
			len(buf),
			lba,
			UnalignedBufErr,
		)
	}
	count := uint64(Byte(len(buf)) / SectorSize)
	if uint64(lba)+count > uint64(d.Sectors()) {
		return fmt.Errorf(
			"transferring `%d` sectors at sector `%d` (disk has `%d`): %w",
			count,
			lba,
			d.Sectors(),
			OutOfRangeErr,
		)
	}
	return nil
}
