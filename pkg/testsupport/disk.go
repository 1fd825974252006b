package testsupport

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/types"
)

const InjectedWriteErr types.ConstError = "injected write failure"

// FaultyDisk passes transfers through to `Disk` until `WritesLeft` reaches
// zero, after which every write fails with InjectedWriteErr. A negative
// `WritesLeft` never fails.
type FaultyDisk struct {
	disk.Disk
	WritesLeft int
	Writes     int
}

func (fd *FaultyDisk) WriteSectors(lba types.LBA, buf []byte) error {
	if fd.WritesLeft == 0 {
		return fmt.Errorf("writing sector `%d`: %w", lba, InjectedWriteErr)
	}
	if fd.WritesLeft > 0 {
		fd.WritesLeft--
	}
	fd.Writes++
	return fd.Disk.WriteSectors(lba, buf)
}
