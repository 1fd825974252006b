package encode

import (
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

type BadMagicErr struct {
	Found uint32
}

func (err BadMagicErr) Error() string {
	return fmt.Sprintf(
		"bad magic: wanted `%#08x`; found `%#08x`",
		SuperblockMagic,
		err.Found,
	)
}

func EncodeSuperblock(sb *Superblock, b *[SectorSize]byte) {
	p := b[:]
	putU32(p, sbMagicStart, sb.Magic)
	putU32(p, sbSectorCountStart, sb.SectorCount)
	putU32(p, sbInodeCountStart, sb.InodeCount)
	putLBA(p, sbPartLBABaseStart, sb.PartLBABase)
	putLBA(p, sbBlockBitmapLBAStart, sb.BlockBitmapLBA)
	putU32(p, sbBlockBitmapSectsStart, sb.BlockBitmapSects)
	putLBA(p, sbInodeBitmapLBAStart, sb.InodeBitmapLBA)
	putU32(p, sbInodeBitmapSectsStart, sb.InodeBitmapSects)
	putLBA(p, sbInodeTableLBAStart, sb.InodeTableLBA)
	putU32(p, sbInodeTableSectsStart, sb.InodeTableSects)
	putLBA(p, sbDataStartLBAStart, sb.DataStartLBA)
	putIno(p, sbRootInoStart, sb.RootIno)
	putU32(p, sbDirEntrySizeStart, uint32(sb.DirEntrySize))
	copy(p[sbVolumeIDStart:sbVolumeIDEnd], sb.VolumeID[:])
	for i := sbVolumeIDEnd; i < SectorSize; i++ {
		p[i] = 0
	}
}

// DecodeSuperblock fails with BadMagicErr when the sector does not hold a
// superblock; `sb` is left untouched in that case.
func DecodeSuperblock(sb *Superblock, b *[SectorSize]byte) error {
	p := b[:]
	if magic := getU32(p, sbMagicStart); magic != SuperblockMagic {
		return fmt.Errorf("decoding superblock: %w", BadMagicErr{magic})
	}

	sb.Magic = getU32(p, sbMagicStart)
	sb.SectorCount = getU32(p, sbSectorCountStart)
	sb.InodeCount = getU32(p, sbInodeCountStart)
	sb.PartLBABase = getLBA(p, sbPartLBABaseStart)
	sb.BlockBitmapLBA = getLBA(p, sbBlockBitmapLBAStart)
	sb.BlockBitmapSects = getU32(p, sbBlockBitmapSectsStart)
	sb.InodeBitmapLBA = getLBA(p, sbInodeBitmapLBAStart)
	sb.InodeBitmapSects = getU32(p, sbInodeBitmapSectsStart)
	sb.InodeTableLBA = getLBA(p, sbInodeTableLBAStart)
	sb.InodeTableSects = getU32(p, sbInodeTableSectsStart)
	sb.DataStartLBA = getLBA(p, sbDataStartLBAStart)
	sb.RootIno = getIno(p, sbRootInoStart)
	sb.DirEntrySize = Byte(getU32(p, sbDirEntrySizeStart))
	copy(sb.VolumeID[:], p[sbVolumeIDStart:sbVolumeIDEnd])
	return nil
}

const (
	sbMagicStart            Byte = 0
	sbSectorCountStart      Byte = 4
	sbInodeCountStart       Byte = 8
	sbPartLBABaseStart      Byte = 12
	sbBlockBitmapLBAStart   Byte = 16
	sbBlockBitmapSectsStart Byte = 20
	sbInodeBitmapLBAStart   Byte = 24
	sbInodeBitmapSectsStart Byte = 28
	sbInodeTableLBAStart    Byte = 32
	sbInodeTableSectsStart  Byte = 36
	sbDataStartLBAStart     Byte = 40
	sbRootInoStart          Byte = 44
	sbDirEntrySizeStart     Byte = 48

	// the volume id lives at the front of what is otherwise padding
	sbVolumeIDStart Byte = 52
	sbVolumeIDSize  Byte = 16
	sbVolumeIDEnd        = sbVolumeIDStart + sbVolumeIDSize
)
