package encode

import (
	. "github.com/weberc2/sectorfs/pkg/types"
)

// EncodeInode writes the on-disk form of `inode`. The open count, write-deny
// flag and list linkage slots are always written as zero.
func EncodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]
	for i := range p {
		p[i] = 0
	}

	putIno(p, inodeInoStart, inode.Ino)
	putU32(p, inodeSizeStart, uint32(inode.Size))
	for i := range inode.Sectors {
		putLBA(p, inodeSectorsStart+Byte(i)*BlockPointerSize, inode.Sectors[i])
	}
}

func DecodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]
	inode.Ino = getIno(p, inodeInoStart)
	inode.Size = Byte(getU32(p, inodeSizeStart))
	for i := range inode.Sectors {
		inode.Sectors[i] = getLBA(p, inodeSectorsStart+Byte(i)*BlockPointerSize)
	}
}

const (
	inodeInoStart = 0
	inodeInoSize  = 4
	inodeInoEnd   = inodeInoStart + inodeInoSize

	inodeSizeStart = inodeInoEnd
	inodeSizeSize  = 4
	inodeSizeEnd   = inodeSizeStart + inodeSizeSize

	inodeOpenCountStart = inodeSizeEnd
	inodeOpenCountSize  = 4
	inodeOpenCountEnd   = inodeOpenCountStart + inodeOpenCountSize

	// one flag byte plus three bytes of alignment
	inodeWriteDenyStart = inodeOpenCountEnd
	inodeWriteDenySize  = 4
	inodeWriteDenyEnd   = inodeWriteDenyStart + inodeWriteDenySize

	inodeSectorsStart Byte = inodeWriteDenyEnd
	inodeSectorsSize       = BlockSlotsCount * BlockPointerSize
	inodeSectorsEnd        = inodeSectorsStart + inodeSectorsSize

	inodeListTagStart = inodeSectorsEnd
	inodeListTagSize  = 8
	inodeListTagEnd   = inodeListTagStart + inodeListTagSize
)

var _ = [1]struct{}{}[inodeListTagEnd-InodeSize]
