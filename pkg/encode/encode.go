package encode

import (
	"encoding/binary"

	. "github.com/weberc2/sectorfs/pkg/types"
)

func putLBA(b []byte, start Byte, lba LBA) {
	putU32(b, start, uint32(lba))
}

func getLBA(b []byte, start Byte) LBA {
	return LBA(getU32(b, start))
}

func putIno(b []byte, start Byte, ino Ino) {
	putU32(b, start, uint32(ino))
}

func getIno(b []byte, start Byte) Ino {
	return Ino(getU32(b, start))
}

func putU32(b []byte, start Byte, u uint32) {
	binary.LittleEndian.PutUint32(b[start:start+4], u)
}

func getU32(b []byte, start Byte) uint32 {
	return binary.LittleEndian.Uint32(b[start : start+4])
}

func putU8(b []byte, start Byte, u uint8) {
	b[start] = u
}

func getU8(b []byte, start Byte) uint8 {
	return b[start]
}

// EncodeBlockPointers writes `blocks` as consecutive little-endian pointers,
// the layout of an indirect block.
func EncodeBlockPointers(blocks []LBA, b []byte) {
	for i, lba := range blocks {
		putLBA(b, Byte(i)*BlockPointerSize, lba)
	}
}

func DecodeBlockPointers(blocks []LBA, b []byte) {
	for i := range blocks {
		blocks[i] = getLBA(b, Byte(i)*BlockPointerSize)
	}
}
