package encode

import (
	"bytes"
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// EncodeDirEntry writes `entry` into `b`, which must be exactly
// DirEntrySize bytes long. Names shorter than the name field are
// NUL-padded; a name that fills the field has no terminator.
func EncodeDirEntry(entry *DirEntry, b []byte) error {
	if len(entry.Name) > MaxFileNameLen {
		return fmt.Errorf(
			"encoding dir entry `%s`: %w",
			entry.Name,
			NameTooLongErr,
		)
	}
	for i := range b[:DirEntrySize] {
		b[i] = 0
	}
	copy(b[direntNameStart:direntNameEnd], entry.Name)
	putIno(b, direntInoStart, entry.Ino)
	putU8(b, direntFileTypeStart, uint8(entry.FileType))
	return nil
}

// DecodeDirEntry does not validate the file type; a zeroed slot is a
// perfectly valid tombstone. Callers check Live().
func DecodeDirEntry(entry *DirEntry, b []byte) {
	name := b[direntNameStart:direntNameEnd]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	entry.Name = string(name)
	entry.Ino = getIno(b, direntInoStart)
	entry.FileType = FileType(getU8(b, direntFileTypeStart))
}

// ClearDirEntry turns the slot into a tombstone.
func ClearDirEntry(b []byte) {
	for i := range b[:DirEntrySize] {
		b[i] = 0
	}
}

// DirEntryAt returns the bytes of the `index`th entry of a directory block.
func DirEntryAt(block []byte, index int) []byte {
	start := Byte(index) * DirEntrySize
	return block[start : start+DirEntrySize]
}

const (
	direntNameStart Byte = 0
	direntNameSize  Byte = MaxFileNameLen
	direntNameEnd        = direntNameStart + direntNameSize

	direntInoStart = direntNameEnd
	direntInoSize  = 4
	direntInoEnd   = direntInoStart + direntInoSize

	direntFileTypeStart = direntInoEnd
	direntFileTypeSize  = 1
	direntFileTypeEnd   = direntFileTypeStart + direntFileTypeSize
)

var _ = [1]struct{}{}[direntFileTypeEnd-DirEntrySize]
