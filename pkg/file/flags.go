package file

import (
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

type Flags uint32

const (
	ReadOnly  Flags = 0
	WriteOnly Flags = 1
	ReadWrite Flags = 2
	Create    Flags = 4

	accessMask Flags = 3
)

func (flags Flags) Readable() bool {
	access := flags & accessMask
	return access == ReadOnly || access == ReadWrite
}

func (flags Flags) Writable() bool {
	access := flags & accessMask
	return access == WriteOnly || access == ReadWrite
}

func (flags Flags) Validate() error {
	if flags&accessMask == accessMask || flags&^(accessMask|Create) != 0 {
		return fmt.Errorf("open flags `%#x`: %w", uint32(flags), InvalidArgumentErr)
	}
	return nil
}

type Whence int

const (
	SeekSet Whence = 1
	SeekCur Whence = 2
	SeekEnd Whence = 3
)
