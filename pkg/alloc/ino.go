package alloc

import . "github.com/weberc2/sectorfs/pkg/types"

type InoAllocator struct {
	*Allocator
}

func (ia InoAllocator) Alloc() (Ino, error) {
	if bit, ok := ia.Allocator.Alloc(); ok {
		return Ino(bit), nil
	}
	return 0, OutOfInodesErr
}

func (ia InoAllocator) Free(ino Ino) { ia.Allocator.Free(uint32(ino)) }

func (ia InoAllocator) Reserve(ino Ino) { ia.Allocator.Reserve(uint32(ino)) }

func (ia InoAllocator) Test(ino Ino) bool { return ia.Allocator.Test(uint32(ino)) }

func (ia InoAllocator) Sync(ino Ino) error { return ia.Allocator.Sync(uint32(ino)) }
