package alloc

import (
	"errors"
	"testing"

	"github.com/weberc2/sectorfs/pkg/disk"
	. "github.com/weberc2/sectorfs/pkg/types"
)

func TestBitmap_Alloc(t *testing.T) {
	for _, testCase := range []struct {
		name       string
		bits       uint32
		initial    []byte
		wanted     uint32
		wantedOK   bool
		wantedByte byte
	}{
		{
			name:       "empty",
			bits:       16,
			initial:    []byte{0, 0},
			wanted:     0,
			wantedOK:   true,
			wantedByte: 0b0000_0001,
		},
		{
			name:       "least significant bit first",
			bits:       16,
			initial:    []byte{0b0000_0111, 0},
			wanted:     3,
			wantedOK:   true,
			wantedByte: 0b0000_1111,
		},
		{
			name:       "skips full bytes",
			bits:       16,
			initial:    []byte{0xff, 0b1111_1110},
			wanted:     8,
			wantedOK:   true,
			wantedByte: 0xff,
		},
		{
			name:     "full",
			bits:     16,
			initial:  []byte{0xff, 0xff},
			wantedOK: false,
		},
		{
			name:     "clear bits past the length are not allocatable",
			bits:     10,
			initial:  []byte{0xff, 0b0000_0011},
			wantedOK: false,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			bm := FromBytes(testCase.initial, testCase.bits)
			found, ok := bm.Alloc()
			if ok != testCase.wantedOK {
				t.Fatalf("ok: wanted `%t`; found `%t`", testCase.wantedOK, ok)
			}
			if !ok {
				return
			}
			if found != testCase.wanted {
				t.Fatalf("wanted `%d`; found `%d`", testCase.wanted, found)
			}
			if b := bm.Bytes()[found/8]; b != testCase.wantedByte {
				t.Fatalf(
					"byte `%d`: wanted `%08b`; found `%08b`",
					found/8,
					testCase.wantedByte,
					b,
				)
			}
		})
	}
}

func TestBitmap_FreeThenAllocReturnsSameBit(t *testing.T) {
	bm := New(64)
	for i := 0; i < 10; i++ {
		bm.Alloc()
	}
	bm.Clear(4)
	if found, _ := bm.Alloc(); found != 4 {
		t.Fatalf("wanted `4`; found `%d`", found)
	}
	if found := bm.Count(); found != 10 {
		t.Fatalf("Count(): wanted `10`; found `%d`", found)
	}
}

func TestAllocator_SyncWritesOwningSector(t *testing.T) {
	d := disk.NewBuffer(4)
	a := NewAllocator(New(2*BitsPerSector), d, 1)
	a.Reserve(BitsPerSector + 9)

	if err := a.Sync(BitsPerSector + 9); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	data := d.Bytes()
	// bit 4096+9 is bit 1 of byte 1 of the second bitmap sector (LBA 2)
	if found := data[2*SectorSize+1]; found != 0b0000_0010 {
		t.Fatalf("wanted `%08b`; found `%08b`", 0b0000_0010, found)
	}
	for i, b := range data[SectorSize : 2*SectorSize] {
		if b != 0 {
			t.Fatalf("first bitmap sector: byte `%d` unexpectedly `%08b`", i, b)
		}
	}

	loaded, err := Load(d, 1, 2, 2*BitsPerSector)
	if err != nil {
		t.Fatalf("Load(): unexpected err: %v", err)
	}
	if !loaded.Test(BitsPerSector + 9) {
		t.Fatal("Load(): wanted synced bit to be set")
	}
}

func TestBlockAllocator(t *testing.T) {
	ba := BlockAllocator{
		Allocator: NewAllocator(New(2), disk.NewBuffer(2), 1),
		DataStart: 100,
	}

	for _, wanted := range []LBA{100, 101} {
		found, err := ba.Alloc()
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if found != wanted {
			t.Fatalf("wanted `%d`; found `%d`", wanted, found)
		}
	}

	if _, err := ba.Alloc(); !errors.Is(err, OutOfBlocksErr) {
		t.Fatalf("wanted `%v`; found `%v`", OutOfBlocksErr, err)
	}

	ba.Free(100)
	if found, err := ba.Alloc(); err != nil || found != 100 {
		t.Fatalf("wanted `100`; found `%d` (err: %v)", found, err)
	}
}

func TestInoAllocator(t *testing.T) {
	ia := InoAllocator{NewAllocator(New(3), disk.NewBuffer(2), 1)}
	ia.Reserve(0)

	found, err := ia.Alloc()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if found != 1 {
		t.Fatalf("wanted `1`; found `%d`", found)
	}

	ia.Alloc()
	if _, err := ia.Alloc(); !errors.Is(err, OutOfInodesErr) {
		t.Fatalf("wanted `%v`; found `%v`", OutOfInodesErr, err)
	}
}
