package disk

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/weberc2/sectorfs/pkg/types"
)

func TestBuffer_OutOfRange(t *testing.T) {
	b := NewBuffer(4)
	buf := make([]byte, 2*SectorSize)
	if err := b.ReadSectors(3, buf); !errors.Is(err, OutOfRangeErr) {
		t.Fatalf("ReadSectors(): wanted `%v`; found `%v`", OutOfRangeErr, err)
	}
	if err := b.WriteSectors(0, buf[:10]); !errors.Is(err, UnalignedBufErr) {
		t.Fatalf("WriteSectors(): wanted `%v`; found `%v`", UnalignedBufErr, err)
	}
}

func TestPartition_Offset(t *testing.T) {
	inner := NewBuffer(8)
	p, err := NewPartition(inner, "sdb1", 3, 4)
	if err != nil {
		t.Fatalf("NewPartition(): unexpected err: %v", err)
	}

	sector := bytes.Repeat([]byte{0xab}, int(SectorSize))
	if err := p.WriteSectors(1, sector); err != nil {
		t.Fatalf("WriteSectors(): unexpected err: %v", err)
	}

	found := inner.Bytes()[4*SectorSize : 5*SectorSize]
	if !bytes.Equal(found, sector) {
		t.Fatal("partition sector `1` did not land on disk sector `4`")
	}

	if err := p.WriteSectors(4, sector); !errors.Is(err, OutOfRangeErr) {
		t.Fatalf("WriteSectors(): wanted `%v`; found `%v`", OutOfRangeErr, err)
	}

	if _, err := NewPartition(inner, "sdb2", 6, 4); !errors.Is(
		err,
		OutOfRangeErr,
	) {
		t.Fatalf("NewPartition(): wanted `%v`; found `%v`", OutOfRangeErr, err)
	}
}

func TestBoltDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.db")
	d, err := OpenBolt(path, 16)
	if err != nil {
		t.Fatalf("OpenBolt(): unexpected err: %v", err)
	}

	data := bytes.Repeat([]byte("sector!!"), int(SectorSize)/8*2)
	if err := d.WriteSectors(5, data); err != nil {
		t.Fatalf("WriteSectors(): unexpected err: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}

	// the recorded sector count wins over the argument on reopen
	d, err = OpenBolt(path, 0)
	if err != nil {
		t.Fatalf("OpenBolt(): unexpected err: %v", err)
	}
	defer d.Close()

	if d.Sectors() != 16 {
		t.Fatalf("Sectors(): wanted `16`; found `%d`", d.Sectors())
	}

	found := make([]byte, 3*SectorSize)
	if err := d.ReadSectors(4, found); err != nil {
		t.Fatalf("ReadSectors(): unexpected err: %v", err)
	}
	if !bytes.Equal(found[:SectorSize], make([]byte, SectorSize)) {
		t.Fatal("unwritten sector `4` should read back as zeroes")
	}
	if !bytes.Equal(found[SectorSize:], data) {
		t.Fatal("sectors `5` and `6` did not round trip")
	}
}
