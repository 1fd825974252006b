package inode

import (
	"encoding/json"
	"testing"

	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/types"
)

func newTestTable() (*disk.Buffer, *Table) {
	d := disk.NewBuffer(32)
	return d, NewTable(d, 2, 64)
}

func TestTable_ReadWrite(t *testing.T) {
	for _, testCase := range []struct {
		name   string
		ino    types.Ino
		twoSec bool
	}{
		{name: "first record", ino: 0},
		{name: "fits in one sector", ino: 5},
		{name: "straddles two sectors", ino: 6, twoSec: true},
		{name: "later sector", ino: 41},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			_, table := newTestTable()
			if found := table.locate(testCase.ino).twoSec; found != testCase.twoSec {
				t.Fatalf(
					"twoSec: wanted `%t`; found `%t`",
					testCase.twoSec,
					found,
				)
			}

			wanted := types.Inode{Ino: testCase.ino, Size: 1234}
			for i := range wanted.Sectors {
				wanted.Sectors[i] = types.LBA(1000 + i)
			}
			if err := table.Write(&wanted); err != nil {
				t.Fatalf("Write(): unexpected err: %v", err)
			}

			var found types.Inode
			if err := table.Read(testCase.ino, &found); err != nil {
				t.Fatalf("Read(): unexpected err: %v", err)
			}
			if wanted != found {
				wantedData, _ := json.Marshal(wanted)
				foundData, _ := json.Marshal(found)
				t.Fatalf("wanted `%s`; found `%s`", wantedData, foundData)
			}
		})
	}
}

func TestTable_WriteLeavesNeighborsAlone(t *testing.T) {
	_, table := newTestTable()
	for ino := types.Ino(5); ino <= 7; ino++ {
		if err := table.Write(&types.Inode{Ino: ino, Size: types.Byte(ino)}); err != nil {
			t.Fatalf("writing inode `%d`: unexpected err: %v", ino, err)
		}
	}
	if err := table.Zero(6); err != nil {
		t.Fatalf("Zero(): unexpected err: %v", err)
	}

	for ino, wantedSize := range map[types.Ino]types.Byte{5: 5, 6: 0, 7: 7} {
		var found types.Inode
		if err := table.Read(ino, &found); err != nil {
			t.Fatalf("reading inode `%d`: unexpected err: %v", ino, err)
		}
		if found.Size != wantedSize {
			t.Fatalf(
				"inode `%d`: size: wanted `%d`; found `%d`",
				ino,
				wantedSize,
				found.Size,
			)
		}
	}
}

func TestTable_OutOfRangePanics(t *testing.T) {
	_, table := newTestTable()
	defer func() {
		if recover() == nil {
			t.Fatal("wanted panic for out-of-range ino")
		}
	}()
	var inode types.Inode
	table.Read(64, &inode)
}

func TestCache_SharesInstances(t *testing.T) {
	_, table := newTestTable()
	if err := table.Write(&types.Inode{Ino: 3, Size: 42}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	cache := NewCache(table, nil)

	a, err := cache.Open(3)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	b, err := cache.Open(3)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if a != b {
		t.Fatal("wanted both openers to share one instance")
	}
	if found := cache.OpenCount(a); found != 2 {
		t.Fatalf("open count: wanted `2`; found `%d`", found)
	}

	// mutations through one handle are visible through the other
	a.Size = 99
	if b.Size != 99 {
		t.Fatalf("size: wanted `99`; found `%d`", b.Size)
	}

	cache.Close(a)
	if !cache.IsOpen(3) {
		t.Fatal("wanted inode to stay cached while one opener remains")
	}
	cache.Close(b)
	if cache.IsOpen(3) {
		t.Fatal("wanted inode to be evicted after the last close")
	}

	// the unsynced size change was dropped with the last reference
	c, err := cache.Open(3)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.Size != 42 {
		t.Fatalf("size: wanted `42`; found `%d`", c.Size)
	}
}

func TestCache_DenyWrite(t *testing.T) {
	_, table := newTestTable()
	cache := NewCache(table, nil)
	inode := cache.Adopt(&types.Inode{Ino: 1})

	if !cache.DenyWrite(inode) {
		t.Fatal("first DenyWrite(): wanted `true`")
	}
	if cache.DenyWrite(inode) {
		t.Fatal("second DenyWrite(): wanted `false`")
	}
	cache.AllowWrite(inode)
	if cache.WriteDenied(inode) {
		t.Fatal("wanted write-deny cleared after AllowWrite()")
	}
}

func TestCache_SyncZeroesMemoryOnlyFields(t *testing.T) {
	d, table := newTestTable()
	cache := NewCache(table, nil)
	inode := cache.Adopt(&types.Inode{Ino: 0, Size: 7})
	cache.DenyWrite(inode)

	if err := cache.Sync(inode); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// open count and write-deny sit at offsets 8..16 of the record
	record := d.Bytes()[2*types.SectorSize:]
	for i := 8; i < 16; i++ {
		if record[i] != 0 {
			t.Fatalf("byte `%d`: wanted `0`; found `%d`", i, record[i])
		}
	}
	if record[4] != 7 {
		t.Fatalf("size: wanted `7`; found `%d`", record[4])
	}
}

func TestLoadBlockMap(t *testing.T) {
	d := disk.NewBuffer(16)
	inode := types.Inode{Ino: 1}
	inode.Sectors[0] = 3

	var bm BlockMap
	n, err := LoadBlockMap(d, &inode, &bm)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != types.DirectBlocksCount {
		t.Fatalf("wanted `%d`; found `%d`", types.DirectBlocksCount, n)
	}

	bm[types.DirectBlocksCount+5] = 9
	if err := bm.StoreIndirect(d, 10); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	inode.Sectors[types.IndirectSlot] = 10

	var reloaded BlockMap
	if n, err = LoadBlockMap(d, &inode, &reloaded); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != types.MaxBlocks {
		t.Fatalf("wanted `%d`; found `%d`", types.MaxBlocks, n)
	}
	if reloaded != bm {
		t.Fatal("reloaded block map differs from the stored one")
	}
}
