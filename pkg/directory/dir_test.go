package directory

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/partition"
	"github.com/weberc2/sectorfs/pkg/testsupport"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// entries per block, minus the two dot entries in the first block
const firstBlockFree = 24 - 2

func mountRoot(t *testing.T) (*partition.Partition, *Dir) {
	t.Helper()
	d := disk.NewBuffer(256)
	if _, err := partition.Format(d, partition.FormatOptions{Inodes: 64}); err != nil {
		t.Fatalf("formatting: unexpected err: %v", err)
	}
	p, err := partition.Mount(d, "sdb1", nil)
	if err != nil {
		t.Fatalf("mounting: unexpected err: %v", err)
	}
	root, err := OpenRoot(p)
	if err != nil {
		t.Fatalf("opening root: unexpected err: %v", err)
	}
	return p, root
}

func appendN(t *testing.T, dir *Dir, start, n int) {
	t.Helper()
	for i := start; i < start+n; i++ {
		if err := dir.Append(&DirEntry{
			Name:     fmt.Sprintf("f%d", i),
			Ino:      Ino(i + 1),
			FileType: FileTypeRegular,
		}); err != nil {
			t.Fatalf("appending entry `%d`: unexpected err: %v", i, err)
		}
	}
}

func names(t *testing.T, dir *Dir) []string {
	t.Helper()
	entries, err := dir.ReadAll()
	if err != nil {
		t.Fatalf("reading directory: unexpected err: %v", err)
	}
	out := make([]string, len(entries))
	for i := range entries {
		out[i] = entries[i].Name
	}
	return out
}

func TestDir_AppendFindDelete(t *testing.T) {
	_, root := mountRoot(t)
	appendN(t, root, 0, 3)

	var entry DirEntry
	found, err := root.Find("f1", &entry)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !found {
		t.Fatal("wanted `f1` to be found")
	}
	if wanted := (DirEntry{Name: "f1", Ino: 2, FileType: FileTypeRegular}); entry != wanted {
		t.Fatalf("wanted `%+v`; found `%+v`", wanted, entry)
	}

	if err := root.Delete(2); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if found, _ := root.Find("f1", &entry); found {
		t.Fatal("wanted `f1` to be gone after Delete()")
	}
	if err := root.Delete(2); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}

	if wanted := 4 * DirEntrySize; root.Inode.Size != wanted {
		t.Fatalf("size: wanted `%d`; found `%d`", wanted, root.Inode.Size)
	}
}

func TestDir_DeleteNeverMatchesDots(t *testing.T) {
	_, root := mountRoot(t)
	if err := root.Delete(InoRoot); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if !root.IsEmpty() {
		t.Fatal("wanted root to still be empty")
	}
}

func TestDir_AppendReusesTombstones(t *testing.T) {
	_, root := mountRoot(t)
	appendN(t, root, 0, 3)
	if err := root.Delete(2); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	appendN(t, root, 3, 1)

	wanted := []string{".", "..", "f0", "f3", "f2"}
	if diff := cmp.Diff(wanted, names(t, root)); diff != "" {
		t.Fatalf("unexpected entries (-wanted +found):\n%s", diff)
	}
}

func TestDir_GrowthAndReclaim(t *testing.T) {
	p, root := mountRoot(t)
	appendN(t, root, 0, firstBlockFree)
	if root.Inode.Sectors[1] != LBANil {
		t.Fatal("wanted the first block to absorb the first entries")
	}

	appendN(t, root, firstBlockFree, 1)
	second := root.Inode.Sectors[1]
	if second == LBANil {
		t.Fatal("wanted growth into the second direct block")
	}

	// the new entry is alone in its block, so deleting it hands the block
	// back
	if err := root.Delete(Ino(firstBlockFree + 1)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if root.Inode.Sectors[1] != LBANil {
		t.Fatalf("wanted slot 1 cleared; found `%d`", root.Inode.Sectors[1])
	}
	if p.Blocks.Test(second) {
		t.Fatalf("wanted block `%d` freed", second)
	}
	if found, err := p.Blocks.Alloc(); err != nil || found != second {
		t.Fatalf("wanted `%d`; found `%d` (err: %v)", second, found, err)
	}
}

func TestDir_ReclaimRevertsWhenInodeSyncFails(t *testing.T) {
	d := &testsupport.FaultyDisk{Disk: disk.NewBuffer(256), WritesLeft: -1}
	if _, err := partition.Format(d, partition.FormatOptions{Inodes: 64}); err != nil {
		t.Fatalf("formatting: unexpected err: %v", err)
	}
	p, err := partition.Mount(d, "sdb1", nil)
	if err != nil {
		t.Fatalf("mounting: unexpected err: %v", err)
	}
	root, err := OpenRoot(p)
	if err != nil {
		t.Fatalf("opening root: unexpected err: %v", err)
	}
	appendN(t, root, 0, firstBlockFree+1)
	second := root.Inode.Sectors[1]
	size := root.Inode.Size
	before := p.Usage()

	// the bitmap sync for the freed block succeeds; the directory inode
	// sync behind it fails
	d.WritesLeft = 1
	err = root.Delete(Ino(firstBlockFree + 1))
	if !errors.Is(err, testsupport.InjectedWriteErr) {
		t.Fatalf("wanted `%v`; found `%v`", testsupport.InjectedWriteErr, err)
	}
	d.WritesLeft = -1

	if root.Inode.Sectors[1] != second {
		t.Fatalf("wanted `%d`; found `%d`", second, root.Inode.Sectors[1])
	}
	if root.Inode.Size != size {
		t.Fatalf("wanted `%d`; found `%d`", size, root.Inode.Size)
	}
	if !p.Blocks.Test(second) {
		t.Fatalf("wanted block `%d` still allocated", second)
	}
	if after := p.Usage(); after != before {
		t.Fatalf("usage: wanted `%+v`; found `%+v`", before, after)
	}
	var entry DirEntry
	name := fmt.Sprintf("f%d", firstBlockFree)
	if found, err := root.Find(name, &entry); err != nil || !found {
		t.Fatalf("wanted `%s` to be findable (err: %v)", name, err)
	}

	// with the disk healthy again the delete goes through
	if err := root.Delete(Ino(firstBlockFree + 1)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.Blocks.Test(second) {
		t.Fatalf("wanted block `%d` freed", second)
	}
}

func TestDir_IndirectGrowthAndReclaim(t *testing.T) {
	p, root := mountRoot(t)
	direct := firstBlockFree + 24*(DirectBlocksCount-1)
	appendN(t, root, 0, direct)
	if root.Inode.Indirect() != LBANil {
		t.Fatal("wanted no indirect block while direct blocks have room")
	}
	before := p.Usage()

	appendN(t, root, direct, 1)
	if root.Inode.Indirect() == LBANil {
		t.Fatal("wanted growth into the indirect block")
	}
	var entry DirEntry
	if found, err := root.Find(fmt.Sprintf("f%d", direct), &entry); err != nil || !found {
		t.Fatalf("wanted indirect entry to be findable (err: %v)", err)
	}
	if after := p.Usage(); after.BlocksUsed != before.BlocksUsed+2 {
		t.Fatalf(
			"blocks used: wanted `%d`; found `%d`",
			before.BlocksUsed+2,
			after.BlocksUsed,
		)
	}

	if err := root.Delete(Ino(direct + 1)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if root.Inode.Indirect() != LBANil {
		t.Fatal("wanted the indirect block released with its last pointer")
	}
	if after := p.Usage(); after != before {
		t.Fatalf("usage: wanted `%+v`; found `%+v`", before, after)
	}
}

func TestDir_Full(t *testing.T) {
	_, root := mountRoot(t)
	capacity := 24*MaxBlocks - 2
	appendN(t, root, 0, capacity)

	err := root.Append(&DirEntry{Name: "one-too-many", Ino: 1, FileType: FileTypeRegular})
	if !errors.Is(err, DirFullErr) {
		t.Fatalf("wanted `%v`; found `%v`", DirFullErr, err)
	}

	var entry DirEntry
	if found, err := root.Find(fmt.Sprintf("f%d", capacity-1), &entry); err != nil || !found {
		t.Fatalf("wanted last entry to be findable (err: %v)", err)
	}
}

func TestDir_AppendOutOfBlocksReleasesIndirect(t *testing.T) {
	p, root := mountRoot(t)
	direct := firstBlockFree + 24*(DirectBlocksCount-1)
	appendN(t, root, 0, direct)

	// leave exactly one free block: enough for the indirect block but not
	// for the data block behind it
	for p.Usage().BlocksUsed < p.Usage().BlocksTotal-1 {
		if _, err := p.Blocks.Alloc(); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	before := p.Usage()

	err := root.Append(&DirEntry{Name: "x", Ino: 1, FileType: FileTypeRegular})
	if !errors.Is(err, OutOfBlocksErr) {
		t.Fatalf("wanted `%v`; found `%v`", OutOfBlocksErr, err)
	}
	if after := p.Usage(); after != before {
		t.Fatalf("usage: wanted `%+v`; found `%+v`", before, after)
	}
	if root.Inode.Indirect() != LBANil {
		t.Fatal("wanted indirect pointer left unset")
	}
}

func TestDir_AppendRejectsTombstoneAndLongNames(t *testing.T) {
	_, root := mountRoot(t)
	for _, testCase := range []struct {
		name   string
		entry  DirEntry
		wanted error
	}{
		{
			name:   "unknown file type",
			entry:  DirEntry{Name: "a", Ino: 1},
			wanted: InvalidArgumentErr,
		},
		{
			name: "name too long",
			entry: DirEntry{
				Name:     "abcdefghijklmnopq",
				Ino:      1,
				FileType: FileTypeRegular,
			},
			wanted: NameTooLongErr,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			if err := root.Append(&testCase.entry); !errors.Is(err, testCase.wanted) {
				t.Fatalf("wanted `%v`; found `%v`", testCase.wanted, err)
			}
		})
	}
}

func TestDir_ReadCursor(t *testing.T) {
	_, root := mountRoot(t)
	appendN(t, root, 0, 2)

	var entry DirEntry
	for _, wanted := range []string{".", "..", "f0", "f1"} {
		if err := root.Read(&entry); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if entry.Name != wanted {
			t.Fatalf("wanted `%s`; found `%s`", wanted, entry.Name)
		}
	}
	if err := root.Read(&entry); err != io.EOF {
		t.Fatalf("wanted `%v`; found `%v`", io.EOF, err)
	}

	root.Rewind()
	if err := root.Read(&entry); err != nil || entry.Name != "." {
		t.Fatalf("after rewind: wanted `.`; found `%s` (err: %v)", entry.Name, err)
	}
}

func TestDir_ParentIno(t *testing.T) {
	_, root := mountRoot(t)
	parent, err := root.ParentIno()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if parent != InoRoot {
		t.Fatalf("wanted `%d`; found `%d`", InoRoot, parent)
	}
}
