package partition

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/weberc2/sectorfs/pkg/alloc"
	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/encode"
	. "github.com/weberc2/sectorfs/pkg/types"
)

type FormatOptions struct {
	// Inodes defaults to MaxFilesPerPartition.
	Inodes uint32

	// VolumeID defaults to a random UUID.
	VolumeID uuid.UUID

	// PartLBABase is recorded in the superblock but otherwise unused.
	PartLBABase LBA

	Logger *slog.Logger
}

// Format writes an empty filesystem to `d`: superblock, both bitmaps, an
// inode table holding only the root directory, and the root directory's
// first block containing `.` and `..`.
func Format(d disk.Disk, opts FormatOptions) (*Superblock, error) {
	if opts.Inodes == 0 {
		opts.Inodes = MaxFilesPerPartition
	}
	if opts.VolumeID == uuid.Nil {
		opts.VolumeID = uuid.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	geo, err := NewGeometry(d.Sectors(), opts.Inodes, opts.PartLBABase, opts.VolumeID)
	if err != nil {
		return nil, fmt.Errorf("formatting: %w", err)
	}
	sb := &geo.Superblock

	// superblock
	var sector [SectorSize]byte
	encode.EncodeSuperblock(sb, &sector)
	if err := d.WriteSectors(SuperblockLBA, sector[:]); err != nil {
		return nil, fmt.Errorf("formatting: writing superblock: %w", err)
	}

	// block bitmap: the root directory's first block is in use, as is every
	// bit past the end of the data region
	blocks := alloc.FromBytes(
		make([]byte, Byte(sb.BlockBitmapSects)*SectorSize),
		sb.BlockBitmapSects*BitsPerSector,
	)
	blocks.Set(0)
	for bit := geo.BlockBits; bit < blocks.Len(); bit++ {
		blocks.Set(bit)
	}
	if err := d.WriteSectors(sb.BlockBitmapLBA, blocks.Bytes()); err != nil {
		return nil, fmt.Errorf("formatting: writing block bitmap: %w", err)
	}

	// inode bitmap: the root inode is in use, as is every bit past the
	// inode count
	inos := alloc.FromBytes(
		make([]byte, Byte(sb.InodeBitmapSects)*SectorSize),
		sb.InodeBitmapSects*BitsPerSector,
	)
	inos.Set(uint32(InoRoot))
	for bit := sb.InodeCount; bit < inos.Len(); bit++ {
		inos.Set(bit)
	}
	if err := d.WriteSectors(sb.InodeBitmapLBA, inos.Bytes()); err != nil {
		return nil, fmt.Errorf("formatting: writing inode bitmap: %w", err)
	}

	// inode table with the root inode in slot 0
	table := make([]byte, Byte(sb.InodeTableSects)*SectorSize)
	root := Inode{Ino: InoRoot, Size: 2 * sb.DirEntrySize}
	root.Sectors[0] = sb.DataStartLBA
	encode.EncodeInode(&root, (*[InodeSize]byte)(table))
	if err := d.WriteSectors(sb.InodeTableLBA, table); err != nil {
		return nil, fmt.Errorf("formatting: writing inode table: %w", err)
	}

	// root directory block
	var block [BlockSize]byte
	if err := WriteDotEntries(block[:], InoRoot, InoRoot); err != nil {
		return nil, fmt.Errorf("formatting: %w", err)
	}
	if err := d.WriteSectors(sb.DataStartLBA, block[:]); err != nil {
		return nil, fmt.Errorf("formatting: writing root directory: %w", err)
	}

	opts.Logger.Info(
		"formatted partition",
		"volume", sb.VolumeID,
		"sectors", sb.SectorCount,
		"inodes", sb.InodeCount,
		"dataStart", sb.DataStartLBA,
		"dataBlocks", geo.BlockBits,
	)
	return sb, nil
}

// WriteDotEntries fills the first two slots of a fresh directory block with
// `.` (pointing at `self`) and `..` (pointing at `parent`).
func WriteDotEntries(block []byte, self, parent Ino) error {
	for i, entry := range []DirEntry{
		{Name: ".", Ino: self, FileType: FileTypeDir},
		{Name: "..", Ino: parent, FileType: FileTypeDir},
	} {
		if err := encode.EncodeDirEntry(
			&entry,
			encode.DirEntryAt(block, i),
		); err != nil {
			return fmt.Errorf("writing dot entries: %w", err)
		}
	}
	return nil
}

// Probe reports whether `d` holds a formatted partition.
func Probe(d disk.Disk) (*Superblock, bool, error) {
	var sector [SectorSize]byte
	if err := d.ReadSectors(SuperblockLBA, sector[:]); err != nil {
		return nil, false, fmt.Errorf("probing: reading superblock: %w", err)
	}

	var sb Superblock
	if err := encode.DecodeSuperblock(&sb, &sector); err != nil {
		var badMagic encode.BadMagicErr
		if errors.As(err, &badMagic) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("probing: %w", err)
	}
	return &sb, true, nil
}
