package partition

import (
	"fmt"
	"log/slog"

	"github.com/weberc2/sectorfs/pkg/alloc"
	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/inode"
	"github.com/weberc2/sectorfs/pkg/math"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// NotFormattedErr is returned by Mount when the superblock magic does not
// match.
const NotFormattedErr ConstError = "partition is not formatted"

// Partition is a mounted filesystem: its geometry, both allocators and the
// registry of open inodes.
type Partition struct {
	Name       string
	Disk       disk.Disk
	Superblock Superblock
	Blocks     alloc.BlockAllocator
	Inos       alloc.InoAllocator
	Inodes     *inode.Cache
	Logger     *slog.Logger
}

func Mount(d disk.Disk, name string, logger *slog.Logger) (*Partition, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sb, ok, err := Probe(d)
	if err != nil {
		return nil, fmt.Errorf("mounting `%s`: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("mounting `%s`: %w", name, NotFormattedErr)
	}
	if sb.DirEntrySize != DirEntrySize {
		return nil, fmt.Errorf(
			"mounting `%s`: directory entry size `%d` (wanted `%d`): %w",
			name,
			sb.DirEntrySize,
			DirEntrySize,
			InvalidArgumentErr,
		)
	}

	blocks, err := alloc.Load(
		d,
		sb.BlockBitmapLBA,
		sb.BlockBitmapSects,
		math.Min(sb.BlockBitmapSects*BitsPerSector, sb.DataBlocks()),
	)
	if err != nil {
		return nil, fmt.Errorf("mounting `%s`: block bitmap: %w", name, err)
	}

	inos, err := alloc.Load(
		d,
		sb.InodeBitmapLBA,
		sb.InodeBitmapSects,
		math.Min(sb.InodeBitmapSects*BitsPerSector, sb.InodeCount),
	)
	if err != nil {
		return nil, fmt.Errorf("mounting `%s`: inode bitmap: %w", name, err)
	}

	logger = logger.With("partition", name)
	logger.Info(
		"mounted partition",
		"volume", sb.VolumeID,
		"sectors", sb.SectorCount,
		"blocksUsed", blocks.Used(),
		"inodesUsed", inos.Used(),
	)

	return &Partition{
		Name:       name,
		Disk:       d,
		Superblock: *sb,
		Blocks:     alloc.BlockAllocator{Allocator: blocks, DataStart: sb.DataStartLBA},
		Inos:       alloc.InoAllocator{Allocator: inos},
		Inodes: inode.NewCache(
			inode.NewTable(d, sb.InodeTableLBA, sb.InodeCount),
			logger,
		),
		Logger: logger,
	}, nil
}

// ReadBlock reads one data block.
func (p *Partition) ReadBlock(lba LBA, block *[BlockSize]byte) error {
	if err := p.Disk.ReadSectors(lba, block[:]); err != nil {
		return fmt.Errorf("reading block `%d`: %w", lba, err)
	}
	return nil
}

func (p *Partition) WriteBlock(lba LBA, block *[BlockSize]byte) error {
	if err := p.Disk.WriteSectors(lba, block[:]); err != nil {
		return fmt.Errorf("writing block `%d`: %w", lba, err)
	}
	return nil
}

// AllocBlock claims a data block and makes the claim durable.
func (p *Partition) AllocBlock() (LBA, error) {
	lba, err := p.Blocks.Alloc()
	if err != nil {
		return LBANil, err
	}
	if err := p.Blocks.Sync(lba); err != nil {
		p.Blocks.Free(lba)
		return LBANil, err
	}
	return lba, nil
}

// FreeBlock releases a data block and makes the release durable. A failed
// sync leaves the block claimed.
func (p *Partition) FreeBlock(lba LBA) error {
	p.Blocks.Free(lba)
	if err := p.Blocks.Sync(lba); err != nil {
		p.Blocks.Reserve(lba)
		return err
	}
	return nil
}

// ReserveBlock claims the specific block `lba` again after a FreeBlock. The
// claim holds in memory even when the sync fails.
func (p *Partition) ReserveBlock(lba LBA) error {
	p.Blocks.Reserve(lba)
	return p.Blocks.Sync(lba)
}

// ReleaseInode frees every block `ino` references, including its indirect
// block, then frees the inode itself and wipes its table record. Fails with
// BusyErr while anybody holds the inode open.
func (p *Partition) ReleaseInode(ino Ino) error {
	if p.Inodes.IsOpen(ino) {
		return fmt.Errorf("releasing inode `%d`: %w", ino, BusyErr)
	}
	h, err := p.Inodes.Open(ino)
	if err != nil {
		return fmt.Errorf("releasing inode `%d`: %w", ino, err)
	}
	defer p.Inodes.Close(h)

	var blocks inode.BlockMap
	n, err := inode.LoadBlockMap(p.Disk, &h.Inode, &blocks)
	if err != nil {
		return fmt.Errorf("releasing inode `%d`: %w", ino, err)
	}
	for _, lba := range blocks[:n] {
		if lba != LBANil {
			if err := p.FreeBlock(lba); err != nil {
				return fmt.Errorf("releasing inode `%d`: %w", ino, err)
			}
		}
	}
	if indirect := h.Indirect(); indirect != LBANil {
		if err := p.FreeBlock(indirect); err != nil {
			return fmt.Errorf("releasing inode `%d`: %w", ino, err)
		}
	}

	p.Inos.Free(ino)
	if err := p.Inos.Sync(ino); err != nil {
		return fmt.Errorf("releasing inode `%d`: %w", ino, err)
	}
	if err := p.Inodes.Zero(ino); err != nil {
		return fmt.Errorf("releasing inode `%d`: %w", ino, err)
	}
	p.Logger.Debug("released inode", "ino", ino)
	return nil
}

// Usage reports how many blocks and inodes are allocated.
type Usage struct {
	BlocksUsed  uint32 `json:"blocksUsed"`
	BlocksTotal uint32 `json:"blocksTotal"`
	InodesUsed  uint32 `json:"inodesUsed"`
	InodesTotal uint32 `json:"inodesTotal"`
}

func (p *Partition) Usage() Usage {
	return Usage{
		BlocksUsed:  p.Blocks.Used(),
		BlocksTotal: p.Blocks.Len(),
		InodesUsed:  p.Inos.Used(),
		InodesTotal: p.Inos.Len(),
	}
}
