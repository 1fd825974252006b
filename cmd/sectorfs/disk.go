package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/weberc2/sectorfs/pkg/config"
	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/fs"
	"github.com/weberc2/sectorfs/pkg/partition"
	"github.com/weberc2/sectorfs/pkg/types"
)

// openDisk opens (or creates) the configured image and returns the
// partition window the filesystem lives in.
func openDisk(c *config.Config) (disk.Disk, io.Closer, error) {
	var (
		inner  disk.Disk
		closer io.Closer
	)
	switch c.Backend {
	case config.BackendBolt:
		d, err := disk.OpenBolt(c.Image, c.Sectors)
		if err != nil {
			return nil, nil, err
		}
		inner, closer = d, d
	default:
		d, err := disk.OpenFile(c.Image)
		if errors.Is(err, os.ErrNotExist) {
			d, err = disk.CreateFile(c.Image, c.Sectors)
		}
		if err != nil {
			return nil, nil, err
		}
		inner, closer = d, d
	}

	base := types.LBA(c.PartitionBase)
	if base == 0 {
		return disk.WholeDisk(inner, c.Partition), closer, nil
	}
	if uint32(base) >= inner.Sectors() {
		closer.Close()
		return nil, nil, fmt.Errorf(
			"partition base `%d` is past the end of `%s`: %w",
			base,
			c.Image,
			disk.OutOfRangeErr,
		)
	}
	p, err := disk.NewPartition(
		inner,
		c.Partition,
		base,
		inner.Sectors()-uint32(base),
	)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return p, closer, nil
}

func formatOptions(c *config.Config) partition.FormatOptions {
	return partition.FormatOptions{
		Inodes:      c.Inodes,
		PartLBABase: types.LBA(c.PartitionBase),
	}
}

// withFS mounts the configured image for the duration of `f`. Output written
// to descriptors 1 and 2 goes to the app's writers.
func (a *app) withFS(f func(proc *fs.Process) error) error {
	d, closer, err := openDisk(a.config)
	if err != nil {
		return err
	}
	defer closer.Close()

	opts := formatOptions(a.config)
	opts.Logger = a.logger
	filesystem, err := fs.New(d, fs.Options{
		Name:     a.config.Partition,
		Format:   opts,
		NoFormat: a.noFormat,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	proc := filesystem.NewProcess(a.stdin, a.stdout, a.stderr)
	defer proc.Exit()
	return f(proc)
}
