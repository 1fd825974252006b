package disk

import (
	"fmt"
	"os"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// FileDisk is a disk backed by an image file on the host filesystem.
type FileDisk struct {
	file    *os.File
	sectors uint32
}

// OpenFile opens an existing image. Its size determines the sector count.
func OpenFile(path string) (*FileDisk, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening image `%s`: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("opening image `%s`: %w", path, err)
	}
	return &FileDisk{
		file:    file,
		sectors: uint32(Byte(info.Size()) / SectorSize),
	}, nil
}

// CreateFile creates (or truncates) an image file holding `sectors` zeroed
// sectors.
func CreateFile(path string, sectors uint32) (*FileDisk, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating image `%s`: %w", path, err)
	}
	if err := file.Truncate(int64(Byte(sectors) * SectorSize)); err != nil {
		file.Close()
		return nil, fmt.Errorf(
			"creating image `%s`: truncating to `%d` sectors: %w",
			path,
			sectors,
			err,
		)
	}
	return &FileDisk{file: file, sectors: sectors}, nil
}

func (d *FileDisk) Sectors() uint32 { return d.sectors }

func (d *FileDisk) ReadSectors(lba LBA, buf []byte) error {
	if err := checkRange(d, lba, buf); err != nil {
		return fmt.Errorf("reading image `%s`: %w", d.file.Name(), err)
	}
	offset := int64(Byte(lba) * SectorSize)
	if _, err := d.file.ReadAt(buf, offset); err != nil {
		return fmt.Errorf(
			"reading image `%s` at offset `%d`: %w",
			d.file.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (d *FileDisk) WriteSectors(lba LBA, buf []byte) error {
	if err := checkRange(d, lba, buf); err != nil {
		return fmt.Errorf("writing image `%s`: %w", d.file.Name(), err)
	}
	offset := int64(Byte(lba) * SectorSize)
	if _, err := d.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf(
			"writing image `%s` at offset `%d`: %w",
			d.file.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (d *FileDisk) Close() error { return d.file.Close() }
