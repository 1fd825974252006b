package disk

import (
	"encoding/binary"
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	sectorsBucket = []byte("sectors")
	metaBucket    = []byte("meta")
	sectorsKey    = []byte("sectors")
)

// BoltDisk stores each written sector as one key in a bolt database. Sectors
// that were never written read back as zeroes, so a large sparse image costs
// only as much space as the sectors actually used.
type BoltDisk struct {
	db      *bolt.DB
	sectors uint32
}

// OpenBolt opens the bolt-backed image at `path`. If the database does not
// record a sector count yet, it is initialized with `sectors`; otherwise
// `sectors` is ignored and the recorded count wins.
func OpenBolt(path string, sectors uint32) (*BoltDisk, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt image `%s`: %w", path, err)
	}

	d := BoltDisk{db: db}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(sectorsBucket); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		if data := meta.Get(sectorsKey); data != nil {
			d.sectors = binary.BigEndian.Uint32(data)
			return nil
		}
		if sectors == 0 {
			return MissingSectorErr
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], sectors)
		d.sectors = sectors
		return meta.Put(sectorsKey, buf[:])
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening bolt image `%s`: %w", path, err)
	}
	return &d, nil
}

func (d *BoltDisk) Sectors() uint32 { return d.sectors }

func (d *BoltDisk) ReadSectors(lba LBA, buf []byte) error {
	if err := checkRange(d, lba, buf); err != nil {
		return fmt.Errorf("reading bolt image: %w", err)
	}
	return d.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sectorsBucket)
		for i := Byte(0); i < Byte(len(buf)); i += SectorSize {
			sector := buf[i : i+SectorSize]
			data := bucket.Get(sectorKey(lba + LBA(i/SectorSize)))
			if data == nil {
				for j := range sector {
					sector[j] = 0
				}
				continue
			}
			copy(sector, data)
		}
		return nil
	})
}

func (d *BoltDisk) WriteSectors(lba LBA, buf []byte) error {
	if err := checkRange(d, lba, buf); err != nil {
		return fmt.Errorf("writing bolt image: %w", err)
	}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sectorsBucket)
		for i := Byte(0); i < Byte(len(buf)); i += SectorSize {
			if err := bucket.Put(
				sectorKey(lba+LBA(i/SectorSize)),
				buf[i:i+SectorSize],
			); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes to bolt image at sector `%d`: %w",
			len(buf),
			lba,
			err,
		)
	}
	return nil
}

func (d *BoltDisk) Close() error { return d.db.Close() }

func sectorKey(lba LBA) []byte {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], uint32(lba))
	return key[:]
}
