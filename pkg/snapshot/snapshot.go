// Package snapshot copies whole disk images to and from an object store.
// Images are stored gzip-compressed under
// `<prefix>/<slug(label)>/<volume id>.img.gz`.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/objectstore"
	"github.com/weberc2/sectorfs/pkg/partition"
	. "github.com/weberc2/sectorfs/pkg/types"
)

const (
	extension = ".img.gz"

	// sectors moved per disk transfer
	chunkSectors = 128

	ImageNotFoundErr   ConstError = "snapshot not found"
	CorruptImageErr    ConstError = "snapshot image is not a whole number of sectors"
	ImageTooLargeErr   ConstError = "snapshot image is larger than the target disk"
	InvalidKeyErr      ConstError = "not a snapshot key"
	UnformattedPushErr ConstError = "refusing to snapshot an unformatted disk"
)

type Snapshot struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	VolumeID uuid.UUID `json:"volumeId"`
}

// ParseKey splits a key produced by Store.Key back into its parts.
func ParseKey(prefix, key string) (Snapshot, error) {
	rel := strings.TrimPrefix(key, prefix)
	rel = strings.TrimPrefix(rel, "/")
	label, file := path.Split(rel)
	label = strings.TrimSuffix(label, "/")
	if label == "" || strings.Contains(label, "/") ||
		!strings.HasSuffix(file, extension) {
		return Snapshot{}, fmt.Errorf("parsing `%s`: %w", key, InvalidKeyErr)
	}
	id, err := uuid.Parse(strings.TrimSuffix(file, extension))
	if err != nil {
		return Snapshot{}, fmt.Errorf(
			"parsing `%s`: %w",
			key,
			errors.Join(InvalidKeyErr, err),
		)
	}
	return Snapshot{Key: key, Label: label, VolumeID: id}, nil
}

type Store struct {
	ObjectStore ObjectStore
	Bucket      string
	Prefix      string
	Logger      *slog.Logger
}

// New wraps `store` so that images are compressed at rest.
func New(store ObjectStore, bucket, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		ObjectStore: &objectstore.GzipObjectStore{ObjectStore: store},
		Bucket:      bucket,
		Prefix:      prefix,
		Logger:      logger.With("component", "snapshot", "bucket", bucket),
	}
}

func (s *Store) Key(label string, volumeID uuid.UUID) string {
	return path.Join(s.Prefix, slug.Make(label), volumeID.String()+extension)
}

// Push uploads the full contents of `d`, which must hold a formatted
// partition; its volume ID names the object.
func (s *Store) Push(label string, d disk.Disk) (Snapshot, error) {
	sb, ok, err := partition.Probe(d)
	if err != nil {
		return Snapshot{}, fmt.Errorf("pushing snapshot `%s`: %w", label, err)
	}
	if !ok {
		return Snapshot{}, fmt.Errorf(
			"pushing snapshot `%s`: %w",
			label,
			UnformattedPushErr,
		)
	}

	image := make([]byte, Byte(d.Sectors())*SectorSize)
	for lba := uint32(0); lba < d.Sectors(); lba += chunkSectors {
		count := min(chunkSectors, d.Sectors()-lba)
		start := Byte(lba) * SectorSize
		if err := d.ReadSectors(
			LBA(lba),
			image[start:start+Byte(count)*SectorSize],
		); err != nil {
			return Snapshot{}, fmt.Errorf(
				"pushing snapshot `%s`: %w",
				label,
				err,
			)
		}
	}

	snap := Snapshot{
		Key:      s.Key(label, sb.VolumeID),
		Label:    slug.Make(label),
		VolumeID: sb.VolumeID,
	}
	if err := s.ObjectStore.PutObject(
		s.Bucket,
		snap.Key,
		bytes.NewReader(image),
	); err != nil {
		return Snapshot{}, fmt.Errorf("pushing snapshot `%s`: %w", label, err)
	}
	s.Logger.Info(
		"pushed snapshot",
		"key", snap.Key,
		"sectors", d.Sectors(),
	)
	return snap, nil
}

// Pull writes the image at `key` onto `d` starting at sector 0. Sectors of
// `d` past the end of the image are left alone.
func (s *Store) Pull(key string, d disk.Disk) error {
	body, err := s.ObjectStore.GetObject(s.Bucket, key)
	if err != nil {
		var e *ObjectNotFoundErr
		if errors.As(err, &e) {
			return fmt.Errorf("pulling `%s`: %w", key, ImageNotFoundErr)
		}
		return fmt.Errorf("pulling `%s`: %w", key, err)
	}
	defer body.Close()

	var (
		chunk = make([]byte, chunkSectors*SectorSize)
		lba   uint32
	)
	for {
		n, err := io.ReadFull(body, chunk)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("pulling `%s`: reading image: %w", key, err)
		}
		if Byte(n)%SectorSize != 0 {
			return fmt.Errorf("pulling `%s`: %w", key, CorruptImageErr)
		}
		count := uint32(Byte(n) / SectorSize)
		if uint64(lba)+uint64(count) > uint64(d.Sectors()) {
			return fmt.Errorf(
				"pulling `%s` onto a `%d`-sector disk: %w",
				key,
				d.Sectors(),
				ImageTooLargeErr,
			)
		}
		if err := d.WriteSectors(LBA(lba), chunk[:n]); err != nil {
			return fmt.Errorf("pulling `%s`: %w", key, err)
		}
		lba += count
		if n < len(chunk) {
			break
		}
	}

	s.Logger.Info("pulled snapshot", "key", key, "sectors", lba)
	return nil
}

// List returns every snapshot under `label`, or every snapshot when `label`
// is empty. Objects that don't look like snapshots are skipped.
func (s *Store) List(label string) ([]Snapshot, error) {
	prefix := s.Prefix
	if label != "" {
		prefix = path.Join(s.Prefix, slug.Make(label)) + "/"
	}
	keys, err := s.ObjectStore.ListObjects(s.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(keys))
	for _, key := range keys {
		snap, err := ParseKey(s.Prefix, key)
		if err != nil {
			s.Logger.Debug("skipping object", "key", key, "err", err.Error())
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}
