package objectstore

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/weberc2/sectorfs/pkg/types"
)

// GzipObjectStore compresses objects on the way in and decompresses them on
// the way out. Disk images are mostly zero sectors, so they shrink a lot.
type GzipObjectStore struct {
	types.ObjectStore
}

func (gos *GzipObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	var b bytes.Buffer
	w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := io.Copy(w, data); err != nil {
		return fmt.Errorf("compressing `%s`: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}
	return gos.ObjectStore.PutObject(bucket, key, bytes.NewReader(b.Bytes()))
}

type gzipReadCloser struct {
	body io.ReadCloser
	r    *gzip.Reader
}

func (grc *gzipReadCloser) Read(data []byte) (int, error) {
	return grc.r.Read(data)
}

func (grc *gzipReadCloser) Close() error {
	if err := grc.r.Close(); err != nil {
		grc.body.Close()
		return err
	}
	return grc.body.Close()
}

func (gos *GzipObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	body, err := gos.ObjectStore.GetObject(bucket, key)
	if err != nil {
		return nil, fmt.Errorf("getting object from storage: %w", err)
	}
	r, err := gzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("creating gzip reader for `%s`: %w", key, err)
	}
	return &gzipReadCloser{body: body, r: r}, nil
}
