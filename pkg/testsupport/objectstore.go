package testsupport

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/weberc2/sectorfs/pkg/types"
)

type objectKey struct {
	bucket string
	key    string
}

// ObjectStoreFake keeps objects in memory. The zero value is ready to use.
type ObjectStoreFake struct {
	mutex   sync.Mutex
	objects map[objectKey][]byte
}

// Object returns the stored bytes for `bucket`/`key`, as written by
// PutObject.
func (osf *ObjectStoreFake) Object(bucket, key string) ([]byte, bool) {
	osf.mutex.Lock()
	defer osf.mutex.Unlock()
	data, found := osf.objects[objectKey{bucket, key}]
	return data, found
}

func (osf *ObjectStoreFake) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	osf.mutex.Lock()
	defer osf.mutex.Unlock()
	if osf.objects == nil {
		osf.objects = map[objectKey][]byte{}
	}
	osf.objects[objectKey{bucket, key}] = body
	return nil
}

func (osf *ObjectStoreFake) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	data, found := osf.Object(bucket, key)
	if !found {
		return nil, &types.ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ListObjects returns keys in lexical order, the way S3 does.
func (osf *ObjectStoreFake) ListObjects(
	bucket string,
	prefix string,
) ([]string, error) {
	osf.mutex.Lock()
	defer osf.mutex.Unlock()
	var keys []string
	for k := range osf.objects {
		if k.bucket == bucket && strings.HasPrefix(k.key, prefix) {
			keys = append(keys, k.key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (osf *ObjectStoreFake) DeleteObject(bucket, key string) error {
	osf.mutex.Lock()
	defer osf.mutex.Unlock()
	k := objectKey{bucket, key}
	if _, found := osf.objects[k]; !found {
		return &types.ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	delete(osf.objects, k)
	return nil
}
