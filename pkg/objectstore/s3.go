package objectstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/weberc2/sectorfs/pkg/types"
)

// S3ObjectStore uploads through the multipart uploader so that images larger
// than a single PUT allows still go up in one call.
type S3ObjectStore struct {
	Client   *s3.S3
	Uploader *s3manager.Uploader
}

// NewS3 builds a store from the default credential chain. An empty `region`
// defers to the environment.
func NewS3(region string) (*S3ObjectStore, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	return &S3ObjectStore{
		Client:   s3.New(sess),
		Uploader: s3manager.NewUploader(sess),
	}, nil
}

func (store *S3ObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	if _, err := store.Uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	}); err != nil {
		return fmt.Errorf("uploading `s3://%s/%s`: %w", bucket, key, err)
	}
	return nil
}

func (store *S3ObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	out, err := store.Client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapS3Error("downloading", bucket, key, err)
	}
	return out.Body, nil
}

func (store *S3ObjectStore) ListObjects(
	bucket string,
	prefix string,
) ([]string, error) {
	var keys []string
	err := store.Client.ListObjectsV2Pages(
		&s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
			Prefix: aws.String(prefix),
		},
		func(page *s3.ListObjectsV2Output, _ bool) bool {
			for _, object := range page.Contents {
				keys = append(keys, aws.StringValue(object.Key))
			}
			return true
		},
	)
	if err != nil {
		return nil, fmt.Errorf("listing `s3://%s/%s*`: %w", bucket, prefix, err)
	}
	return keys, nil
}

func (store *S3ObjectStore) DeleteObject(bucket, key string) error {
	if _, err := store.Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return wrapS3Error("deleting", bucket, key, err)
	}
	return nil
}

func wrapS3Error(verb, bucket, key string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
		return &types.ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	return fmt.Errorf("%s `s3://%s/%s`: %w", verb, bucket, key, err)
}
