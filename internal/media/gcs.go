package media

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const publicURLBase = "https://storage.googleapis.com"

// GCSStore implements Store on a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("media: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "media: create storage client")
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) Upload(ctx context.Context, f *File) (string, error) {
	object := s.objectName(f.Name)

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = f.ContentType
	if _, err := w.Write(f.Data); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "media: write object %s", object)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "media: finalize object %s", object)
	}

	return fmt.Sprintf("%s/%s/%s", publicURLBase, s.bucket, object), nil
}

func (s *GCSStore) Delete(ctx context.Context, url string) error {
	object, ok := s.objectFromURL(url)
	if !ok {
		// Not one of ours; treat like an already-deleted object.
		return nil
	}

	err := s.client.Bucket(s.bucket).Object(object).Delete(ctx)
	if isObjectNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "media: delete object %s", object)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// The SDK's retry layer may hand back the sentinel wrapped.
func isObjectNotExist(err error) bool {
	return errors.Is(err, storage.ErrObjectNotExist)
}

// objectName builds a collision-free object name keeping the original
// extension so content type sniffing keeps working downstream.
func (s *GCSStore) objectName(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	name := uuid.New().String() + ext
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *GCSStore) objectFromURL(url string) (string, bool) {
	base := fmt.Sprintf("%s/%s/", publicURLBase, s.bucket)
	if !strings.HasPrefix(url, base) {
		return "", false
	}
	object := strings.TrimPrefix(url, base)
	if object == "" {
		return "", false
	}
	return object, true
}
