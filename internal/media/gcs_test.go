package media

import (
	"path"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	s := &GCSStore{bucket: "catalog-media", prefix: "catalog"}

	name := s.objectName("photo.PNG")
	require.True(t, strings.HasPrefix(name, "catalog/"))
	require.Equal(t, ".png", path.Ext(name))

	bare := &GCSStore{bucket: "catalog-media"}
	require.NotContains(t, bare.objectName("photo.png"), "/")
}

func TestObjectFromURL(t *testing.T) {
	s := &GCSStore{bucket: "catalog-media", prefix: "catalog"}

	object, ok := s.objectFromURL("https://storage.googleapis.com/catalog-media/catalog/abc.png")
	require.True(t, ok)
	require.Equal(t, "catalog/abc.png", object)

	// Foreign URLs are not ours to delete.
	_, ok = s.objectFromURL("https://storage.googleapis.com/other-bucket/catalog/abc.png")
	require.False(t, ok)
	_, ok = s.objectFromURL("https://cdn.example.com/abc.png")
	require.False(t, ok)
	_, ok = s.objectFromURL("https://storage.googleapis.com/catalog-media/")
	require.False(t, ok)
}

func TestIsObjectNotExist(t *testing.T) {
	require.True(t, isObjectNotExist(storage.ErrObjectNotExist))
	require.True(t, isObjectNotExist(errors.Wrap(storage.ErrObjectNotExist, "delete object catalog/abc.png")))
	require.False(t, isObjectNotExist(errors.New("permission denied")))
	require.False(t, isObjectNotExist(nil))
}
