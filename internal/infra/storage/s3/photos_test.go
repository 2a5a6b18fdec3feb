package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBucket(t *testing.T, public string) *PhotoBucket {
	t.Helper()
	b, err := NewPhotoBucket(Options{Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "photos", PublicURL: public})
	require.NoError(t, err)
	return b
}

func TestNewPhotoBucketRequiresEndpointAndBucket(t *testing.T) {
	_, err := NewPhotoBucket(Options{Bucket: "photos"})
	assert.Error(t, err)
	_, err = NewPhotoBucket(Options{Endpoint: "http://localhost:9000", Bucket: " "})
	assert.Error(t, err)
}

func TestPhotoURLs(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/photos/items/i1/a.jpg", newBucket(t, "https://cdn.example.com/").urlFor("/items/i1/a.jpg"))
	assert.Equal(t, "http://localhost:9000/photos/x.png", newBucket(t, "").urlFor("x.png"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "minio:9000", hostOf("http://minio:9000"))
	assert.Equal(t, "minio:9000", hostOf("minio:9000"))
}

func TestUploadRejectsBeforeTouchingTheBucket(t *testing.T) {
	b := newBucket(t, "")
	ctx := context.Background()

	_, err := b.Upload(ctx, "items/i1/a.jpg", strings.NewReader("x"), MaxPhotoSize+1, "image/jpeg")
	assert.ErrorIs(t, err, ErrPhotoTooLarge)

	_, err = b.Upload(ctx, "items/i1/a.gif", strings.NewReader("x"), 1, "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedPhoto)
}

func TestCappedReaderStopsAtLimit(t *testing.T) {
	r := &cappedReader{r: bytes.NewReader(make([]byte, 32)), left: 16}
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, ErrPhotoTooLarge)

	r = &cappedReader{r: bytes.NewReader(make([]byte, 16)), left: 16}
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, data, 16)
}
