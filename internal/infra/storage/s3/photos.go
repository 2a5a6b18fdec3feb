package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lendit/internal/app/policies"
)

// MaxPhotoSize caps a single item photo.
const MaxPhotoSize = 10 << 20

var (
	ErrPhotoTooLarge    = errors.New("s3: photo exceeds size limit")
	ErrUnsupportedPhoto = errors.New("s3: photo must be jpeg, png or webp")
)

var photoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base photo URLs are built from. Defaults to Endpoint.
	PublicURL string
	Logger    *slog.Logger
}

// PhotoBucket keeps item photos in one MinIO/S3 bucket that is readable
// without credentials.
type PhotoBucket struct {
	bucket    string
	publicURL string
	api       *minio.Client
	logger    *slog.Logger

	prepare    sync.Once
	prepareErr error
}

func NewPhotoBucket(opts Options) (*PhotoBucket, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	bucket := strings.TrimSpace(opts.Bucket)
	switch {
	case endpoint == "":
		return nil, errors.New("s3: endpoint is required")
	case bucket == "":
		return nil, errors.New("s3: bucket is required")
	}
	api, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	public := strings.TrimSpace(opts.PublicURL)
	if public == "" {
		public = endpoint
	}
	return &PhotoBucket{
		bucket:    bucket,
		publicURL: strings.TrimRight(public, "/"),
		api:       api,
		logger:    opts.Logger,
	}, nil
}

// Upload stores one photo under key and returns its public URL. size is -1
// when the caller does not know it; the limit is then enforced while reading.
func (b *PhotoBucket) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	if size > MaxPhotoSize {
		return "", ErrPhotoTooLarge
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if !photoTypes[contentType] {
		return "", ErrUnsupportedPhoto
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := b.ensureBucket(ctx); err != nil {
		return "", err
	}
	if size <= 0 {
		size = -1
		reader = &cappedReader{r: reader, left: MaxPhotoSize}
	}

	info, err := b.api.PutObject(ctx, b.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		if errors.Is(err, ErrPhotoTooLarge) {
			return "", ErrPhotoTooLarge
		}
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	u := b.urlFor(key)
	if b.logger != nil {
		b.logger.Info("photo stored", "bucket", b.bucket, "key", key, "bytes", info.Size)
	}
	return u, nil
}

// Ping reports whether the bucket endpoint answers.
func (b *PhotoBucket) Ping(ctx context.Context) error {
	_, err := b.api.BucketExists(ctx, b.bucket)
	return err
}

func (b *PhotoBucket) ensureBucket(ctx context.Context) error {
	b.prepare.Do(func() {
		exists, err := b.api.BucketExists(ctx, b.bucket)
		if err != nil {
			b.prepareErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := b.api.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
			b.prepareErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		if err := b.api.SetBucketPolicy(ctx, b.bucket, publicReadPolicy(b.bucket)); err != nil {
			b.prepareErr = fmt.Errorf("s3: set bucket policy: %w", err)
		}
	})
	return b.prepareErr
}

func (b *PhotoBucket) urlFor(key string) string {
	return b.publicURL + "/" + b.bucket + "/" + strings.TrimLeft(key, "/")
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

// hostOf strips the scheme minio.New does not accept.
func hostOf(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return endpoint
}

// cappedReader fails once more than left bytes have been read.
type cappedReader struct {
	r    io.Reader
	left int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, ErrPhotoTooLarge
	}
	return n, err
}

var _ policies.PhotoStore = (*PhotoBucket)(nil)
