package policies

import (
	"context"
	"io"
)

// PhotoStore persists item photos and returns the URL they are served from.
type PhotoStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (publicURL string, err error)
}
