package policies

import (
	"context"
	"io"
)

// Uploader stores uploaded media and returns a public URL. Irrelevant to
// pricing correctness; consumed by property-content endpoints only.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
}
