// Package blob stores generated images.
package blob

import (
	"context"
	"fmt"
	"strings"
)

// GeneratedPrefix is the path segment all generated images are stored under.
// Retention relies on it to tell generated assets from third-party URLs.
const GeneratedPrefix = "generated-images"

type Store interface {
	// Put stores data under name and returns its public URL.
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Delete removes the object behind a URL previously returned by Put.
	// Deleting a missing object is not an error.
	Delete(ctx context.Context, url string) error
}

// GeneratedName is the object name for a generated image.
func GeneratedName(category, id string) string {
	return fmt.Sprintf("%s/%s/%s.jpg", GeneratedPrefix, strings.ToLower(category), id)
}

// IsGenerated reports whether url points at a generated image.
func IsGenerated(url string) bool {
	return strings.Contains(url, "/"+GeneratedPrefix+"/")
}
