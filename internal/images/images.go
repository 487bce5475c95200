// Package images picks or creates an illustration for each news item.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/deusflow/newscrawler/internal/blob"
	"github.com/deusflow/newscrawler/internal/metrics"
	"github.com/deusflow/newscrawler/internal/ratelimit"
)

// ErrGenerationDisabled is returned once the image model has reported that it
// is unavailable.
var ErrGenerationDisabled = errors.New("image generation disabled")

const (
	maxWidth    = 1024
	jpegQuality = 80
)

type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

type ImageRequest struct {
	Headline  string
	Category  string
	OGImage   string
	Thumbnail string
}

// Resolver chooses og:image, then the search thumbnail, then a generated
// image. Generation is attempted once per item. When Definitive reports an
// error, generation stays off for the life of the Resolver.
type Resolver struct {
	gen    Generator
	store  blob.Store
	budget *ratelimit.Budget

	Definitive func(error) bool

	disabled atomic.Bool
	newID    func() string
}

func NewResolver(gen Generator, store blob.Store, budget *ratelimit.Budget) *Resolver {
	return &Resolver{
		gen:        gen,
		store:      store,
		budget:     budget,
		Definitive: func(error) bool { return false },
		newID:      uuid.NewString,
	}
}

// Resolve returns an image URL for the item, or "" when none is available.
func (r *Resolver) Resolve(ctx context.Context, req ImageRequest) string {
	if req.OGImage != "" {
		return req.OGImage
	}
	if req.Thumbnail != "" {
		return req.Thumbnail
	}
	if r == nil || r.gen == nil || r.store == nil {
		return ""
	}

	url, err := r.generate(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrGenerationDisabled) {
			slog.Warn("image generation failed, item stays imageless", "headline", req.Headline, "err", err)
		}
		return ""
	}
	return url
}

// Enabled reports whether generation is still being attempted.
func (r *Resolver) Enabled() bool {
	return !r.disabled.Load()
}

func (r *Resolver) generate(ctx context.Context, req ImageRequest) (string, error) {
	if r.disabled.Load() {
		return "", ErrGenerationDisabled
	}
	if err := r.budget.UseImage(); err != nil {
		return "", err
	}

	data, err := r.gen.Generate(ctx, prompt(req))
	if err != nil {
		if r.Definitive != nil && r.Definitive(err) {
			if r.disabled.CompareAndSwap(false, true) {
				slog.Warn("image model unavailable, disabling generation", "err", err)
			}
		}
		return "", fmt.Errorf("generating image: %w", err)
	}

	compressed, err := Compress(data)
	if err != nil {
		return "", err
	}

	url, err := r.store.Put(ctx, blob.GeneratedName(req.Category, r.newID()), compressed, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	metrics.Global.IncrementImagesGenerated()
	return url, nil
}

func prompt(req ImageRequest) string {
	return fmt.Sprintf("Editorial news photograph illustrating the headline %q (%s news). Realistic, no text, no logos, no watermarks.",
		req.Headline, req.Category)
}

// Compress scales the image down to maxWidth and re-encodes it as JPEG.
func Compress(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}
