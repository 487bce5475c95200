package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscrawler/internal/blob"
	"github.com/deusflow/newscrawler/internal/ratelimit"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeGenerator struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.data, f.err
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (m *memBlobs) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[name] = data
	return "https://blobs.test/" + name, nil
}

func (m *memBlobs) Delete(ctx context.Context, url string) error { return nil }

var errForbidden = errors.New("403 forbidden")

func newTestResolver(gen Generator, store blob.Store) *Resolver {
	r := NewResolver(gen, store, nil)
	r.Definitive = func(err error) bool { return errors.Is(err, errForbidden) }
	r.newID = func() string { return "fixed" }
	return r
}

func TestResolve_Priority(t *testing.T) {
	gen := &fakeGenerator{data: pngBytes(t, 10, 10)}
	r := newTestResolver(gen, &memBlobs{})
	ctx := context.Background()

	assert.Equal(t, "og.jpg", r.Resolve(ctx, ImageRequest{OGImage: "og.jpg", Thumbnail: "th.jpg"}))
	assert.Equal(t, "th.jpg", r.Resolve(ctx, ImageRequest{Thumbnail: "th.jpg"}))
	assert.Equal(t, 0, gen.calls)

	url := r.Resolve(ctx, ImageRequest{Headline: "Transit", Category: "GTA"})
	assert.Equal(t, "https://blobs.test/generated-images/gta/fixed.jpg", url)
	assert.True(t, blob.IsGenerated(url))
	assert.Equal(t, 1, gen.calls)
}

func TestResolve_BreakerTripsOnDefinitiveError(t *testing.T) {
	gen := &fakeGenerator{err: errForbidden}
	r := newTestResolver(gen, &memBlobs{})
	ctx := context.Background()

	assert.Empty(t, r.Resolve(ctx, ImageRequest{Headline: "a"}))
	assert.False(t, r.Enabled())
	assert.Empty(t, r.Resolve(ctx, ImageRequest{Headline: "b"}))
	assert.Equal(t, 1, gen.calls, "no further attempts once disabled")

	_, err := r.generate(ctx, ImageRequest{})
	assert.ErrorIs(t, err, ErrGenerationDisabled)
}

func TestResolve_TransientErrorKeepsGenerating(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("timeout")}
	r := newTestResolver(gen, &memBlobs{})
	ctx := context.Background()

	r.Resolve(ctx, ImageRequest{Headline: "a"})
	r.Resolve(ctx, ImageRequest{Headline: "b"})
	assert.True(t, r.Enabled())
	assert.Equal(t, 2, gen.calls, "one attempt per item, no retries")
}

func TestResolve_UploadFailureLeavesItemImageless(t *testing.T) {
	gen := &fakeGenerator{data: pngBytes(t, 10, 10)}
	r := newTestResolver(gen, &memBlobs{err: errors.New("bucket gone")})
	assert.Empty(t, r.Resolve(context.Background(), ImageRequest{Headline: "a"}))
	assert.True(t, r.Enabled())
}

func TestResolve_BudgetExhausted(t *testing.T) {
	gen := &fakeGenerator{data: pngBytes(t, 10, 10)}
	r := newTestResolver(gen, &memBlobs{})
	r.budget = ratelimit.NewBudget(0, 1)

	assert.NotEmpty(t, r.Resolve(context.Background(), ImageRequest{Headline: "a"}))
	assert.Empty(t, r.Resolve(context.Background(), ImageRequest{Headline: "b"}))
	assert.Equal(t, 1, gen.calls)
}

func TestCompress_ResizesWideImages(t *testing.T) {
	out, err := Compress(pngBytes(t, 2048, 100))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1024, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestCompress_KeepsSmallImages(t *testing.T) {
	out, err := Compress(pngBytes(t, 300, 200))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
}

func TestCompress_RejectsGarbage(t *testing.T) {
	_, err := Compress([]byte("not an image"))
	assert.Error(t, err)
}
