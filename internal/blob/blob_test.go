package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedName(t *testing.T) {
	name := GeneratedName("GTA", "abc")
	assert.Equal(t, "generated-images/gta/abc.jpg", name)
	assert.True(t, IsGenerated("https://storage.googleapis.com/bucket/"+name))
	assert.True(t, IsGenerated("/blobs/"+name))
	assert.False(t, IsGenerated("https://cbc.ca/images/photo.jpg"))
	assert.False(t, IsGenerated(""))
}

func TestDir_PutDeleteServe(t *testing.T) {
	root := t.TempDir()
	d, err := NewDir(root, "/blobs/")
	require.NoError(t, err)

	ctx := context.Background()
	url, err := d.Put(ctx, GeneratedName("CHINA", "x1"), []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/blobs/generated-images/china/x1.jpg", url)

	srv := httptest.NewServer(d.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + url)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "jpeg", string(body))

	require.NoError(t, d.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(root, "generated-images", "china", "x1.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, d.Delete(ctx, url), "deleting a missing object is not an error")
	assert.Error(t, d.Delete(ctx, "https://elsewhere.test/a.jpg"))
}

func TestDir_CleansNames(t *testing.T) {
	d, err := NewDir(t.TempDir(), "/blobs")
	require.NoError(t, err)

	url, err := d.Put(context.Background(), "../../etc/x.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/blobs/etc/x.jpg", url)
	_, err = os.Stat(filepath.Join(d.Root, "etc", "x.jpg"))
	assert.NoError(t, err)

	_, err = d.Put(context.Background(), "/", []byte("x"), "image/jpeg")
	assert.Error(t, err)
}

func TestGCS_ObjectName(t *testing.T) {
	g := &GCS{bucket: "news"}
	url := g.url("generated-images/usa/1.jpg")
	assert.Equal(t, "https://storage.googleapis.com/news/generated-images/usa/1.jpg", url)

	name, ok := g.objectName(url)
	require.True(t, ok)
	assert.Equal(t, "generated-images/usa/1.jpg", name)

	_, ok = g.objectName("https://storage.googleapis.com/other/x.jpg")
	assert.False(t, ok)
}
