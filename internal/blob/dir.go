package blob

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Dir stores objects on the local filesystem and serves them under BaseURL.
type Dir struct {
	Root    string
	BaseURL string
}

func NewDir(root, baseURL string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &Dir{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *Dir) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	rel, path, err := d.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return d.BaseURL + "/" + rel, nil
}

func (d *Dir) Delete(ctx context.Context, url string) error {
	name := strings.TrimPrefix(url, d.BaseURL+"/")
	if name == url {
		return fmt.Errorf("url %q is not under %s", url, d.BaseURL)
	}
	_, path, err := d.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// Handler serves stored objects; mount it at BaseURL.
func (d *Dir) Handler() http.Handler {
	return http.StripPrefix(d.BaseURL, http.FileServer(http.Dir(d.Root)))
}

// resolve cleans name so it stays inside Root and returns it with its
// filesystem path.
func (d *Dir) resolve(name string) (string, string, error) {
	rel := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+filepath.FromSlash(name))), "/")
	if rel == "" {
		return "", "", fmt.Errorf("invalid object name %q", name)
	}
	return rel, filepath.Join(d.Root, filepath.FromSlash(rel)), nil
}
