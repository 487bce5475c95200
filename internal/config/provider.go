package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Provider supplies the AppConfig. Get must be cheap; the pipeline calls it
// at the start of every run and every retention pass.
type Provider interface {
	Get() *AppConfig
	Save(cfg *AppConfig) error
}

// FileProvider keeps AppConfig in a YAML file. Stored values are merged over
// defaults field by field.
type FileProvider struct {
	path string

	mu  sync.RWMutex
	cfg *AppConfig
}

// NewFileProvider loads path, creating it with defaults when it does not exist.
func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := p.Save(DefaultAppConfig()); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadAppConfig reads a settings file and merges it over defaults.
func LoadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	cfg.applyDefaults()

	if dropped := cfg.dropCollisions(); len(dropped) > 0 {
		slog.Warn("ignoring invalid custom categories", "ids", dropped, "path", path)
	}
	return cfg, nil
}

// Reload re-reads the file. On error the previous settings stay in effect.
func (p *FileProvider) Reload() error {
	cfg, err := LoadAppConfig(p.path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings.
func (p *FileProvider) Get() *AppConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cfg == nil {
		return DefaultAppConfig()
	}
	return p.cfg.Clone()
}

// Save validates cfg, writes it atomically and makes it current.
func (p *FileProvider) Save(cfg *AppConfig) error {
	cfg = cfg.Clone()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}

	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

// Watch reloads the file whenever it changes until ctx is done. Bursts of
// events are debounced.
func (p *FileProvider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so atomic renames are seen.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("watching %s: %w", p.path, err)
	}

	const debounceInterval = 500 * time.Millisecond
	var debounce *time.Timer
	reload := func() {
		if err := p.Reload(); err != nil {
			slog.Warn("settings reload failed, keeping previous settings", "err", err)
			return
		}
		slog.Info("settings reloaded", "path", p.path)
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("settings watcher error", "err", err)
		}
	}
}

// Static is an in-memory Provider.
type Static struct {
	mu  sync.RWMutex
	cfg *AppConfig
}

func NewStatic(cfg *AppConfig) *Static {
	if cfg == nil {
		cfg = DefaultAppConfig()
	}
	cfg = cfg.Clone()
	cfg.applyDefaults()
	return &Static{cfg: cfg}
}

func (s *Static) Get() *AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

func (s *Static) Save(cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.Clone()
	cfg.applyDefaults()
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}
