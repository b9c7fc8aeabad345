// Package filesync persists synchronized fields as files, one per key, in
// JSON or YAML.
package filesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vango-dev/stan/internal/codec"
	"github.com/vango-dev/stan/pkg/stan"
)

// Option configures a Dir.
type Option func(*Dir)

// WithFormat sets the file encoding. Defaults to JSON.
func WithFormat(f codec.Format) Option {
	return func(d *Dir) {
		d.format = f
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dir) {
		d.logger = l
	}
}

// Dir is a directory of field files.
type Dir struct {
	path   string
	format codec.Format
	logger *slog.Logger
}

// Open returns a Dir rooted at path, creating the directory if needed.
func Open(path string, opts ...Option) (*Dir, error) {
	d := &Dir{path: path, format: codec.JSON}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", path, err)
	}
	return d, nil
}

// Close is a no-op; it makes Dir interchangeable with the other backends.
func (d *Dir) Close() error { return nil }

// Path returns the file holding key.
func (d *Dir) Path(key string) string {
	return filepath.Join(d.path, key+d.format.Ext())
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}

// Read decodes the file of key into a value of like's type. A missing file
// is reported as stan.ErrNoSnapshot.
func (d *Dir) Read(_ context.Context, key string, like any) (any, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	fn := d.Path(key)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("key %q: %w", key, stan.ErrNoSnapshot)
		}
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return codec.Decode(d.format, data, like)
}

// Write replaces the file of key. The new content is written to a
// temporary file and renamed into place.
func (d *Dir) Write(_ context.Context, key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := codec.Marshal(d.format, v)
	if err != nil {
		return err
	}

	fn := d.Path(key)
	tmp, err := os.CreateTemp(d.path, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, fn); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", fn, err)
	}
	return nil
}

// Delete removes the file of key. Deleting a missing key is not an error.
func (d *Dir) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(d.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys, sorted.
func (d *Dir) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", d.path, err)
	}
	ext := d.format.Ext()
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	slices.Sort(keys)
	return keys, nil
}

// Field returns a synchronizer storing a field under its name.
func (d *Dir) Field(initial any) stan.Synchronizer {
	return &field{dir: d, initial: initial}
}

type field struct {
	dir     *Dir
	initial any
}

func (f *field) InitialValue() any {
	return f.initial
}

func (f *field) GetSnapshot(key string) (stan.Snapshot, error) {
	v, err := f.dir.Read(context.Background(), key, f.initial)
	if errors.Is(err, stan.ErrNoSnapshot) {
		return stan.Missing(), nil
	}
	if err != nil {
		return stan.Snapshot{}, err
	}
	return stan.Found(v), nil
}

func (f *field) Update(v any, key string) error {
	if err := f.dir.Write(context.Background(), key, v); err != nil {
		return err
	}
	f.dir.logger.Debug("filesync: wrote field", "key", key, "path", f.dir.Path(key))
	return nil
}
