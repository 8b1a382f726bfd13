package cache

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kbukum/foundation/provider"
)

// FilesystemOptions configures the filesystem driver.
type FilesystemOptions struct {
	Dir       string `mapstructure:"dir" validate:"required"`
	Extension string `mapstructure:"extension"`
	Umask     *int   `mapstructure:"umask"`
}

const (
	defaultExtension = ".cache"
	defaultUmask     = 0o002
)

// Filesystem stores each entry in its own file below a root directory.
// Files hold an expiry line (unix nanoseconds, 0 for never) followed by
// the payload.
type Filesystem struct {
	dir     string
	ext     string
	umask   os.FileMode
	started time.Time
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewFilesystem creates the root directory if needed and returns a cache
// rooted at it.
func NewFilesystem(opts FilesystemOptions) (*Filesystem, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("filesystem cache: dir is required")
	}
	ext := opts.Extension
	if ext == "" {
		ext = defaultExtension
	}
	umask := os.FileMode(defaultUmask)
	if opts.Umask != nil {
		umask = os.FileMode(*opts.Umask)
	}
	c := &Filesystem{dir: opts.Dir, ext: ext, umask: umask, started: time.Now()}
	if err := os.MkdirAll(opts.Dir, c.dirMode()); err != nil {
		return nil, fmt.Errorf("filesystem cache: create %s: %w", opts.Dir, err)
	}
	return c, nil
}

func filesystemFactory(_ provider.Host, cfg provider.DriverConfig) (any, error) {
	var opts FilesystemOptions
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	return NewFilesystem(opts)
}

// Dir returns the root directory.
func (c *Filesystem) Dir() string { return c.dir }

// Extension returns the entry file extension.
func (c *Filesystem) Extension() string { return c.ext }

func (c *Filesystem) dirMode() os.FileMode  { return 0o777 &^ c.umask }
func (c *Filesystem) fileMode() os.FileMode { return 0o666 &^ c.umask }

func (c *Filesystem) path(id string) string {
	sum := sha256.Sum256([]byte(id))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(c.dir, name[:2], name+c.ext)
}

// Fetch implements Cache.
func (c *Filesystem) Fetch(_ context.Context, id string) ([]byte, bool, error) {
	data, ok, err := c.read(id)
	if err != nil {
		return nil, false, err
	}
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return data, ok, nil
}

// Contains implements Cache. It does not count towards hits or misses.
func (c *Filesystem) Contains(_ context.Context, id string) (bool, error) {
	_, ok, err := c.read(id)
	return ok, err
}

func (c *Filesystem) read(id string) ([]byte, bool, error) {
	path := c.path(id)
	raw, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("filesystem cache: read %s: %w", id, err)
	}

	header, data, found := bytes.Cut(raw, []byte("\n"))
	if !found {
		return nil, false, nil
	}
	expires, err := strconv.ParseInt(string(header), 10, 64)
	if err != nil {
		return nil, false, nil
	}
	if expires > 0 && time.Now().UnixNano() >= expires {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return data, true, nil
}

// Save implements Cache. The entry is written to a temporary file and
// renamed into place.
func (c *Filesystem) Save(_ context.Context, id string, data []byte, ttl time.Duration) error {
	path := c.path(id)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, c.dirMode()); err != nil {
		return fmt.Errorf("filesystem cache: create %s: %w", dir, err)
	}

	var expires int64
	if ttl > 0 {
		expires = time.Now().Add(ttl).UnixNano()
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("filesystem cache: save %s: %w", id, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	w.WriteString(strconv.FormatInt(expires, 10))
	w.WriteByte('\n')
	w.Write(data)
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("filesystem cache: save %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filesystem cache: save %s: %w", id, err)
	}
	if err := os.Chmod(tmpName, c.fileMode()); err != nil {
		return fmt.Errorf("filesystem cache: save %s: %w", id, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("filesystem cache: save %s: %w", id, err)
	}
	return nil
}

// Delete implements Cache. Deleting a missing entry is not an error.
func (c *Filesystem) Delete(_ context.Context, id string) error {
	if err := os.Remove(c.path(id)); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filesystem cache: delete %s: %w", id, err)
	}
	return nil
}

// Flush implements Cache by removing every entry file under the root.
func (c *Filesystem) Flush(_ context.Context) error {
	return c.walk(func(path string, _ fs.FileInfo) error {
		return os.Remove(path)
	})
}

// Stats implements Cache. MemoryUsage is the number of bytes on disk;
// MemoryAvailable is not reported.
func (c *Filesystem) Stats(_ context.Context) (Stats, error) {
	var usage int64
	err := c.walk(func(_ string, info fs.FileInfo) error {
		usage += info.Size()
		return nil
	})
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Uptime:      time.Since(c.started),
		MemoryUsage: usage,
	}, err
}

func (c *Filesystem) walk(fn func(path string, info fs.FileInfo) error) error {
	return filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, c.ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		return fn(path, info)
	})
}
