// Package cache persists compiled templates between tool runs. Entries are
// keyed by the compiler version, a CRC32 (Castagnoli) of the template source
// and the compiler options, and stored as one msgpack index file in the
// cache directory.
package cache

import (
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/pkg/template"
)

// IndexFile is the file name of the index inside the cache directory.
const IndexFile = "templates.msgpack"

// formatVersion invalidates indexes written by an incompatible build.
const formatVersion = 1

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Entry is one cached compilation.
type Entry struct {
	Name       string    `msgpack:"name"`
	Key        string    `msgpack:"key"`
	Compiled   string    `msgpack:"compiled"`
	CompiledAt time.Time `msgpack:"compiled_at"`
}

type index struct {
	Version int              `msgpack:"version"`
	Entries map[string]Entry `msgpack:"entries"`
}

// Stats reports cache effectiveness.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// DiskCache is a persistent compile cache. It is safe for concurrent use.
type DiskCache struct {
	dir     string
	mu      sync.RWMutex
	entries map[string]Entry
	dirty   bool
	reset   bool

	hits   atomic.Int64
	misses atomic.Int64
}

// Open loads the index from dir, creating the directory when needed. An
// unreadable or incompatible index is discarded; Reset reports it.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileWrite, "create cache directory").WithFile(dir)
	}

	c := &DiskCache{dir: dir, entries: make(map[string]Entry)}
	data, err := os.ReadFile(c.path())
	switch {
	case os.IsNotExist(err):
		return c, nil
	case err != nil:
		return nil, errors.WrapIO(err, errors.ErrCodeFileRead, "read cache index").WithFile(c.path())
	}

	var idx index
	if err := msgpack.Unmarshal(data, &idx); err != nil || idx.Version != formatVersion {
		c.reset = true
		c.dirty = true
		return c, nil
	}
	if idx.Entries != nil {
		c.entries = idx.Entries
	}
	return c, nil
}

// Key returns the cache key of src compiled with or without whitespace
// collapsing.
func Key(src string, collapse bool) string {
	return versionedKey(template.Version, src, collapse)
}

func versionedKey(version, src string, collapse bool) string {
	sum := crc32.Checksum([]byte(src), crcTable)
	return "v" + version + "-" + strconv.FormatUint(uint64(sum), 16) + "-" +
		strconv.Itoa(len(src)) + "-" + strconv.FormatBool(collapse)
}

// Compile returns the compiled form of the template name, from the cache
// when src is unchanged. hit reports whether the cache served it.
func (c *DiskCache) Compile(name, src string, collapse bool) (compiled string, hit bool) {
	key := Key(src, collapse)

	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if ok && e.Key == key {
		c.hits.Add(1)
		return e.Compiled, true
	}

	c.misses.Add(1)
	var opts []template.Option
	if collapse {
		opts = append(opts, template.WithCollapseWhitespace())
	}
	compiled = template.Compile(src, opts...)

	c.mu.Lock()
	c.entries[name] = Entry{Name: name, Key: key, Compiled: compiled, CompiledAt: time.Now().UTC()}
	c.dirty = true
	c.mu.Unlock()
	return compiled, false
}

// Get returns the entry stored for name.
func (c *DiskCache) Get(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// Forget drops the entry for name.
func (c *DiskCache) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		delete(c.entries, name)
		c.dirty = true
	}
}

// Reset reports whether Open discarded an unusable index.
func (c *DiskCache) Reset() bool {
	return c.reset
}

// Stats returns hit and miss counts since Open.
func (c *DiskCache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{Entries: n, Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Flush writes the index when it changed. The file is replaced atomically.
func (c *DiskCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	data, err := msgpack.Marshal(index{Version: formatVersion, Entries: c.entries})
	if err != nil {
		return errors.WrapInternal(err, errors.ErrCodeCacheCorrupt, "encode cache index")
	}

	tmp, err := os.CreateTemp(c.dir, IndexFile+".*")
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileWrite, "write cache index").WithFile(c.dir)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.WrapIO(err, errors.ErrCodeFileWrite, "write cache index").WithFile(tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapIO(err, errors.ErrCodeFileWrite, "write cache index").WithFile(tmp.Name())
	}
	if err := os.Rename(tmp.Name(), c.path()); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapIO(err, errors.ErrCodeFileWrite, "replace cache index").WithFile(c.path())
	}
	c.dirty = false
	return nil
}

func (c *DiskCache) path() string {
	return filepath.Join(c.dir, IndexFile)
}
