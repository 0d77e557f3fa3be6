// Package cache is a small file-backed TTL cache. It exists to avoid
// refetching paginated account histories on every dataset rebuild: entries
// are keyed by call arguments and stay valid for the TTL, staleness inside
// that window is accepted. Entries are never invalidated proactively.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// DefaultTTL is the time entries stay valid unless configured otherwise.
const DefaultTTL = 24 * time.Hour

type entry struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// Cache stores JSON-encoded values under a directory.
type Cache struct {
	dir string
	ttl time.Duration

	// now is swappable in tests
	now func() time.Time
}

// New creates a cache rooted at dir. A zero ttl means DefaultTTL.
func New(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}
}

// Get loads the entry for key into out. Returns false when the entry is
// missing or expired.
func (c *Cache) Get(key string, out interface{}) bool {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	if c.now().After(e.ExpiresAt) {
		return false
	}
	return json.Unmarshal(e.Value, out) == nil
}

// Put stores value under key. The write is atomic (temp file + rename) since
// other processes may read concurrently.
func (c *Cache) Put(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "cache: failed to marshal value")
	}

	e := entry{ExpiresAt: c.now().Add(c.ttl), Value: raw}
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "cache: failed to marshal entry")
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.Wrap(err, "cache: failed to create dir")
	}

	path := c.path(key)
	tmp, err := os.CreateTemp(c.dir, ".cache-*")
	if err != nil {
		return errors.Wrap(err, "cache: failed to create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "cache: failed to write entry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "cache: failed to close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "cache: failed to rename entry")
}

func (c *Cache) path(key string) string {
	sum := sha1.Sum([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
