// Package cache persists annotated listings so repeated lookups of the same
// commit and path skip the history walk.
package cache

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"glcm/internal/cas"
	"glcm/internal/object"
	"glcm/internal/provenance"
)

// ListingCache stores listings keyed by (repository, revision, path, walk cap).
// Commits are immutable, so an entry never goes stale.
type ListingCache struct {
	db  *sql.DB
	dir string
}

// Key identifies one cached listing.
type Key struct {
	Repo         string            `json:"repo"`
	Revision     object.RevisionID `json:"revision"`
	Path         string            `json:"path"`
	MaxRevisions int               `json:"maxRevisions"`
}

const schema = `
CREATE TABLE IF NOT EXISTS listing_cache (
	key TEXT PRIMARY KEY,
	revision TEXT NOT NULL,
	path TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listing_revision ON listing_cache(revision);
`

// Open opens or creates the cache database at {dir}/listings.db.
func Open(dir string) (*ListingCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "listings.db"))
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying cache schema: %w", err)
	}

	return &ListingCache{db: db, dir: dir}, nil
}

// Close closes the cache database.
func (c *ListingCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Dir returns the directory holding the cache database.
func (c *ListingCache) Dir() string {
	return c.dir
}

func (k Key) digest() (string, error) {
	return cas.KeyHex("listing", k)
}

// Get returns the cached listing for k. ok is false on a miss.
func (c *ListingCache) Get(k Key) (listing *provenance.Listing, ok bool, err error) {
	digest, err := k.digest()
	if err != nil {
		return nil, false, fmt.Errorf("computing cache key: %w", err)
	}

	var payload []byte
	err = c.db.QueryRow("SELECT payload FROM listing_cache WHERE key = ?", digest).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cache: %w", err)
	}

	listing, err = decode(payload)
	if err != nil {
		return nil, false, err
	}
	return listing, true, nil
}

// Put stores l under k, replacing any previous value.
func (c *ListingCache) Put(k Key, l *provenance.Listing) error {
	digest, err := k.digest()
	if err != nil {
		return fmt.Errorf("computing cache key: %w", err)
	}

	payload, err := encode(l)
	if err != nil {
		return err
	}

	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO listing_cache (key, revision, path, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		digest, string(k.Revision), k.Path, payload, cas.NowMs(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes all entries from the cache.
func (c *ListingCache) Clear() error {
	_, err := c.db.Exec("DELETE FROM listing_cache")
	return err
}

// Stats returns cache statistics.
type Stats struct {
	TotalEntries int64 `json:"totalEntries"`
	PayloadBytes int64 `json:"payloadBytes"`
}

// Stats returns the number of cached listings and their compressed size.
func (c *ListingCache) Stats() (*Stats, error) {
	var s Stats
	err := c.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM listing_cache",
	).Scan(&s.TotalEntries, &s.PayloadBytes)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// encode serializes a listing, walk statistics included, as zstd-compressed JSON.
func encode(l *provenance.Listing) ([]byte, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshaling listing: %w", err)
	}

	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(raw); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}
	return compressed.Bytes(), nil
}

func decode(payload []byte) (*provenance.Listing, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}

	var l provenance.Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("unmarshaling listing: %w", err)
	}
	return &l, nil
}
