package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// cacheEntry is one cached translation, stored msgpack-encoded under the
// content hash of its input. The input hash in the entry guards against
// hash-prefix collisions from truncated file names.
type cacheEntry struct {
	Sum    []byte `msgpack:"sum"`
	Source string `msgpack:"source"`
}

// diskCache memoizes rendered units by input content. Entries are
// immutable; a changed input hashes to a different entry.
type diskCache struct {
	dir string
}

// openCache opens (creating if needed) a cache directory. An empty dir
// disables caching.
func openCache(dir string) (*diskCache, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &diskCache{dir: dir}, nil
}

func (c *diskCache) path(sum []byte) string {
	return filepath.Join(c.dir, hex.EncodeToString(sum)+".msgpack")
}

// Get returns the cached source for input, if present and intact. Any
// decode failure reads as a miss; the entry is rewritten on Put.
func (c *diskCache) Get(input []byte) (string, bool) {
	sum := sha256.Sum256(input)
	raw, err := os.ReadFile(c.path(sum[:]))
	if err != nil {
		return "", false
	}
	var entry cacheEntry
	if err := msgpack.Unmarshal(raw, &entry); err != nil {
		return "", false
	}
	if !bytes.Equal(entry.Sum, sum[:]) {
		return "", false
	}
	return entry.Source, true
}

// Put stores the rendered source for input. Failures are silent: the
// cache is an optimization, never a correctness dependency.
func (c *diskCache) Put(input []byte, source string) {
	sum := sha256.Sum256(input)
	raw, err := msgpack.Marshal(&cacheEntry{Sum: sum[:], Source: source})
	if err != nil {
		return
	}
	os.WriteFile(c.path(sum[:]), raw, 0o644)
}
