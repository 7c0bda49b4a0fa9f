// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package translate

import (
	"strconv"
	"unicode/utf8"

	gocache "github.com/patrickmn/go-cache"
)

// keyPrefixChars is the number of leading characters kept in a cache key.
const keyPrefixChars = 50

// Key returns the cache key for text: the text itself when it has at most
// 50 characters, otherwise its first 50 characters followed by its full
// length. Distinct long texts sharing a prefix and length collide.
func Key(text string) string {
	n := utf8.RuneCountInString(text)
	if n <= keyPrefixChars {
		return text
	}
	i, count := 0, 0
	for i = range text {
		if count == keyPrefixChars {
			break
		}
		count++
	}
	return text[:i] + strconv.Itoa(n)
}

// Store holds translation results. Implementations must be safe for
// concurrent use. Entries are never evicted by the translator.
type Store interface {
	Get(key string) (Result, bool)
	Set(key string, r Result)
}

// MemoryStore is a process-local Store backed by go-cache with no expiry.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the stored result for key.
func (s *MemoryStore) Get(key string) (Result, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return Result{}, false
	}
	r, ok := v.(Result)
	return r, ok
}

// Set stores r under key. Concurrent writes to one key are last-write-wins.
func (s *MemoryStore) Set(key string, r Result) {
	s.c.Set(key, r, gocache.NoExpiration)
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	return s.c.ItemCount()
}
