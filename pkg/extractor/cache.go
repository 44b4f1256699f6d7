package extractor

import (
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

// fingerprint identifies the on-disk state a cached extraction was computed from
type fingerprint struct {
	files   int
	size    int64
	modTime time.Time
}

// cacheEntry is the replayable outcome of extracting one module
type cacheEntry struct {
	fp          fingerprint
	candidates  []*plugins.Candidate
	diagnostics []plugins.Diagnostic
}

// metadataCache memoizes extraction across runs, keyed by module location
type metadataCache struct {
	cache *lru.LRU[string, *cacheEntry]
}

func newMetadataCache(size int, ttl time.Duration) *metadataCache {
	if size <= 0 {
		return nil
	}
	return &metadataCache{
		cache: lru.NewLRU[string, *cacheEntry](size, nil, ttl),
	}
}

func (c *metadataCache) get(location string, fp fingerprint) (*cacheEntry, bool) {
	if c == nil {
		return nil, false
	}
	entry, ok := c.cache.Get(location)
	if !ok || entry.fp != fp {
		return nil, false
	}
	return entry, true
}

func (c *metadataCache) put(location string, entry *cacheEntry) {
	if c == nil {
		return
	}
	c.cache.Add(location, entry)
}

func (c *metadataCache) len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

// moduleFingerprint summarizes the files directly inside dir plus an optional
// extra file (the compiled module of a manifest)
func moduleFingerprint(dir string, extra string) (fingerprint, error) {
	var fp fingerprint

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fp, err
	}

	add := func(info os.FileInfo) {
		fp.files++
		fp.size += info.Size()
		if info.ModTime().After(fp.modTime) {
			fp.modTime = info.ModTime()
		}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return fp, err
		}
		add(info)
	}

	if extra != "" && filepath.Dir(extra) != filepath.Clean(dir) {
		if info, err := os.Stat(extra); err == nil {
			add(info)
		}
	}

	return fp, nil
}

// cloneCandidates hands out fresh candidates so instances set during one run
// never leak into the cache
func cloneCandidates(in []*plugins.Candidate) []*plugins.Candidate {
	out := make([]*plugins.Candidate, 0, len(in))
	for _, c := range in {
		out = append(out, &plugins.Candidate{
			Metadata:            c.Metadata,
			Processes:           c.Processes,
			Dependencies:        c.Dependencies,
			Incompatibilities:   c.Incompatibilities,
			TypeName:            c.TypeName,
			Location:            c.Location,
			ModuleLocation:      c.ModuleLocation,
			DeclaredHostVersion: c.DeclaredHostVersion,
		})
	}
	return out
}
