package cache

import (
	"fmt"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/apisummarizer/internal/decl"
)

// DefaultDeclCacheSize bounds the number of declarations kept in memory.
const DefaultDeclCacheSize = 10_000

// DeclCache memoizes declarations by content fingerprint so unchanged class
// files are not parsed twice, e.g. across watch-mode runs. It satisfies
// summarizer.Cache and is safe for concurrent use.
type DeclCache struct {
	c otter.Cache[Fingerprint, *decl.ClassDecl]
}

// NewDeclCache creates a cache holding up to capacity declarations.
func NewDeclCache(capacity int) (*DeclCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("decl cache capacity must be positive, got %d", capacity)
	}
	c, err := otter.MustBuilder[Fingerprint, *decl.ClassDecl](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build decl cache: %w", err)
	}
	return &DeclCache{c: c}, nil
}

func (d *DeclCache) Get(data []byte) (*decl.ClassDecl, bool) {
	return d.c.Get(FingerprintOf(data))
}

func (d *DeclCache) Put(data []byte, cd *decl.ClassDecl) {
	d.c.Set(FingerprintOf(data), cd)
}

// Len returns the number of cached declarations.
func (d *DeclCache) Len() int {
	return d.c.Size()
}

// Stats returns the hit and miss counters.
func (d *DeclCache) Stats() (hits, misses int64) {
	s := d.c.Stats()
	return s.Hits(), s.Misses()
}

// Close stops the cache's background goroutines.
func (d *DeclCache) Close() {
	d.c.Close()
}
