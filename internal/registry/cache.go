package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"sdmodeld/pkg/types"
)

// FormatCache memoizes DetectFormat per absolute path. It is an optimization
// only: an empty cache is always correct. Callers that change model content on
// disk must call Forget or Invalidate.
type FormatCache struct {
	mu  sync.Mutex
	m   map[string]types.Format
	log zerolog.Logger
}

func NewFormatCache(log zerolog.Logger) *FormatCache {
	return &FormatCache{m: make(map[string]types.Format), log: log}
}

// Detect returns the cached format of path, classifying it on first use.
func (c *FormatCache) Detect(path string) types.Format {
	c.mu.Lock()
	if f, ok := c.m[path]; ok {
		c.mu.Unlock()
		return f
	}
	c.mu.Unlock()

	f, err := DetectFormat(path)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("failed to detect model format")
	}
	c.mu.Lock()
	c.m[path] = f
	c.mu.Unlock()
	return f
}

// Forget drops a single path.
func (c *FormatCache) Forget(path string) {
	c.mu.Lock()
	delete(c.m, path)
	c.mu.Unlock()
}

// Invalidate clears every cached entry.
func (c *FormatCache) Invalidate() {
	c.mu.Lock()
	c.m = make(map[string]types.Format)
	c.mu.Unlock()
}

func (c *FormatCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
