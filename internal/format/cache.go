package format

import "sync"

// Cache compiles each distinct format string once. Failed compilations are
// not cached.
type Cache struct {
	compiler *Compiler

	mu      sync.RWMutex
	entries map[string]*CompiledFormat
}

// NewCache creates a Cache backed by compiler; nil means the default compiler.
func NewCache(compiler *Compiler) *Cache {
	if compiler == nil {
		compiler = NewCompiler(nil)
	}
	return &Cache{
		compiler: compiler,
		entries:  make(map[string]*CompiledFormat),
	}
}

// Get returns the compiled form of format, compiling it on first use.
func (c *Cache) Get(format string) (*CompiledFormat, error) {
	c.mu.RLock()
	cf, ok := c.entries[format]
	c.mu.RUnlock()
	if ok {
		return cf, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cf, ok := c.entries[format]; ok {
		return cf, nil
	}
	cf, err := c.compiler.Compile(format)
	if err != nil {
		return nil, err
	}
	c.entries[format] = cf
	return cf, nil
}

// Len returns the number of cached formats.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
