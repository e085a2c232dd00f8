// Package draft keeps unsent instruction text per selection key.
package draft

import "sync"

// Cache holds one visible draft for the active selection plus the saved
// drafts of every selection visited this session. Saved entries are never
// evicted.
type Cache struct {
	mu        sync.Mutex
	activeKey string
	text      string
	saved     map[string]string
}

func New() *Cache {
	return &Cache{saved: make(map[string]string)}
}

// OnSelectionChange saves the visible text under prevKey and restores the
// text saved for nextKey. An empty nextKey clears the visible text without
// touching saved entries.
func (c *Cache) OnSelectionChange(prevKey, nextKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prevKey != "" && prevKey != nextKey {
		c.saved[prevKey] = c.text
	}
	switch {
	case nextKey == "":
		c.text = ""
	case nextKey != prevKey:
		c.text = c.saved[nextKey]
	}
	c.activeKey = nextKey
}

// SetText replaces the visible draft. It is dropped when nothing is selected.
func (c *Cache) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeKey == "" {
		return
	}
	c.text = text
	c.saved[c.activeKey] = text
}

// Text returns the visible draft.
func (c *Cache) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// ActiveKey returns the selection key the visible draft belongs to.
func (c *Cache) ActiveKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeKey
}

// OnSubmit empties the saved draft for key. If key is still active the
// visible text is cleared too. The entry itself is kept.
func (c *Cache) OnSubmit(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" {
		return
	}
	c.saved[key] = ""
	if key == c.activeKey {
		c.text = ""
	}
}

// Saved returns the saved draft for key and whether an entry exists.
func (c *Cache) Saved(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.saved[key]
	return s, ok
}
