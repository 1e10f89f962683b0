package collab

import "sync"

// ContentCache holds the last document body broadcast for each workspace.
// Writes are last-write-wins with no version tracking: the most recently
// processed edit fully replaces the cached body, and that is the body every
// later joiner is seeded with. Entries are kept for the process lifetime so
// a rejoiner is still seeded after the room has emptied.
type ContentCache struct {
	mu      sync.RWMutex
	content map[string]string
}

func NewContentCache() *ContentCache {
	return &ContentCache{content: make(map[string]string)}
}

// Set unconditionally overwrites the cached body for the workspace.
func (c *ContentCache) Set(workspaceID, body string) {
	c.mu.Lock()
	c.content[workspaceID] = body
	c.mu.Unlock()
}

// Get returns the cached body for the workspace, if any edit has been seen
// since process start.
func (c *ContentCache) Get(workspaceID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	body, ok := c.content[workspaceID]
	return body, ok
}
