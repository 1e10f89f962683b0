package collab

import "testing"

func TestContentCacheLastWriteWins(t *testing.T) {
	c := NewContentCache()

	if _, ok := c.Get("ws1"); ok {
		t.Error("expected no cached body before first Set")
	}

	c.Set("ws1", "X")
	c.Set("ws1", "Y")

	body, ok := c.Get("ws1")
	if !ok || body != "Y" {
		t.Errorf("Get = (%q, %v), want (%q, true)", body, ok, "Y")
	}
}

func TestContentCacheEmptyBodyIsAnEdit(t *testing.T) {
	c := NewContentCache()
	c.Set("ws1", "something")
	c.Set("ws1", "")

	body, ok := c.Get("ws1")
	if !ok || body != "" {
		t.Errorf("expected empty body to be cached, got (%q, %v)", body, ok)
	}
}

func TestContentCacheIsolatedPerWorkspace(t *testing.T) {
	c := NewContentCache()
	c.Set("ws1", "one")
	c.Set("ws2", "two")

	if body, _ := c.Get("ws1"); body != "one" {
		t.Errorf("ws1 body = %q, want %q", body, "one")
	}
	if body, _ := c.Get("ws2"); body != "two" {
		t.Errorf("ws2 body = %q, want %q", body, "two")
	}
}
