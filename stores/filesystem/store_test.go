package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"snipspace/core"
)

func newTestStore(t *testing.T) *fsStore {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestNewStore_CreatesDirectories(t *testing.T) {
	base := t.TempDir()
	NewStore(base)

	for _, dir := range []string{"snippets", "workspaces"} {
		if _, err := os.Stat(filepath.Join(base, dir)); err != nil {
			t.Errorf("expected %s directory to exist: %v", dir, err)
		}
	}
}

func TestSnippetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snippet := &core.Snippet{
		UserID:   "alice",
		Title:    "fs snippet",
		Code:     "echo hi",
		Lang:     "bash",
		IsPublic: true,
		Tags:     []string{"shell"},
	}

	id, err := store.CreateSnippet(ctx, snippet)
	if err != nil {
		t.Fatalf("CreateSnippet() failed: %v", err)
	}

	got, err := store.GetSnippet(ctx, id)
	if err != nil {
		t.Fatalf("GetSnippet() failed: %v", err)
	}
	if got.Title != snippet.Title || got.Code != snippet.Code || !got.IsPublic {
		t.Errorf("GetSnippet() = %+v, want fields of %+v", got, snippet)
	}
}

func TestGetSnippet_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSnippet(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetSnippet() error = %v, want ErrNotFound", err)
	}
}

func TestGetSnippet_PathTraversalRejected(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"../escape", "a/b", "..", ""} {
		if _, err := store.GetSnippet(context.Background(), id); err == nil {
			t.Errorf("GetSnippet(%q) should reject path-like IDs", id)
		}
	}
}

func TestDeleteSnippet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSnippet(ctx, &core.Snippet{UserID: "alice", Title: "x", Code: "y"})
	if err != nil {
		t.Fatalf("CreateSnippet() failed: %v", err)
	}
	if err := store.DeleteSnippet(ctx, id); err != nil {
		t.Fatalf("DeleteSnippet() failed: %v", err)
	}
	if err := store.DeleteSnippet(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second DeleteSnippet() error = %v, want ErrNotFound", err)
	}
}

func TestListSnippets_SkipsCorruptFiles(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)
	ctx := context.Background()

	if _, err := store.CreateSnippet(ctx, &core.Snippet{UserID: "alice", Title: "good", Code: "x"}); err != nil {
		t.Fatalf("CreateSnippet() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "snippets", "corrupt.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	snippets, err := store.ListSnippets(ctx, core.SnippetFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("ListSnippets() failed: %v", err)
	}
	if len(snippets) != 1 || snippets[0].Title != "good" {
		t.Errorf("ListSnippets() = %v, want only the good snippet", snippets)
	}
}

func TestWorkspaceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	workspace := &core.Workspace{
		Name:    "fs workspace",
		OwnerID: "alice",
		Collaborators: []core.Collaborator{
			{UserID: "bob", Username: "bob"},
		},
	}

	id, err := store.CreateWorkspace(ctx, workspace)
	if err != nil {
		t.Fatalf("CreateWorkspace() failed: %v", err)
	}

	got, err := store.GetWorkspace(ctx, id)
	if err != nil {
		t.Fatalf("GetWorkspace() failed: %v", err)
	}
	if got.Name != workspace.Name || len(got.Collaborators) != 1 {
		t.Errorf("GetWorkspace() = %+v, want fields of %+v", got, workspace)
	}
	if got.Snippets == nil {
		t.Error("GetWorkspace() should return an initialized snippets slice")
	}
}

func TestListWorkspaces_MembershipScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateWorkspace(ctx, &core.Workspace{OwnerID: "alice", Name: "mine"}); err != nil {
		t.Fatalf("CreateWorkspace() failed: %v", err)
	}
	if _, err := store.CreateWorkspace(ctx, &core.Workspace{OwnerID: "bob", Name: "not mine"}); err != nil {
		t.Fatalf("CreateWorkspace() failed: %v", err)
	}

	workspaces, err := store.ListWorkspaces(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("ListWorkspaces() failed: %v", err)
	}
	if len(workspaces) != 1 || workspaces[0].Name != "mine" {
		t.Errorf("ListWorkspaces() = %v, want only alice's", workspaces)
	}
}

func TestWorkspacePersistsAcrossStoreInstances(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	first := NewStore(base)
	id, err := first.CreateWorkspace(ctx, &core.Workspace{OwnerID: "alice", Name: "durable"})
	if err != nil {
		t.Fatalf("CreateWorkspace() failed: %v", err)
	}

	second := NewStore(base)
	got, err := second.GetWorkspace(ctx, id)
	if err != nil {
		t.Fatalf("GetWorkspace() from second instance failed: %v", err)
	}
	if got.Name != "durable" {
		t.Errorf("GetWorkspace() = %+v, want the persisted workspace", got)
	}
}
