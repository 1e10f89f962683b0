package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"snipspace/core"
)

func newTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	return NewStore(dbPath)
}

func TestSnippetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snippet := &core.Snippet{
		UserID:      "alice",
		Title:       "greeter",
		Description: "says hello",
		Code:        "fmt.Println(\"hi\")",
		Lang:        "go",
		IsPublic:    true,
		Tags:        []string{"demo", "go"},
	}

	id, err := store.CreateSnippet(ctx, snippet)
	if err != nil {
		t.Fatalf("CreateSnippet() failed: %v", err)
	}

	got, err := store.GetSnippet(ctx, id)
	if err != nil {
		t.Fatalf("GetSnippet() failed: %v", err)
	}
	if got.Title != snippet.Title || got.Code != snippet.Code || got.Lang != snippet.Lang {
		t.Errorf("GetSnippet() = %+v, want fields of %+v", got, snippet)
	}
	if !got.IsPublic {
		t.Error("GetSnippet() lost IsPublic")
	}
	if len(got.Tags) != 2 || got.Tags[0] != "demo" {
		t.Errorf("GetSnippet() tags = %v, want %v", got.Tags, snippet.Tags)
	}
}

func TestGetSnippet_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSnippet(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetSnippet() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateSnippet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snippet := &core.Snippet{UserID: "alice", Title: "v1", Code: "x", Tags: []string{}}
	id, err := store.CreateSnippet(ctx, snippet)
	if err != nil {
		t.Fatalf("CreateSnippet() failed: %v", err)
	}

	snippet.ID = id
	snippet.Title = "v2"
	snippet.IsPublic = true
	if err := store.UpdateSnippet(ctx, snippet); err != nil {
		t.Fatalf("UpdateSnippet() failed: %v", err)
	}

	got, err := store.GetSnippet(ctx, id)
	if err != nil {
		t.Fatalf("GetSnippet() failed: %v", err)
	}
	if got.Title != "v2" || !got.IsPublic {
		t.Errorf("UpdateSnippet() not persisted: %+v", got)
	}
}

func TestUpdateSnippet_NotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateSnippet(context.Background(), &core.Snippet{ID: "missing", Tags: []string{}})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateSnippet() error = %v, want ErrNotFound", err)
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

func TestListSnippets_VisibilityFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []*core.Snippet{
		{UserID: "alice", Title: "alice public", Code: "x", IsPublic: true},
		{UserID: "alice", Title: "alice private", Code: "x"},
		{UserID: "bob", Title: "bob public", Code: "x", IsPublic: true},
		{UserID: "bob", Title: "bob private", Code: "x"},
	}
	for _, s := range seed {
		if _, err := store.CreateSnippet(ctx, s); err != nil {
			t.Fatalf("CreateSnippet() failed: %v", err)
		}
	}

	testCases := []struct {
		name       string
		visibility core.Visibility
		want       int
	}{
		{"default", core.VisibilityAll, 3},
		{"public", core.VisibilityPublic, 2},
		{"private", core.VisibilityPrivate, 1},
		{"own", core.VisibilityOwn, 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snippets, err := store.ListSnippets(ctx, core.SnippetFilter{
				UserID:     "alice",
				Visibility: tc.visibility,
			})
			if err != nil {
				t.Fatalf("ListSnippets() failed: %v", err)
			}
			if len(snippets) != tc.want {
				t.Errorf("ListSnippets() returned %d snippets, want %d", len(snippets), tc.want)
			}
		})
	}
}

func TestListSnippets_Limit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.CreateSnippet(ctx, &core.Snippet{UserID: "alice", Title: "t", Code: "c"}); err != nil {
			t.Fatalf("CreateSnippet() failed: %v", err)
		}
	}

	snippets, err := store.ListSnippets(ctx, core.SnippetFilter{UserID: "alice", Limit: 3})
	if err != nil {
		t.Fatalf("ListSnippets() failed: %v", err)
	}
	if len(snippets) != 3 {
		t.Errorf("ListSnippets() returned %d snippets, want 3", len(snippets))
	}
}

func TestSnippetStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []*core.Snippet{
		{UserID: "alice", Title: "p", Code: "x", IsPublic: true},
		{UserID: "alice", Title: "s", Code: "x"},
		{UserID: "bob", Title: "b", Code: "x", IsPublic: true},
	}
	for _, s := range seed {
		if _, err := store.CreateSnippet(ctx, s); err != nil {
			t.Fatalf("CreateSnippet() failed: %v", err)
		}
	}

	stats, err := store.SnippetStats(ctx, "alice")
	if err != nil {
		t.Fatalf("SnippetStats() failed: %v", err)
	}
	if stats.Total != 2 || stats.Public != 1 || stats.Private != 1 {
		t.Errorf("SnippetStats() = %+v, want total 2, public 1, private 1", stats)
	}
}

func TestWorkspaceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	workspace := &core.Workspace{
		Name:      "team space",
		OwnerID:   "alice",
		OwnerName: "alice",
		Collaborators: []core.Collaborator{
			{UserID: "bob", Username: "bob", AddedAt: time.Now()},
		},
		Snippets: []core.WorkspaceSnippet{
			{ID: "s1", Title: "shared", Code: "x", Lang: "go", CreatedAt: time.Now()},
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
	if got.Name != workspace.Name || got.OwnerID != workspace.OwnerID {
		t.Errorf("GetWorkspace() = %+v, want fields of %+v", got, workspace)
	}
	if len(got.Collaborators) != 1 || got.Collaborators[0].UserID != "bob" {
		t.Errorf("GetWorkspace() collaborators = %v", got.Collaborators)
	}
	if len(got.Snippets) != 1 || got.Snippets[0].Title != "shared" {
		t.Errorf("GetWorkspace() snippets = %v", got.Snippets)
	}
}

func TestListWorkspaces_MembershipScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateWorkspace(ctx, &core.Workspace{OwnerID: "alice", Name: "mine"}); err != nil {
		t.Fatalf("CreateWorkspace() failed: %v", err)
	}
	if _, err := store.CreateWorkspace(ctx, &core.Workspace{
		OwnerID:       "bob",
		Name:          "shared",
		Collaborators: []core.Collaborator{{UserID: "alice"}},
	}); err != nil {
		t.Fatalf("CreateWorkspace() failed: %v", err)
	}
	if _, err := store.CreateWorkspace(ctx, &core.Workspace{OwnerID: "bob", Name: "private"}); err != nil {
		t.Fatalf("CreateWorkspace() failed: %v", err)
	}

	workspaces, err := store.ListWorkspaces(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("ListWorkspaces() failed: %v", err)
	}
	if len(workspaces) != 2 {
		t.Errorf("ListWorkspaces() returned %d workspaces, want 2", len(workspaces))
	}
	for _, w := range workspaces {
		if w.Name == "private" {
			t.Error("ListWorkspaces() leaked a non-member workspace")
		}
	}
}

func TestUpdateWorkspace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	workspace := &core.Workspace{OwnerID: "alice", Name: "before"}
	id, err := store.CreateWorkspace(ctx, workspace)
	if err != nil {
		t.Fatalf("CreateWorkspace() failed: %v", err)
	}

	workspace.WorkspaceID = id
	workspace.Name = "after"
	workspace.Collaborators = append(workspace.Collaborators, core.Collaborator{UserID: "bob"})
	if err := store.UpdateWorkspace(ctx, workspace); err != nil {
		t.Fatalf("UpdateWorkspace() failed: %v", err)
	}

	got, err := store.GetWorkspace(ctx, id)
	if err != nil {
		t.Fatalf("GetWorkspace() failed: %v", err)
	}
	if got.Name != "after" || len(got.Collaborators) != 1 {
		t.Errorf("UpdateWorkspace() not persisted: %+v", got)
	}
}

func TestDeleteWorkspace_NotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.DeleteWorkspace(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteWorkspace() error = %v, want ErrNotFound", err)
	}
}

func TestWorkspaceStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []*core.Workspace{
		{OwnerID: "alice", Name: "a1"},
		{OwnerID: "bob", Name: "b1", Collaborators: []core.Collaborator{{UserID: "alice"}}},
		{OwnerID: "bob", Name: "b2"},
	}
	for _, w := range seed {
		if _, err := store.CreateWorkspace(ctx, w); err != nil {
			t.Fatalf("CreateWorkspace() failed: %v", err)
		}
	}

	stats, err := store.WorkspaceStats(ctx, "alice")
	if err != nil {
		t.Fatalf("WorkspaceStats() failed: %v", err)
	}
	if stats.Owned != 1 || stats.Collaborating != 1 {
		t.Errorf("WorkspaceStats() = %+v, want owned 1, collaborating 1", stats)
	}
}
