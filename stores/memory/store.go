package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"snipspace/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// memStore implements both SnippetStore and WorkspaceStore for in-memory storage.
type memStore struct {
	mu         sync.RWMutex
	snippets   map[string]*core.Snippet
	workspaces map[string]*core.Workspace
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		snippets:   make(map[string]*core.Snippet),
		workspaces: make(map[string]*core.Workspace),
	}
}

func snippetVisible(s *core.Snippet, filter core.SnippetFilter) bool {
	switch filter.Visibility {
	case core.VisibilityPublic:
		return s.IsPublic
	case core.VisibilityPrivate:
		return !s.IsPublic && s.UserID == filter.UserID
	case core.VisibilityOwn:
		return s.UserID == filter.UserID
	default:
		return s.IsPublic || s.UserID == filter.UserID
	}
}

// ListSnippets returns snippets matching the filter, most recently updated first.
func (s *memStore) ListSnippets(ctx context.Context, filter core.SnippetFilter) ([]*core.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snippets := make([]*core.Snippet, 0)
	for _, snippet := range s.snippets {
		if snippetVisible(snippet, filter) {
			snippets = append(snippets, snippet)
		}
	}
	sort.Slice(snippets, func(i, j int) bool {
		return snippets[i].UpdatedAt.After(snippets[j].UpdatedAt)
	})
	if filter.Limit > 0 && len(snippets) > filter.Limit {
		snippets = snippets[:filter.Limit]
	}

	logrus.WithField("user_id", filter.UserID).Debugf("Listed %d snippets", len(snippets))
	return snippets, nil
}

func (s *memStore) GetSnippet(ctx context.Context, id string) (*core.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snippet, ok := s.snippets[id]
	if !ok {
		logrus.WithField("snippet_id", id).Warn("Snippet with specified ID not found")
		return nil, fmt.Errorf("snippet with id %s: %w", id, core.ErrNotFound)
	}
	return snippet, nil
}

func (s *memStore) CreateSnippet(ctx context.Context, snippet *core.Snippet) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snippet.UserID == "" {
		return "", fmt.Errorf("snippet user ID cannot be empty")
	}

	id := ulid.Make().String()
	now := time.Now()
	snippet.ID = id
	snippet.CreatedAt = now
	snippet.UpdatedAt = now
	s.snippets[id] = snippet

	logrus.WithFields(logrus.Fields{
		"snippet_id": id,
		"user_id":    snippet.UserID,
	}).Info("Snippet created successfully")
	return id, nil
}

func (s *memStore) UpdateSnippet(ctx context.Context, snippet *core.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.snippets[snippet.ID]
	if !ok {
		return fmt.Errorf("snippet with id %s: %w", snippet.ID, core.ErrNotFound)
	}
	snippet.CreatedAt = existing.CreatedAt
	snippet.UpdatedAt = time.Now()
	s.snippets[snippet.ID] = snippet

	logrus.WithField("snippet_id", snippet.ID).Info("Snippet updated successfully")
	return nil
}

func (s *memStore) DeleteSnippet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snippets[id]; !ok {
		return fmt.Errorf("snippet with id %s: %w", id, core.ErrNotFound)
	}
	delete(s.snippets, id)

	logrus.WithField("snippet_id", id).Info("Snippet deleted successfully")
	return nil
}

func (s *memStore) SnippetStats(ctx context.Context, userID string) (core.SnippetStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats core.SnippetStats
	for _, snippet := range s.snippets {
		if snippet.UserID != userID {
			continue
		}
		stats.Total++
		if snippet.IsPublic {
			stats.Public++
		} else {
			stats.Private++
		}
	}
	return stats, nil
}

// ListWorkspaces returns workspaces the user owns or collaborates on,
// most recently updated first.
func (s *memStore) ListWorkspaces(ctx context.Context, userID string, limit int) ([]*core.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workspaces := make([]*core.Workspace, 0)
	for _, workspace := range s.workspaces {
		if workspace.MemberOf(userID) {
			workspaces = append(workspaces, workspace)
		}
	}
	sort.Slice(workspaces, func(i, j int) bool {
		return workspaces[i].UpdatedAt.After(workspaces[j].UpdatedAt)
	})
	if limit > 0 && len(workspaces) > limit {
		workspaces = workspaces[:limit]
	}

	logrus.WithField("user_id", userID).Debugf("Listed %d workspaces", len(workspaces))
	return workspaces, nil
}

func (s *memStore) GetWorkspace(ctx context.Context, workspaceID string) (*core.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workspace, ok := s.workspaces[workspaceID]
	if !ok {
		logrus.WithField("workspace_id", workspaceID).Warn("Workspace with specified ID not found")
		return nil, fmt.Errorf("workspace with id %s: %w", workspaceID, core.ErrNotFound)
	}
	return workspace, nil
}

func (s *memStore) CreateWorkspace(ctx context.Context, workspace *core.Workspace) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if workspace.OwnerID == "" {
		return "", fmt.Errorf("workspace owner ID cannot be empty")
	}

	id := ulid.Make().String()
	now := time.Now()
	workspace.WorkspaceID = id
	workspace.CreatedAt = now
	workspace.UpdatedAt = now
	if workspace.Collaborators == nil {
		workspace.Collaborators = []core.Collaborator{}
	}
	if workspace.Snippets == nil {
		workspace.Snippets = []core.WorkspaceSnippet{}
	}
	s.workspaces[id] = workspace

	logrus.WithFields(logrus.Fields{
		"workspace_id": id,
		"owner_id":     workspace.OwnerID,
	}).Info("Workspace created successfully")
	return id, nil
}

func (s *memStore) UpdateWorkspace(ctx context.Context, workspace *core.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.workspaces[workspace.WorkspaceID]
	if !ok {
		return fmt.Errorf("workspace with id %s: %w", workspace.WorkspaceID, core.ErrNotFound)
	}
	workspace.CreatedAt = existing.CreatedAt
	workspace.UpdatedAt = time.Now()
	s.workspaces[workspace.WorkspaceID] = workspace

	logrus.WithField("workspace_id", workspace.WorkspaceID).Info("Workspace updated successfully")
	return nil
}

func (s *memStore) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[workspaceID]; !ok {
		return fmt.Errorf("workspace with id %s: %w", workspaceID, core.ErrNotFound)
	}
	delete(s.workspaces, workspaceID)

	logrus.WithField("workspace_id", workspaceID).Info("Workspace deleted successfully")
	return nil
}

func (s *memStore) WorkspaceStats(ctx context.Context, userID string) (core.WorkspaceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats core.WorkspaceStats
	for _, workspace := range s.workspaces {
		if workspace.OwnerID == userID {
			stats.Owned++
		} else if workspace.MemberOf(userID) {
			stats.Collaborating++
		}
	}
	return stats, nil
}
