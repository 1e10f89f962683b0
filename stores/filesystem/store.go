package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"snipspace/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store. Snippets and workspaces are
// kept as JSON files under per-entity directories.
func NewStore(basePath string) *fsStore {
	for _, dir := range []string{basePath, filepath.Join(basePath, "snippets"), filepath.Join(basePath, "workspaces")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}
	return &fsStore{basePath: basePath}
}

// entityPath resolves an ID to a file path under the given entity directory,
// rejecting IDs that would escape it.
func (s *fsStore) entityPath(kind, id string) (string, error) {
	if id == "" || filepath.Base(id) != id {
		return "", fmt.Errorf("invalid id: must not be empty or a path")
	}
	dir := filepath.Join(s.basePath, kind)
	path := filepath.Join(dir, id+".json")
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absPath, absDir) {
		return "", fmt.Errorf("invalid path: access denied")
	}
	return path, nil
}

func (s *fsStore) readSnippet(path string) (*core.Snippet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snippet core.Snippet
	if err := json.Unmarshal(data, &snippet); err != nil {
		return nil, err
	}
	return &snippet, nil
}

func (s *fsStore) writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SnippetStore implementation

func (s *fsStore) ListSnippets(ctx context.Context, filter core.SnippetFilter) ([]*core.Snippet, error) {
	dir := filepath.Join(s.basePath, "snippets")
	log := logrus.WithField("path", dir)

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.Snippet{}, nil
		}
		log.WithError(err).Error("Failed to read snippets directory")
		return nil, err
	}

	snippets := make([]*core.Snippet, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		snippet, err := s.readSnippet(filepath.Join(dir, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read snippet file %s, skipping", file.Name())
			continue
		}
		if !snippetVisible(snippet, filter) {
			continue
		}
		snippets = append(snippets, snippet)
	}

	sort.Slice(snippets, func(i, j int) bool {
		return snippets[i].UpdatedAt.After(snippets[j].UpdatedAt)
	})
	if filter.Limit > 0 && len(snippets) > filter.Limit {
		snippets = snippets[:filter.Limit]
	}
	return snippets, nil
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

func (s *fsStore) GetSnippet(ctx context.Context, id string) (*core.Snippet, error) {
	path, err := s.entityPath("snippets", id)
	if err != nil {
		return nil, err
	}
	snippet, err := s.readSnippet(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("snippet_id", id).Warn("Snippet file not found")
			return nil, fmt.Errorf("snippet with id %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return snippet, nil
}

func (s *fsStore) CreateSnippet(ctx context.Context, snippet *core.Snippet) (string, error) {
	id := ulid.Make().String()
	now := time.Now()
	snippet.ID = id
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	path, err := s.entityPath("snippets", id)
	if err != nil {
		return "", err
	}
	if err := s.writeJSON(path, snippet); err != nil {
		logrus.WithError(err).Error("Failed to write snippet file")
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"snippet_id": id,
		"user_id":    snippet.UserID,
	}).Info("Snippet created successfully")
	return id, nil
}

func (s *fsStore) UpdateSnippet(ctx context.Context, snippet *core.Snippet) error {
	existing, err := s.GetSnippet(ctx, snippet.ID)
	if err != nil {
		return err
	}
	snippet.CreatedAt = existing.CreatedAt
	snippet.UpdatedAt = time.Now()

	path, err := s.entityPath("snippets", snippet.ID)
	if err != nil {
		return err
	}
	return s.writeJSON(path, snippet)
}

func (s *fsStore) DeleteSnippet(ctx context.Context, id string) error {
	path, err := s.entityPath("snippets", id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("snippet with id %s: %w", id, core.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *fsStore) SnippetStats(ctx context.Context, userID string) (core.SnippetStats, error) {
	snippets, err := s.ListSnippets(ctx, core.SnippetFilter{UserID: userID})
	if err != nil {
		return core.SnippetStats{}, err
	}
	var stats core.SnippetStats
	for _, snippet := range snippets {
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

// WorkspaceStore implementation

func (s *fsStore) readWorkspace(path string) (*core.Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var workspace core.Workspace
	if err := json.Unmarshal(data, &workspace); err != nil {
		return nil, err
	}
	return &workspace, nil
}

func (s *fsStore) listAllWorkspaces() ([]*core.Workspace, error) {
	dir := filepath.Join(s.basePath, "workspaces")
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.Workspace{}, nil
		}
		return nil, err
	}

	workspaces := make([]*core.Workspace, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		workspace, err := s.readWorkspace(filepath.Join(dir, file.Name()))
		if err != nil {
			logrus.WithError(err).Warnf("Failed to read workspace file %s, skipping", file.Name())
			continue
		}
		workspaces = append(workspaces, workspace)
	}
	return workspaces, nil
}

func (s *fsStore) ListWorkspaces(ctx context.Context, userID string, limit int) ([]*core.Workspace, error) {
	all, err := s.listAllWorkspaces()
	if err != nil {
		return nil, err
	}

	workspaces := make([]*core.Workspace, 0, len(all))
	for _, workspace := range all {
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
	return workspaces, nil
}

func (s *fsStore) GetWorkspace(ctx context.Context, workspaceID string) (*core.Workspace, error) {
	path, err := s.entityPath("workspaces", workspaceID)
	if err != nil {
		return nil, err
	}
	workspace, err := s.readWorkspace(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("workspace_id", workspaceID).Warn("Workspace file not found")
			return nil, fmt.Errorf("workspace with id %s: %w", workspaceID, core.ErrNotFound)
		}
		return nil, err
	}
	return workspace, nil
}

func (s *fsStore) CreateWorkspace(ctx context.Context, workspace *core.Workspace) (string, error) {
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

	path, err := s.entityPath("workspaces", id)
	if err != nil {
		return "", err
	}
	if err := s.writeJSON(path, workspace); err != nil {
		logrus.WithError(err).Error("Failed to write workspace file")
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"workspace_id": id,
		"owner_id":     workspace.OwnerID,
	}).Info("Workspace created successfully")
	return id, nil
}

func (s *fsStore) UpdateWorkspace(ctx context.Context, workspace *core.Workspace) error {
	existing, err := s.GetWorkspace(ctx, workspace.WorkspaceID)
	if err != nil {
		return err
	}
	workspace.CreatedAt = existing.CreatedAt
	workspace.UpdatedAt = time.Now()

	path, err := s.entityPath("workspaces", workspace.WorkspaceID)
	if err != nil {
		return err
	}
	return s.writeJSON(path, workspace)
}

func (s *fsStore) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	path, err := s.entityPath("workspaces", workspaceID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("workspace with id %s: %w", workspaceID, core.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *fsStore) WorkspaceStats(ctx context.Context, userID string) (core.WorkspaceStats, error) {
	all, err := s.listAllWorkspaces()
	if err != nil {
		return core.WorkspaceStats{}, err
	}
	var stats core.WorkspaceStats
	for _, workspace := range all {
		if workspace.OwnerID == userID {
			stats.Owned++
		} else if workspace.MemberOf(userID) {
			stats.Collaborating++
		}
	}
	return stats, nil
}
