package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"snipspace/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	snippetTableStmt := `
	CREATE TABLE IF NOT EXISTS snippets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT,
		description TEXT,
		code TEXT,
		lang TEXT,
		is_public INTEGER,
		tags TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`
	if _, err = db.Exec(snippetTableStmt); err != nil {
		log.Fatalf("failed to create snippets table: %v", err)
	}

	// Collaborators and embedded snippets are stored as JSON columns.
	workspaceTableStmt := `
	CREATE TABLE IF NOT EXISTS workspaces (
		workspace_id TEXT PRIMARY KEY,
		name TEXT,
		description TEXT,
		owner_id TEXT NOT NULL,
		owner_name TEXT,
		collaborators TEXT,
		snippets TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`
	if _, err = db.Exec(workspaceTableStmt); err != nil {
		log.Fatalf("failed to create workspaces table: %v", err)
	}

	return &sqliteStore{db}
}

// SnippetStore implementation

func (s *sqliteStore) ListSnippets(ctx context.Context, filter core.SnippetFilter) ([]*core.Snippet, error) {
	query := "SELECT id, user_id, title, description, code, lang, is_public, tags, created_at, updated_at FROM snippets"
	var args []any

	switch filter.Visibility {
	case core.VisibilityPublic:
		query += " WHERE is_public = 1"
	case core.VisibilityPrivate:
		query += " WHERE user_id = ? AND is_public = 0"
		args = append(args, filter.UserID)
	case core.VisibilityOwn:
		query += " WHERE user_id = ?"
		args = append(args, filter.UserID)
	default:
		query += " WHERE user_id = ? OR is_public = 1"
		args = append(args, filter.UserID)
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snippets []*core.Snippet
	for rows.Next() {
		snippet, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, snippet)
	}
	return snippets, rows.Err()
}

func scanSnippet(rows *sql.Rows) (*core.Snippet, error) {
	var snippet core.Snippet
	var isPublic int
	var tags string
	if err := rows.Scan(&snippet.ID, &snippet.UserID, &snippet.Title, &snippet.Description,
		&snippet.Code, &snippet.Lang, &isPublic, &tags, &snippet.CreatedAt, &snippet.UpdatedAt); err != nil {
		return nil, err
	}
	snippet.IsPublic = isPublic != 0
	if err := json.Unmarshal([]byte(tags), &snippet.Tags); err != nil {
		snippet.Tags = []string{}
	}
	return &snippet, nil
}

func (s *sqliteStore) GetSnippet(ctx context.Context, id string) (*core.Snippet, error) {
	var snippet core.Snippet
	var isPublic int
	var tags string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, description, code, lang, is_public, tags, created_at, updated_at FROM snippets WHERE id = ?", id).
		Scan(&snippet.ID, &snippet.UserID, &snippet.Title, &snippet.Description,
			&snippet.Code, &snippet.Lang, &isPublic, &tags, &snippet.CreatedAt, &snippet.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			logrus.WithField("snippet_id", id).Warn("Snippet with specified ID not found")
			return nil, fmt.Errorf("snippet with id %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	snippet.IsPublic = isPublic != 0
	if err := json.Unmarshal([]byte(tags), &snippet.Tags); err != nil {
		snippet.Tags = []string{}
	}
	return &snippet, nil
}

func (s *sqliteStore) CreateSnippet(ctx context.Context, snippet *core.Snippet) (string, error) {
	id := ulid.Make().String()
	now := time.Now()
	snippet.ID = id
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	tags, err := json.Marshal(snippet.Tags)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO snippets (id, user_id, title, description, code, lang, is_public, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		id, snippet.UserID, snippet.Title, snippet.Description, snippet.Code, snippet.Lang,
		boolToInt(snippet.IsPublic), string(tags), now, now)
	if err != nil {
		logrus.WithError(err).Error("Failed to create snippet")
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"snippet_id": id,
		"user_id":    snippet.UserID,
	}).Info("Snippet created successfully")
	return id, nil
}

func (s *sqliteStore) UpdateSnippet(ctx context.Context, snippet *core.Snippet) error {
	tags, err := json.Marshal(snippet.Tags)
	if err != nil {
		return err
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		"UPDATE snippets SET title = ?, description = ?, code = ?, lang = ?, is_public = ?, tags = ?, updated_at = ? WHERE id = ?",
		snippet.Title, snippet.Description, snippet.Code, snippet.Lang,
		boolToInt(snippet.IsPublic), string(tags), now, snippet.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("snippet with id %s: %w", snippet.ID, core.ErrNotFound)
	}
	snippet.UpdatedAt = now
	return nil
}

func (s *sqliteStore) DeleteSnippet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM snippets WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("snippet with id %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) SnippetStats(ctx context.Context, userID string) (core.SnippetStats, error) {
	var stats core.SnippetStats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(is_public), 0) FROM snippets WHERE user_id = ?", userID).
		Scan(&stats.Total, &stats.Public)
	if err != nil {
		return core.SnippetStats{}, err
	}
	stats.Private = stats.Total - stats.Public
	return stats, nil
}

// WorkspaceStore implementation

func (s *sqliteStore) ListWorkspaces(ctx context.Context, userID string, limit int) ([]*core.Workspace, error) {
	// Collaborators live inside a JSON column, so membership is filtered
	// after scanning rather than in SQL.
	rows, err := s.db.QueryContext(ctx,
		"SELECT workspace_id, name, description, owner_id, owner_name, collaborators, snippets, created_at, updated_at FROM workspaces ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*core.Workspace
	for rows.Next() {
		workspace, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		if !workspace.MemberOf(userID) {
			continue
		}
		workspaces = append(workspaces, workspace)
		if limit > 0 && len(workspaces) == limit {
			break
		}
	}
	return workspaces, rows.Err()
}

func scanWorkspace(rows *sql.Rows) (*core.Workspace, error) {
	var workspace core.Workspace
	var collaborators, snippets string
	if err := rows.Scan(&workspace.WorkspaceID, &workspace.Name, &workspace.Description,
		&workspace.OwnerID, &workspace.OwnerName, &collaborators, &snippets,
		&workspace.CreatedAt, &workspace.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(collaborators), &workspace.Collaborators); err != nil {
		workspace.Collaborators = []core.Collaborator{}
	}
	if err := json.Unmarshal([]byte(snippets), &workspace.Snippets); err != nil {
		workspace.Snippets = []core.WorkspaceSnippet{}
	}
	return &workspace, nil
}

func (s *sqliteStore) GetWorkspace(ctx context.Context, workspaceID string) (*core.Workspace, error) {
	var workspace core.Workspace
	var collaborators, snippets string
	err := s.db.QueryRowContext(ctx,
		"SELECT workspace_id, name, description, owner_id, owner_name, collaborators, snippets, created_at, updated_at FROM workspaces WHERE workspace_id = ?", workspaceID).
		Scan(&workspace.WorkspaceID, &workspace.Name, &workspace.Description,
			&workspace.OwnerID, &workspace.OwnerName, &collaborators, &snippets,
			&workspace.CreatedAt, &workspace.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			logrus.WithField("workspace_id", workspaceID).Warn("Workspace with specified ID not found")
			return nil, fmt.Errorf("workspace with id %s: %w", workspaceID, core.ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(collaborators), &workspace.Collaborators); err != nil {
		workspace.Collaborators = []core.Collaborator{}
	}
	if err := json.Unmarshal([]byte(snippets), &workspace.Snippets); err != nil {
		workspace.Snippets = []core.WorkspaceSnippet{}
	}
	return &workspace, nil
}

func (s *sqliteStore) CreateWorkspace(ctx context.Context, workspace *core.Workspace) (string, error) {
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

	collaborators, err := json.Marshal(workspace.Collaborators)
	if err != nil {
		return "", err
	}
	snippets, err := json.Marshal(workspace.Snippets)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO workspaces (workspace_id, name, description, owner_id, owner_name, collaborators, snippets, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		id, workspace.Name, workspace.Description, workspace.OwnerID, workspace.OwnerName,
		string(collaborators), string(snippets), now, now)
	if err != nil {
		logrus.WithError(err).Error("Failed to create workspace")
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"workspace_id": id,
		"owner_id":     workspace.OwnerID,
	}).Info("Workspace created successfully")
	return id, nil
}

func (s *sqliteStore) UpdateWorkspace(ctx context.Context, workspace *core.Workspace) error {
	collaborators, err := json.Marshal(workspace.Collaborators)
	if err != nil {
		return err
	}
	snippets, err := json.Marshal(workspace.Snippets)
	if err != nil {
		return err
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		"UPDATE workspaces SET name = ?, description = ?, owner_name = ?, collaborators = ?, snippets = ?, updated_at = ? WHERE workspace_id = ?",
		workspace.Name, workspace.Description, workspace.OwnerName,
		string(collaborators), string(snippets), now, workspace.WorkspaceID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("workspace with id %s: %w", workspace.WorkspaceID, core.ErrNotFound)
	}
	workspace.UpdatedAt = now
	return nil
}

func (s *sqliteStore) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM workspaces WHERE workspace_id = ?", workspaceID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("workspace with id %s: %w", workspaceID, core.ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) WorkspaceStats(ctx context.Context, userID string) (core.WorkspaceStats, error) {
	var stats core.WorkspaceStats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workspaces WHERE owner_id = ?", userID).Scan(&stats.Owned)
	if err != nil {
		return core.WorkspaceStats{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT collaborators FROM workspaces WHERE owner_id != ?", userID)
	if err != nil {
		return core.WorkspaceStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return core.WorkspaceStats{}, err
		}
		var collaborators []core.Collaborator
		if err := json.Unmarshal([]byte(raw), &collaborators); err != nil {
			continue
		}
		for _, c := range collaborators {
			if c.UserID == userID {
				stats.Collaborating++
				break
			}
		}
	}
	return stats, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
