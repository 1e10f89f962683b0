package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

type (
	// Collaborator is a user granted access to a workspace.
	Collaborator struct {
		UserID   string    `json:"userId"`
		Username string    `json:"username"`
		AddedAt  time.Time `json:"addedAt"`
	}

	// WorkspaceSnippet is a snippet embedded in a workspace, separate from
	// the user's standalone snippet library.
	WorkspaceSnippet struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Code      string    `json:"code"`
		Lang      string    `json:"lang"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Workspace is a shared coding space owned by one user and editable by
	// its collaborators.
	Workspace struct {
		WorkspaceID   string             `json:"workspaceId"`
		Name          string             `json:"name"`
		Description   string             `json:"description"`
		OwnerID       string             `json:"ownerId"`
		OwnerName     string             `json:"ownerName"`
		Collaborators []Collaborator     `json:"collaborators"`
		Snippets      []WorkspaceSnippet `json:"snippets"`
		CreatedAt     time.Time          `json:"createdAt"`
		UpdatedAt     time.Time          `json:"updatedAt"`
	}

	// WorkspaceStats summarizes one user's workspaces for the dashboard.
	WorkspaceStats struct {
		Owned         int `json:"ownedWorkspaces"`
		Collaborating int `json:"collaboratingWorkspaces"`
	}

	// WorkspaceStore defines the persistence layer for workspaces.
	WorkspaceStore interface {
		// ListWorkspaces returns workspaces the user owns or collaborates
		// on, most recently updated first. Limit of 0 means no limit.
		ListWorkspaces(ctx context.Context, userID string, limit int) ([]*Workspace, error)

		// GetWorkspace returns a single workspace by its workspace ID.
		GetWorkspace(ctx context.Context, workspaceID string) (*Workspace, error)

		// CreateWorkspace stores a new workspace and returns its assigned ID.
		CreateWorkspace(ctx context.Context, workspace *Workspace) (string, error)

		// UpdateWorkspace overwrites an existing workspace, preserving CreatedAt.
		UpdateWorkspace(ctx context.Context, workspace *Workspace) error

		// DeleteWorkspace removes a workspace by its workspace ID.
		DeleteWorkspace(ctx context.Context, workspaceID string) error

		// WorkspaceStats counts workspaces the user owns and collaborates on.
		WorkspaceStats(ctx context.Context, userID string) (WorkspaceStats, error)
	}
)

// MemberOf reports whether the given user owns the workspace or is one of
// its collaborators.
func (w *Workspace) MemberOf(userID string) bool {
	if w.OwnerID == userID {
		return true
	}
	for _, c := range w.Collaborators {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
