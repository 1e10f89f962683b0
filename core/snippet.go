package core

import (
	"context"
	"time"
)

// Visibility filters snippet listings.
type Visibility int

const (
	// VisibilityAll returns the user's own snippets plus everyone's public ones.
	VisibilityAll Visibility = iota
	// VisibilityPublic returns only public snippets.
	VisibilityPublic
	// VisibilityPrivate returns only the user's own private snippets.
	VisibilityPrivate
	// VisibilityOwn returns all of the user's own snippets, public or not.
	VisibilityOwn
)

type (
	// Snippet is a single saved piece of code owned by one user.
	Snippet struct {
		ID          string    `json:"id"`
		UserID      string    `json:"userId"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Code        string    `json:"code"`
		Lang        string    `json:"lang"`
		IsPublic    bool      `json:"isPublic"`
		Tags        []string  `json:"tags"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// SnippetFilter narrows List results. UserID scopes ownership-dependent
	// visibilities; Limit of 0 means no limit.
	SnippetFilter struct {
		UserID     string
		Visibility Visibility
		Limit      int
	}

	// SnippetStats summarizes one user's snippets for the dashboard.
	SnippetStats struct {
		Total   int `json:"totalSnippets"`
		Public  int `json:"publicSnippets"`
		Private int `json:"privateSnippets"`
	}

	// SnippetStore defines the persistence layer for snippets.
	SnippetStore interface {
		// ListSnippets returns snippets matching the filter, most recently
		// updated first.
		ListSnippets(ctx context.Context, filter SnippetFilter) ([]*Snippet, error)

		// GetSnippet returns a single snippet by ID.
		GetSnippet(ctx context.Context, id string) (*Snippet, error)

		// CreateSnippet stores a new snippet and returns its assigned ID.
		CreateSnippet(ctx context.Context, snippet *Snippet) (string, error)

		// UpdateSnippet overwrites an existing snippet, preserving CreatedAt.
		UpdateSnippet(ctx context.Context, snippet *Snippet) error

		// DeleteSnippet removes a snippet by ID.
		DeleteSnippet(ctx context.Context, id string) error

		// SnippetStats counts a user's snippets by visibility.
		SnippetStats(ctx context.Context, userID string) (SnippetStats, error)
	}
)
