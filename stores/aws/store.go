package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"sort"
	"time"

	"snipspace/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
)

const (
	snippetPrefix   = "snippets/"
	workspacePrefix = "workspaces/"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	s3Client := s3.NewFromConfig(cfg)

	return &s3Store{
		s3Client: s3Client,
		bucket:   bucketName,
	}
}

// objectKey resolves an entity ID to an S3 key, rejecting IDs that look like
// paths to prevent traversal outside the entity prefix.
func objectKey(prefix, id string) (string, error) {
	if path.Base(id) != id {
		return "", fmt.Errorf("invalid id: must not be a path")
	}
	if id == "" || id == "." || id == ".." {
		return "", fmt.Errorf("invalid id: must not be empty or a dot directory")
	}
	return prefix + id + ".json", nil
}

func (s *s3Store) getJSON(ctx context.Context, key string, out any) error {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return core.ErrNotFound
		}
		return fmt.Errorf("failed to get object %s: %v", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %v", err)
	}
	return json.Unmarshal(data, out)
}

func (s *s3Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal object: %v", err)
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %v", key, err)
	}
	return nil
}

func (s *s3Store) listKeys(ctx context.Context, prefix string) ([]string, error) {
	output, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects under %s: %v", prefix, err)
	}
	keys := make([]string, 0, len(output.Contents))
	for _, object := range output.Contents {
		keys = append(keys, *object.Key)
	}
	return keys, nil
}

// SnippetStore implementation

func (s *s3Store) ListSnippets(ctx context.Context, filter core.SnippetFilter) ([]*core.Snippet, error) {
	keys, err := s.listKeys(ctx, snippetPrefix)
	if err != nil {
		return nil, err
	}

	snippets := make([]*core.Snippet, 0, len(keys))
	for _, key := range keys {
		var snippet core.Snippet
		if err := s.getJSON(ctx, key, &snippet); err != nil {
			log.Printf("warn: failed to load snippet %s: %v", key, err)
			continue
		}
		if !snippetVisible(&snippet, filter) {
			continue
		}
		snippets = append(snippets, &snippet)
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

func (s *s3Store) GetSnippet(ctx context.Context, id string) (*core.Snippet, error) {
	key, err := objectKey(snippetPrefix, id)
	if err != nil {
		return nil, err
	}
	var snippet core.Snippet
	if err := s.getJSON(ctx, key, &snippet); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("snippet with id %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return &snippet, nil
}

func (s *s3Store) CreateSnippet(ctx context.Context, snippet *core.Snippet) (string, error) {
	id := ulid.Make().String()
	now := time.Now()
	snippet.ID = id
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	key, err := objectKey(snippetPrefix, id)
	if err != nil {
		return "", err
	}
	if err := s.putJSON(ctx, key, snippet); err != nil {
		return "", err
	}
	return id, nil
}

func (s *s3Store) UpdateSnippet(ctx context.Context, snippet *core.Snippet) error {
	existing, err := s.GetSnippet(ctx, snippet.ID)
	if err != nil {
		return err
	}
	snippet.CreatedAt = existing.CreatedAt
	snippet.UpdatedAt = time.Now()

	key, err := objectKey(snippetPrefix, snippet.ID)
	if err != nil {
		return err
	}
	return s.putJSON(ctx, key, snippet)
}

func (s *s3Store) DeleteSnippet(ctx context.Context, id string) error {
	key, err := objectKey(snippetPrefix, id)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete snippet %s: %v", id, err)
	}
	return nil
}

func (s *s3Store) SnippetStats(ctx context.Context, userID string) (core.SnippetStats, error) {
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

func (s *s3Store) listAllWorkspaces(ctx context.Context) ([]*core.Workspace, error) {
	keys, err := s.listKeys(ctx, workspacePrefix)
	if err != nil {
		return nil, err
	}

	workspaces := make([]*core.Workspace, 0, len(keys))
	for _, key := range keys {
		var workspace core.Workspace
		if err := s.getJSON(ctx, key, &workspace); err != nil {
			log.Printf("warn: failed to load workspace %s: %v", key, err)
			continue
		}
		workspaces = append(workspaces, &workspace)
	}
	return workspaces, nil
}

func (s *s3Store) ListWorkspaces(ctx context.Context, userID string, limit int) ([]*core.Workspace, error) {
	all, err := s.listAllWorkspaces(ctx)
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

func (s *s3Store) GetWorkspace(ctx context.Context, workspaceID string) (*core.Workspace, error) {
	key, err := objectKey(workspacePrefix, workspaceID)
	if err != nil {
		return nil, err
	}
	var workspace core.Workspace
	if err := s.getJSON(ctx, key, &workspace); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("workspace with id %s: %w", workspaceID, core.ErrNotFound)
		}
		return nil, err
	}
	return &workspace, nil
}

func (s *s3Store) CreateWorkspace(ctx context.Context, workspace *core.Workspace) (string, error) {
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

	key, err := objectKey(workspacePrefix, id)
	if err != nil {
		return "", err
	}
	if err := s.putJSON(ctx, key, workspace); err != nil {
		return "", err
	}
	return id, nil
}

func (s *s3Store) UpdateWorkspace(ctx context.Context, workspace *core.Workspace) error {
	existing, err := s.GetWorkspace(ctx, workspace.WorkspaceID)
	if err != nil {
		return err
	}
	workspace.CreatedAt = existing.CreatedAt
	workspace.UpdatedAt = time.Now()

	key, err := objectKey(workspacePrefix, workspace.WorkspaceID)
	if err != nil {
		return err
	}
	return s.putJSON(ctx, key, workspace)
}

func (s *s3Store) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	key, err := objectKey(workspacePrefix, workspaceID)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete workspace %s: %v", workspaceID, err)
	}
	return nil
}

func (s *s3Store) WorkspaceStats(ctx context.Context, userID string) (core.WorkspaceStats, error) {
	all, err := s.listAllWorkspaces(ctx)
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
