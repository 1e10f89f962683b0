package workspaces

import (
	"errors"
	"net/http"
	"time"

	"snipspace/core"
	"snipspace/handlers/auth"
	"snipspace/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

func claimsFrom(r *http.Request) (*auth.AppClaims, bool) {
	claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*auth.AppClaims)
	return claims, ok
}

// fetchForMember loads the workspace and enforces the membership boundary:
// only the owner or a collaborator may read a workspace, which is also what
// gates a client's access to a workspace ID it could join over the realtime
// channel.
func fetchForMember(w http.ResponseWriter, r *http.Request, store core.WorkspaceStore, userID string) (*core.Workspace, bool) {
	workspaceID := chi.URLParam(r, "workspaceId")
	workspace, err := store.GetWorkspace(r.Context(), workspaceID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrNotFound) {
			status = http.StatusNotFound
		}
		render.Status(r, status)
		render.JSON(w, r, map[string]string{"error": "Workspace not found"})
		return nil, false
	}
	if !workspace.MemberOf(userID) {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, map[string]string{"error": "Not authorized to access this workspace"})
		return nil, false
	}
	return workspace, true
}

func HandleList(store core.WorkspaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		workspaces, err := store.ListWorkspaces(r.Context(), claims.Subject, 0)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
			}).Error("Failed to list workspaces")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list workspaces"})
			return
		}

		if workspaces == nil {
			workspaces = []*core.Workspace{}
		}
		render.JSON(w, r, workspaces)
	}
}

func HandleGet(store core.WorkspaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		workspace, ok := fetchForMember(w, r, store, claims.Subject)
		if !ok {
			return
		}
		render.JSON(w, r, workspace)
	}
}

func HandleCreate(store core.WorkspaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if req.Name == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Workspace name is required"})
			return
		}

		workspace := &core.Workspace{
			Name:        req.Name,
			Description: req.Description,
			OwnerID:     claims.Subject,
			OwnerName:   claims.DisplayName(),
		}

		if _, err := store.CreateWorkspace(r.Context(), workspace); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
			}).Error("Failed to create workspace")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create workspace"})
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, workspace)
	}
}

func HandleUpdate(store core.WorkspaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		workspace, ok := fetchForMember(w, r, store, claims.Subject)
		if !ok {
			return
		}

		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if req.Name != nil {
			if *req.Name == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "Workspace name cannot be empty"})
				return
			}
			workspace.Name = *req.Name
		}
		if req.Description != nil {
			workspace.Description = *req.Description
		}

		if err := store.UpdateWorkspace(r.Context(), workspace); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":        err,
				"workspace_id": workspace.WorkspaceID,
			}).Error("Failed to update workspace")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to update workspace"})
			return
		}

		render.JSON(w, r, workspace)
	}
}

func HandleDelete(store core.WorkspaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		workspaceID := chi.URLParam(r, "workspaceId")
		workspace, err := store.GetWorkspace(r.Context(), workspaceID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrNotFound) {
				status = http.StatusNotFound
			}
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Workspace not found"})
			return
		}
		if workspace.OwnerID != claims.Subject {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Only the workspace owner can delete this workspace"})
			return
		}

		if err := store.DeleteWorkspace(r.Context(), workspaceID); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":        err,
				"workspace_id": workspaceID,
			}).Error("Failed to delete workspace")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to delete workspace"})
			return
		}

		render.JSON(w, r, map[string]string{"message": "Workspace deleted successfully"})
	}
}

func HandleAddCollaborator(store core.WorkspaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		workspace, ok := fetchForMember(w, r, store, claims.Subject)
		if !ok {
			return
		}

		var req struct {
			UserID   string `json:"userId"`
			Username string `json:"username"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil || req.UserID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Collaborator userId is required"})
			return
		}

		if workspace.MemberOf(req.UserID) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "User is already a collaborator"})
			return
		}

		workspace.Collaborators = append(workspace.Collaborators, core.Collaborator{
			UserID:   req.UserID,
			Username: req.Username,
			AddedAt:  time.Now(),
		})

		if err := store.UpdateWorkspace(r.Context(), workspace); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":        err,
				"workspace_id": workspace.WorkspaceID,
			}).Error("Failed to add collaborator")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to add collaborator"})
			return
		}

		render.JSON(w, r, workspace)
	}
}

func HandleRemoveCollaborator(store core.WorkspaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		workspace, ok := fetchForMember(w, r, store, claims.Subject)
		if !ok {
			return
		}

		userID := chi.URLParam(r, "userId")
		filtered := workspace.Collaborators[:0]
		for _, c := range workspace.Collaborators {
			if c.UserID != userID {
				filtered = append(filtered, c)
			}
		}
		workspace.Collaborators = filtered

		if err := store.UpdateWorkspace(r.Context(), workspace); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":        err,
				"workspace_id": workspace.WorkspaceID,
			}).Error("Failed to remove collaborator")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to remove collaborator"})
			return
		}

		render.JSON(w, r, workspace)
	}
}

func HandleAddSnippet(store core.WorkspaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		workspace, ok := fetchForMember(w, r, store, claims.Subject)
		if !ok {
			return
		}

		var req struct {
			Title string `json:"title"`
			Code  string `json:"code"`
			Lang  string `json:"lang"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil || req.Title == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Snippet title is required"})
			return
		}
		if req.Lang == "" {
			req.Lang = "javascript"
		}

		workspace.Snippets = append(workspace.Snippets, core.WorkspaceSnippet{
			ID:        ulid.Make().String(),
			Title:     req.Title,
			Code:      req.Code,
			Lang:      req.Lang,
			CreatedAt: time.Now(),
		})

		if err := store.UpdateWorkspace(r.Context(), workspace); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":        err,
				"workspace_id": workspace.WorkspaceID,
			}).Error("Failed to add workspace snippet")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to add snippet"})
			return
		}

		render.JSON(w, r, workspace)
	}
}

func HandleRemoveSnippet(store core.WorkspaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		workspace, ok := fetchForMember(w, r, store, claims.Subject)
		if !ok {
			return
		}

		snippetID := chi.URLParam(r, "snippetId")
		filtered := workspace.Snippets[:0]
		for _, s := range workspace.Snippets {
			if s.ID != snippetID {
				filtered = append(filtered, s)
			}
		}
		workspace.Snippets = filtered

		if err := store.UpdateWorkspace(r.Context(), workspace); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":        err,
				"workspace_id": workspace.WorkspaceID,
			}).Error("Failed to remove workspace snippet")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to remove snippet"})
			return
		}

		render.JSON(w, r, workspace)
	}
}
