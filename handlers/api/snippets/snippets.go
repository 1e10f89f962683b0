package snippets

import (
	"errors"
	"net/http"

	"snipspace/core"
	"snipspace/handlers/auth"
	"snipspace/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type snippetRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Code        string   `json:"code"`
	Lang        string   `json:"lang"`
	IsPublic    bool     `json:"isPublic"`
	Tags        []string `json:"tags"`
}

func claimsFrom(r *http.Request) (*auth.AppClaims, bool) {
	claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*auth.AppClaims)
	return claims, ok
}

// parseVisibility maps the ?visibility query parameter onto a filter.
// The default view is the user's own snippets plus everyone's public ones.
func parseVisibility(r *http.Request) core.Visibility {
	switch r.URL.Query().Get("visibility") {
	case "public":
		return core.VisibilityPublic
	case "private":
		return core.VisibilityPrivate
	case "mine":
		return core.VisibilityOwn
	default:
		return core.VisibilityAll
	}
}

func HandleList(store core.SnippetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		snippets, err := store.ListSnippets(r.Context(), core.SnippetFilter{
			UserID:     claims.Subject,
			Visibility: parseVisibility(r),
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
			}).Error("Failed to list snippets")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list snippets"})
			return
		}

		if snippets == nil {
			snippets = []*core.Snippet{}
		}
		render.JSON(w, r, snippets)
	}
}

func HandleGet(store core.SnippetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		id := chi.URLParam(r, "id")
		snippet, err := store.GetSnippet(r.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrNotFound) {
				status = http.StatusNotFound
			}
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Snippet not found"})
			return
		}

		// Private snippets are only visible to their owner.
		if !snippet.IsPublic && snippet.UserID != claims.Subject {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Not authorized to view this snippet"})
			return
		}

		render.JSON(w, r, snippet)
	}
}

func HandleCreate(store core.SnippetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		var req snippetRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if req.Title == "" || req.Code == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Missing required fields: title or code"})
			return
		}
		if req.Lang == "" {
			req.Lang = "javascript"
		}
		if req.Tags == nil {
			req.Tags = []string{}
		}

		snippet := &core.Snippet{
			UserID:      claims.Subject,
			Title:       req.Title,
			Description: req.Description,
			Code:        req.Code,
			Lang:        req.Lang,
			IsPublic:    req.IsPublic,
			Tags:        req.Tags,
		}

		if _, err := store.CreateSnippet(r.Context(), snippet); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
			}).Error("Failed to create snippet")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to save snippet"})
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, snippet)
	}
}

func HandleUpdate(store core.SnippetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		id := chi.URLParam(r, "id")
		existing, err := store.GetSnippet(r.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrNotFound) {
				status = http.StatusNotFound
			}
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Snippet not found"})
			return
		}
		if existing.UserID != claims.Subject {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Not authorized to update this snippet"})
			return
		}

		var req snippetRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if req.Title == "" || req.Code == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Missing required fields: title or code"})
			return
		}
		if req.Lang == "" {
			req.Lang = existing.Lang
		}
		if req.Tags == nil {
			req.Tags = existing.Tags
		}

		snippet := &core.Snippet{
			ID:          id,
			UserID:      existing.UserID,
			Title:       req.Title,
			Description: req.Description,
			Code:        req.Code,
			Lang:        req.Lang,
			IsPublic:    req.IsPublic,
			Tags:        req.Tags,
			CreatedAt:   existing.CreatedAt,
		}

		if err := store.UpdateSnippet(r.Context(), snippet); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"snippet_id": id,
			}).Error("Failed to update snippet")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to update snippet"})
			return
		}

		render.JSON(w, r, snippet)
	}
}

func HandleDelete(store core.SnippetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		id := chi.URLParam(r, "id")
		snippet, err := store.GetSnippet(r.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrNotFound) {
				status = http.StatusNotFound
			}
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Snippet not found"})
			return
		}
		if snippet.UserID != claims.Subject {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Not authorized to delete this snippet"})
			return
		}

		if err := store.DeleteSnippet(r.Context(), id); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"snippet_id": id,
			}).Error("Failed to delete snippet")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to delete snippet"})
			return
		}

		render.JSON(w, r, map[string]string{"message": "Snippet deleted successfully"})
	}
}
