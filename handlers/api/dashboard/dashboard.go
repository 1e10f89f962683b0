package dashboard

import (
	"net/http"

	"snipspace/core"
	"snipspace/handlers/auth"
	"snipspace/middleware"
	"snipspace/stores"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const recentLimit = 5

type stats struct {
	core.SnippetStats
	core.WorkspaceStats
	TotalWorkspaces int `json:"totalWorkspaces"`
}

type response struct {
	Stats            stats             `json:"stats"`
	RecentSnippets   []*core.Snippet   `json:"recentSnippets"`
	RecentWorkspaces []*core.Workspace `json:"recentWorkspaces"`
}

// HandleGet aggregates the user's snippet and workspace counts plus the most
// recently updated records of each kind.
func HandleGet(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*auth.AppClaims)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}
		userID := claims.Subject
		log := logrus.WithField("user_id", userID)

		snippetStats, err := store.SnippetStats(r.Context(), userID)
		if err != nil {
			log.WithError(err).Error("Failed to compute snippet stats")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load dashboard"})
			return
		}

		workspaceStats, err := store.WorkspaceStats(r.Context(), userID)
		if err != nil {
			log.WithError(err).Error("Failed to compute workspace stats")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load dashboard"})
			return
		}

		// Recent snippets cover only the user's own, public or not.
		recentSnippets, err := store.ListSnippets(r.Context(), core.SnippetFilter{
			UserID:     userID,
			Visibility: core.VisibilityOwn,
			Limit:      recentLimit,
		})
		if err != nil {
			log.WithError(err).Error("Failed to list recent snippets")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load dashboard"})
			return
		}
		if recentSnippets == nil {
			recentSnippets = []*core.Snippet{}
		}

		recentWorkspaces, err := store.ListWorkspaces(r.Context(), userID, recentLimit)
		if err != nil {
			log.WithError(err).Error("Failed to list recent workspaces")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load dashboard"})
			return
		}
		if recentWorkspaces == nil {
			recentWorkspaces = []*core.Workspace{}
		}

		render.JSON(w, r, response{
			Stats: stats{
				SnippetStats:    snippetStats,
				WorkspaceStats:  workspaceStats,
				TotalWorkspaces: workspaceStats.Owned + workspaceStats.Collaborating,
			},
			RecentSnippets:   recentSnippets,
			RecentWorkspaces: recentWorkspaces,
		})
	}
}
