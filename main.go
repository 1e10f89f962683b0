package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"snipspace/collab"
	"snipspace/handlers/api/dashboard"
	"snipspace/handlers/api/snippets"
	"snipspace/handlers/api/workspaces"
	"snipspace/handlers/auth"
	authMiddleware "snipspace/middleware"
	"snipspace/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(store stores.Store, hub *collab.Hub) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Token", "session", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.AuthJWT)

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippets.HandleList(store))
			r.Post("/", snippets.HandleCreate(store))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", snippets.HandleGet(store))
				r.Put("/", snippets.HandleUpdate(store))
				r.Delete("/", snippets.HandleDelete(store))
			})
		})

		r.Route("/workspaces", func(r chi.Router) {
			r.Get("/", workspaces.HandleList(store))
			r.Post("/", workspaces.HandleCreate(store))
			r.Route("/{workspaceId}", func(r chi.Router) {
				r.Get("/", workspaces.HandleGet(store))
				r.Put("/", workspaces.HandleUpdate(store))
				r.Delete("/", workspaces.HandleDelete(store))
				r.Post("/collaborators", workspaces.HandleAddCollaborator(store))
				r.Delete("/collaborators/{userId}", workspaces.HandleRemoveCollaborator(store))
				r.Post("/snippets", workspaces.HandleAddSnippet(store))
				r.Delete("/snippets/{snippetId}", workspaces.HandleRemoveSnippet(store))
			})
		})

		r.Get("/dashboard", dashboard.HandleGet(store))

		r.Get("/rooms", handleRoomList(hub))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", auth.HandleLogin)
		r.Get("/callback", auth.HandleCallback)
	})

	return r
}

// handleRoomList reports which workspaces currently have live collaboration
// sessions, busiest first.
func handleRoomList(hub *collab.Hub) http.HandlerFunc {
	type roomEntry struct {
		ID    string `json:"id"`
		Users int    `json:"users"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := hub.Rooms()
		roomList := make([]roomEntry, 0, len(rooms))
		for id, count := range rooms {
			roomList = append(roomList, roomEntry{ID: id, Users: count})
		}
		sort.Slice(roomList, func(i, j int) bool {
			if roomList[i].Users == roomList[j].Users {
				return roomList[i].ID < roomList[j].ID
			}
			return roomList[i].Users > roomList[j].Users
		})
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(roomList); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

func waitForShutdown(ioo *socketio.Server) {
	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down...")
	ioo.Close(nil)
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3001", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.InitAuth()
	store := stores.GetStore()

	hub := collab.NewHub()
	r := setupRouter(store, hub)

	ioo := collab.SetupSocketIO(hub)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ioo)
}
