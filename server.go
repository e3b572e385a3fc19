package main

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/gnss-track/internal/settings"
	"github.com/banshee-data/gnss-track/internal/track"
	"github.com/banshee-data/gnss-track/internal/version"
)

// Server exposes channel status and the validating settings registry over
// HTTP for operators and bench tooling.
type Server struct {
	trackers *track.Registry
	registry *settings.Registry
	store    *settings.Store
}

// NewServer builds the HTTP surface. store may be nil to disable
// persistence of accepted writes.
func NewServer(trackers *track.Registry, registry *settings.Registry, store *settings.Store) *Server {
	return &Server{
		trackers: trackers,
		registry: registry,
		store:    store,
	}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", s.listChannels)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/version", s.handleVersion)
	return mux
}

func (s *Server) listChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.trackers.Status())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.registry.Snapshot())

	case http.MethodPost:
		section := r.FormValue("section")
		name := r.FormValue("name")
		value := r.FormValue("value")
		if section == "" || name == "" {
			http.Error(w, "section and name are required", http.StatusBadRequest)
			return
		}
		if err := s.registry.Apply(section, name, value); err != nil {
			// Rejected values leave the committed record untouched.
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if s.store != nil {
			if err := s.store.Save(section, name, value); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		w.Write([]byte("ok\n"))

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
