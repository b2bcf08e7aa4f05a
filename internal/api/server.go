package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/avoskres/wishkeeper/internal/models"
	"github.com/avoskres/wishkeeper/internal/preview"
	"github.com/avoskres/wishkeeper/internal/store"
	"github.com/avoskres/wishkeeper/internal/sync"
)

// Server provides the JSON API, the websocket sync endpoint and metrics.
type Server struct {
	store   *store.Store
	hub     *sync.Hub
	preview *preview.Fetcher
	logger  *logrus.Logger
	mux     *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(st *store.Store, hub *sync.Hub, pv *preview.Fetcher, logger *logrus.Logger) *Server {
	s := &Server{store: st, hub: hub, preview: pv, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Items and projection
	s.mux.HandleFunc("GET /api/items", s.handleGetItems)
	s.mux.HandleFunc("POST /api/items", s.handleAddItem)
	s.mux.HandleFunc("PUT /api/items/{id}", s.handleEditItem)
	s.mux.HandleFunc("PUT /api/items/{id}/toggle", s.handleToggleItem)
	s.mux.HandleFunc("DELETE /api/items/{id}", s.handleDeleteItem)

	// Edit session (draft owned by the store, forwarded by the UI)
	s.mux.HandleFunc("POST /api/items/{id}/edit", s.handleBeginEdit)
	s.mux.HandleFunc("GET /api/edit", s.handleGetDraft)
	s.mux.HandleFunc("PUT /api/edit", s.handleUpdateDraft)
	s.mux.HandleFunc("POST /api/edit/save", s.handleSaveEdit)
	s.mux.HandleFunc("DELETE /api/edit", s.handleCancelEdit)

	// View state
	s.mux.HandleFunc("GET /api/view", s.handleGetView)
	s.mux.HandleFunc("PUT /api/view", s.handleUpdateView)

	// Stats
	s.mux.HandleFunc("GET /api/stats", s.handleGetStats)

	// Profiles
	s.mux.HandleFunc("GET /api/profiles", s.handleGetProfiles)
	s.mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	s.mux.HandleFunc("PUT /api/profiles/{id}/activate", s.handleActivateProfile)
	s.mux.HandleFunc("DELETE /api/profiles/current", s.handleDeleteProfile)

	// Link preview
	s.mux.HandleFunc("GET /api/preview", s.handlePreview)

	// Device sync
	s.mux.HandleFunc("GET /ws", s.hub.ServeWS)

	// Operational
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type itemsResponse struct {
	Items      []*models.Item `json:"items"`
	Categories []string       `json:"categories"`
	View       store.View     `json:"view"`
}

func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	items, categories := s.store.Projection()
	if items == nil {
		items = []*models.Item{}
	}
	if categories == nil {
		categories = []string{}
	}
	s.respondJSON(w, http.StatusOK, itemsResponse{
		Items:      items,
		Categories: categories,
		View:       s.store.View(),
	})
}

type addItemRequest struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.store.Add(req.Text, req.Link)
	if err != nil {
		if errors.Is(err, store.ErrEmptyText) {
			s.respondError(w, http.StatusBadRequest, "text is required")
			return
		}
		s.logger.WithError(err).Error("failed to add item")
		s.respondError(w, http.StatusInternalServerError, "failed to add item")
		return
	}

	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	item, ok := s.store.ToggleDone(id)
	if !ok {
		// The item may already be gone via another device; that is a no-op.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	s.store.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleEditItem is the one-shot edit: open a session on the item, apply the
// given fields and commit, all in a single request.
func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	var fields store.EditFields
	if ok, msg := s.decodeJSON(r, &fields); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if _, ok := s.store.BeginEdit(id); !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if _, err := s.store.UpdateDraft(fields); err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	item, err := s.store.SaveEdit()
	if err != nil {
		if errors.Is(err, store.ErrEmptyText) {
			s.store.CancelEdit()
			s.respondError(w, http.StatusBadRequest, "text is required")
			return
		}
		s.logger.WithError(err).Error("failed to edit item")
		s.respondError(w, http.StatusInternalServerError, "failed to edit item")
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

// ---------------------------------------------------------------------------
// Edit session
// ---------------------------------------------------------------------------

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	draft, ok := s.store.BeginEdit(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	s.respondJSON(w, http.StatusOK, draft)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.store.Draft()
	if !ok {
		s.respondError(w, http.StatusNotFound, "no edit session is open")
		return
	}
	s.respondJSON(w, http.StatusOK, draft)
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var fields store.EditFields
	if ok, msg := s.decodeJSON(r, &fields); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	draft, err := s.store.UpdateDraft(fields)
	if err != nil {
		s.respondError(w, http.StatusConflict, "no edit session is open")
		return
	}
	s.respondJSON(w, http.StatusOK, draft)
}

func (s *Server) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.SaveEdit()
	switch {
	case errors.Is(err, store.ErrNoEditSession):
		s.respondError(w, http.StatusConflict, "no edit session is open")
	case errors.Is(err, store.ErrEmptyText):
		// Session stays open so the UI can correct and retry.
		s.respondError(w, http.StatusBadRequest, "text is required")
	case err != nil:
		s.logger.WithError(err).Error("failed to save edit")
		s.respondError(w, http.StatusInternalServerError, "failed to save edit")
	case item == nil:
		w.WriteHeader(http.StatusNoContent)
	default:
		s.respondJSON(w, http.StatusOK, item)
	}
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.store.CancelEdit()
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// View state
// ---------------------------------------------------------------------------

type viewRequest struct {
	Search *string `json:"search"`
	Sort   *string `json:"sort"`
	// Category carries chip-click semantics: sending the active category
	// clears the filter, anything else activates it.
	Category *string `json:"category"`
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.View())
}

func (s *Server) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if req.Search != nil {
		s.store.SetSearch(*req.Search)
	}
	if req.Sort != nil {
		if err := s.store.SetSort(models.SortMode(*req.Sort)); err != nil {
			s.respondError(w, http.StatusBadRequest, "sort must be one of priceLow, priceHigh, newest, oldest")
			return
		}
	}
	if req.Category != nil {
		s.store.ToggleCategory(*req.Category)
	}
	s.respondJSON(w, http.StatusOK, s.store.View())
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.Stats())
}

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

type profilesResponse struct {
	Profiles         []*models.Profile `json:"profiles"`
	CurrentProfileID string            `json:"currentProfileId"`
}

func (s *Server) handleGetProfiles(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, profilesResponse{
		Profiles:         s.store.Profiles(),
		CurrentProfileID: s.store.CurrentProfile().ID,
	})
}

type createProfileRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	profile, err := s.store.CreateProfile(req.Name)
	if err != nil {
		if errors.Is(err, store.ErrEmptyName) {
			s.respondError(w, http.StatusBadRequest, "name is required")
			return
		}
		s.logger.WithError(err).Error("failed to create profile")
		s.respondError(w, http.StatusInternalServerError, "failed to create profile")
		return
	}
	s.respondJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.SwitchProfile(id) {
		s.respondError(w, http.StatusNotFound, "profile not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProfile(); err != nil {
		if errors.Is(err, store.ErrLastProfile) {
			s.respondError(w, http.StatusConflict, "cannot delete the last remaining profile")
			return
		}
		s.logger.WithError(err).Error("failed to delete profile")
		s.respondError(w, http.StatusInternalServerError, "failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Link preview
// ---------------------------------------------------------------------------

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.respondError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	s.respondJSON(w, http.StatusOK, s.preview.Fetch(r.Context(), rawURL))
}
