// Package api exposes the engine over a JSON HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"truckspot/internal/checkin"
	"truckspot/internal/database"
	"truckspot/internal/discover"
	"truckspot/internal/export"
	"truckspot/internal/favorites"
	"truckspot/internal/geo"
	"truckspot/internal/geocode"
	"truckspot/internal/models"
)

// PlaceClient resolves free-text place queries.
type PlaceClient interface {
	Search(ctx context.Context, query string) ([]geocode.Place, error)
}

// Server wires the domain services behind HTTP handlers.
type Server struct {
	discovery *discover.Service
	checkins  *checkin.Service
	autoclose *checkin.AutoCloser
	db        *database.DB
	places    PlaceClient
	favorites *favorites.Store
	searcher  *discover.Searcher
	suggest   *suggestHub
	logger    *zerolog.Logger
}

func NewServer(
	discovery *discover.Service,
	checkins *checkin.Service,
	autoclose *checkin.AutoCloser,
	db *database.DB,
	places PlaceClient,
	favs *favorites.Store,
	searchDebounce time.Duration,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		discovery: discovery,
		checkins:  checkins,
		autoclose: autoclose,
		db:        db,
		places:    places,
		favorites: favs,
		suggest:   &suggestHub{},
		logger:    logger,
	}
	s.searcher = discover.NewSearcher(places, discover.NewDebouncer(searchDebounce), s.suggest.deliver, logger)
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/trucks", s.handleListTrucks)
	mux.HandleFunc("POST /api/trucks", s.handleCreateTruck)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/places", s.handlePlaces)
	mux.HandleFunc("GET /api/places/suggest", s.handleSuggest)

	mux.HandleFunc("POST /api/checkins", s.handleOpenCheckIn)
	mux.HandleFunc("DELETE /api/checkins/{truckID}", s.handleCloseCheckIn)
	mux.HandleFunc("POST /api/checkins/{truckID}/autoclose", s.handleScheduleAutoClose)
	mux.HandleFunc("DELETE /api/checkins/{truckID}/autoclose", s.handleCancelAutoClose)

	mux.HandleFunc("POST /api/reviews", s.handleCreateReview)
	mux.HandleFunc("GET /api/trucks/{truckID}/reviews", s.handleListReviews)

	mux.HandleFunc("GET /api/favorites", s.handleListFavorites)
	mux.HandleFunc("GET /api/favorites/default", s.handleGetDefaultTruck)
	mux.HandleFunc("PUT /api/favorites/default", s.handleSetDefaultTruck)
	mux.HandleFunc("POST /api/favorites/{id}", s.handleToggleFavorite)

	mux.HandleFunc("GET /api/export/checkins.xlsx", s.handleExportCheckIns)

	return mux
}

func (s *Server) handleListTrucks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var viewer *geo.Point
	if q.Get("lat") != "" || q.Get("lng") != "" {
		lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
		lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "invalid lat/lng")
			return
		}
		viewer = &geo.Point{Lat: lat, Lng: lng}
	}

	mode := geo.ModeWalk
	if q.Get("mode") == "drive" {
		mode = geo.ModeDrive
	}

	f := discover.Filters{
		Category: q.Get("category"),
		OpenNow:  q.Get("open") == "true" || q.Get("open") == "1",
		Query:    q.Get("q"),
		Sort:     discover.SortMode(q.Get("sort")),
		Mode:     mode,
	}

	writeJSON(w, http.StatusOK, s.discovery.Discover(time.Now(), viewer, f))
}

func (s *Server) handleCreateTruck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string          `json:"name"`
		Category     string          `json:"category"`
		Menu         string          `json:"menu"`
		LogoURL      string          `json:"logo_url"`
		ScheduleJSON json.RawMessage `json:"schedule_json"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Name == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "name and category are required")
		return
	}

	t := &models.Truck{
		Name:         req.Name,
		Category:     req.Category,
		Menu:         req.Menu,
		LogoURL:      req.LogoURL,
		ScheduleJSON: req.ScheduleJSON,
	}
	if err := s.db.CreateTruck(r.Context(), t); err != nil {
		s.internalError(w, err, "create truck")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.discovery.Categories())
}

type placesResponse struct {
	Places   []geocode.Place `json:"places"`
	Recenter *geo.Point      `json:"recenter,omitempty"`
}

func (s *Server) handlePlaces(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	places, err := s.places.Search(r.Context(), query)
	if err != nil {
		s.internalError(w, err, "place search")
		return
	}
	writeJSON(w, http.StatusOK, placesResponse{places, discover.RecenterTarget(places)})
}

// suggestHub pairs each suggest request with the debounced search
// delivery. Only the latest request is answered with results; a request
// superseded by newer input gets an empty 204 instead of stale places.
type suggestHub struct {
	mu    sync.Mutex
	query string
	ch    chan suggestResult
}

type suggestResult struct {
	places     []geocode.Place
	superseded bool
}

func (h *suggestHub) register(query string) chan suggestResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ch != nil {
		select {
		case h.ch <- suggestResult{superseded: true}:
		default:
		}
	}
	ch := make(chan suggestResult, 1)
	h.query = query
	h.ch = ch
	return ch
}

func (h *suggestHub) deliver(query string, places []geocode.Place) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ch == nil || query != h.query {
		return
	}
	select {
	case h.ch <- suggestResult{places: places}:
	default:
	}
	h.ch = nil
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	ch := s.suggest.register(query)
	s.searcher.Query(query)

	select {
	case res := <-ch:
		if res.superseded {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, placesResponse{res.places, discover.RecenterTarget(res.places)})
	case <-r.Context().Done():
	case <-time.After(10 * time.Second):
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleOpenCheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TruckID   int64   `json:"truck_id"`
		Lat       float64 `json:"lat"`
		Lng       float64 `json:"lng"`
		AccuracyM float64 `json:"accuracy_m"`
		Confirm   bool    `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	// An omitted truck falls back to the owner's saved default.
	if req.TruckID == 0 {
		req.TruckID = s.favorites.DefaultTruck()
	}
	if req.TruckID <= 0 {
		writeError(w, http.StatusBadRequest, "truck_id is required")
		return
	}

	// A low-accuracy fix needs an explicit confirmation before it is
	// broadcast as the truck's position.
	if req.AccuracyM > 0 && s.checkins.AccuracyWarning(req.AccuracyM) && !req.Confirm {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":            "position accuracy too low, confirm to proceed",
			"accuracy_m":       req.AccuracyM,
			"confirm_required": true,
		})
		return
	}

	c, err := s.checkins.Open(r.Context(), req.TruckID, geo.Point{Lat: req.Lat, Lng: req.Lng})
	switch {
	case errors.Is(err, models.ErrAlreadyActive):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusCreated, c)
	}
}

func (s *Server) handleCloseCheckIn(w http.ResponseWriter, r *http.Request) {
	truckID, ok := pathID(w, r, "truckID")
	if !ok {
		return
	}
	err := s.checkins.Close(r.Context(), truckID)
	switch {
	case errors.Is(err, models.ErrNoActiveSession):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.internalError(w, err, "close checkin")
	default:
		s.autoclose.Cancel(truckID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleScheduleAutoClose(w http.ResponseWriter, r *http.Request) {
	truckID, ok := pathID(w, r, "truckID")
	if !ok {
		return
	}
	var req struct {
		InMinutes int    `json:"in_minutes"`
		At        string `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var deadline time.Time
	switch {
	case req.At != "":
		var err error
		deadline, err = s.autoclose.ScheduleAt(truckID, req.At, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case req.InMinutes > 0:
		deadline = s.autoclose.ScheduleIn(truckID, time.Duration(req.InMinutes)*time.Minute)
	default:
		writeError(w, http.StatusBadRequest, "in_minutes or at is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deadline": deadline})
}

func (s *Server) handleCancelAutoClose(w http.ResponseWriter, r *http.Request) {
	truckID, ok := pathID(w, r, "truckID")
	if !ok {
		return
	}
	s.autoclose.Cancel(truckID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TruckID   int64  `json:"truck_id"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
		UserEmail string `json:"user_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	review := &models.Review{
		TruckID:   req.TruckID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		UserEmail: req.UserEmail,
	}
	if err := s.db.CreateReview(r.Context(), review); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	truckID, ok := pathID(w, r, "truckID")
	if !ok {
		return
	}
	reviews, err := s.db.ListReviews(r.Context(), truckID, 100)
	if err != nil {
		s.internalError(w, err, "list reviews")
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.favorites.Favorites())
}

func (s *Server) handleGetDefaultTruck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"truck_id": s.favorites.DefaultTruck()})
}

func (s *Server) handleSetDefaultTruck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TruckID int64 `json:"truck_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.TruckID <= 0 {
		writeError(w, http.StatusBadRequest, "truck_id is required")
		return
	}
	s.favorites.SetDefaultTruck(req.TruckID)
	writeJSON(w, http.StatusOK, map[string]int64{"truck_id": req.TruckID})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing record id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": s.favorites.Toggle(id)})
}

func (s *Server) handleExportCheckIns(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}

	checkins, err := s.db.ListCheckInsBetween(r.Context(), from, to)
	if err != nil {
		s.internalError(w, err, "list checkins")
		return
	}
	trucks, err := s.db.ListTrucks(r.Context())
	if err != nil {
		s.internalError(w, err, "list trucks")
		return
	}
	names := make(map[int64]string, len(trucks))
	for _, t := range trucks {
		names[t.ID] = t.Name
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="checkins.xlsx"`)
	if err := export.WriteCheckInHistory(w, names, checkins); err != nil {
		s.logger.Error().Err(err).Msg("export checkins")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func (s *Server) internalError(w http.ResponseWriter, err error, msg string) {
	s.logger.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
