// Package mockapi simulates the noise measurement API for local development
// and tests: the locations endpoints and the granularity-shaped, server-side
// paginated noise endpoint.
package mockapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Store holds the wire-shaped fixture data the server replies with. Records
// are plain string-keyed maps so fixtures can carry extra, non-registry
// fields when a test needs them.
type Store struct {
	Locations []map[string]any
	Raw       map[string][]map[string]any
	Hourly    map[string][]map[string]any
	LifeTime  map[string][]map[string]any
	PageSize  int
}

// NewStore creates an empty fixture store with the given page size
func NewStore(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Store{
		Raw:      make(map[string][]map[string]any),
		Hourly:   make(map[string][]map[string]any),
		LifeTime: make(map[string][]map[string]any),
		PageSize: pageSize,
	}
}

// Server serves the simulated measurement API
type Server struct {
	store  *Store
	logger *zap.Logger
}

// NewServer creates a mock API server over a fixture store
func NewServer(store *Store, logger *zap.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// Router builds the mux router with all simulated endpoints
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/locations", s.GetLocations).Methods("GET")
	router.HandleFunc("/locations/{id}", s.GetLocation).Methods("GET")
	router.HandleFunc("/locations/{id}/noise", s.GetNoise).Methods("GET")
	router.HandleFunc("/health", s.HealthCheck).Methods("GET")
	return router
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// GetLocations handles GET /locations
func (s *Server) GetLocations(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, map[string]any{"locations": s.store.Locations}, http.StatusOK)
}

// GetLocation handles GET /locations/{id}, replying with a single-element set
func (s *Server) GetLocation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	for _, loc := range s.store.Locations {
		if matchesID(loc["id"], id) {
			s.sendJSON(w, map[string]any{"locations": []map[string]any{loc}}, http.StatusOK)
			return
		}
	}

	s.sendError(w, "location not found", http.StatusNotFound)
}

// GetNoise handles GET /locations/{id}/noise with granularity-dependent
// shape, optional window filtering and server-side pagination.
func (s *Server) GetNoise(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	query := r.URL.Query()

	granularity := query.Get("granularity")
	if granularity == "" {
		granularity = "raw"
	}

	var rows []map[string]any
	switch granularity {
	case "raw":
		rows = s.store.Raw[id]
	case "hourly":
		rows = s.store.Hourly[id]
	case "life-time":
		if query.Has("page") {
			s.sendError(w, "life-time queries are not paginated", http.StatusBadRequest)
			return
		}
		s.sendJSON(w, map[string]any{"measurements": emptyIfNil(s.store.LifeTime[id])}, http.StatusOK)
		return
	default:
		s.sendError(w, "unknown granularity", http.StatusBadRequest)
		return
	}

	rows, err := filterWindow(rows, query.Get("start"), query.Get("end"))
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	page := 0
	if pageStr := query.Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 0 {
			s.sendError(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = parsed
	}

	s.logger.Debug("Serving noise page",
		zap.String("location_id", id),
		zap.String("granularity", granularity),
		zap.Int("page", page),
	)

	s.sendJSON(w, map[string]any{"measurements": paginate(rows, page, s.store.PageSize)}, http.StatusOK)
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	s.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

func matchesID(value any, id string) bool {
	switch v := value.(type) {
	case string:
		return v == id
	case int:
		return strconv.Itoa(v) == id
	case float64:
		return strconv.FormatInt(int64(v), 10) == id
	default:
		return false
	}
}

func paginate(rows []map[string]any, page, pageSize int) []map[string]any {
	start := page * pageSize
	if start >= len(rows) {
		return []map[string]any{}
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func filterWindow(rows []map[string]any, start, end string) ([]map[string]any, error) {
	if start == "" && end == "" {
		return rows, nil
	}

	var startTime, endTime time.Time
	var err error
	if start != "" {
		if startTime, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, err
		}
	}
	if end != "" {
		if endTime, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, err
		}
	}

	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		tsStr, ok := row["timestamp"].(string)
		if !ok {
			filtered = append(filtered, row)
			continue
		}
		ts, err := time.Parse(time.RFC3339, tsStr)
		if err != nil {
			filtered = append(filtered, row)
			continue
		}
		if start != "" && ts.Before(startTime) {
			continue
		}
		if end != "" && ts.After(endTime) {
			continue
		}
		filtered = append(filtered, row)
	}

	return filtered, nil
}

func emptyIfNil(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	return rows
}
