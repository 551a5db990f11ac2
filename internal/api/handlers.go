package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/unweightedai/kol-trust-service/internal/database"
	"github.com/unweightedai/kol-trust-service/internal/errs"
	"github.com/unweightedai/kol-trust-service/internal/ledger"
	"github.com/unweightedai/kol-trust-service/internal/models"
	"github.com/unweightedai/kol-trust-service/internal/redis"
	"github.com/unweightedai/kol-trust-service/internal/tracker"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db      *database.DB
	tracker *tracker.Tracker
	redis   *redis.Client
}

// NewHandler creates a new Handler
func NewHandler(db *database.DB, tr *tracker.Tracker, redisClient *redis.Client) *Handler {
	return &Handler{
		db:      db,
		tracker: tr,
		redis:   redisClient,
	}
}

type kolResponse struct {
	*models.KOL
	Tier        models.Tier `json:"tier"`
	SuccessRate float64     `json:"success_rate"`
}

func toKOLResponse(kol *models.KOL) kolResponse {
	return kolResponse{
		KOL:         kol,
		Tier:        ledger.Classify(kol.TrustScore),
		SuccessRate: kol.SuccessRate(),
	}
}

// GetAllKOLs handles GET /kols
func (h *Handler) GetAllKOLs(w http.ResponseWriter, r *http.Request) {
	kols, err := h.db.GetAllKOLs()
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]kolResponse, 0, len(kols))
	for _, kol := range kols {
		out = append(out, toKOLResponse(kol))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetTopKOLs handles GET /kols/top
func (h *Handler) GetTopKOLs(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondError(w, &errs.ValidationError{Field: "limit", Reason: "must be a positive integer"})
			return
		}
		limit = parsed
	}

	kols, err := h.db.GetTopKOLs(limit)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]kolResponse, 0, len(kols))
	for _, kol := range kols {
		out = append(out, toKOLResponse(kol))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetSuspiciousKOLs handles GET /kols/suspicious
func (h *Handler) GetSuspiciousKOLs(w http.ResponseWriter, r *http.Request) {
	threshold := 40
	if v := r.URL.Query().Get("threshold"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, &errs.ValidationError{Field: "threshold", Reason: "must be an integer"})
			return
		}
		threshold = parsed
	}

	kols, err := h.db.GetSuspiciousKOLs(threshold)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]kolResponse, 0, len(kols))
	for _, kol := range kols {
		out = append(out, toKOLResponse(kol))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetKOL handles GET /kols/{handle}
func (h *Handler) GetKOL(w http.ResponseWriter, r *http.Request) {
	handle := tracker.NormalizeHandle(mux.Vars(r)["handle"])

	kol, err := h.db.GetKOL(handle)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toKOLResponse(kol))
}

// TrackKOL handles POST /kols
func (h *Handler) TrackKOL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &errs.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}

	kol, err := h.tracker.Track(req.Handle)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toKOLResponse(kol))
}

// UntrackKOL handles DELETE /kols/{handle}
func (h *Handler) UntrackKOL(w http.ResponseWriter, r *http.Request) {
	handle := mux.Vars(r)["handle"]

	if err := h.tracker.Untrack(r.Context(), handle); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetReport handles GET /kols/{handle}/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	handle := mux.Vars(r)["handle"]

	report, err := h.tracker.AnalyzeKOL(r.Context(), handle)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetCalls handles GET /kols/{handle}/calls
func (h *Handler) GetCalls(w http.ResponseWriter, r *http.Request) {
	handle := tracker.NormalizeHandle(mux.Vars(r)["handle"])

	// The handle must exist even when it has no calls.
	if _, err := h.db.GetKOL(handle); err != nil {
		respondError(w, err)
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondError(w, &errs.ValidationError{Field: "days", Reason: "must be a positive integer"})
			return
		}
		days = parsed
	}

	calls, err := h.db.GetRecentCalls(handle, time.Now().AddDate(0, 0, -days))
	if err != nil {
		respondError(w, err)
		return
	}
	if calls == nil {
		calls = []*models.TokenCall{}
	}

	respondJSON(w, http.StatusOK, calls)
}

// RecordCall handles POST /calls
func (h *Handler) RecordCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle       string `json:"handle"`
		TokenAddress string `json:"token_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &errs.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}
	if req.Handle == "" {
		respondError(w, &errs.ValidationError{Field: "handle", Reason: "is required"})
		return
	}

	call, err := h.tracker.RecordCall(r.Context(), req.Handle, req.TokenAddress)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, call)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

// respondError maps the error taxonomy onto HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsValidation(err):
		status = http.StatusBadRequest
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsState(err):
		status = http.StatusConflict
	default:
		log.Printf("Request failed: %v", err)
	}

	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
