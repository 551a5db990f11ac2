package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// KOL routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/kols", handler.GetAllKOLs).Methods("GET")
	api.HandleFunc("/kols", handler.TrackKOL).Methods("POST")
	api.HandleFunc("/kols/top", handler.GetTopKOLs).Methods("GET")
	api.HandleFunc("/kols/suspicious", handler.GetSuspiciousKOLs).Methods("GET")
	api.HandleFunc("/kols/{handle}", handler.GetKOL).Methods("GET")
	api.HandleFunc("/kols/{handle}", handler.UntrackKOL).Methods("DELETE")
	api.HandleFunc("/kols/{handle}/report", handler.GetReport).Methods("GET")
	api.HandleFunc("/kols/{handle}/calls", handler.GetCalls).Methods("GET")

	// Call routes
	api.HandleFunc("/calls", handler.RecordCall).Methods("POST")

	return r
}
