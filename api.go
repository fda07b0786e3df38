package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// APIServer exposes the analyzer over an internal JSON API.
type APIServer struct {
	addr     string
	analyzer *PoolAnalyzer
	manager  *DataManager
}

func NewAPIServer(addr string, analyzer *PoolAnalyzer, manager *DataManager) *APIServer {
	return &APIServer{addr: addr, analyzer: analyzer, manager: manager}
}

func (s *APIServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/internal/conditions", s.handleInternalRequest(s.handleConditions))
	mux.HandleFunc("/internal/compare", s.handleInternalRequest(s.handleCompare))
	mux.HandleFunc("/internal/analyze", s.handleInternalRequest(s.handleAnalyze))
	mux.HandleFunc("/internal/availability", s.handleInternalRequest(s.handleAvailability))
	mux.HandleFunc("/internal/trend", s.handleInternalRequest(s.handleTrend))

	logger.Infof("🔒 Internal API server starting on %s", s.addr)
	go func() {
		if err := http.ListenAndServe(s.addr, mux); err != nil {
			logger.WithError(err).Error("API server error")
		}
	}()

	return nil
}

func (s *APIServer) handleInternalRequest(handler func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}

func (s *APIServer) networkParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	network := r.URL.Query().Get("network")
	if network == "" {
		http.Error(w, "network parameter required", http.StatusBadRequest)
		return "", false
	}
	return network, true
}

func (s *APIServer) handleConditions(w http.ResponseWriter, r *http.Request) {
	network, ok := s.networkParam(w, r)
	if !ok {
		return
	}
	snap, err := s.analyzer.GetNetworkConditions(r.Context(), network)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *APIServer) handleCompare(w http.ResponseWriter, r *http.Request) {
	networks := s.analyzer.Networks()
	if param := r.URL.Query().Get("networks"); param != "" {
		networks = strings.Split(param, ",")
	}
	comparison, err := s.analyzer.CompareNetworks(r.Context(), networks)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, comparison)
}

func (s *APIServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	network, ok := s.networkParam(w, r)
	if !ok {
		return
	}
	pendingOnly := r.URL.Query().Get("pending_only") == "true"
	analysis, err := s.analyzer.AnalyzeTokenTransactions(r.Context(), network, pendingOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, analysis)
}

func (s *APIServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	network, ok := s.networkParam(w, r)
	if !ok {
		return
	}
	availability, err := s.analyzer.CheckMethodAvailability(r.Context(), network)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, availability)
}

func (s *APIServer) handleTrend(w http.ResponseWriter, r *http.Request) {
	network, ok := s.networkParam(w, r)
	if !ok {
		return
	}
	trend, found := s.manager.TrendFor(network)
	if !found {
		http.Error(w, "no polling history for network", http.StatusNotFound)
		return
	}
	writeJSON(w, trend)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses and returns the
// classified error as the response body.
func writeError(w http.ResponseWriter, err error) {
	var cerr *ClassifiedError
	if !errors.As(err, &cerr) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusBadGateway
	switch cerr.Kind {
	case ErrKindRPC:
		status = http.StatusNotImplemented
	case ErrKindRateLimit:
		status = http.StatusTooManyRequests
	case ErrKindValidation:
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(cerr)
}
