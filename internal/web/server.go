package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/veldra-labs/lsm/internal/logger"
	"github.com/veldra-labs/lsm/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the read-only JSON status API.
type WebServer struct {
	router *mux.Router
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")
	api.HandleFunc("/receipts/latest", ws.handleGetLatestReceipt).Methods("GET")
	api.HandleFunc("/strategy-parameters", ws.handleGetStrategyParameters).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false

	// Latest rebalance receipt, if any
	receipts, receiptErr := state.GetRecentRebalanceReceipts(1)
	var cycleInfo map[string]interface{}
	if receiptErr == nil && len(receipts) > 0 {
		latest := receipts[0]
		cycleInfo = map[string]interface{}{
			"cycle_id":        latest.CycleID,
			"last_cycle_time": latest.Timestamp,
			"last_action":     latest.Action,
			"balanced":        latest.Balanced,
		}
	} else {
		cycleInfo = map[string]interface{}{
			"cycle_id":        nil,
			"last_cycle_time": nil,
			"last_action":     "unknown",
			"balanced":        false,
		}
	}
	if cycle, err := (state.CycleStore{}).Current(); err == nil {
		cycleInfo["cycle_number"] = cycle
	}

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "lsm-leveraged-strategy-manager",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"cycle_info":       cycleInfo,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetReceipts returns recent rebalance receipts
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	receipts, err := state.GetRecentRebalanceReceipts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	response := map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetLatestReceipt returns the most recent rebalance receipt
func (ws *WebServer) handleGetLatestReceipt(w http.ResponseWriter, r *http.Request) {
	receipts, err := state.GetRecentRebalanceReceipts(1)
	if err != nil || len(receipts) == 0 {
		webLogger.Error().Err(err).Msg("Failed to get latest receipt")
		ws.writeErrorResponse(w, http.StatusNotFound, "No receipts found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, receipts[0])
}

// handleGetStrategyParameters returns the active strategy parameters
func (ws *WebServer) handleGetStrategyParameters(w http.ResponseWriter, r *http.Request) {
	params, err := state.LoadActiveStrategyParameters("default")
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get strategy parameters")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve strategy parameters")
		return
	}

	response := map[string]interface{}{
		"parameters": params,
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
