package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/dberest/veridict/internal/artifact"
	"github.com/dberest/veridict/internal/enrich"
	"github.com/dberest/veridict/internal/history"
	"github.com/dberest/veridict/internal/infer"
	"github.com/dberest/veridict/internal/logging"
)

const maxUploadBytes = 2 << 20 // 2MB upload cap

// Server is the HTTP + WebSocket API surface for Veridict.
type Server struct {
	cfg        Config
	engine     *infer.Engine
	store      *artifact.Store
	cache      *enrich.Cache
	dispatcher *enrich.Dispatcher
	analyzer   enrich.Analyzer
	hist       *history.Store
	router     chi.Router
	upgrader   websocket.Upgrader
	logger     logging.Logger
}

// NewServer wires the API surface. hist may be nil when history persistence
// is disabled.
func NewServer(cfg Config, engine *infer.Engine, store *artifact.Store,
	cache *enrich.Cache, dispatcher *enrich.Dispatcher, analyzer enrich.Analyzer,
	hist *history.Store) *Server {

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	s := &Server{
		cfg:        cfg,
		engine:     engine,
		store:      store,
		cache:      cache,
		dispatcher: dispatcher,
		analyzer:   analyzer,
		hist:       hist,
		router:     chi.NewRouter(),
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/predict", s.optionsHandler("POST"))
	r.Options("/api/predict/file", s.optionsHandler("POST"))
	r.Options("/api/enrichment/{requestID}", s.optionsHandler("GET"))
	r.Options("/api/metrics", s.optionsHandler("GET"))
	r.Options("/api/status", s.optionsHandler("GET"))
	r.Options("/api/health", s.optionsHandler("GET"))
	r.Options("/api/history", s.optionsHandler("GET"))
	r.Options("/api/history/stats", s.optionsHandler("GET"))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/predict", s.handlePredict)
	r.Post("/api/predict/file", s.handlePredictFile)
	r.Get("/api/enrichment/{requestID}", s.handleGetEnrichment)
	r.Get("/ws/enrichment/{requestID}", s.handleEnrichmentWS)
	r.Get("/api/metrics", s.handleMetrics)
	r.Get("/api/history", s.handleHistory)
	r.Get("/api/history/stats", s.handleHistoryStats)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found.", CodeNotFound)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if r.Body != nil && r.Method == http.MethodPost &&
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		// Read one byte past the cap so an oversized body is rejected
		// instead of silently truncated for the handler.
		if bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1)); err == nil {
			if len(bodyBytes) > maxUploadBytes {
				fields = append(fields, logging.Field{Key: "body_bytes", Value: len(bodyBytes)})
				s.logger.Warn("request body too large", fields...)
				writeError(w, http.StatusRequestEntityTooLarge,
					"Request body too large. Maximum size is 2MB.", CodeInvalidInput)
				return
			}
			fields = append(fields, logging.Field{Key: "body_bytes", Value: len(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow websocket streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// --- validation ---

// validateText enforces the request contract before any inference work.
func (s *Server) validateText(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, "Input cannot be empty. Please enter a news article or headline."
	}
	if len(trimmed) < s.cfg.Input.MinChars {
		return false, fmt.Sprintf("Input is too short. Please provide at least %d characters.", s.cfg.Input.MinChars)
	}
	if words := len(strings.Fields(text)); words > s.cfg.Input.MaxWords {
		return false, fmt.Sprintf("Input exceeds maximum length of %d words.", s.cfg.Input.MaxWords)
	}
	return true, ""
}

// --- HTTP handlers ---

// handleHealth godoc
// @Summary Health check
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /api/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		ModelReady: s.engine.Ready(),
		Version:    Version,
		Timestamp:  float64(time.Now().UnixMilli()) / 1000,
	})
}

// handleStatus godoc
// @Summary System status
// @Description Readiness is honest: model_ready is true only when both the
// @Description classifier and vectorizer artifacts exist on disk.
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ready := s.engine.Ready()
	s.logger.Info("status check", logging.Field{Key: "model_ready", Value: ready})
	writeJSON(w, http.StatusOK, StatusResponse{
		ModelReady:        ready,
		AnalyzerAvailable: s.analyzer != nil && s.analyzer.Available(),
		Version:           Version,
	})
}

// handlePredict godoc
// @Summary Classify a news text
// @Description Returns the ML verdict immediately; the LLM analysis runs in
// @Description the background and is retrievable via the returned request_id.
// @Accept json
// @Produce json
// @Param request body PredictRequest true "text to classify"
// @Success 200 {object} PredictResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/predict [post]
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !s.engine.Ready() {
		writeError(w, http.StatusServiceUnavailable,
			"Model not trained yet. Please run the training job first.", CodeModelNotReady)
		return
	}

	var body PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidInput)
		return
	}

	if ok, msg := s.validateText(body.Text); !ok {
		writeError(w, http.StatusBadRequest, msg, CodeInvalidInput)
		return
	}

	s.respondWithPrediction(w, r, body.Text, start)
}

// respondWithPrediction runs the fast ML path, records history, kicks off the
// background enrichment and writes the response.
func (s *Server) respondWithPrediction(w http.ResponseWriter, r *http.Request, text string, start time.Time) {
	result, err := s.engine.Predict(text)
	if err != nil {
		if errors.Is(err, artifact.ErrModelNotFound) {
			writeError(w, http.StatusServiceUnavailable, err.Error(), CodeModelNotReady)
			return
		}
		s.logger.Error("prediction failed", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "An internal server error occurred.", CodeInternalError)
		return
	}

	if s.hist != nil {
		wordCount := len(strings.Fields(text))
		if _, err := s.hist.Record(r.Context(), result.Label, result.Confidence,
			result.ModelName, wordCount, result.ProcessedText); err != nil {
			s.logger.Warn("recording prediction history", logging.Field{Key: "error", Value: err.Error()})
		}
	}

	requestID := s.dispatcher.Submit(text, result.Label, result.Confidence)

	elapsed := float64(time.Since(start).Microseconds()) / 1000

	s.logger.Info("fast predict",
		logging.Field{Key: "label", Value: result.Label},
		logging.Field{Key: "confidence", Value: result.Confidence},
		logging.Field{Key: "ml_time_ms", Value: elapsed},
		logging.Field{Key: "request_id", Value: requestID})

	writeJSON(w, http.StatusOK, PredictResponse{
		Result:     *result,
		RequestID:  requestID,
		MLTimeMs:   elapsed,
		Enrichment: EnrichmentStub{Available: false, Pending: true},
	})
}

// handleGetEnrichment godoc
// @Summary Poll for a background analysis result
// @Produce json
// @Param requestID path string true "correlation id from /api/predict"
// @Success 200 {object} EnrichmentResponse
// @Failure 404 {object} EnrichmentResponse
// @Router /api/enrichment/{requestID} [get]
func (s *Server) handleGetEnrichment(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	analysis, state := s.cache.Get(requestID)
	switch state {
	case enrich.StateUnknown:
		writeJSON(w, http.StatusNotFound, EnrichmentResponse{Ready: false, Error: "unknown request_id"})
	case enrich.StatePending:
		writeJSON(w, http.StatusOK, EnrichmentResponse{Ready: false})
	default:
		writeJSON(w, http.StatusOK, EnrichmentResponse{Ready: true, Analysis: analysis})
	}
}

// handleEnrichmentWS streams the analysis result over a websocket as soon as
// it lands in the cache, instead of requiring the client to poll.
func (s *Server) handleEnrichmentWS(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	if _, state := s.cache.Get(requestID); state == enrich.StateUnknown {
		_ = conn.WriteJSON(EnrichmentResponse{Ready: false, Error: "unknown request_id"})
		return
	}

	// Upgrade hijacks the connection, so the request context no longer fires
	// on client disconnect. Watch the connection reader instead.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			s.logger.Debug("enrichment websocket closed by client",
				logging.Field{Key: "request_id", Value: requestID})
			return
		case <-ticker.C:
			analysis, state := s.cache.Get(requestID)
			switch state {
			case enrich.StateUnknown:
				// Evicted while we waited.
				_ = conn.WriteJSON(EnrichmentResponse{Ready: false, Error: "unknown request_id"})
				return
			case enrich.StateDone:
				_ = conn.WriteJSON(EnrichmentResponse{Ready: true, Analysis: analysis})
				return
			}
		}
	}
}

// handlePredictFile godoc
// @Summary Classify an uploaded .txt or .csv file
// @Accept mpfd
// @Produce json
// @Param file formData file true "file to classify"
// @Success 200 {object} PredictResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/predict/file [post]
func (s *Server) handlePredictFile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !s.engine.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Model not trained yet.", CodeModelNotReady)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge,
			"File too large. Maximum size is 2MB.", CodeFileTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided.", CodeNoFile)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".txt" && ext != ".csv" {
		writeError(w, http.StatusBadRequest,
			"Invalid file type. Only .txt and .csv files are supported.", CodeInvalidFileType)
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("reading upload", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "Failed to process file.", CodeFileError)
		return
	}

	content := string(raw)
	if ext == ".csv" {
		content, err = extractCSVText(content)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to parse CSV file.", CodeFileError)
			return
		}
	}

	if ok, msg := s.validateText(content); !ok {
		writeError(w, http.StatusBadRequest, msg, CodeInvalidInput)
		return
	}

	s.respondWithPrediction(w, r, content, start)
}

// extractCSVText joins the values of the first text-looking column.
func extractCSVText(content string) (string, error) {
	rd := csv.NewReader(strings.NewReader(content))
	rd.FieldsPerRecord = -1
	records, err := rd.ReadAll()
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}

	col := 0
	for i, name := range records[0] {
		lower := strings.ToLower(strings.TrimSpace(name))
		if strings.Contains(lower, "text") || strings.Contains(lower, "title") {
			col = i
			break
		}
	}

	var parts []string
	for _, row := range records[1:] {
		if col < len(row) && strings.TrimSpace(row[col]) != "" {
			parts = append(parts, strings.TrimSpace(row[col]))
		}
	}
	return strings.Join(parts, " "), nil
}

// handleMetrics godoc
// @Summary Training metrics of the active model
// @Produce json
// @Success 200 {object} train.Report
// @Failure 404 {object} ErrorResponse
// @Router /api/metrics [get]
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.LoadReport()
	if err != nil {
		s.logger.Error("loading metrics", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "An internal server error occurred.", CodeInternalError)
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "No metrics available. Train a model first.", CodeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleHistory godoc
// @Summary Recent predictions
// @Produce json
// @Param limit query int false "maximum entries to return"
// @Success 200 {array} history.Entry
// @Router /api/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		writeError(w, http.StatusNotFound, "History is disabled.", CodeNotFound)
		return
	}
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}
	entries, err := s.hist.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing history", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "An internal server error occurred.", CodeInternalError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHistoryStats godoc
// @Summary Aggregated prediction counts
// @Produce json
// @Success 200 {object} history.Stats
// @Router /api/history/stats [get]
func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		writeError(w, http.StatusNotFound, "History is disabled.", CodeNotFound)
		return
	}
	stats, err := s.hist.Stats(r.Context())
	if err != nil {
		s.logger.Error("aggregating history", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "An internal server error occurred.", CodeInternalError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
