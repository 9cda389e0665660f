package server

import (
	"github.com/dberest/veridict/internal/enrich"
	"github.com/dberest/veridict/internal/infer"
)

// PredictRequest is the payload for a text prediction.
type PredictRequest struct {
	Text string `json:"text" example:"Scientists confirm new exoplanet in habitable zone"`
}

// EnrichmentStub is embedded in the immediate prediction response while the
// secondary analysis is still running in the background.
type EnrichmentStub struct {
	Available bool `json:"available" example:"false"`
	Pending   bool `json:"pending" example:"true"`
}

// PredictResponse is the fast-path prediction result. The secondary analysis
// is retrievable later via RequestID.
type PredictResponse struct {
	infer.Result
	RequestID  string         `json:"request_id" example:"2f1c9a7e-8a44-4c11-9d5c-1f51bb7f5a10"`
	MLTimeMs   float64        `json:"ml_time_ms" example:"4.2"`
	Enrichment EnrichmentStub `json:"enrichment"`
}

// EnrichmentResponse is the poll result for a background analysis.
type EnrichmentResponse struct {
	Ready    bool             `json:"ready" example:"true"`
	Analysis *enrich.Analysis `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty" example:"unknown request_id"`
}

// HealthResponse reports liveness plus model readiness.
type HealthResponse struct {
	Status     string  `json:"status" example:"healthy"`
	ModelReady bool    `json:"model_ready" example:"true"`
	Version    string  `json:"version" example:"1.0.0"`
	Timestamp  float64 `json:"timestamp" example:"1756684800"`
}

// StatusResponse reports readiness of the model and the secondary analyzer.
type StatusResponse struct {
	ModelReady        bool   `json:"model_ready" example:"true"`
	AnalyzerAvailable bool   `json:"analyzer_available" example:"false"`
	Version           string `json:"version" example:"1.0.0"`
}

// ErrorResponse is the uniform error payload: a human-readable message plus a
// machine-readable code.
type ErrorResponse struct {
	Error string `json:"error" example:"Input is too short. Please provide at least 10 characters."`
	Code  string `json:"code" example:"INVALID_INPUT"`
}

// Error codes returned by the API.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeModelNotReady   = "MODEL_NOT_READY"
	CodeNoFile          = "NO_FILE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeFileError       = "FILE_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)
