package server

import (
	"github.com/dberest/veridict/internal/config"
	"github.com/dberest/veridict/internal/logging"
)

// Version reported by the health and status endpoints.
const Version = "1.0.0"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// Input bounds what a prediction request may contain.
	Input config.InputConfig

	// Logger is optional; a stdout logger is used when nil.
	Logger logging.Logger
}
