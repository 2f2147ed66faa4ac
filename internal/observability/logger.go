package observability

import (
	"log/slog"

	"github.com/couchcryptid/city-enrollment-map/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// ServiceName is attached to every log record.
const ServiceName = "city-enrollment-map"

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT. The
// shared logger also becomes the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", ServiceName)
}
