package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the global slog default from the configured format
// ("json" for production, anything else for human-readable text) and level
// ("debug", "info", "warn", "error"; unknown values fall back to info).
// Installing a default means the rest of the codebase logs through plain
// slog.Info/Warn/Error calls without threading a logger around.
func SetupLogger(format, level string) {
	lvl := parseLevel(level)
	slog.SetDefault(slog.New(newLogHandler(os.Stdout, format, lvl)))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogHandler(w io.Writer, format string, lvl slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: lvl,
		// file:line is worth the cost only when someone turned debug on
		AddSource: lvl == slog.LevelDebug,
	}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
