package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

const defaultService = "escrowd"

// levelEnvVar adjusts daemon verbosity without a config edit.
const levelEnvVar = "ESCROWD_LOG_LEVEL"

// Setup configures structured JSON logging for the settlement daemon and
// returns the base logger. Every line carries the service name, the
// deployment environment when provided, and remapped severity/timestamp/
// message keys. The ESCROWD_LOG_LEVEL environment variable (debug, info,
// warn, error) controls verbosity; unset or unknown values mean info.
func Setup(service, env string) *slog.Logger {
	if service = strings.TrimSpace(service); service == "" {
		service = defaultService
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       parseLevel(os.Getenv(levelEnvVar)),
		ReplaceAttr: remapAttr,
	})

	attrs := []slog.Attr{slog.String("service", service)}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	base := slog.New(handler).With(args...)
	slog.SetDefault(base)

	// Route the stdlib logger through the same handler so dependency log
	// output stays structured.
	bridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	bridge.SetFlags(0)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

func remapAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "timestamp"
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "message"
	}
	return attr
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
