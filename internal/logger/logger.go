// Package logger configures the process-wide slog logger: JSON or text to
// stderr, or OpenTelemetry logs over OTLP/gRPC when enabled.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Type alias for slog.Level for easier usage
type Level = slog.Level

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug // -4
	LevelInfo    = slog.LevelInfo  // 0
	LevelWarning = slog.LevelWarn  // 4
	LevelError   = slog.LevelError // 8
	LevelFatal   = slog.Level(12)  // 12
)

// Counters of warnings and errors, incremented regardless of sampling.
var (
	TotalErrors   atomic.Int64
	TotalWarnings atomic.Int64
)

var (
	programLevel = new(slog.LevelVar)
	shutdownFunc func(context.Context) error // nil unless OTEL is enabled
)

// Config selects the log handler.
type Config struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or text
	// OTEL sends logs to the OTLP endpoint from the standard
	// OTEL_EXPORTER_OTLP_* variables instead of Output.
	OTEL        bool   `koanf:"otel"`
	ServiceName string `koanf:"service_name"`
	// SampleRate logs 1 out of every N warnings and errors; 0 or 1 logs all.
	SampleRate int       `koanf:"sample_rate"`
	Output     io.Writer `koanf:"-"`
}

// Setup builds the logger described by cfg and installs it as the slog
// default. Call Shutdown before exiting to flush OTEL logs.
func Setup(ctx context.Context, cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	programLevel.Set(level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	if cfg.OTEL {
		serviceName := cfg.ServiceName
		if serviceName == "" {
			serviceName = "dq"
		}
		otelHandler, shutdown, err := setupOTEL(ctx, serviceName)
		if err != nil {
			// Fall back to JSON handler if OTEL setup fails
			fmt.Fprintf(os.Stderr, "Failed to setup OTEL logging, falling back to JSON: %v\n", err)
			handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: programLevel})
		} else {
			shutdownFunc = shutdown
			handler = otelHandler
		}
	} else {
		handler = newStreamHandler(out, cfg.Format)
	}

	l := slog.New(&levelHandler{
		level:      programLevel,
		handler:    handler,
		sampleRate: int32(cfg.SampleRate),
	})
	slog.SetDefault(l)
	return l, nil
}

func newStreamHandler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: programLevel,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(LevelName(lvl))
				}
			}
			return a
		},
	}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// setupOTEL configures OpenTelemetry logging
func setupOTEL(ctx context.Context, serviceName string) (slog.Handler, func(context.Context) error, error) {
	// Resource = service identity
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	// Bridge slog → OTel
	handler := otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(loggerProvider))
	return handler, loggerProvider.Shutdown, nil
}

// levelHandler filters by level and samples warnings and errors.
type levelHandler struct {
	level      slog.Leveler
	handler    slog.Handler
	sampleRate int32
}

func (h *levelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	switch {
	case r.Level >= LevelFatal:
		// never sampled
	case r.Level >= LevelError:
		TotalErrors.Add(1)
		if !h.shouldSample() {
			return nil
		}
	case r.Level >= LevelWarning:
		TotalWarnings.Add(1)
		if !h.shouldSample() {
			return nil
		}
	}
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs), sampleRate: h.sampleRate}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name), sampleRate: h.sampleRate}
}

// shouldSample returns true for 1 out of every sampleRate records.
func (h *levelHandler) shouldSample() bool {
	if h.sampleRate <= 1 {
		return true
	}
	return rand.Intn(int(h.sampleRate)) == 0
}

// Shutdown flushes and stops the OTEL exporter, if any.
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// SetLevel sets the minimum log level for the logger
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the current minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a level name to slog.Level. An empty name is INFO.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// LevelName is the inverse of ParseLevel.
func LevelName(level slog.Level) string {
	switch {
	case level <= LevelTrace:
		return "TRACE"
	case level >= LevelFatal:
		return "FATAL"
	default:
		return level.String()
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
