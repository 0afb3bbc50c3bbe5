package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// loggerProvider holds the OTel pipeline when one was configured, so
// Shutdown can flush it on exit.
var loggerProvider *sdklog.LoggerProvider

// Instrument installs the global logger. Format selects the pipeline:
// "text" and "json" write directly to stdout, "otlp" exports log records via
// OTLP/HTTP (configured through the standard OTEL_EXPORTER_OTLP_* variables),
// and "otlp-stdout" runs the same pipeline against a stdout exporter for
// local inspection. All pipelines enrich records with trace correlation
// attributes when trace context is present.
func Instrument(level slog.Level, logFormat string) error {
	handler, err := newHandler(level, logFormat)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(newTraceContextHandler(handler)))

	return nil
}

// Shutdown flushes and stops the OTel log pipeline, if one was configured.
func Shutdown(ctx context.Context) error {
	if loggerProvider == nil {
		return nil
	}
	return loggerProvider.Shutdown(ctx)
}

func newHandler(level slog.Level, logFormat string) (slog.Handler, error) {
	switch strings.ToLower(logFormat) {
	case "json":
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}), nil
	case "text":
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}), nil
	case "otlp":
		return newOTelHandler(level, false)
	case "otlp-stdout":
		return newOTelHandler(level, true)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text, otlp, otlp-stdout)", logFormat)
	}
}

// newOTelHandler bridges slog to an OTel log pipeline. Severity filtering
// happens in the processor chain because the bridge handler itself accepts
// every level.
func newOTelHandler(level slog.Level, stdout bool) (slog.Handler, error) {
	var (
		exporter sdklog.Exporter
		err      error
	)
	if stdout {
		exporter, err = stdoutlog.New()
	} else {
		exporter, err = otlploghttp.New(context.Background())
	}
	if err != nil {
		return nil, fmt.Errorf("creating log exporter: %w", err)
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), minSeverity(level))
	loggerProvider = sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

	return otelslog.NewHandler("claude-bridge", otelslog.WithLoggerProvider(loggerProvider)), nil
}

func minSeverity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
