package telemetry

import (
	"log"
	"strings"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

// Logger exposes the printf-style logging used for operational messages.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Scoped prefixes every message with "[component] ". A nil logger yields a
// logger that discards.
func Scoped(logger Logger, component string) Logger {
	if logger == nil {
		return LoggerFunc(func(string, ...any) {})
	}
	prefix := "[" + strings.TrimSpace(component) + "] "
	return LoggerFunc(func(format string, args ...any) {
		logger.Printf(prefix+format, args...)
	})
}

// StandardLogger exposes the wrapped logger for components that need one.
func (l *loggerAdapter) StandardLogger() *log.Logger {
	if l == nil {
		return nil
	}
	return l.logger
}

// Metrics exposes the counter and gauge surface used by the simulation and hub.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
	// Max keeps the largest value seen under key.
	Max(key string, value uint64)
}

// WrapMetrics adapts logging.Metrics into the Metrics interface.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return &metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m *metricsAdapter) Add(key string, delta uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryAdd(key, delta)
}

func (m *metricsAdapter) Store(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryStore(key, value)
}

func (m *metricsAdapter) Max(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryMax(key, value)
}

// NopMetrics discards every update.
type NopMetrics struct{}

func (NopMetrics) Add(string, uint64)   {}
func (NopMetrics) Store(string, uint64) {}
func (NopMetrics) Max(string, uint64)   {}
