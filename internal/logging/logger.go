package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// StandardLogger provides a standardized logging interface on top of logrus.
// Every component derives its entries from here so field names stay uniform.
type StandardLogger struct {
	logger *logrus.Logger
}

// NewStandardLogger creates a logger writing to stdout.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	return NewStandardLoggerWithOutput(logLevel, environment, os.Stdout)
}

// NewStandardLoggerWithOutput creates a logger writing to out. The MCP
// server passes stderr because stdout carries the protocol stream.
func NewStandardLoggerWithOutput(logLevel string, environment string, out io.Writer) *StandardLogger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(ParseLogrusLevel(logLevel))
	if strings.EqualFold(environment, "development") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &StandardLogger{logger: logger}
}

// WithService creates a logger with service context
func (l *StandardLogger) WithService(serviceName string) *logrus.Entry {
	return l.logger.WithField("service", serviceName)
}

// WithComponent creates a logger with component context
func (l *StandardLogger) WithComponent(componentName string) *logrus.Entry {
	return l.logger.WithField("component", componentName)
}

// WithOperation creates a logger with operation context
func (l *StandardLogger) WithOperation(operationName string) *logrus.Entry {
	return l.logger.WithField("operation", operationName)
}

// WithRequestID creates a logger with request ID context
func (l *StandardLogger) WithRequestID(requestID string) *logrus.Entry {
	return l.logger.WithField("request_id", requestID)
}

// WithDataset creates a logger with dataset context
func (l *StandardLogger) WithDataset(datasetID string) *logrus.Entry {
	return l.logger.WithField("dataset", datasetID)
}

// WithError creates a logger with error context
func (l *StandardLogger) WithError(err error) *logrus.Entry {
	return l.logger.WithError(err)
}

// LogStartup logs application startup information
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.WithFields(logrus.Fields{
		"service": serviceName,
		"version": version,
		"port":    port,
		"event":   "startup",
	}).Info("Application startup")
}

// LogShutdown logs application shutdown information
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.WithFields(logrus.Fields{
		"service": serviceName,
		"reason":  reason,
		"event":   "shutdown",
	}).Info("Application shutdown")
}

// LogCacheOperation logs cache operations in a standardized format
func (l *StandardLogger) LogCacheOperation(operation string, key string, hit bool, duration int64) {
	l.logger.WithFields(logrus.Fields{
		"operation":   operation,
		"key":         key,
		"hit":         hit,
		"duration_ms": duration,
		"event":       "cache",
	}).Debug("Cache operation")
}

// LogDatasetLoad logs the first load of a dataset.
func (l *StandardLogger) LogDatasetLoad(datasetID string, source string, observations int, drivers int, duration int64) {
	l.logger.WithFields(logrus.Fields{
		"dataset":      datasetID,
		"source":       source,
		"observations": observations,
		"drivers":      drivers,
		"duration_ms":  duration,
		"event":        "dataset_load",
	}).Info("Dataset loaded")
}

// LogToolCall logs a tool invocation and its outcome code.
func (l *StandardLogger) LogToolCall(tool string, code string, duration int64) {
	entry := l.logger.WithFields(logrus.Fields{
		"tool":        tool,
		"duration_ms": duration,
		"event":       "tool_call",
	})
	if code != "" {
		entry.WithField("code", code).Warn("Tool call returned error record")
		return
	}
	entry.Info("Tool call")
}

// LogAPIRequest logs API requests in a standardized format
func (l *StandardLogger) LogAPIRequest(method string, path string, statusCode int, duration int64, requestID string) {
	l.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      statusCode,
		"duration_ms": duration,
		"request_id":  requestID,
		"event":       "api",
	}).Info("API request")
}

// Logger returns the underlying *logrus.Logger
func (l *StandardLogger) Logger() *logrus.Logger {
	return l.logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
