package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// StandardLogger provides a standardized logging interface over logrus
type StandardLogger struct {
	logger *logrus.Logger
}

// NewStandardLogger creates a logger writing to stderr, keeping stdout free
// for rendered reports
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	return NewStandardLoggerWithOutput(logLevel, environment, os.Stderr)
}

// NewStandardLoggerWithOutput creates a logger writing to out. Production
// environments get JSON lines, everything else human readable text.
func NewStandardLoggerWithOutput(logLevel string, environment string, out io.Writer) *StandardLogger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(ParseLogrusLevel(logLevel))

	if strings.EqualFold(environment, "production") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
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

// WithEntity creates a logger with collection/marketplace context
func (l *StandardLogger) WithEntity(entity string) *logrus.Entry {
	return l.logger.WithField("entity", entity)
}

// WithError creates a logger with error context
func (l *StandardLogger) WithError(err error) *logrus.Entry {
	return l.logger.WithError(err)
}

// WithMetrics creates a logger with metrics context
func (l *StandardLogger) WithMetrics(metrics map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(logrus.Fields(metrics))
}

// LogStartup logs application startup information
func (l *StandardLogger) LogStartup(serviceName string, version string) {
	l.logger.WithFields(logrus.Fields{
		"service": serviceName,
		"version": version,
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

// LogBusinessEvent logs a domain event such as a finished report
func (l *StandardLogger) LogBusinessEvent(eventType string, details map[string]interface{}) {
	fields := logrus.Fields{
		"event_type": eventType,
		"event":      "business",
	}
	for k, v := range details {
		fields[k] = v
	}
	l.logger.WithFields(fields).Info("Business event")
}

// Logger returns the underlying logrus logger
func (l *StandardLogger) Logger() *logrus.Logger {
	return l.logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
