package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with activity-graph-specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Add service metadata
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// NewNop returns a no-op logger for tests
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), serviceName: "test"}
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok && spanID != "" {
		fields = append(fields, zap.String("span_id", spanID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithEntity returns a logger with entity context
func (l *Logger) WithEntity(entityID string) *Logger {
	return &Logger{
		Logger:      l.With(zap.String("entity_id", entityID)),
		serviceName: l.serviceName,
	}
}

// EntityAdded logs entity registration
func (l *Logger) EntityAdded(entityID, kind string) {
	l.Info("entity added",
		zap.String("entity_id", entityID),
		zap.String("entity_type", kind),
	)
}

// TransactionAdded logs a recorded transaction edge
func (l *Logger) TransactionAdded(txID, senderID, receiverID string, amount float64) {
	l.Info("transaction added",
		zap.String("transaction_id", txID),
		zap.String("sender_id", senderID),
		zap.String("receiver_id", receiverID),
		zap.Float64("amount", amount),
	)
}

// SARFiled logs SAR ingestion
func (l *Logger) SARFiled(sarID string, entityCount int, activityType string) {
	l.Info("sar filed",
		zap.String("sar_id", sarID),
		zap.Int("entities_involved", entityCount),
		zap.String("activity_type", activityType),
	)
}

// PatternDetected logs a detected pattern
func (l *Logger) PatternDetected(entityID, patternType string, confidence float64) {
	l.Warn("suspicious pattern detected",
		zap.String("entity_id", entityID),
		zap.String("pattern_type", patternType),
		zap.Float64("confidence", confidence),
	)
}

// RiskScored logs a risk scoring run for an entity
func (l *Logger) RiskScored(entityID string, score float64, level string) {
	l.Info("risk scored",
		zap.String("entity_id", entityID),
		zap.Float64("risk_score", score),
		zap.String("risk_level", level),
	)
}

// RiskPropagated logs a propagation sweep
func (l *Logger) RiskPropagated(seedCount, touchedCount int) {
	l.Info("risk propagated",
		zap.Int("seeds", seedCount),
		zap.Int("entities_touched", touchedCount),
	)
}

// AlertPublished logs a published alert event
func (l *Logger) AlertPublished(topic, entityID, patternType string) {
	l.Info("alert published",
		zap.String("topic", topic),
		zap.String("entity_id", entityID),
		zap.String("pattern_type", patternType),
	)
}

// GraphRebuilt logs a snapshot replay at startup
func (l *Logger) GraphRebuilt(entities, transactions, sars int, took time.Duration) {
	l.Info("graph rebuilt from snapshot store",
		zap.Int("entities", entities),
		zap.Int("transactions", transactions),
		zap.Int("sars", sars),
		zap.Duration("took", took),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Float64Field creates a float64 field
func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}
