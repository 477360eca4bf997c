package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType classifies span errors for filtering in the trace backend.
type ErrorType string

const (
	ErrorTypeDB         ErrorType = "db"
	ErrorTypeRedis      ErrorType = "redis"
	ErrorTypeStorage    ErrorType = "object_storage"
	ErrorTypeBroker     ErrorType = "broker"
	ErrorTypeEmbedding  ErrorType = "embedding"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
)

// RecordError records err on span with a typed error attribute and marks the
// span failed.
func RecordError(span trace.Span, err error, errorType ErrorType) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", err.Error()),
	)
	span.SetStatus(codes.Error, err.Error())
}
