package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// A delivery gets its fields once at the HTTP boundary; the pipeline enriches them as
// the tracker issue and each attachment become known.
type LogFields struct {
	DeliveryID      *int64  // Snowflake ID assigned to one inbound webhook delivery
	IssueID         *string // Tracker issue ID
	IssueIdentifier *string // Human readable tracker key, e.g. "ENG-42"
	AttachmentURL   *string // Source URL of the attachment being mirrored
	Component       string  // Component name (OTel semantic convention style, e.g., "crmrelay.service.relay")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.DeliveryID != nil {
		result.DeliveryID = new.DeliveryID
	}
	if new.IssueID != nil {
		result.IssueID = new.IssueID
	}
	if new.IssueIdentifier != nil {
		result.IssueIdentifier = new.IssueIdentifier
	}
	if new.AttachmentURL != nil {
		result.AttachmentURL = new.AttachmentURL
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{IssueID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like response bodies.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
