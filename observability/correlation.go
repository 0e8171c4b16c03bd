package observability

import (
	"context"
	"regexp"

	"github.com/google/uuid"
)

type correlationKey struct{}

// correlationIDPattern bounds client-supplied correlation IDs so they
// cannot inject into log output: alphanumeric, hyphen, underscore, max 64.
var correlationIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// WithCorrelationID returns a context carrying the given correlation ID.
// Invalid IDs are replaced with a freshly generated UUID.
func WithCorrelationID(ctx context.Context, id string) (context.Context, string) {
	if !correlationIDPattern.MatchString(id) {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationKey{}, id), id
}

// CorrelationID returns the correlation ID carried by the context, or
// an empty string if none was set.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}
