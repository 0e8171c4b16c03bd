package observability

import (
	"context"
	"strings"
	"testing"
)

func TestWithCorrelationID(t *testing.T) {
	t.Run("keeps a well-formed id", func(t *testing.T) {
		ctx, id := WithCorrelationID(context.Background(), "req-abc_123")
		if id != "req-abc_123" {
			t.Errorf("expected inbound id kept, got %q", id)
		}
		if CorrelationID(ctx) != "req-abc_123" {
			t.Error("expected id retrievable from context")
		}
	})

	t.Run("replaces malformed ids", func(t *testing.T) {
		for _, bad := range []string{"", "has spaces", "unicode-é", strings.Repeat("x", 65)} {
			ctx, id := WithCorrelationID(context.Background(), bad)
			if id == bad {
				t.Errorf("expected %q to be replaced", bad)
			}
			if !correlationIDPattern.MatchString(id) {
				t.Errorf("replacement %q is not well formed", id)
			}
			if CorrelationID(ctx) != id {
				t.Error("expected replacement id stored in context")
			}
		}
	})

	t.Run("empty context has no id", func(t *testing.T) {
		if got := CorrelationID(context.Background()); got != "" {
			t.Errorf("expected empty id, got %q", got)
		}
	})
}
