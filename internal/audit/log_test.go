package audit

import (
	"context"
	"testing"
)

func TestWithRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Fatalf("request id not round-tripped: %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id on fresh context, got %q", got)
	}
	if ctx := WithRequestID(context.Background(), "   "); RequestIDFromContext(ctx) != "" {
		t.Fatalf("blank request id must not be attached")
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatalf("expected error for blank event name")
	}
	if err := LogEvent(context.Background(), "visibility.resolve", map[string]any{"module": "Contacts"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
}
