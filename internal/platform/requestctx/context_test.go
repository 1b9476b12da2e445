package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerDefaultsToNoop(t *testing.T) {
	if Logger(context.Background()) != noopLogger {
		t.Fatalf("expected noop logger")
	}
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if Logger(ctx) != logger {
		t.Fatalf("expected stored logger")
	}
}

func TestTraceAndVisitor(t *testing.T) {
	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc", SpanID: "1"})
	if TraceID(ctx) != "abc" {
		t.Fatalf("unexpected trace id %q", TraceID(ctx))
	}
	if TraceID(context.Background()) != "" {
		t.Fatalf("expected empty trace id")
	}
	ctx = WithVisitorID(ctx, "01HVISITOR")
	if VisitorID(ctx) != "01HVISITOR" {
		t.Fatalf("unexpected visitor %q", VisitorID(ctx))
	}
}
