package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInfoCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "billing-test", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithAgencyID(ctx, "agency-9")
	ctx = logg.WithProvider(ctx, "fedapay")
	logg.Info(ctx, "checkout dispatched")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if entry["service"] != "billing-test" {
		t.Fatalf("missing service field: %v", entry)
	}
	if entry["request_id"] != "req-123" || entry["agency_id"] != "agency-9" || entry["provider"] != "fedapay" {
		t.Fatalf("missing context fields: %v", entry)
	}
	if entry["message"] != "checkout dispatched" {
		t.Fatalf("unexpected message: %v", entry["message"])
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("warn") != zerolog.WarnLevel {
		t.Fatal("expected warn level")
	}
	if ParseLevel(" DEBUG ") != zerolog.DebugLevel {
		t.Fatal("expected debug level after trimming")
	}
	if ParseLevel("") != zerolog.InfoLevel || ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("expected info fallback")
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "billing-test", Output: &buf})
	logg.Error(context.Background(), "provider call failed", context.DeadlineExceeded)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if entry["stack"] == nil || entry["stack"] == "" {
		t.Fatal("expected stack field on error logs")
	}
	if entry["error"] != context.DeadlineExceeded.Error() {
		t.Fatalf("unexpected error field: %v", entry["error"])
	}
}
