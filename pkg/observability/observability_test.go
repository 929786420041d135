package observability

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestStdLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(log.New(&buf, "", 0), false)

	l.With(String("viewer", "v1")).Info("render complete", Int("page", 2), Error("err", errors.New("boom")))
	got := strings.TrimSpace(buf.String())
	want := "INFO render complete viewer=v1 page=2 err=boom"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStdLoggerDebugGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(log.New(&buf, "", 0), false)
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug entry written with debug off: %q", buf.String())
	}

	l = NewStdLogger(log.New(&buf, "", 0), true)
	l.Debug("shown")
	if !strings.Contains(buf.String(), "DEBUG shown") {
		t.Errorf("debug entry missing: %q", buf.String())
	}
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l = l.With(String("k", "v"))
	l.Info("ignored")
	if _, ok := l.(NopLogger); !ok {
		t.Errorf("With on NopLogger returned %T", l)
	}
}
