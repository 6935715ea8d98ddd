package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rate-monitor/internal/analyzer"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func alertingResult() analyzer.Result {
	current := 14.0
	change := 7.7
	return analyzer.Result{
		TargetID:           "usd-jpy",
		Current:            &current,
		ChangeFromShortPct: &change,
		ShouldAlert:        true,
		Reason:             "change from short average exceeded 5%",
	}
}

func TestConsoleNotifierWritesSummary(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)

	if err := n.Notify(context.Background(), alertingResult()); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	line := buf.String()
	for _, want := range []string{"[ALERT] usd-jpy", "current=14", "change_from_short=+7.7%", "reason="} {
		if !strings.Contains(line, want) {
			t.Fatalf("summary %q should contain %q", line, want)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("summary should be a single line, got %q", line)
	}
}

func TestConsoleNotifierNoOpWithoutAlert(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)

	if err := n.Notify(context.Background(), analyzer.Result{TargetID: "usd-jpy"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("no alert means no output, got %q", buf.String())
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, testLogger())
	if err := n.Notify(context.Background(), alertingResult()); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if !strings.Contains(received["text"], "[ALERT] usd-jpy") {
		t.Fatalf("payload text should carry the summary, got %q", received["text"])
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, testLogger())
	err := n.Notify(context.Background(), alertingResult())
	if err == nil {
		t.Fatal("non-2xx response should fail")
	}
	if hits != 1 {
		t.Fatalf("webhook must never retry, got %d requests", hits)
	}

	var notifErr *NotificationError
	if !errors.As(err, &notifErr) {
		t.Fatalf("expected NotificationError, got %T", err)
	}
	if notifErr.Channel != "webhook" {
		t.Fatalf("error should name the channel, got %q", notifErr.Channel)
	}
}

func TestWebhookNotifierNoOpWithoutAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no alert must not reach the webhook")
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, testLogger())
	if err := n.Notify(context.Background(), analyzer.Result{TargetID: "usd-jpy"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(context.Context, analyzer.Result) error {
	s.calls++
	return s.err
}

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	failing := &stubNotifier{err: &NotificationError{Channel: "webhook", Err: errors.New("down")}}
	healthy := &stubNotifier{}

	failures := Dispatch(context.Background(), []Notifier{failing, healthy}, alertingResult())

	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if healthy.calls != 1 {
		t.Fatal("a failing channel must not block the remaining channels")
	}
}
