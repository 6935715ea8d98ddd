package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rate-monitor/internal/alerting"
	"rate-monitor/internal/analyzer"
	"rate-monitor/internal/config"
	"rate-monitor/internal/storage"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// pageFetcher serves canned page bodies per URL.
type pageFetcher struct {
	pages map[string]string
}

func (f *pageFetcher) Fetch(_ context.Context, url string) (string, error) {
	body, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("fetch %s failed: connection refused", url)
	}
	return body, nil
}

type recordingNotifier struct {
	results []analyzer.Result
}

func (n *recordingNotifier) Notify(_ context.Context, res analyzer.Result) error {
	n.results = append(n.results, res)
	return nil
}

func newTestStore(t *testing.T) storage.TimeSeriesStore {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "rates.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ratePage(value string) string {
	return fmt.Sprintf(`<html><body><div class="rate">%s</div></body></html>`, value)
}

func defaultOptions() Options {
	return Options{
		WindowShort:  3,
		WindowLong:   7,
		ThresholdPct: 5.0,
		Lookback:     24 * time.Hour,
		Concurrency:  2,
	}
}

func TestRunOncePersistsAndAnalyzes(t *testing.T) {
	store := newTestStore(t)
	fetcher := &pageFetcher{pages: map[string]string{
		"https://example.com/usd-jpy": ratePage("¥1,234.56"),
	}}
	notifier := &recordingNotifier{}

	svc := New(defaultOptions(), fetcher, store, []alerting.Notifier{notifier}, testLogger())
	targets := []config.Target{{ID: "usd-jpy", Name: "USD/JPY", URL: "https://example.com/usd-jpy", Selector: ".rate"}}

	report, err := svc.RunOnce(context.Background(), targets)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(report.Observations) != 1 || report.Observations[0].Value != 1234.56 {
		t.Fatalf("unexpected observations: %+v", report.Observations)
	}
	if len(report.Results) != 1 || report.Results[0].TargetID != "usd-jpy" {
		t.Fatalf("unexpected results: %+v", report.Results)
	}
	if report.RunID == "" {
		t.Fatal("report should carry a run id")
	}
	if len(notifier.results) != 1 {
		t.Fatalf("notifier should see every result, got %d", len(notifier.results))
	}

	history, err := store.RecentHistory(context.Background(), "usd-jpy", 24*time.Hour)
	if err != nil {
		t.Fatalf("read back history: %v", err)
	}
	if len(history) != 1 || history[0].Value != 1234.56 {
		t.Fatalf("observation was not persisted: %+v", history)
	}
}

func TestRunOnceIsolatesTargetFailures(t *testing.T) {
	store := newTestStore(t)
	fetcher := &pageFetcher{pages: map[string]string{
		"https://example.com/good": ratePage("100"),
		// "bad" is missing: fetch fails; "empty" parses to nothing.
		"https://example.com/empty": `<html><body></body></html>`,
	}}

	svc := New(defaultOptions(), fetcher, store, nil, testLogger())
	targets := []config.Target{
		{ID: "bad", Name: "Bad", URL: "https://example.com/bad", Selector: ".rate"},
		{ID: "empty", Name: "Empty", URL: "https://example.com/empty", Selector: ".rate"},
		{ID: "good", Name: "Good", URL: "https://example.com/good", Selector: ".rate"},
	}

	report, err := svc.RunOnce(context.Background(), targets)
	if err == nil {
		t.Fatal("run with failing targets should surface an aggregate error")
	}
	if !strings.Contains(err.Error(), "2 of 3") {
		t.Fatalf("aggregate error should count failures, got %q", err.Error())
	}

	if len(report.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", report.Failures)
	}
	if len(report.Observations) != 1 || report.Observations[0].TargetID != "good" {
		t.Fatalf("healthy target should still be processed: %+v", report.Observations)
	}
}

func TestRunOnceDryRunSkipsPersistence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Seed history so the short window fills once the fresh value joins it.
	now := time.Now().UTC()
	for i, v := range []float64{10, 11} {
		if err := store.Append(ctx, "usd-jpy", now.Add(time.Duration(i-2)*time.Hour), v); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	fetcher := &pageFetcher{pages: map[string]string{
		"https://example.com/usd-jpy": ratePage("30"),
	}}
	notifier := &recordingNotifier{}

	opts := defaultOptions()
	opts.DryRun = true
	svc := New(opts, fetcher, store, []alerting.Notifier{notifier}, testLogger())
	targets := []config.Target{{ID: "usd-jpy", Name: "USD/JPY", URL: "https://example.com/usd-jpy", Selector: ".rate"}}

	report, err := svc.RunOnce(ctx, targets)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// The fresh value joined the history window: mean(10,11,30)=17, breach.
	res := report.Results[0]
	if res.ShortAvg == nil || *res.ShortAvg != 17.0 {
		t.Fatalf("fresh observation should participate in the averages, got %+v", res)
	}
	if !res.ShouldAlert {
		t.Fatal("expected an alert from the augmented history")
	}

	// But nothing was written.
	history, err := store.RecentHistory(ctx, "usd-jpy", 24*time.Hour)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("dry run must not persist, store has %d entries", len(history))
	}
}

func TestRunOnceWithoutStore(t *testing.T) {
	fetcher := &pageFetcher{pages: map[string]string{
		"https://example.com/usd-jpy": ratePage("142.31"),
	}}

	svc := New(defaultOptions(), fetcher, nil, nil, testLogger())
	targets := []config.Target{{ID: "usd-jpy", Name: "USD/JPY", URL: "https://example.com/usd-jpy", Selector: ".rate"}}

	report, err := svc.RunOnce(context.Background(), targets)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	res := report.Results[0]
	if res.Current == nil || *res.Current != 142.31 {
		t.Fatalf("analysis should see the fresh observation, got %+v", res)
	}
}

func TestRunOnceNotifierFailureDoesNotFailTarget(t *testing.T) {
	fetcher := &pageFetcher{pages: map[string]string{
		"https://example.com/usd-jpy": ratePage("100"),
	}}
	failing := failingNotifier{}
	healthy := &recordingNotifier{}

	svc := New(defaultOptions(), fetcher, nil, []alerting.Notifier{failing, healthy}, testLogger())
	targets := []config.Target{{ID: "usd-jpy", Name: "USD/JPY", URL: "https://example.com/usd-jpy", Selector: ".rate"}}

	report, err := svc.RunOnce(context.Background(), targets)
	if err != nil {
		t.Fatalf("notification failures must not fail the run: %v", err)
	}
	if len(report.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	if len(healthy.results) != 1 {
		t.Fatal("remaining channels should still be attempted")
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, analyzer.Result) error {
	return errors.New("channel down")
}
