package parser

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizeSeparators(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"1,234", 1234.0},
		{"1,23", 1.23},
		{"1,234.56", 1234.56},
		{"¥1,234.56", 1234.56},
		{"$99", 99.0},
		{"€ 1 234,5", 1234.5},
		{"142.31", 142.31},
		{"0,5", 0.5},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.raw)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", tc.raw, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Normalize(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeInvalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "1,234,567", "12.34.56"} {
		_, err := Normalize(raw)
		if err == nil {
			t.Fatalf("Normalize(%q) should fail", raw)
		}
		var normErr *NormalizationError
		if !errors.As(err, &normErr) {
			t.Fatalf("expected NormalizationError, got %T", err)
		}
		if normErr.Raw != raw {
			t.Fatalf("error should carry raw text %q, got %q", raw, normErr.Raw)
		}
	}
}

func TestParseSelectsFirstMatch(t *testing.T) {
	html := `<html><body>
		<div class="rate">¥1,234.56</div>
		<div class="rate">999</div>
	</body></html>`

	value, err := New(".rate").Parse(html)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if value != 1234.56 {
		t.Fatalf("expected 1234.56, got %v", value)
	}
}

func TestParseByID(t *testing.T) {
	html := `<html><body><span id="usd-jpy"> 142.31 </span></body></html>`

	value, err := New("#usd-jpy").Parse(html)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if value != 142.31 {
		t.Fatalf("expected 142.31, got %v", value)
	}
}

func TestParseNoMatch(t *testing.T) {
	_, err := New(".missing").Parse(`<html><body><p>nothing here</p></body></html>`)
	if err == nil {
		t.Fatal("expected error for unmatched selector")
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %T", err)
	}
	if extErr.Selector != ".missing" {
		t.Fatalf("error should carry selector, got %q", extErr.Selector)
	}
}
