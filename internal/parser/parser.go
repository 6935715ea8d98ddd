package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// ExtractionError indicates the selector matched no element in the page.
type ExtractionError struct {
	Selector string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no element found for selector %q", e.Selector)
}

// NormalizationError indicates extracted text could not be read as a decimal.
type NormalizationError struct {
	Raw string
	Err error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("could not parse rate value from %q", e.Raw)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// PageParser extracts a single numeric value from markup via a CSS selector.
type PageParser struct {
	selector string
}

// New constructs a parser bound to one selector.
func New(selector string) *PageParser {
	return &PageParser{selector: selector}
}

// Parse selects the first matching element and normalizes its text to a value.
func (p *PageParser) Parse(html string) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("parse markup: %w", err)
	}

	sel := doc.Find(p.selector).First()
	if sel.Length() == 0 {
		return 0, &ExtractionError{Selector: p.selector}
	}

	return Normalize(strings.TrimSpace(sel.Text()))
}

// Normalize converts locale-ambiguous numeric text into a float64.
//
// Separator handling: a lone comma whose trailing group is exactly three
// digits is a thousands separator ("1,234"); any other lone comma is a
// decimal separator ("1,23"). When both comma and dot appear, commas are
// thousands separators and the dot is the decimal separator ("1,234.56").
// Values like "12,345" from comma-decimal locales are therefore read as
// thousands; downstream consumers rely on this behaviour.
func Normalize(raw string) (float64, error) {
	text := strings.TrimSpace(raw)
	for _, symbol := range []string{"¥", "$", "€"} {
		text = strings.ReplaceAll(text, symbol, "")
	}
	text = strings.ReplaceAll(text, " ", "")

	hasComma := strings.Contains(text, ",")
	hasDot := strings.Contains(text, ".")

	var normalized string
	switch {
	case hasComma && !hasDot:
		idx := strings.LastIndex(text, ",")
		left, right := text[:idx], text[idx+1:]
		if len(right) == 3 && isDigits(left) && isDigits(right) {
			normalized = left + right
		} else {
			normalized = strings.ReplaceAll(text, ",", ".")
		}
	case hasComma && hasDot:
		normalized = strings.ReplaceAll(text, ",", "")
	default:
		normalized = text
	}

	value, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, &NormalizationError{Raw: raw, Err: err}
	}
	return value.InexactFloat64(), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
