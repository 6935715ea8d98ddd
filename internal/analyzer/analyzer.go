package analyzer

import (
	"fmt"
	"math"

	"rate-monitor/internal/storage"
)

// Result aggregates one evaluation of a target's rate history.
//
// Pointer fields are nil when the underlying quantity is unavailable:
// averages require a full window, percent changes require a present,
// non-zero average. ShouldAlert is true exactly when Reason is non-empty.
type Result struct {
	TargetID           string   `json:"target_id"`
	Current            *float64 `json:"current"`
	ShortAvg           *float64 `json:"short_avg"`
	LongAvg            *float64 `json:"long_avg"`
	ChangeFromShortPct *float64 `json:"change_from_short_pct"`
	ChangeFromLongPct  *float64 `json:"change_from_long_pct"`
	ShouldAlert        bool     `json:"should_alert"`
	Reason             string   `json:"reason,omitempty"`
}

// Analyze computes moving-average statistics over history and decides whether
// to alert. History must be ordered ascending by timestamp. Pure function.
//
// A short-window breach takes priority: the long-window reason is only used
// when the short-window change is absent or inside the threshold.
func Analyze(history []storage.Observation, windowShort, windowLong int, thresholdPct float64, targetID string) Result {
	res := Result{TargetID: targetID}
	if len(history) == 0 {
		return res
	}

	current := history[len(history)-1].Value
	res.Current = &current
	res.ShortAvg = tailAverage(history, windowShort)
	res.LongAvg = tailAverage(history, windowLong)
	res.ChangeFromShortPct = pctChange(current, res.ShortAvg)
	res.ChangeFromLongPct = pctChange(current, res.LongAvg)

	switch {
	case breaches(res.ChangeFromShortPct, thresholdPct):
		res.ShouldAlert = true
		res.Reason = fmt.Sprintf("change from short average exceeded %g%%", thresholdPct)
	case breaches(res.ChangeFromLongPct, thresholdPct):
		res.ShouldAlert = true
		res.Reason = fmt.Sprintf("change from long average exceeded %g%%", thresholdPct)
	}

	return res
}

// tailAverage returns the arithmetic mean of the most recent window values,
// or nil when history holds fewer than window entries.
func tailAverage(history []storage.Observation, window int) *float64 {
	if window <= 0 || len(history) < window {
		return nil
	}
	sum := 0.0
	for _, obs := range history[len(history)-window:] {
		sum += obs.Value
	}
	avg := sum / float64(window)
	return &avg
}

func pctChange(current float64, base *float64) *float64 {
	if base == nil || *base == 0 {
		return nil
	}
	change := (current - *base) / *base * 100
	return &change
}

func breaches(change *float64, thresholdPct float64) bool {
	return change != nil && math.Abs(*change) > thresholdPct
}
