package exporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"rate-monitor/internal/analyzer"
	"rate-monitor/internal/storage"
)

// WriteHistoryCSV writes raw observations as CSV rows.
func WriteHistoryCSV(path string, observations []storage.Observation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"timestamp", "target_id", "value"}); err != nil {
		return err
	}
	for _, obs := range observations {
		record := []string{
			obs.Timestamp.UTC().Format(time.RFC3339),
			obs.TargetID,
			decimal.NewFromFloat(obs.Value).String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// WriteStatsJSON writes analysis results as an indented JSON array.
func WriteStatsJSON(path string, results []analyzer.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	if results == nil {
		results = []analyzer.Result{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// WriteChartPNG renders one time series per target to a PNG chart.
// Targets with fewer than two observations are skipped; maxPoints caps the
// rendered points per series via downsampling.
func WriteChartPNG(path string, observations []storage.Observation, maxPoints int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	series := buildSeries(observations, maxPoints)
	if len(series) == 0 {
		return errors.New("not enough data points to render a chart")
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Value",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func buildSeries(observations []storage.Observation, maxPoints int) []chart.Series {
	order := make([]string, 0)
	grouped := make(map[string][]storage.Observation)
	for _, obs := range observations {
		if _, seen := grouped[obs.TargetID]; !seen {
			order = append(order, obs.TargetID)
		}
		grouped[obs.TargetID] = append(grouped[obs.TargetID], obs)
	}

	series := make([]chart.Series, 0, len(order))
	for _, targetID := range order {
		points := downsample(grouped[targetID], maxPoints)
		if len(points) < 2 {
			continue
		}
		x := make([]time.Time, len(points))
		y := make([]float64, len(points))
		for i, obs := range points {
			x[i] = obs.Timestamp
			y[i] = obs.Value
		}
		series = append(series, chart.TimeSeries{
			Name:    targetID,
			XValues: x,
			YValues: y,
		})
	}
	return series
}

func downsample(observations []storage.Observation, max int) []storage.Observation {
	if max <= 0 || len(observations) <= max {
		return observations
	}

	result := make([]storage.Observation, 0, max)
	step := float64(len(observations)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(observations) {
			idx = len(observations) - 1
		}
		result = append(result, observations[idx])
	}
	return result
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
