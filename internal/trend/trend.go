// Package trend summarises a weight history and classifies recent progress.
package trend

import (
	"math"
	"strconv"
	"time"

	"diet-coach/internal/models"
)

type Direction string

const (
	Down Direction = "down"
	Up   Direction = "up"
	Flat Direction = "flat"
)

// Arrow returns the glyph used when rendering a summary.
func (d Direction) Arrow() string {
	switch d {
	case Down:
		return "↘"
	case Up:
		return "↗"
	}
	return "→"
}

// Summary describes the entries inside one window. A zero Count means the
// window was empty and the remaining fields are unset.
type Summary struct {
	Count int       `json:"count"`
	From  string    `json:"from,omitempty"`
	To    string    `json:"to,omitempty"`
	Start float64   `json:"start"`
	End   float64   `json:"end"`
	Avg   float64   `json:"avg"`
	Delta float64   `json:"delta"`
	Trend Direction `json:"trend,omitempty"`
}

const trendThresholdKg = 0.3

// SummariseHistory summarises the entries within windowDays whole days of the
// most recent entry.
func SummariseHistory(history []models.WeightEntry, windowDays int) Summary {
	if len(history) == 0 {
		return Summary{}
	}

	cutoff := history[len(history)-1].Timestamp
	var window []models.WeightEntry
	for _, e := range history {
		if wholeDays(cutoff.Sub(e.Timestamp)) <= windowDays {
			window = append(window, e)
		}
	}
	if len(window) == 0 {
		return Summary{}
	}

	sum := 0.0
	for _, e := range window {
		sum += e.Weight
	}
	first, last := window[0], window[len(window)-1]
	delta := last.Weight - first.Weight

	dir := Flat
	if delta < -trendThresholdKg {
		dir = Down
	} else if delta > trendThresholdKg {
		dir = Up
	}

	return Summary{
		Count: len(window),
		From:  first.Timestamp.Format(time.DateOnly),
		To:    last.Timestamp.Format(time.DateOnly),
		Start: round2(first.Weight),
		End:   round2(last.Weight),
		Avg:   round2(sum / float64(len(window))),
		Delta: round2(delta),
		Trend: dir,
	}
}

// wholeDays floors a duration to whole days, matching calendar-agnostic day
// arithmetic on timestamps.
func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

// round2 rounds the exact binary value of v to two decimals, ties to even.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
