package trend

import (
	"strings"

	"diet-coach/internal/models"
)

// Suggestion classifies recent weight movement against the user's mode.
type Suggestion string

const (
	StartLogging Suggestion = "start_logging"

	CutTooFast Suggestion = "cut_too_fast"
	CutGaining Suggestion = "cut_gaining"
	CutOnPace  Suggestion = "cut_on_pace"

	BulkTooFast Suggestion = "bulk_too_fast"
	BulkSlow    Suggestion = "bulk_slow"
	BulkOnPace  Suggestion = "bulk_on_pace"

	RecompStable      Suggestion = "recomp_stable"
	RecompFluctuating Suggestion = "recomp_fluctuating"
)

// DefaultRecentWindow is the number of trailing entries considered.
const DefaultRecentWindow = 7

var suggestionText = map[Suggestion]string{
	StartLogging:      "Keep logging. For the first 1-2 weeks, weigh yourself under the same conditions each time.",
	CutTooFast:        "You may be losing too fast. Consider +20-40 g carbs or +100-150 kcal per day.",
	CutGaining:        "Your weight is going up. Review late-night snacking and keep your daily activity up.",
	CutOnPace:         "Good pace. Keep it up and make sure you get 2 g/kg of protein.",
	BulkTooFast:       "You may be gaining too fast. Consider -10 g fat or -100 kcal per day.",
	BulkSlow:          "If gaining is hard, try adding 30-50 g of carbs.",
	BulkOnPace:        "Good gaining pace. Focus your carbs around training.",
	RecompStable:      "Weight is roughly stable. Work on form and sleep to improve quality.",
	RecompFluctuating: "Weight moves up and down even at maintenance. Judge by the 1-2 week average.",
}

// Message returns the user-facing guidance for s.
func (s Suggestion) Message() string {
	return suggestionText[s]
}

// SuggestAfterLog classifies the daily change across the last recentWindow
// entries. Unrecognised modes are treated as recomp.
func SuggestAfterLog(history []models.WeightEntry, mode string, recentWindow int) Suggestion {
	if len(history) == 0 {
		return StartLogging
	}
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}

	recent := history
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}

	daily := 0.0
	if len(recent) >= 2 {
		first, last := recent[0], recent[len(recent)-1]
		days := max(wholeDays(last.Timestamp.Sub(first.Timestamp)), 1)
		daily = (last.Weight - first.Weight) / float64(days)
	}

	switch models.Mode(strings.ToLower(mode)) {
	case models.Cut:
		switch {
		case daily < -0.15:
			return CutTooFast
		case daily > 0.05:
			return CutGaining
		default:
			return CutOnPace
		}
	case models.Bulk:
		switch {
		case daily > 0.25:
			return BulkTooFast
		case daily < 0.05:
			return BulkSlow
		default:
			return BulkOnPace
		}
	default:
		if daily > -0.05 && daily < 0.05 {
			return RecompStable
		}
		return RecompFluctuating
	}
}
