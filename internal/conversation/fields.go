package conversation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"diet-coach/internal/models"
)

// field describes one onboarding question. apply parses, validates and stores
// the answer; it leaves the profile untouched on error.
type field struct {
	key      string
	prompt   string
	hint     string
	optional bool
	apply    func(p *models.Profile, raw string) error
	value    func(p models.Profile) (string, bool)
}

func newField[T any](key, prompt, hint string, optional bool, parse func(string) (T, error), slot func(*models.Profile) **T) field {
	return field{
		key:      key,
		prompt:   prompt,
		hint:     hint,
		optional: optional,
		apply: func(p *models.Profile, raw string) error {
			raw = strings.TrimSpace(raw)
			if optional && strings.EqualFold(raw, "skip") {
				*slot(p) = nil
				return nil
			}
			v, err := parse(raw)
			if err != nil {
				return err
			}
			*slot(p) = &v
			return nil
		},
		value: func(p models.Profile) (string, bool) {
			ptr := *slot(&p)
			if ptr == nil {
				return "", false
			}
			return fmt.Sprint(*ptr), true
		},
	}
}

var onboardingFields = []field{
	newField("sex", "Enter your sex (male/female)", "Please enter male or female.", false,
		models.ParseSex, func(p *models.Profile) **models.Sex { return &p.Sex }),
	newField("age", "Enter your age (whole number)", "Please enter your age as a whole number.", false,
		parsePositiveInt, func(p *models.Profile) **int { return &p.Age }),
	newField("height_cm", "Enter your height in cm. e.g. 170", "Please enter your height as a number, e.g. 170.", false,
		parsePositiveFloat, func(p *models.Profile) **float64 { return &p.HeightCm }),
	newField("weight_kg", "Enter your weight in kg. e.g. 65", "Please enter your weight as a number, e.g. 65.", false,
		parsePositiveFloat, func(p *models.Profile) **float64 { return &p.WeightKg }),
	newField("activity", "Activity level (sedentary/light/moderate/active/very_active)", "Choose one of sedentary/light/moderate/active/very_active.", false,
		models.ParseActivity, func(p *models.Profile) **models.Activity { return &p.Activity }),
	newField("mode", "Mode (cut/recomp/bulk)", "Choose one of cut/recomp/bulk.", false,
		models.ParseMode, func(p *models.Profile) **models.Mode { return &p.Mode }),
	newField("goal_weight", "Goal weight in kg (optional, send 'skip' to skip)", "Please enter a number or 'skip'.", true,
		parsePositiveFloat, func(p *models.Profile) **float64 { return &p.GoalWeight }),
	newField("deadline_days", "Deadline in days (optional, send 'skip' to skip)", "Please enter a whole number of days or 'skip'.", true,
		parsePositiveInt, func(p *models.Profile) **int { return &p.DeadlineDays }),
}

var fieldsByKey = func() map[string]field {
	m := make(map[string]field, len(onboardingFields))
	for _, f := range onboardingFields {
		m[f.key] = f
	}
	return m
}()

// OnboardingKeys returns the onboarding field keys in question order.
func OnboardingKeys() []string {
	keys := make([]string, len(onboardingFields))
	for i, f := range onboardingFields {
		keys[i] = f.key
	}
	return keys
}

func parsePositiveInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", models.ErrInvalidInput, s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %d must be positive", models.ErrInvalidInput, v)
	}
	return v, nil
}

func parsePositiveFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", models.ErrInvalidInput, s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", models.ErrInvalidInput, s)
	}
	return v, nil
}
