package models

import (
	"fmt"
	"strings"
)

type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

type Activity string

const (
	Sedentary  Activity = "sedentary"
	Light      Activity = "light"
	Moderate   Activity = "moderate"
	Active     Activity = "active"
	VeryActive Activity = "very_active"
)

// Activities lists the activity levels in ascending order of energy expenditure.
var Activities = []Activity{Sedentary, Light, Moderate, Active, VeryActive}

type Mode string

const (
	Cut    Mode = "cut"
	Recomp Mode = "recomp"
	Bulk   Mode = "bulk"
)

var Modes = []Mode{Cut, Recomp, Bulk}

// ParseSex accepts male/female in any case.
func ParseSex(s string) (Sex, error) {
	switch v := Sex(strings.ToLower(strings.TrimSpace(s))); v {
	case Male, Female:
		return v, nil
	}
	return "", fmt.Errorf("%w: sex must be 'male' or 'female'", ErrInvalidInput)
}

func ParseActivity(s string) (Activity, error) {
	v := Activity(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range Activities {
		if a == v {
			return v, nil
		}
	}
	names := make([]string, len(Activities))
	for i, a := range Activities {
		names[i] = string(a)
	}
	return "", fmt.Errorf("%w: activity must be one of: %s", ErrInvalidInput, strings.Join(names, ", "))
}

func ParseMode(s string) (Mode, error) {
	v := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range Modes {
		if m == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: mode must be one of: cut, recomp, bulk", ErrInvalidInput)
}

// Profile holds the biometric inputs collected during onboarding. Every field is
// optional while onboarding is in progress.
type Profile struct {
	Sex          *Sex      `json:"sex,omitempty"`
	Age          *int      `json:"age,omitempty"`
	HeightCm     *float64  `json:"height_cm,omitempty"`
	WeightKg     *float64  `json:"weight_kg,omitempty"`
	Activity     *Activity `json:"activity,omitempty"`
	Mode         *Mode     `json:"mode,omitempty"`
	GoalWeight   *float64  `json:"goal_weight,omitempty"`
	DeadlineDays *int      `json:"deadline_days,omitempty"`
}

// Missing returns the required fields that have not been set, in onboarding order.
func (p Profile) Missing() []string {
	var missing []string
	if p.Sex == nil {
		missing = append(missing, "sex")
	}
	if p.Age == nil {
		missing = append(missing, "age")
	}
	if p.HeightCm == nil {
		missing = append(missing, "height_cm")
	}
	if p.WeightKg == nil {
		missing = append(missing, "weight_kg")
	}
	if p.Activity == nil {
		missing = append(missing, "activity")
	}
	if p.Mode == nil {
		missing = append(missing, "mode")
	}
	return missing
}

func (p Profile) IsComplete() bool {
	return len(p.Missing()) == 0
}

// Validate returns an *IncompleteProfileError when a required field is absent.
func (p Profile) Validate() error {
	if missing := p.Missing(); len(missing) > 0 {
		return &IncompleteProfileError{Missing: missing}
	}
	return nil
}

// ModeOrDefault returns the configured mode, or recomp when none is set.
func (p Profile) ModeOrDefault() Mode {
	if p.Mode == nil || *p.Mode == "" {
		return Recomp
	}
	return *p.Mode
}

// Ptr returns a pointer to v. Used to populate optional profile fields.
func Ptr[T any](v T) *T {
	return &v
}
