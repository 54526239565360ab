package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Stage string

const (
	StageIdle       Stage = "idle"
	StageOnboarding Stage = "onboarding"
)

// WeightEntry is a single weight measurement.
type WeightEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Weight    float64   `json:"weight"`
}

// timestampLayouts are tried in order when decoding stored history. The second
// form is ISO-8601 without a zone offset, as written by older stores.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (e *WeightEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp string  `json:"timestamp"`
		Weight    float64 `json:"weight"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}

	e.Timestamp = ts
	e.Weight = raw.Weight
	return nil
}

// ParseTimestamp parses an ISO-8601 timestamp with or without a zone offset.
// Zone-less values are interpreted as local time.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// Session is the per-user conversation state.
type Session struct {
	Profile    Profile       `json:"profile"`
	History    []WeightEntry `json:"history"`
	Stage      Stage         `json:"stage"`
	OnboardIdx int           `json:"onboard_idx"`
}

// NewSession returns the default state for a user with no stored session.
func NewSession() *Session {
	return &Session{
		History: []WeightEntry{},
		Stage:   StageIdle,
	}
}

// Normalize repairs fields a stored session may be missing.
func (s *Session) Normalize() {
	if s.History == nil {
		s.History = []WeightEntry{}
	}
	if s.Stage != StageOnboarding {
		s.Stage = StageIdle
	}
	if s.OnboardIdx < 0 {
		s.OnboardIdx = 0
	}
}
