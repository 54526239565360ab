// Package metabolic computes energy expenditure and calorie/macro targets.
// All functions are pure.
package metabolic

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"diet-coach/internal/models"
)

const (
	// KcalPerKg is the approximate energy content of 1 kg of body mass.
	KcalPerKg = 7700.0

	MaxDailyDeficit = -750.0
	MaxDailySurplus = 500.0
	MinTargetKcal   = 1200

	// CapNote is attached to a plan when the goal/deadline delta was clamped.
	CapNote = "For safety the daily change was capped to the -750/+500 kcal range."
)

var activityFactors = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

var modeDeltas = map[models.Mode]float64{
	models.Cut:    -500,
	models.Bulk:   300,
	models.Recomp: 0,
}

// ComputeBMR estimates basal metabolic rate with the Mifflin-St Jeor equation.
func ComputeBMR(sex string, weightKg, heightCm float64, age int) (float64, error) {
	s := strings.ToLower(sex)
	if s != string(models.Male) && s != string(models.Female) {
		return 0, fmt.Errorf("%w: sex must be 'male' or 'female'", models.ErrInvalidInput)
	}

	base := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if s == string(models.Male) {
		base += 5
	} else {
		base -= 161
	}
	return Round2(base), nil
}

func ActivityFactor(activity string) (float64, error) {
	f, ok := activityFactors[activity]
	if !ok {
		return 0, fmt.Errorf("%w: activity must be one of: sedentary, light, moderate, active, very_active", models.ErrInvalidInput)
	}
	return f, nil
}

func ComputeTDEE(bmr float64, activity string) (float64, error) {
	f, err := ActivityFactor(activity)
	if err != nil {
		return 0, err
	}
	return Round2(bmr * f), nil
}

// Input carries the values a plan is built from. GoalWeight and DeadlineDays
// only take effect when both are set and the deadline is positive.
type Input struct {
	Sex          string
	Age          int
	HeightCm     float64
	WeightKg     float64
	Activity     string
	Mode         string
	GoalWeight   *float64
	DeadlineDays *int
}

// InputFromProfile converts a complete profile into plan inputs.
func InputFromProfile(p models.Profile) (Input, error) {
	if err := p.Validate(); err != nil {
		return Input{}, err
	}
	return Input{
		Sex:          string(*p.Sex),
		Age:          *p.Age,
		HeightCm:     *p.HeightCm,
		WeightKg:     *p.WeightKg,
		Activity:     string(*p.Activity),
		Mode:         string(*p.Mode),
		GoalWeight:   p.GoalWeight,
		DeadlineDays: p.DeadlineDays,
	}, nil
}

// PlanForProfile validates the profile and builds its plan.
func PlanForProfile(p models.Profile) (*models.Plan, error) {
	in, err := InputFromProfile(p)
	if err != nil {
		return nil, err
	}
	return BuildPlan(in)
}

func BuildPlan(in Input) (*models.Plan, error) {
	bmr, err := ComputeBMR(in.Sex, in.WeightKg, in.HeightCm, in.Age)
	if err != nil {
		return nil, err
	}
	tdee, err := ComputeTDEE(bmr, in.Activity)
	if err != nil {
		return nil, err
	}

	mode := models.Mode(strings.ToLower(in.Mode))
	if mode == "" {
		mode = models.Recomp
	}
	notes := []string{}

	delta := 0.0
	if in.GoalWeight != nil && in.DeadlineDays != nil && *in.DeadlineDays > 0 {
		deltaKg := *in.GoalWeight - in.WeightKg
		raw := deltaKg * KcalPerKg / float64(*in.DeadlineDays)
		delta = math.Max(math.Min(raw, MaxDailySurplus), MaxDailyDeficit)
		if math.Abs(raw-delta) > 1e-6 {
			notes = append(notes, CapNote)
		}
	}

	// A zero delta falls back to the mode preset, including goal == current weight.
	if delta == 0 {
		delta = modeDeltas[mode]
	}

	target := max(roundInt(tdee+delta), MinTargetKcal)

	// Protein ratio kept as max(2.0, 1.6) g/kg.
	protein := math.Max(2.0*in.WeightKg, 1.6*in.WeightKg)
	fat := math.Max(0.6*in.WeightKg, 40.0)
	remaining := math.Max(float64(target)-(protein*4+fat*9), 100.0)
	carb := remaining / 4.0

	return &models.Plan{
		BMR:             bmr,
		TDEE:            tdee,
		MaintenanceKcal: roundInt(tdee),
		TargetKcal:      target,
		DeltaKcal:       roundInt(delta),
		Mode:            mode,
		ProteinG:        roundInt(protein),
		FatG:            roundInt(fat),
		CarbG:           roundInt(carb),
		Notes:           notes,
	}, nil
}

// Round2 rounds the exact binary value of v to two decimals, ties to even.
func Round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}

func roundInt(v float64) int {
	return int(math.RoundToEven(v))
}
