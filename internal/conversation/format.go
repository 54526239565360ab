package conversation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"diet-coach/internal/models"
	"diet-coach/internal/trend"
)

const helpText = `How to use:
- start: begin onboarding (with a progress bar)
- plan: recalculate the plan from your current profile
- log 65.2: record your weight
- history: weight summary (7 days / 30 days)
- profile show / profile set activity active: show or change your profile
- guide: meal guidance for your mode
- reset: clear all state
- help: show this help`

const (
	progressWidth = 10

	msgReset        = "State cleared. Send 'start' to begin onboarding."
	msgUnknown      = "Command not found. Send 'help' to see how to use this bot."
	msgNoHistory    = "No weight history yet. Record one like 'log 65.2'."
	msgNeedsProfile = "Set up your profile first with 'start'."
	msgLogUsage     = "Example: log 65.2"
	msgProfileUsage = "Example: profile set activity active\n         profile set goal_weight 62"
	msgDisclaimer   = "These are estimates, not medical advice."
)

// ProgressBar renders done/total as a fixed-width bar.
func ProgressBar(done, total, width int) string {
	done = max(0, min(done, total))
	filled := 0
	if total > 0 {
		filled = width * done / total
	}
	return "【" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("】 %d/%d", done, total)
}

func FormatPlan(plan *models.Plan) string {
	lines := []string{
		"📊 Plan",
		fmt.Sprintf("BMR: %s kcal / TDEE: %s kcal", num(plan.BMR), num(plan.TDEE)),
		fmt.Sprintf("Target: %d kcal (maintenance %d kcal, Δ %d)", plan.TargetKcal, plan.MaintenanceKcal, plan.DeltaKcal),
		fmt.Sprintf("Macros: P %dg / F %dg / C %dg", plan.ProteinG, plan.FatG, plan.CarbG),
	}
	if len(plan.Notes) > 0 {
		lines = append(lines, "Note: "+strings.Join(plan.Notes, " "))
	}
	lines = append(lines, msgDisclaimer)
	return strings.Join(lines, "\n")
}

// FormatHistory renders the 7- and 30-day summaries, skipping empty windows.
func FormatHistory(week, month trend.Summary) string {
	if week.Count == 0 && month.Count == 0 {
		return msgNoHistory
	}
	lines := []string{"📈 History"}
	if week.Count > 0 {
		lines = append(lines, summaryLine("7d", week))
	}
	if month.Count > 0 {
		lines = append(lines, summaryLine("30d", month))
	}
	return strings.Join(lines, "\n")
}

func summaryLine(label string, s trend.Summary) string {
	return fmt.Sprintf("%s: %s→%s (%s) avg %skg change %skg", label, s.From, s.To, s.Trend.Arrow(), num(s.Avg), num(s.Delta))
}

func GuideText(mode models.Mode) string {
	switch mode {
	case models.Cut:
		return "🍽 Guide (cut): protein at 2 g per kg of body weight, fat around 0.6 g/kg, the rest from carbs. Go easy on late-night snacks and keep your daily movement up."
	case models.Bulk:
		return "🍽 Guide (bulk): protein at 2 g per kg of body weight, carbs concentrated around training. Keep fat low to moderate. Aim for +0.25-0.5 kg per week."
	}
	return "🍽 Guide (recomp): get enough protein while optimising daily activity and sleep. Fine-tune to stay within ±0.25 kg per week."
}

func formatProfile(p models.Profile) string {
	data, err := json.Marshal(p)
	if err != nil {
		return "Profile: unavailable"
	}
	return "Profile: " + string(data)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
