// Package conversation drives the onboarding dialogue and command dispatch
// for a single user's session.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"diet-coach/internal/metabolic"
	"diet-coach/internal/models"
	"diet-coach/internal/trend"
)

// SessionStore loads and persists per-user sessions.
type SessionStore interface {
	Load(ctx context.Context, userID string) (*models.Session, error)
	Save(ctx context.Context, userID string, sess *models.Session) error
}

type Command string

const (
	CmdHelp        Command = "help"
	CmdReset       Command = "reset"
	CmdStart       Command = "start"
	CmdPlan        Command = "plan"
	CmdLog         Command = "log"
	CmdHistory     Command = "history"
	CmdGuide       Command = "guide"
	CmdProfileShow Command = "profile_show"
	CmdProfileSet  Command = "profile_set"
	CmdAnswer      Command = "answer"
	CmdUnknown     Command = "unknown"
)

// commandAliases maps the bot's original Japanese command words onto their
// English equivalents.
var commandAliases = map[string]string{
	"ヘルプ":  "help",
	"リセット": "reset",
	"開始":   "start",
}

// Result is the outcome of applying one message to a session.
type Result struct {
	Reply   string
	Command Command
	Session *models.Session
	// Dirty reports whether Session changed and must be persisted.
	Dirty bool
	// Completed is set on the message that finishes onboarding.
	Completed bool
}

// Step applies text to sess and returns the reply and resulting session. sess
// may be modified in place. Step never fails: malformed input becomes guidance.
func Step(sess *models.Session, text string, now time.Time) Result {
	if sess == nil {
		sess = models.NewSession()
	}
	sess.Normalize()

	raw := strings.TrimSpace(text)
	low := strings.ToLower(raw)
	if alias, ok := commandAliases[low]; ok {
		low = alias
	}
	tokens := strings.Fields(low)

	switch {
	case low == "help":
		return Result{Reply: helpText, Command: CmdHelp, Session: sess}
	case low == "reset":
		return Result{Reply: msgReset, Command: CmdReset, Session: models.NewSession(), Dirty: true}
	case low == "start":
		return start(sess)
	case low == "plan":
		return plan(sess)
	case len(tokens) > 0 && tokens[0] == "log":
		return logWeight(sess, tokens, now)
	case low == "history":
		return history(sess)
	case low == "guide":
		return guide(sess)
	case len(tokens) >= 2 && tokens[0] == "profile" && tokens[1] == "show":
		return Result{Reply: formatProfile(sess.Profile), Command: CmdProfileShow, Session: sess}
	case len(tokens) >= 2 && tokens[0] == "profile" && tokens[1] == "set":
		return profileSet(sess, strings.Fields(raw))
	}

	if sess.Stage == models.StageOnboarding {
		return answer(sess, raw)
	}
	return Result{Reply: msgUnknown, Command: CmdUnknown, Session: sess}
}

func start(sess *models.Session) Result {
	sess.Stage = models.StageOnboarding
	sess.OnboardIdx = 0
	reply := fmt.Sprintf("Starting onboarding.\n%s\n%s",
		ProgressBar(0, len(onboardingFields), progressWidth), onboardingFields[0].prompt)
	return Result{Reply: reply, Command: CmdStart, Session: sess, Dirty: true}
}

func plan(sess *models.Session) Result {
	p, err := metabolic.PlanForProfile(sess.Profile)
	if err != nil {
		return Result{
			Reply:   fmt.Sprintf("Your profile is incomplete: %v\nSend 'start' to set it up.", err),
			Command: CmdPlan,
			Session: sess,
		}
	}
	return Result{Reply: FormatPlan(p), Command: CmdPlan, Session: sess}
}

func logWeight(sess *models.Session, tokens []string, now time.Time) Result {
	fail := func(reason string) Result {
		return Result{Reply: fmt.Sprintf("Failed to log: %s\n%s", reason, msgLogUsage), Command: CmdLog, Session: sess}
	}
	if len(tokens) < 2 {
		return fail("missing weight")
	}
	w, err := parsePositiveFloat(tokens[1])
	if err != nil {
		return fail(err.Error())
	}

	entry, s := AppendWeight(sess, w, now)
	reply := fmt.Sprintf("Logged: %s kg\n%s", num(entry.Weight), s.Message())
	return Result{Reply: reply, Command: CmdLog, Session: sess, Dirty: true}
}

// AppendWeight records weight (rounded to 2 decimals) at the given time and
// classifies the recent trend against the session's mode.
func AppendWeight(sess *models.Session, weight float64, at time.Time) (models.WeightEntry, trend.Suggestion) {
	entry := models.WeightEntry{Timestamp: at, Weight: metabolic.Round2(weight)}
	sess.History = append(sess.History, entry)
	s := trend.SuggestAfterLog(sess.History, string(sess.Profile.ModeOrDefault()), trend.DefaultRecentWindow)
	return entry, s
}

func history(sess *models.Session) Result {
	week := trend.SummariseHistory(sess.History, 7)
	month := trend.SummariseHistory(sess.History, 30)
	return Result{Reply: FormatHistory(week, month), Command: CmdHistory, Session: sess}
}

func guide(sess *models.Session) Result {
	if sess.Profile.Mode == nil {
		return Result{Reply: msgNeedsProfile, Command: CmdGuide, Session: sess}
	}
	return Result{Reply: GuideText(*sess.Profile.Mode), Command: CmdGuide, Session: sess}
}

// profileSet handles "profile set <key> <value>" using the original-case tokens.
func profileSet(sess *models.Session, parts []string) Result {
	usage := Result{Reply: msgProfileUsage, Command: CmdProfileSet, Session: sess}
	if len(parts) < 4 {
		return usage
	}

	key := strings.ToLower(parts[2])
	f, ok := fieldsByKey[key]
	if !ok {
		return usage
	}

	updated := sess.Profile
	if err := f.apply(&updated, parts[3]); err != nil {
		usage.Reply = fmt.Sprintf("%v\n%s", err, msgProfileUsage)
		return usage
	}
	sess.Profile = updated

	value, set := f.value(updated)
	if !set {
		value = "(unset)"
	}
	return Result{Reply: fmt.Sprintf("Updated: %s = %s", key, value), Command: CmdProfileSet, Session: sess, Dirty: true}
}

func answer(sess *models.Session, raw string) Result {
	total := len(onboardingFields)
	if sess.OnboardIdx >= total {
		return finishOnboarding(sess)
	}

	f := onboardingFields[sess.OnboardIdx]
	if err := f.apply(&sess.Profile, raw); err != nil {
		reply := fmt.Sprintf("%s\n%s\n%s", f.hint, ProgressBar(sess.OnboardIdx, total, progressWidth), f.prompt)
		return Result{Reply: reply, Command: CmdAnswer, Session: sess}
	}

	sess.OnboardIdx++
	if sess.OnboardIdx >= total {
		return finishOnboarding(sess)
	}

	next := onboardingFields[sess.OnboardIdx]
	reply := fmt.Sprintf("%s\n%s", ProgressBar(sess.OnboardIdx, total, progressWidth), next.prompt)
	return Result{Reply: reply, Command: CmdAnswer, Session: sess, Dirty: true}
}

func finishOnboarding(sess *models.Session) Result {
	total := len(onboardingFields)
	sess.Stage = models.StageIdle

	res := Result{Command: CmdAnswer, Session: sess, Dirty: true, Completed: true}
	p, err := metabolic.PlanForProfile(sess.Profile)
	if err != nil {
		res.Reply = fmt.Sprintf("Some settings are missing: %v\nSend 'start' to set them up.", err)
		return res
	}
	res.Reply = fmt.Sprintf("Onboarding complete!\n%s\n\n%s", ProgressBar(sess.OnboardIdx, total, progressWidth), FormatPlan(p))
	return res
}

// Machine loads a user's session, applies a message and persists the result.
type Machine struct {
	store SessionStore
	now   func() time.Time
}

type Option func(*Machine)

// WithClock overrides the clock used to timestamp weight entries.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

func NewMachine(store SessionStore, opts ...Option) *Machine {
	m := &Machine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle processes one inbound message for userID. Only persistence failures
// are returned as errors.
func (m *Machine) Handle(ctx context.Context, userID, text string) (*Result, error) {
	sess, err := m.store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	res := Step(sess, text, m.now())
	if res.Dirty {
		if err := m.store.Save(ctx, userID, res.Session); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}
	return &res, nil
}

