package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diet-coach/internal/models"
)

type memStore struct {
	sessions map[string]*models.Session
	saves    int
	failLoad error
	failSave error
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*models.Session)}
}

func (m *memStore) Load(_ context.Context, userID string) (*models.Session, error) {
	if m.failLoad != nil {
		return nil, m.failLoad
	}
	sess, ok := m.sessions[userID]
	if !ok {
		return models.NewSession(), nil
	}
	cp := *sess
	cp.History = append([]models.WeightEntry{}, sess.History...)
	return &cp, nil
}

func (m *memStore) Save(_ context.Context, userID string, sess *models.Session) error {
	if m.failSave != nil {
		return m.failSave
	}
	cp := *sess
	cp.History = append([]models.WeightEntry{}, sess.History...)
	m.sessions[userID] = &cp
	m.saves++
	return nil
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time {
	return c.t
}

func setupMachine(t *testing.T) (*Machine, *memStore, *testClock) {
	t.Helper()
	store := newMemStore()
	clock := &testClock{t: time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)}
	return NewMachine(store, WithClock(clock.Now)), store, clock
}

func send(t *testing.T, m *Machine, text string) *Result {
	t.Helper()
	res, err := m.Handle(context.Background(), "user-1", text)
	require.NoError(t, err)
	return res
}

var fullAnswers = []string{"male", "30", "175", "70", "sedentary", "cut", "skip", "skip"}

func TestOnboardingKeys(t *testing.T) {
	assert.Equal(t,
		[]string{"sex", "age", "height_cm", "weight_kg", "activity", "mode", "goal_weight", "deadline_days"},
		OnboardingKeys())
}

func TestOnboarding_CompleteFlow(t *testing.T) {
	m, store, _ := setupMachine(t)

	res := send(t, m, "start")
	assert.Equal(t, CmdStart, res.Command)
	assert.Contains(t, res.Reply, "【░░░░░░░░░░】 0/8")
	assert.Contains(t, res.Reply, "male/female")

	for i, ans := range fullAnswers {
		res = send(t, m, ans)
		sess := store.sessions["user-1"]
		assert.Equal(t, i+1, sess.OnboardIdx, "after answer %d", i)
	}

	sess := store.sessions["user-1"]
	assert.Equal(t, models.StageIdle, sess.Stage)
	assert.Equal(t, 8, sess.OnboardIdx)
	assert.True(t, res.Completed)
	assert.Contains(t, res.Reply, "Onboarding complete!")
	assert.Contains(t, res.Reply, "【██████████】 8/8")
	assert.Contains(t, res.Reply, "Target: 1478 kcal")
	assert.Nil(t, sess.Profile.GoalWeight)
	assert.Nil(t, sess.Profile.DeadlineDays)
	require.NotNil(t, sess.Profile.Sex)
	assert.Equal(t, models.Male, *sess.Profile.Sex)
}

func TestOnboarding_WithGoal(t *testing.T) {
	m, store, _ := setupMachine(t)

	send(t, m, "start")
	for _, ans := range []string{"Male", "30", "175", "70", "SEDENTARY", "Cut", "60", "10"} {
		send(t, m, ans)
	}

	sess := store.sessions["user-1"]
	require.NotNil(t, sess.Profile.GoalWeight)
	assert.Equal(t, 60.0, *sess.Profile.GoalWeight)
	assert.Equal(t, 10, *sess.Profile.DeadlineDays)

	res := send(t, m, "plan")
	assert.Contains(t, res.Reply, "Δ -750")
	assert.Contains(t, res.Reply, "Note:")
}

func TestOnboarding_InvalidAnswersReprompt(t *testing.T) {
	tests := []struct {
		name    string
		prefix  []string
		invalid string
		prompt  string
	}{
		{"sex", nil, "other", "male/female"},
		{"age_not_number", []string{"male"}, "thirty", "age"},
		{"age_fractional", []string{"male"}, "30.5", "age"},
		{"age_zero", []string{"male"}, "0", "age"},
		{"height", []string{"male", "30"}, "tall", "height"},
		{"weight_negative", []string{"male", "30", "175"}, "-70", "weight"},
		{"activity", []string{"male", "30", "175", "70"}, "lazy", "very_active"},
		{"mode", []string{"male", "30", "175", "70", "light"}, "maintain", "cut/recomp/bulk"},
		{"required_skip", []string{"male", "30", "175", "70", "light"}, "skip", "cut/recomp/bulk"},
		{"goal_weight", []string{"male", "30", "175", "70", "light", "cut"}, "slim", "Goal weight"},
		{"deadline", []string{"male", "30", "175", "70", "light", "cut", "65"}, "-3", "Deadline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store, _ := setupMachine(t)
			send(t, m, "start")
			for _, ans := range tt.prefix {
				send(t, m, ans)
			}
			before := *store.sessions["user-1"]

			res := send(t, m, tt.invalid)
			after := store.sessions["user-1"]

			assert.Equal(t, CmdAnswer, res.Command)
			assert.False(t, res.Dirty)
			assert.Equal(t, len(tt.prefix), after.OnboardIdx)
			assert.Equal(t, before.Profile, after.Profile)
			assert.Equal(t, models.StageOnboarding, after.Stage)
			assert.Contains(t, res.Reply, tt.prompt)
			assert.Contains(t, res.Reply, fmt.Sprintf("%d/8", len(tt.prefix)))
		})
	}
}

func TestOnboarding_CommandsTakePriority(t *testing.T) {
	m, store, _ := setupMachine(t)
	send(t, m, "start")
	send(t, m, "female")

	res := send(t, m, "HELP")
	assert.Equal(t, CmdHelp, res.Command)
	assert.Equal(t, 1, store.sessions["user-1"].OnboardIdx)

	res = send(t, m, "start")
	assert.Equal(t, CmdStart, res.Command)
	assert.Equal(t, 0, store.sessions["user-1"].OnboardIdx)
	assert.Equal(t, models.StageOnboarding, store.sessions["user-1"].Stage)
}

func TestOnboarding_IndexPastEndFinishes(t *testing.T) {
	sess := models.NewSession()
	sess.Stage = models.StageOnboarding
	sess.OnboardIdx = 12

	res := Step(sess, "anything", time.Now())
	assert.True(t, res.Completed)
	assert.Equal(t, models.StageIdle, res.Session.Stage)
	assert.Contains(t, res.Reply, "Some settings are missing")
}

func TestPlan_Incomplete(t *testing.T) {
	m, _, _ := setupMachine(t)

	res := send(t, m, "plan")
	assert.Equal(t, CmdPlan, res.Command)
	assert.Contains(t, res.Reply, "incomplete")
	assert.Contains(t, res.Reply, "'start'")
	assert.Contains(t, res.Reply, "sex, age, height_cm, weight_kg, activity, mode")
}

func TestLog_AppendsAndSuggests(t *testing.T) {
	m, store, clock := setupMachine(t)

	res := send(t, m, "log 80")
	assert.Equal(t, CmdLog, res.Command)
	assert.Contains(t, res.Reply, "Logged: 80 kg")

	clock.t = clock.t.Add(24 * time.Hour)
	res = send(t, m, "Log 79.456")
	assert.Contains(t, res.Reply, "Logged: 79.46 kg")

	sess := store.sessions["user-1"]
	require.Len(t, sess.History, 2)
	assert.Equal(t, 79.46, sess.History[1].Weight)
	assert.Equal(t, clock.t, sess.History[1].Timestamp)
	// no mode set: recomp thresholds
	assert.Contains(t, res.Reply, "1-2 week average")
}

func TestLog_UsesProfileMode(t *testing.T) {
	m, _, clock := setupMachine(t)
	send(t, m, "profile set mode cut")

	send(t, m, "log 80")
	clock.t = clock.t.Add(24 * time.Hour)
	res := send(t, m, "log 79.0")
	assert.Contains(t, res.Reply, "losing too fast")
}

func TestLog_Malformed(t *testing.T) {
	m, store, _ := setupMachine(t)

	for _, in := range []string{"log", "log abc", "log -5", "log NaN"} {
		res := send(t, m, in)
		assert.Equal(t, CmdLog, res.Command, in)
		assert.Contains(t, res.Reply, "Example: log 65.2", in)
		assert.False(t, res.Dirty, in)
	}
	assert.Equal(t, 0, store.saves)
}

func TestHistory(t *testing.T) {
	m, _, clock := setupMachine(t)

	res := send(t, m, "history")
	assert.Contains(t, res.Reply, "No weight history yet")

	send(t, m, "log 80")
	clock.t = clock.t.AddDate(0, 0, 20)
	send(t, m, "log 78")

	res = send(t, m, "history")
	assert.Contains(t, res.Reply, "📈 History")
	assert.Contains(t, res.Reply, "7d: 2024-05-21→2024-05-21 (→) avg 78kg change 0kg")
	assert.Contains(t, res.Reply, "30d: 2024-05-01→2024-05-21 (↘) avg 79kg change -2kg")
}

func TestGuide(t *testing.T) {
	m, _, _ := setupMachine(t)

	res := send(t, m, "guide")
	assert.Equal(t, msgNeedsProfile, res.Reply)

	send(t, m, "profile set mode bulk")
	res = send(t, m, "guide")
	assert.Contains(t, res.Reply, "Guide (bulk)")
}

func TestProfileSetAndShow(t *testing.T) {
	m, store, _ := setupMachine(t)

	tests := []struct {
		input string
		reply string
	}{
		{"profile set age 41", "Updated: age = 41"},
		{"profile set height_cm 172.5", "Updated: height_cm = 172.5"},
		{"profile set Activity Active", "Updated: activity = active"},
		{"profile set goal_weight 62", "Updated: goal_weight = 62"},
		{"profile set deadline_days 90", "Updated: deadline_days = 90"},
		{"profile set goal_weight skip", "Updated: goal_weight = (unset)"},
	}
	for _, tt := range tests {
		res := send(t, m, tt.input)
		assert.Equal(t, CmdProfileSet, res.Command)
		assert.Equal(t, tt.reply, res.Reply)
	}

	p := store.sessions["user-1"].Profile
	assert.Equal(t, 41, *p.Age)
	assert.Equal(t, 172.5, *p.HeightCm)
	assert.Equal(t, models.Active, *p.Activity)
	assert.Nil(t, p.GoalWeight)

	res := send(t, m, "profile show")
	assert.Equal(t, CmdProfileShow, res.Command)
	assert.Contains(t, res.Reply, `"age":41`)
	assert.Contains(t, res.Reply, `"activity":"active"`)
}

func TestProfileSet_Malformed(t *testing.T) {
	m, store, _ := setupMachine(t)

	for _, in := range []string{"profile set", "profile set age", "profile set age old", "profile set colour blue", "profile set sex robot"} {
		res := send(t, m, in)
		assert.Equal(t, CmdProfileSet, res.Command, in)
		assert.Contains(t, res.Reply, "Example: profile set activity active", in)
	}
	assert.Equal(t, 0, store.saves)
}

func TestReset(t *testing.T) {
	m, store, _ := setupMachine(t)
	send(t, m, "log 70")
	send(t, m, "start")
	send(t, m, "male")

	res := send(t, m, " RESET ")
	assert.Equal(t, CmdReset, res.Command)

	sess := store.sessions["user-1"]
	assert.Equal(t, models.NewSession(), sess)
}

func TestUnknownCommand(t *testing.T) {
	m, store, _ := setupMachine(t)

	res := send(t, m, "what should I eat")
	assert.Equal(t, CmdUnknown, res.Command)
	assert.Contains(t, res.Reply, "'help'")
	assert.Equal(t, 0, store.saves)

	res = send(t, m, "profile")
	assert.Equal(t, CmdUnknown, res.Command)
}

func TestCommandAliases(t *testing.T) {
	m, store, _ := setupMachine(t)

	res := send(t, m, "ヘルプ")
	assert.Equal(t, CmdHelp, res.Command)

	res = send(t, m, " 開始 ")
	assert.Equal(t, CmdStart, res.Command)
	assert.Equal(t, models.StageOnboarding, store.sessions["user-1"].Stage)

	res = send(t, m, "リセット")
	assert.Equal(t, CmdReset, res.Command)
	assert.Equal(t, models.NewSession(), store.sessions["user-1"])
}

func TestHandle_PersistenceErrors(t *testing.T) {
	m, store, _ := setupMachine(t)

	store.failSave = fmt.Errorf("disk gone: %w", models.ErrPersistenceUnavailable)
	_, err := m.Handle(context.Background(), "user-1", "log 70")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrPersistenceUnavailable))

	// read-only commands never save
	res, err := m.Handle(context.Background(), "user-1", "help")
	require.NoError(t, err)
	assert.Equal(t, CmdHelp, res.Command)

	store.failLoad = models.ErrPersistenceUnavailable
	_, err = m.Handle(context.Background(), "user-1", "help")
	assert.ErrorIs(t, err, models.ErrPersistenceUnavailable)
}

func TestStep_NilSession(t *testing.T) {
	res := Step(nil, "help", time.Now())
	require.NotNil(t, res.Session)
	assert.Equal(t, models.StageIdle, res.Session.Stage)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "【░░░░░░░░░░】 0/8", ProgressBar(0, 8, 10))
	assert.Equal(t, "【███░░░░░░░】 3/8", ProgressBar(3, 8, 10))
	assert.Equal(t, "【██████████】 8/8", ProgressBar(12, 8, 10))
	assert.Equal(t, "【░░░░░░░░░░】 0/0", ProgressBar(3, 0, 10))
}
