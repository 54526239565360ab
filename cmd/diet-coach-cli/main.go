package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"diet-coach/internal/conversation"
	"diet-coach/internal/metabolic"
	"diet-coach/internal/models"
	"diet-coach/internal/storage"
	"diet-coach/internal/trend"
)

var completions = []string{
	"help", "reset", "start", "plan", "log ", "history", "guide",
	"profile show", "profile set ",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "diet-coach-cli",
		Short:         "Local diet coach: plans, weight logs and a chat console",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var (
		driver string
		path   string
		userID string
	)
	root.PersistentFlags().StringVar(&driver, "store", storage.DriverFile, "Session store: file or sqlite")
	root.PersistentFlags().StringVar(&path, "path", defaultDataPath(), "Session directory or SQLite file")
	root.PersistentFlags().StringVar(&userID, "user", "local", "User ID for the session")

	openStore := func() (storage.Store, error) {
		store, err := storage.Open(storage.Config{Driver: driver, Path: path})
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return store, nil
	}

	root.AddCommand(
		newPlanCmd(),
		newChatCmd(openStore, &userID),
		newHistoryCmd(openStore, &userID),
	)
	return root
}

func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".diet-coach"
	}
	return filepath.Join(home, ".diet-coach")
}

func newPlanCmd() *cobra.Command {
	var (
		in           metabolic.Input
		goalWeight   float64
		deadlineDays int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute calorie and macro targets without storing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("goal") {
				in.GoalWeight = &goalWeight
			}
			if cmd.Flags().Changed("deadline") {
				in.DeadlineDays = &deadlineDays
			}
			in.Sex = strings.ToLower(in.Sex)
			in.Activity = strings.ToLower(in.Activity)
			if _, err := models.ParseMode(in.Mode); err != nil {
				return err
			}
			plan, err := metabolic.BuildPlan(in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), conversation.FormatPlan(plan))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Sex, "sex", "", "male or female")
	f.IntVar(&in.Age, "age", 0, "Age in years")
	f.Float64Var(&in.HeightCm, "height", 0, "Height in cm")
	f.Float64Var(&in.WeightKg, "weight", 0, "Weight in kg")
	f.StringVar(&in.Activity, "activity", string(models.Moderate), "sedentary, light, moderate, active or very_active")
	f.StringVar(&in.Mode, "mode", string(models.Recomp), "cut, recomp or bulk")
	f.Float64Var(&goalWeight, "goal", 0, "Goal weight in kg")
	f.IntVar(&deadlineDays, "deadline", 0, "Days to reach the goal weight")
	for _, name := range []string{"sex", "age", "height", "weight"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newChatCmd(openStore func() (storage.Store, error), userID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the coach the way the messaging bot does",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			return runChat(cmd.Context(), conversation.NewMachine(store), *userID, cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, machine *conversation.Machine, userID string, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var matches []string
		for _, c := range completions {
			if strings.HasPrefix(c, strings.ToLower(prefix)) {
				matches = append(matches, c)
			}
		}
		return matches
	})

	fmt.Fprintln(out, "Send 'help' for commands, 'quit' or Ctrl-D to exit.")
	for {
		text, err := line.Prompt("you> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			return nil
		}
		line.AppendHistory(text)

		res, err := machine.Handle(ctx, userID, text)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "coach> %s\n", res.Reply)
	}
}

func newHistoryCmd(openStore func() (storage.Store, error), userID *string) *cobra.Command {
	var window int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarise the stored weight history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sess, err := store.Load(cmd.Context(), *userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if window > 0 {
				s := trend.SummariseHistory(sess.History, window)
				if s.Count == 0 {
					fmt.Fprintln(out, "No weight history yet.")
					return nil
				}
				fmt.Fprintf(out, "%dd: %s→%s (%s) avg %.2fkg change %.2fkg\n",
					window, s.From, s.To, s.Trend.Arrow(), s.Avg, s.Delta)
				return nil
			}
			week := trend.SummariseHistory(sess.History, 7)
			month := trend.SummariseHistory(sess.History, 30)
			fmt.Fprintln(out, conversation.FormatHistory(week, month))
			return nil
		},
	}
	cmd.Flags().IntVar(&window, "window", 0, "Custom window in days")
	return cmd
}
