package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"diet-coach/internal/conversation"
	"diet-coach/internal/metabolic"
	"diet-coach/internal/models"
	"diet-coach/internal/trend"
)

var errInvalidParams = errors.New("invalid parameters")

type toolHandler func(context.Context, *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type ChatParams struct {
	UserID string `json:"user_id" description:"Conversation owner"`
	Text   string `json:"text" description:"Message text, as the user would type it"`
}

type CalculatePlanParams struct {
	Sex          string   `json:"sex" description:"male or female"`
	Age          int      `json:"age" description:"Age in years"`
	HeightCm     float64  `json:"height_cm" description:"Height in centimetres"`
	WeightKg     float64  `json:"weight_kg" description:"Current weight in kilograms"`
	Activity     string   `json:"activity" description:"sedentary, light, moderate, active or very_active"`
	Mode         string   `json:"mode" description:"cut, recomp or bulk"`
	GoalWeight   *float64 `json:"goal_weight,omitempty" description:"Optional goal weight in kilograms"`
	DeadlineDays *int     `json:"deadline_days,omitempty" description:"Optional number of days to reach the goal"`
}

type LogWeightParams struct {
	UserID    string  `json:"user_id" description:"Conversation owner"`
	Weight    float64 `json:"weight" description:"Weight in kilograms"`
	Timestamp string  `json:"timestamp,omitempty" description:"ISO timestamp of the weigh-in (defaults to now)"`
}

type GetHistoryParams struct {
	UserID     string `json:"user_id" description:"Conversation owner"`
	WindowDays int    `json:"window_days,omitempty" description:"Summary window in days (defaults to 7 and 30)"`
}

// extractParams converts the request arguments into target
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal arguments: %v", errInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: failed to unmarshal parameters: %v", errInvalidParams, err)
	}

	return nil
}

func requireUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id is required", errInvalidParams)
	}
	return nil
}

// handleChat runs one message through the conversation machine, exactly as a
// webhook event would.
func (s *CoachServer) handleChat(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ChatParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireUserID(params.UserID); err != nil {
		return nil, err
	}

	res, err := s.machine.Handle(ctx, params.UserID, params.Text)
	if err != nil {
		return nil, err
	}

	return s.createJSONResponse(map[string]interface{}{
		"reply":   res.Reply,
		"command": res.Command,
		"stage":   res.Session.Stage,
	})
}

func (s *CoachServer) handleCalculatePlan(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params CalculatePlanParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Age <= 0 || params.HeightCm <= 0 || params.WeightKg <= 0 {
		return nil, fmt.Errorf("%w: age, height_cm and weight_kg must be positive", errInvalidParams)
	}
	if params.Mode != "" {
		if _, err := models.ParseMode(params.Mode); err != nil {
			return nil, err
		}
	}

	plan, err := metabolic.BuildPlan(metabolic.Input{
		Sex:          strings.ToLower(params.Sex),
		Age:          params.Age,
		HeightCm:     params.HeightCm,
		WeightKg:     params.WeightKg,
		Activity:     strings.ToLower(params.Activity),
		Mode:         strings.ToLower(params.Mode),
		GoalWeight:   params.GoalWeight,
		DeadlineDays: params.DeadlineDays,
	})
	if err != nil {
		return nil, err
	}

	return s.createJSONResponse(map[string]interface{}{
		"plan": plan,
		"text": conversation.FormatPlan(plan),
	})
}

func (s *CoachServer) handleLogWeight(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogWeightParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireUserID(params.UserID); err != nil {
		return nil, err
	}
	if params.Weight <= 0 {
		return nil, fmt.Errorf("%w: weight must be positive", errInvalidParams)
	}

	timestamp := time.Now()
	if params.Timestamp != "" {
		ts, err := models.ParseTimestamp(params.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
		timestamp = ts
	}

	sess, err := s.storage.Load(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess.Normalize()

	// History must stay in non-decreasing timestamp order.
	if n := len(sess.History); n > 0 && timestamp.Before(sess.History[n-1].Timestamp) {
		return nil, fmt.Errorf("%w: timestamp %s is earlier than the last entry at %s",
			errInvalidParams, timestamp.Format(time.RFC3339), sess.History[n-1].Timestamp.Format(time.RFC3339))
	}

	entry, suggestion := conversation.AppendWeight(sess, params.Weight, timestamp)
	if err := s.storage.Save(ctx, params.UserID, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return s.createJSONResponse(map[string]interface{}{
		"entry":      entry,
		"suggestion": suggestion,
		"message":    suggestion.Message(),
	})
}

func (s *CoachServer) handleGetHistory(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetHistoryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireUserID(params.UserID); err != nil {
		return nil, err
	}
	if params.WindowDays < 0 {
		return nil, fmt.Errorf("%w: window_days must not be negative", errInvalidParams)
	}

	sess, err := s.storage.Load(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	response := map[string]interface{}{
		"count": len(sess.History),
	}
	if params.WindowDays > 0 {
		response["summary"] = trend.SummariseHistory(sess.History, params.WindowDays)
	} else {
		week := trend.SummariseHistory(sess.History, 7)
		month := trend.SummariseHistory(sess.History, 30)
		response["week"] = week
		response["month"] = month
		response["text"] = conversation.FormatHistory(week, month)
	}

	return s.createJSONResponse(response)
}

func (s *CoachServer) tools() map[string]toolHandler {
	return map[string]toolHandler{
		"chat":           s.handleChat,
		"calculate_plan": s.handleCalculatePlan,
		"log_weight":     s.handleLogWeight,
		"get_history":    s.handleGetHistory,
	}
}
