package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultAPIBase = "https://api.line.me"

	// maxTextRunes is the platform limit for a single text message.
	maxTextRunes = 5000
)

// ErrUnconfigured is returned when no access token was provided.
var ErrUnconfigured = errors.New("messaging credentials not set")

// Messenger sends replies back to the chat platform.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
}

type Config struct {
	ChannelSecret string
	AccessToken   string
	APIBase       string
	Timeout       time.Duration
}

// Unconfigured is the Messenger used when credentials are missing.
type Unconfigured struct{}

func (Unconfigured) Reply(context.Context, string, string) error {
	return ErrUnconfigured
}

// Configured reports whether m can deliver messages.
func Configured(m Messenger) bool {
	if m == nil {
		return false
	}
	_, unconfigured := m.(Unconfigured)
	return !unconfigured
}

// NewMessenger returns a LineClient when an access token is set, otherwise Unconfigured.
func NewMessenger(cfg Config) Messenger {
	if cfg.AccessToken == "" {
		return Unconfigured{}
	}
	return NewLineClient(cfg)
}

type LineClient struct {
	httpClient *http.Client
	apiBase    string
	token      string
}

func NewLineClient(cfg Config) *LineClient {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &LineClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiBase: apiBase,
		token:   cfg.AccessToken,
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

// Reply answers an inbound event identified by replyToken.
func (c *LineClient) Reply(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return errors.New("reply token is required")
	}

	body := replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: truncate(text, maxTextRunes)}},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.apiBase + "/v2/bot/message/reply"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Line-Retry-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("request failed with status %d and couldn't read body: %v", resp.StatusCode, err)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
