// Package gateway verifies inbound chat webhooks and delivers replies.
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the request body.
const SignatureHeader = "X-Line-Signature"

var ErrInvalidSignature = errors.New("invalid signature")

// TextEvent is an inbound text message from a user.
type TextEvent struct {
	UserID     string
	ReplyToken string
	Text       string
}

type webhookBody struct {
	Events []struct {
		Type       string `json:"type"`
		ReplyToken string `json:"replyToken"`
		Source     struct {
			Type   string `json:"type"`
			UserID string `json:"userId"`
		} `json:"source"`
		Message struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"events"`
}

// Sign computes the signature the platform attaches to body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against body in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// ParseWebhook verifies the request and returns its text message events.
// Other event and message types are dropped.
func ParseWebhook(body []byte, signature, secret string) ([]TextEvent, error) {
	if secret == "" {
		return nil, ErrUnconfigured
	}
	if !VerifySignature(secret, body, signature) {
		return nil, ErrInvalidSignature
	}

	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("failed to decode webhook body: %w", err)
	}

	var events []TextEvent
	for _, ev := range wb.Events {
		if ev.Type != "message" || ev.Message.Type != "text" || ev.Source.UserID == "" {
			continue
		}
		events = append(events, TextEvent{
			UserID:     ev.Source.UserID,
			ReplyToken: ev.ReplyToken,
			Text:       ev.Message.Text,
		})
	}
	return events, nil
}
