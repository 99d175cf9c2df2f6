// Package telegram posts channel announcements through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultAPIBaseURL is the Telegram Bot API endpoint
	DefaultAPIBaseURL = "https://api.telegram.org"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second
)

// Client sends photo posts to a Telegram channel
type Client struct {
	botToken   string
	chatID     string
	apiBaseURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Telegram client for the given bot and channel
func NewClient(botToken, chatID string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		botToken:   botToken,
		chatID:     chatID,
		apiBaseURL: DefaultAPIBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
}

// Enabled reports whether the client has credentials to post with
func (c *Client) Enabled() bool {
	return c.botToken != "" && c.chatID != ""
}

type sendPhotoRequest struct {
	ChatID  string `json:"chat_id"`
	Photo   string `json:"photo"`
	Caption string `json:"caption"`
}

type sendPhotoResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendPhoto posts a photo with a caption to the configured channel
func (c *Client) SendPhoto(ctx context.Context, photoURL, caption string) error {
	if !c.Enabled() {
		return fmt.Errorf("telegram client not configured")
	}

	payload, err := json.Marshal(sendPhotoRequest{
		ChatID:  c.chatID,
		Photo:   photoURL,
		Caption: caption,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", c.apiBaseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var result sendPhotoResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("telegram returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to parse telegram response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !result.OK {
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("telegram returned status 429: %s", result.Description)
		}
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, result.Description)
	}

	c.logger.Info("telegram_photo_sent",
		zap.String("chat_id", c.chatID),
	)
	return nil
}
