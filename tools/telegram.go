package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// TelegramClient talks to the Telegram Bot API over plain HTTP.
type TelegramClient struct {
	BotToken string
	ApiBase  string // defaults to https://api.telegram.org
}

// TelegramAPIError carries the HTTP status so callers can tell a dead chat id
// (4xx) from a flaky network or API hiccup.
type TelegramAPIError struct {
	StatusCode int
	Body       string
}

func (e *TelegramAPIError) Error() string {
	return fmt.Sprintf("telegram api error: status=%d body=%s", e.StatusCode, e.Body)
}

type TelegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      struct {
			ID        int64  `json:"id"`
			FirstName string `json:"first_name"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

func (t TelegramClient) apiURL(method string) string {
	base := t.ApiBase
	if base == "" {
		base = "https://api.telegram.org"
	}
	return base + "/bot" + t.BotToken + "/" + method
}

// SendMessage sends a plain text message to a chat.
func (t TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	if t.BotToken == "" {
		return fmt.Errorf("telegram bot token not set")
	}

	reqBody := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	b, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL("sendMessage"), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &TelegramAPIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// GetUpdates long-polls for new updates. timeoutSec is the server-side hold;
// the HTTP client waits a bit longer than that.
func (t TelegramClient) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]TelegramUpdate, error) {
	if t.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token not set")
	}

	url := t.apiURL("getUpdates") + "?timeout=" + strconv.Itoa(timeoutSec)
	if offset > 0 {
		url += "&offset=" + strconv.FormatInt(offset, 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: time.Duration(timeoutSec+10) * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &TelegramAPIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Ok     bool             `json:"ok"`
		Result []TelegramUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if !parsed.Ok {
		return nil, fmt.Errorf("telegram getUpdates returned ok=false")
	}
	return parsed.Result, nil
}
