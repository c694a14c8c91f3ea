package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultAPIURL public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Update one entry of getUpdates; only text messages are consumed.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// apiResponse envelope of every Bot API answer.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type keyboardButton struct {
	Text string `json:"text"`
}

type replyKeyboard struct {
	Keyboard       [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type sendMessageRequest struct {
	ChatID      int64          `json:"chat_id"`
	Text        string         `json:"text"`
	ReplyMarkup *replyKeyboard `json:"reply_markup,omitempty"`
}

// Client Bot API client (long-poll side and outbound messages).
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient pollTimeout is the long-poll wait; the HTTP timeout is kept above it.
func NewClient(apiURL, token string, pollTimeout time.Duration, logger *zap.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(apiURL, "/")+"/bot"+token).
		SetTimeout(pollTimeout+15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Accept", "application/json")
	return &Client{httpClient: client, logger: logger}
}

func (c *Client) call(req *resty.Request, method string, out any) error {
	var env apiResponse
	resp, err := req.SetResult(&env).SetError(&env).Post("/" + method)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("%s failed (status: %d, code: %d): %s", method, resp.StatusCode(), env.ErrorCode, env.Description)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for updates with update_id >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"offset":          offset,
			"timeout":         int(timeout.Seconds()),
			"allowed_updates": []string{"message"},
		})
	if err := c.call(req, "getUpdates", &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage plain text without keyboard changes (notifications).
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.SendReply(ctx, chatID, text, nil)
}

// SendReply sends text; a non-nil keyboard replaces the client's reply keyboard.
func (c *Client) SendReply(ctx context.Context, chatID int64, text string, keyboard [][]string) error {
	body := sendMessageRequest{ChatID: chatID, Text: text, ReplyMarkup: toKeyboard(keyboard)}
	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if err := c.call(req, "sendMessage", nil); err != nil {
		c.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}
	return nil
}

// SendDocument uploads data as a file with caption.
func (c *Client) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string, keyboard [][]string) error {
	form := map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"caption": caption,
	}
	if kb := toKeyboard(keyboard); kb != nil {
		raw, err := json.Marshal(kb)
		if err != nil {
			return fmt.Errorf("failed to encode keyboard: %w", err)
		}
		form["reply_markup"] = string(raw)
	}
	req := c.httpClient.R().
		SetContext(ctx).
		SetFormData(form).
		SetFileReader("document", name, bytes.NewReader(data))
	if err := c.call(req, "sendDocument", nil); err != nil {
		c.logger.Error("Failed to send document", zap.Int64("chat_id", chatID), zap.String("file", name), zap.Error(err))
		return err
	}
	return nil
}

func toKeyboard(rows [][]string) *replyKeyboard {
	if rows == nil {
		return nil
	}
	kb := &replyKeyboard{ResizeKeyboard: true}
	for _, row := range rows {
		buttons := make([]keyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, keyboardButton{Text: label})
		}
		kb.Keyboard = append(kb.Keyboard, buttons)
	}
	return kb
}
