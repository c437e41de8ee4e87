// Package telegram provides Telegram bot integration for submission
// notifications.
//
// This package handles:
//   - Announcing new submissions with inline status buttons
//   - Posting status-change and deletion notices
//   - Sending the PNG record card as a photo reply
//   - Long polling for button clicks and applying the chosen status
//
// Architecture:
//   - Client: bot token, chat id and HTTP transport
//   - MessageStore: remembers which message announced which submission
//   - StatusChanger: applies transitions requested from the chat
//
// A nil *Client is valid and turns every method into a no-op, so callers
// never need to check whether Telegram is configured.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"peopleconnect/internal/submission"

	"go.uber.org/zap"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// MessageStore persists submission id → Telegram message id.
type MessageStore interface {
	SaveMessageID(ctx context.Context, id int64, messageID string) error
	MessageID(ctx context.Context, id int64) (string, bool, error)
}

// CardRenderer renders the PNG card of a submission.
type CardRenderer interface {
	RecordCard(s submission.Submission) ([]byte, error)
}

// Client represents a Telegram bot client.
//
// Fields:
//   - BotToken: Telegram bot API token
//   - ChatID: Target chat ID for notifications
//   - DebugMode: If true, API calls are logged instead of sent
type Client struct {
	BotToken  string
	ChatID    string
	DebugMode bool

	baseURL     string
	httpClient  *http.Client
	pollTimeout int           // getUpdates long-poll seconds
	retryDelay  time.Duration // pause after a failed poll
	messages    MessageStore
	cards       CardRenderer
	logger      *zap.Logger
}

// Message represents a Telegram message for sending.
type Message struct {
	ChatID                string      `json:"chat_id"`
	Text                  string      `json:"text"`
	ParseMode             string      `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool        `json:"disable_web_page_preview"`
	ReplyMarkup           interface{} `json:"reply_markup,omitempty"`
	ReplyToMessageID      int         `json:"reply_to_message_id,omitempty"`
}

// InlineKeyboardMarkup represents an inline keyboard.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton represents a button in an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Update represents a Telegram update from getUpdates.
type Update struct {
	UpdateID      int              `json:"update_id"`
	Message       *IncomingMessage `json:"message,omitempty"`
	CallbackQuery *CallbackQuery   `json:"callback_query,omitempty"`
}

// IncomingMessage represents a received Telegram message.
type IncomingMessage struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      *Chat  `json:"chat,omitempty"`
	Text      string `json:"text"`
}

// Chat represents a Telegram chat.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// CallbackQuery represents a callback query from an inline button.
type CallbackQuery struct {
	ID      string           `json:"id"`
	From    User             `json:"from"`
	Message *IncomingMessage `json:"message"`
	Data    string           `json:"data"`
}

// User represents a Telegram user.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// EditMessageRequest represents a request to edit a message.
type EditMessageRequest struct {
	ChatID      string                `json:"chat_id"`
	MessageID   string                `json:"message_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

type sentMessage struct {
	MessageID int `json:"message_id"`
}

// NewClient creates a Telegram client.
//
// Parameters:
//   - botToken: Bot API token from @BotFather
//   - chatID: Target chat ID for notifications
//   - debugMode: log API calls instead of sending them
//   - logger: structured logger
//
// Returns:
//   - *Client: Configured client, or nil if token or chat id is missing
func NewClient(botToken, chatID string, debugMode bool, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	if botToken == "" || chatID == "" {
		logger.Info("⚠️  TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set. Telegram notifications disabled.",
			zap.Bool("token_set", botToken != ""),
			zap.Bool("chat_set", chatID != ""))
		return nil
	}

	logger.Info("✓ Telegram configured successfully")
	if debugMode {
		logger.Info("🐛 DEBUG MODE ENABLED - Telegram API calls will be simulated")
	}

	return &Client{
		BotToken:  botToken,
		ChatID:    chatID,
		DebugMode: debugMode,
		baseURL:   DefaultBaseURL,
		// Long polling holds the connection for pollTimeout seconds, so the
		// client timeout must comfortably exceed it.
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		pollTimeout: 30,
		retryDelay:  5 * time.Second,
		logger:      logger,
	}
}

// SetMessageStore enables editing of the original announcement.
func (c *Client) SetMessageStore(ms MessageStore) {
	if c != nil {
		c.messages = ms
	}
}

// SetCardRenderer enables the photo card reply on new submissions.
func (c *Client) SetCardRenderer(r CardRenderer) {
	if c != nil {
		c.cards = r
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.BotToken, method)
}

// doRequest sends a JSON request to the Bot API and returns the result field.
func (c *Client) doRequest(ctx context.Context, method string, payload interface{}) (json.RawMessage, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	if c.DebugMode {
		c.logger.Debug("🐛 Simulated Telegram call", zap.String("method", method), zap.ByteString("payload", jsonData))
		return json.RawMessage(`{"message_id":0}`), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req)
}

// doMultipart uploads one file together with plain form fields.
func (c *Client) doMultipart(ctx context.Context, method string, fields map[string]string, fileField, fileName string, data []byte) (json.RawMessage, error) {
	if c.DebugMode {
		c.logger.Debug("🐛 Simulated Telegram upload", zap.String("method", method), zap.Int("bytes", len(data)))
		return json.RawMessage(`{"message_id":0}`), nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	fw, err := mw.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.send(req)
}

func (c *Client) send(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram API error (HTTP %d): %s", resp.StatusCode, result.Description)
	}
	return result.Result, nil
}

func messageIDOf(raw json.RawMessage) string {
	var sent sentMessage
	if err := json.Unmarshal(raw, &sent); err != nil || sent.MessageID == 0 {
		return ""
	}
	return strconv.Itoa(sent.MessageID)
}
