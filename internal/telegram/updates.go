package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"peopleconnect/internal/submission"

	"go.uber.org/zap"
)

// StatusChanger applies a status transition. It reports false when the
// submission does not exist.
type StatusChanger interface {
	Transition(ctx context.Context, id int64, status submission.Status) (bool, error)
}

// getUpdates fetches new updates using long polling.
func (c *Client) getUpdates(ctx context.Context, offset int) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":          offset,
		"timeout":         c.pollTimeout,
		"allowed_updates": []string{"message", "callback_query"},
	}

	raw, err := c.doRequest(ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}
	return updates, nil
}

// answerCallbackQuery acknowledges a button click with a short toast.
func (c *Client) answerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error {
	payload := map[string]interface{}{
		"callback_query_id": callbackQueryID,
		"text":              text,
		"show_alert":        false,
	}

	_, err := c.doRequest(ctx, "answerCallbackQuery", payload)
	return err
}

// HandleUpdates listens for incoming updates and processes them.
//
// This runs in a background goroutine and handles:
//   - Callback queries from the status buttons
//   - "/status <id> <Status>" text commands
//
// Update processing loop:
//  1. Long poll for updates
//  2. Process each update
//  3. Advance the offset to acknowledge processed updates
//  4. Repeat until ctx is cancelled
//
// Only updates from the configured chat are acted upon.
func (c *Client) HandleUpdates(ctx context.Context, changer StatusChanger) {
	if c == nil {
		return
	}

	c.logger.Info("✓ Starting Telegram update handler...")
	offset := 0

	for {
		if ctx.Err() != nil {
			c.logger.Info("🛑 Telegram update handler stopped")
			return
		}

		updates, err := c.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Warn("⚠️  Error getting Telegram updates", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.retryDelay):
			}
			continue
		}

		for _, update := range updates {
			switch {
			case update.CallbackQuery != nil:
				c.handleCallbackQuery(ctx, update.CallbackQuery, changer)
			case update.Message != nil:
				c.handleMessage(ctx, update.Message, changer)
			}
			offset = update.UpdateID + 1
		}
	}
}

func (c *Client) fromConfiguredChat(m *IncomingMessage) bool {
	return m != nil && m.Chat != nil && strconv.FormatInt(m.Chat.ID, 10) == c.ChatID
}

// handleCallbackQuery applies the status carried by a button click.
func (c *Client) handleCallbackQuery(ctx context.Context, query *CallbackQuery, changer StatusChanger) {
	c.logger.Info("📞 Received callback query",
		zap.String("data", query.Data),
		zap.String("from", query.From.FirstName))

	if !c.fromConfiguredChat(query.Message) {
		c.logger.Warn("⚠️  Callback from foreign chat ignored", zap.Int64("user", query.From.ID))
		c.answer(ctx, query.ID, "Not allowed")
		return
	}

	id, status, ok := parseCallback(query.Data)
	if !ok {
		c.logger.Warn("⚠️  Invalid callback data format", zap.String("data", query.Data))
		c.answer(ctx, query.ID, "Invalid action")
		return
	}

	reply, found := c.apply(ctx, changer, id, status)
	c.answer(ctx, query.ID, reply)

	if !found {
		// Drop the stale buttons of a deleted submission.
		text := html.EscapeString(query.Message.Text) + "\n\n🗑️ <i>Submission no longer exists</i>"
		if err := c.EditMessageText(ctx, strconv.Itoa(query.Message.MessageID), text); err != nil {
			c.logger.Warn("⚠️  Failed to mark announcement as deleted", zap.Int64("id", id), zap.Error(err))
		}
	}
}

// handleMessage accepts "/status <id> <Status>" from the configured chat.
func (c *Client) handleMessage(ctx context.Context, message *IncomingMessage, changer StatusChanger) {
	text := strings.TrimSpace(message.Text)
	if !strings.HasPrefix(text, "/status") || !c.fromConfiguredChat(message) {
		return
	}

	fields := strings.Fields(text)
	reply := "Usage: /status <id> <New|In Progress|Resolved|Rejected>"
	if len(fields) >= 3 {
		id, err := strconv.ParseInt(fields[1], 10, 64)
		status, ok := submission.ParseStatus(strings.Join(fields[2:], " "))
		if err == nil && ok {
			reply, _ = c.apply(ctx, changer, id, status)
		}
	}

	msg := Message{
		ChatID:           c.ChatID,
		Text:             reply,
		ReplyToMessageID: message.MessageID,
	}
	if _, err := c.doRequest(ctx, "sendMessage", msg); err != nil {
		c.logger.Warn("⚠️  Failed to reply to command", zap.Error(err))
	}
}

// apply runs a transition and returns the text to show in the chat. found
// is false only when the submission is known to be gone.
func (c *Client) apply(ctx context.Context, changer StatusChanger, id int64, status submission.Status) (string, bool) {
	changed, err := changer.Transition(ctx, id, status)
	if err != nil {
		c.logger.Error("❌ Status change from Telegram failed", zap.Int64("id", id), zap.Error(err))
		return "Error: status not changed", true
	}
	if !changed {
		return fmt.Sprintf("Submission #%d not found", id), false
	}
	return fmt.Sprintf("#%d → %s", id, status), true
}

func (c *Client) answer(ctx context.Context, queryID, text string) {
	if err := c.answerCallbackQuery(ctx, queryID, text); err != nil {
		c.logger.Warn("⚠️  Failed to answer callback query", zap.Error(err))
	}
}
