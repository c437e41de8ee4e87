package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"peopleconnect/internal/submission"

	"go.uber.org/zap"
)

// callbackPrefix starts the callback data of status buttons:
// "status:<id>:<Status>".
const callbackPrefix = "status"

var statusEmoji = map[submission.Status]string{
	submission.StatusNew:        "🆕",
	submission.StatusInProgress: "⏳",
	submission.StatusResolved:   "✅",
	submission.StatusRejected:   "⛔",
}

// SendSubmission announces a new submission.
//
// Message format:
//
//	📋 Complaint #12 • Roads
//	👤 Ali Hassan
//	📞 0770 123 4567
//	📍 Erbil
//	💬 Details:
//	Pothole on Main St
//
// The message carries one button per status. The returned message id is
// saved through the MessageStore when one is set, and the record card is
// sent as a photo reply when a CardRenderer is set.
func (c *Client) SendSubmission(ctx context.Context, s submission.Submission) error {
	if c == nil {
		return nil
	}

	c.logger.Debug("📨 Sending submission to Telegram", zap.Int64("id", s.ID))

	msg := Message{
		ChatID:                c.ChatID,
		Text:                  formatSubmission(s),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           statusKeyboard(s.ID),
	}

	raw, err := c.doRequest(ctx, "sendMessage", msg)
	if err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}

	messageID := messageIDOf(raw)
	if messageID != "" && c.messages != nil {
		if err := c.messages.SaveMessageID(ctx, s.ID, messageID); err != nil {
			c.logger.Warn("⚠️  Failed to save Telegram message id", zap.Int64("id", s.ID), zap.Error(err))
		}
	}

	if c.cards != nil {
		if err := c.sendCard(ctx, s, messageID); err != nil {
			c.logger.Warn("⚠️  Failed to send record card", zap.Int64("id", s.ID), zap.Error(err))
		}
	}

	c.logger.Info("✓ Submission sent to Telegram", zap.Int64("id", s.ID), zap.String("message_id", messageID))
	return nil
}

func (c *Client) sendCard(ctx context.Context, s submission.Submission, replyTo string) error {
	png, err := c.cards.RecordCard(s)
	if err != nil {
		return err
	}
	fields := map[string]string{
		"chat_id": c.ChatID,
		"caption": fmt.Sprintf("#%d", s.ID),
	}
	if replyTo != "" {
		fields["reply_to_message_id"] = replyTo
	}
	_, err = c.doMultipart(ctx, "sendPhoto", fields, "photo", fmt.Sprintf("submission_%d.png", s.ID), png)
	return err
}

// SendStatusChange posts a status notice as a reply to the original
// announcement when it is known.
func (c *Client) SendStatusChange(ctx context.Context, id int64, status submission.Status) error {
	if c == nil {
		return nil
	}

	msg := Message{
		ChatID:    c.ChatID,
		Text:      fmt.Sprintf("%s Submission <b>#%d</b> → <b>%s</b>", statusEmoji[status], id, html.EscapeString(string(status))),
		ParseMode: "HTML",
	}
	if original := c.originalMessage(ctx, id); original != "" {
		msg.ReplyToMessageID, _ = strconv.Atoi(original)
	}

	if _, err := c.doRequest(ctx, "sendMessage", msg); err != nil {
		return fmt.Errorf("failed to send status notice: %w", err)
	}
	return nil
}

// SendDeletion posts a deletion notice. Buttons left on the original
// announcement answer "not found" from then on.
func (c *Client) SendDeletion(ctx context.Context, id int64) error {
	if c == nil {
		return nil
	}

	msg := Message{
		ChatID:    c.ChatID,
		Text:      fmt.Sprintf("🗑️ Submission <b>#%d</b> deleted\n🕐 %s", id, time.Now().Format("02 Jan 2006, 03:04 PM")),
		ParseMode: "HTML",
	}
	if _, err := c.doRequest(ctx, "sendMessage", msg); err != nil {
		return fmt.Errorf("failed to send deletion notice: %w", err)
	}
	return nil
}

// EditMessageText replaces the text of an existing message. Telegram drops
// the inline keyboard of a message edited without one.
func (c *Client) EditMessageText(ctx context.Context, messageID, newText string) error {
	if c == nil {
		return nil
	}
	return c.editMessage(ctx, messageID, newText, nil)
}

func (c *Client) editMessage(ctx context.Context, messageID, newText string, markup *InlineKeyboardMarkup) error {
	if messageID == "" {
		c.logger.Debug("⚠️  No message ID provided, skipping edit")
		return nil
	}

	req := EditMessageRequest{
		ChatID:      c.ChatID,
		MessageID:   messageID,
		Text:        newText,
		ParseMode:   "HTML",
		ReplyMarkup: markup,
	}
	if _, err := c.doRequest(ctx, "editMessageText", req); err != nil {
		return fmt.Errorf("failed to edit Telegram message: %w", err)
	}
	return nil
}

func (c *Client) originalMessage(ctx context.Context, id int64) string {
	if c.messages == nil {
		return ""
	}
	messageID, ok, err := c.messages.MessageID(ctx, id)
	if err != nil {
		c.logger.Warn("⚠️  Failed to look up Telegram message id", zap.Int64("id", id), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return messageID
}

func formatSubmission(s submission.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>%s #%d</b> • %s\n\n", html.EscapeString(string(s.Type)), s.ID, html.EscapeString(s.Department))
	fmt.Fprintf(&b, "👤 %s\n", html.EscapeString(s.Name))
	fmt.Fprintf(&b, "📞 %s\n", html.EscapeString(s.Mobile))
	fmt.Fprintf(&b, "📍 %s\n", html.EscapeString(s.Address))
	if s.HasLocation() {
		fmt.Fprintf(&b, "🗺️ %.5f, %.5f\n", *s.Lat, *s.Lon)
	}
	if n := len(s.AttachmentPaths()); n > 0 {
		fmt.Fprintf(&b, "📎 %d attachment(s)\n", n)
	}
	fmt.Fprintf(&b, "\n💬 <b>Details:</b>\n%s", html.EscapeString(s.Message))
	return b.String()
}

func statusKeyboard(id int64) *InlineKeyboardMarkup {
	button := func(status submission.Status) InlineKeyboardButton {
		return InlineKeyboardButton{
			Text:         statusEmoji[status] + " " + string(status),
			CallbackData: fmt.Sprintf("%s:%d:%s", callbackPrefix, id, status),
		}
	}
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{button(submission.StatusNew), button(submission.StatusInProgress)},
			{button(submission.StatusResolved), button(submission.StatusRejected)},
		},
	}
}

// parseCallback splits "status:<id>:<Status>".
func parseCallback(data string) (int64, submission.Status, bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] != callbackPrefix {
		return 0, "", false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", false
	}
	status, ok := submission.ParseStatus(parts[2])
	if !ok {
		return 0, "", false
	}
	return id, status, true
}
