package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

const apiBase = "https://api.telegram.org"

// Notifier sends alerts to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  apiBase,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger.With("component", "telegram"),
	}
}

// Emit posts the alert as a Markdown message. Delivery failures are logged.
func (n *Notifier) Emit(ctx context.Context, note domain.Notification) {
	if err := n.send(ctx, FormatMessage(note)); err != nil {
		n.logger.Warn("telegram delivery failed", "type", note.Type, "error", err)
	}
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatMessage renders an alert as a short Markdown text with payload
// keys in sorted order.
func FormatMessage(note domain.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", note.Type)

	keys := make([]string, 0, len(note.Payload))
	for k := range note.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: `%v`", k, note.Payload[k])
	}
	return b.String()
}
