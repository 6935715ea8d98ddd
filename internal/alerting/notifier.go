package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"rate-monitor/internal/analyzer"
)

// NotificationError wraps a failed delivery attempt for one channel.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s notification failed: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// Notifier delivers an analysis result to one notification channel.
// Implementations are no-ops when the result carries no alert.
type Notifier interface {
	Notify(ctx context.Context, res analyzer.Result) error
}

// Dispatch sends res through every notifier. A failing channel never prevents
// the remaining channels from being attempted; all failures are returned.
func Dispatch(ctx context.Context, notifiers []Notifier, res analyzer.Result) []error {
	var failures []error
	for _, n := range notifiers {
		if err := n.Notify(ctx, res); err != nil {
			failures = append(failures, err)
		}
	}
	return failures
}

// RenderSummary builds the single-line alert summary shared by all channels.
func RenderSummary(res analyzer.Result) string {
	parts := []string{fmt.Sprintf("[ALERT] %s", res.TargetID)}
	if res.Current != nil {
		parts = append(parts, fmt.Sprintf("current=%g", *res.Current))
	}
	if res.ChangeFromShortPct != nil {
		parts = append(parts, fmt.Sprintf("change_from_short=%+.1f%%", *res.ChangeFromShortPct))
	}
	if res.ChangeFromLongPct != nil {
		parts = append(parts, fmt.Sprintf("change_from_long=%+.1f%%", *res.ChangeFromLongPct))
	}
	if res.Reason != "" {
		parts = append(parts, "reason="+res.Reason)
	}
	return strings.Join(parts, " ")
}

// ConsoleNotifier writes alert summaries to an output stream.
type ConsoleNotifier struct {
	out io.Writer
}

// NewConsoleNotifier constructs a console notifier. A nil writer means stdout.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleNotifier{out: out}
}

// Notify writes a one-line summary when the result carries an alert.
func (n *ConsoleNotifier) Notify(_ context.Context, res analyzer.Result) error {
	if !res.ShouldAlert {
		return nil
	}
	if _, err := fmt.Fprintln(n.out, RenderSummary(res)); err != nil {
		return &NotificationError{Channel: "console", Err: err}
	}
	return nil
}

// WebhookNotifier posts alert summaries as a JSON payload. Deliveries are
// never retried.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier constructs a webhook notifier with a bounded timeout.
func NewWebhookNotifier(url string, timeout time.Duration, logger zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "alert_webhook").Logger(),
	}
}

// Notify POSTs the summary when the result carries an alert.
func (n *WebhookNotifier) Notify(ctx context.Context, res analyzer.Result) error {
	if !res.ShouldAlert {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": RenderSummary(res)})
	if err != nil {
		return &NotificationError{Channel: "webhook", Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return &NotificationError{Channel: "webhook", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return &NotificationError{Channel: "webhook", Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NotificationError{Channel: "webhook", Err: fmt.Errorf("unexpected status: %d", resp.StatusCode)}
	}

	n.logger.Info().Str("target", res.TargetID).Msg("alert delivered")
	return nil
}

// TelegramNotifier sends alert summaries through the Telegram Bot API.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID string, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id: %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: chatIDInt,
		logger: logger.With().Str("component", "alert_telegram").Logger(),
	}, nil
}

// Notify sends the summary when the result carries an alert.
func (n *TelegramNotifier) Notify(_ context.Context, res analyzer.Result) error {
	if !res.ShouldAlert {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, RenderSummary(res))
	if _, err := n.bot.Send(msg); err != nil {
		return &NotificationError{Channel: "telegram", Err: err}
	}

	n.logger.Info().Str("target", res.TargetID).Msg("alert delivered")
	return nil
}

var (
	_ Notifier = (*ConsoleNotifier)(nil)
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
)
