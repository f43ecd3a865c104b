package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"
)

const (
	// DefaultAPIURL is the public Bot API host.
	DefaultAPIURL = "https://api.telegram.org"
	// DefaultSendTimeout bounds one sendMessage call.
	DefaultSendTimeout = 10 * time.Second

	// telegramTextLimit is the Bot API limit for a single message, in characters.
	telegramTextLimit = 4096
)

// TelegramConfig configures delivery to one operator chat.
type TelegramConfig struct {
	Token     string        // bot token (secret)
	ChatID    string        // numeric chat id or @channelusername
	APIURL    string        // ex: https://api.telegram.org
	ParseMode string        // "HTML" | "Markdown" | "MarkdownV2" | ""
	Timeout   time.Duration // per sendMessage call
}

// chatRecipient lets telebot address chats by their raw id string, which
// covers both numeric ids and @usernames.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

// Telegram delivers notifications through the Bot API sendMessage method.
type Telegram struct {
	bot       *tele.Bot
	to        chatRecipient
	parseMode tele.ParseMode
}

// NewTelegram builds an offline telebot client: no getMe round-trip and no
// polling, the bot is only used to send.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		return nil, errors.New("telegram chat id is empty")
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(apiURL, "/"),
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Telegram{
		bot:       b,
		to:        chatRecipient(strings.TrimSpace(cfg.ChatID)),
		parseMode: tele.ParseMode(cfg.ParseMode),
	}, nil
}

// Send posts text to the configured chat. The returned error is informative
// only; callers on the visitor path log it and move on.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body := t.render(text)

	opts := &tele.SendOptions{
		ParseMode:             t.parseMode,
		DisableWebPagePreview: true,
	}
	if _, err := t.bot.Send(t.to, body, opts); err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}

// render escapes text for the configured parse mode and fits it into one message.
func (t *Telegram) render(text string) string {
	switch t.parseMode {
	case tele.ModeHTML:
		return truncate(escapeHTML(text), telegramTextLimit)
	case tele.ModeMarkdown:
		return truncateEscaped(escapeMarkdown(text), telegramTextLimit)
	case tele.ModeMarkdownV2:
		return truncateEscaped(escapeMarkdownV2(text), telegramTextLimit)
	default:
		return truncateRunes(text, telegramTextLimit)
	}
}

var (
	htmlEscaper     = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)
)

// markdownV2Reserved must be backslash-escaped anywhere outside an entity.
const markdownV2Reserved = "_*[]()~`>#+-=|{}.!\\"

// escapeHTML escapes the three characters Telegram's HTML mode rejects when
// they appear outside tags. Visitor user-agents are untrusted and may contain them.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// escapeMarkdown escapes the characters legacy Markdown treats as entity markers.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// escapeMarkdownV2 prefixes every reserved character with a backslash.
func escapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for _, r := range s {
		if strings.ContainsRune(markdownV2Reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// truncateEscaped cuts s like truncateRunes and drops a trailing backslash
// that lost the character it escaped.
func truncateEscaped(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	out := truncateRunes(s, limit)
	if n := len(out) - len(strings.TrimRight(out, `\`)); n%2 == 1 {
		out = out[:len(out)-1]
	}
	return out
}

// truncate cuts s to at most limit runes and never leaves a dangling
// "&..." entity at the end.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	out := truncateRunes(s, limit)
	if amp := strings.LastIndexByte(out, '&'); amp >= 0 && !strings.Contains(out[amp:], ";") {
		out = out[:amp]
	}
	return out
}
