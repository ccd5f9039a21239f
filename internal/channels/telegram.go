package channels

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/recipebox/recipebox/internal/config"
	"github.com/recipebox/recipebox/internal/schema"
)

const (
	telegramMaxMessage = 4096
	maxPhotoBytes      = 10 << 20

	failedTurnText = "Sorry, I couldn't finish that request. Please try again."
)

// botAPI is the subset of *tgbotapi.BotAPI used after startup.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Telegram runs the bot via long polling and answers through the chat
// service. Each Telegram chat is one conversation.
type Telegram struct {
	cfg        config.TelegramConfig
	chat       Chat
	allow      allowList
	httpClient *http.Client
	bot        botAPI
}

// NewTelegram creates a Telegram channel. Nothing connects until Run.
func NewTelegram(cfg config.TelegramConfig, c Chat) (*Telegram, error) {
	client := &http.Client{Timeout: 60 * time.Second}
	if cfg.Proxy != "" {
		proxy, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("telegram: invalid proxy: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}
	return &Telegram{cfg: cfg, chat: c, allow: allowList(cfg.AllowFrom), httpClient: client}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Run connects and handles updates until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.cfg.Token, tgbotapi.APIEndpoint, t.httpClient)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("Telegram connected", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				go t.handleMessage(ctx, update.Message)
			}
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		}
	}
}

func conversationID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

func (t *Telegram) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.UserName != "" {
		senderID += "|" + msg.From.UserName
	}
	if !t.allow.IsAllowed(senderID) {
		slog.Warn("Access denied", "channel", t.Name(), "sender", senderID)
		return
	}

	text := msg.Text
	if msg.Caption != "" {
		text = msg.Caption
	}
	if msg.IsCommand() {
		text = normalizeCommand(msg.Command())
	}

	var blocks []schema.ContentBlock
	if strings.TrimSpace(text) != "" {
		blocks = append(blocks, schema.TextBlock(text))
	}
	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		block, err := t.downloadPhoto(ctx, photo.FileID)
		if err != nil {
			slog.Warn("Photo download failed", "channel", t.Name(), "err", err)
		} else {
			blocks = append(blocks, block)
		}
	}
	if len(blocks) == 0 {
		return
	}

	typingCtx, cancelTyping := context.WithCancel(ctx)
	defer cancelTyping()
	go t.sendTypingLoop(typingCtx, msg.Chat.ID)

	reply, err := t.chat.Send(ctx, conversationID(msg.Chat.ID), blocks, nil)
	cancelTyping()
	if err != nil {
		slog.Error("Telegram turn failed", "chat", msg.Chat.ID, "err", err)
		t.sendText(msg.Chat.ID, msg.MessageID, failedTurnText)
		return
	}
	t.sendText(msg.Chat.ID, msg.MessageID, reply.Text)
}

// normalizeCommand maps Telegram commands onto chat commands. /start shows
// the help text.
func normalizeCommand(cmd string) string {
	if cmd == "start" {
		cmd = "help"
	}
	return "/" + cmd
}

// downloadPhoto fetches a photo and returns it as a base64 image block.
func (t *Telegram) downloadPhoto(ctx context.Context, fileID string) (schema.ContentBlock, error) {
	link, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return schema.ContentBlock{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return schema.ContentBlock{}, err
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return schema.ContentBlock{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return schema.ContentBlock{}, fmt.Errorf("download photo: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return schema.ContentBlock{}, err
	}
	if len(data) > maxPhotoBytes {
		return schema.ContentBlock{}, fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}

	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/jpeg"
	}
	return schema.ImageBlock(mediaType, base64.StdEncoding.EncodeToString(data)), nil
}

func (t *Telegram) sendTypingLoop(ctx context.Context, chatID int64) {
	for {
		_, _ = t.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
		select {
		case <-time.After(4 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

// sendText delivers content in Telegram-sized chunks, as HTML with a plain
// text fallback.
func (t *Telegram) sendText(chatID int64, replyTo int, content string) {
	if content == "" {
		return
	}
	for _, chunk := range splitMessage(content, telegramMaxMessage) {
		m := tgbotapi.NewMessage(chatID, markdownToTelegramHTML(chunk))
		m.ParseMode = tgbotapi.ModeHTML
		if t.cfg.ReplyToMessage {
			m.ReplyToMessageID = replyTo
		}
		if _, err := t.bot.Send(m); err != nil {
			plain := tgbotapi.NewMessage(chatID, chunk)
			if t.cfg.ReplyToMessage {
				plain.ReplyToMessageID = replyTo
			}
			if _, err := t.bot.Send(plain); err != nil {
				slog.Error("Telegram send failed", "chat", chatID, "err", err)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Markdown → Telegram HTML
// ---------------------------------------------------------------------------

var (
	reTGCodeBlock  = regexp.MustCompile("(?s)```[\\w]*\\n?([\\s\\S]*?)```")
	reTGInlineCode = regexp.MustCompile("`([^`]+)`")
	reTGHeader     = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	reTGBlockquote = regexp.MustCompile(`(?m)^>\s*(.*)$`)
	reTGLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reTGBold1      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reTGBold2      = regexp.MustCompile(`__(.+?)__`)
	reTGItalic     = regexp.MustCompile(`(^|[^a-zA-Z0-9])_([^_]+)_([^a-zA-Z0-9]|$)`)
	reTGStrike     = regexp.MustCompile(`~~(.+?)~~`)
	reTGBullet     = regexp.MustCompile(`(?m)^[-*]\s+`)
)

func markdownToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	var codeBlocks []string
	text = reTGCodeBlock.ReplaceAllStringFunc(text, func(m string) string {
		codeBlocks = append(codeBlocks, reTGCodeBlock.FindStringSubmatch(m)[1])
		return fmt.Sprintf("\x00CB%d\x00", len(codeBlocks)-1)
	})
	var inlineCodes []string
	text = reTGInlineCode.ReplaceAllStringFunc(text, func(m string) string {
		inlineCodes = append(inlineCodes, reTGInlineCode.FindStringSubmatch(m)[1])
		return fmt.Sprintf("\x00IC%d\x00", len(inlineCodes)-1)
	})

	text = reTGBlockquote.ReplaceAllString(text, "$1")
	text = htmlEscape(text)
	text = reTGHeader.ReplaceAllString(text, "<b>$1</b>")

	text = reTGLink.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = reTGBold1.ReplaceAllString(text, "<b>$1</b>")
	text = reTGBold2.ReplaceAllString(text, "<b>$1</b>")
	text = reTGItalic.ReplaceAllString(text, "$1<i>$2</i>$3")
	text = reTGStrike.ReplaceAllString(text, "<s>$1</s>")
	text = reTGBullet.ReplaceAllString(text, "• ")

	for i, code := range inlineCodes {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00IC%d\x00", i), "<code>"+htmlEscape(code)+"</code>")
	}
	for i, code := range codeBlocks {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00CB%d\x00", i), "<pre><code>"+htmlEscape(code)+"</code></pre>")
	}
	return text
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
