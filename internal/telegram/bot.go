// Package telegram exposes chat sessions over a Telegram bot. Each Telegram
// chat maps to one session, so a private chat and a group keep separate
// transcripts while sharing the ledger.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"finbot/internal/chat"
	"finbot/internal/log"
)

// Sessions resolves the chat session for a conversation id.
type Sessions interface {
	Session(id string) (*chat.Session, bool)
	Delete(id string)
}

// Bot answers Telegram messages through chat sessions.
type Bot struct {
	bot      *tele.Bot
	sessions Sessions
	logger   *log.Logger
	timeout  time.Duration
}

// Config holds the bot settings.
type Config struct {
	Token        string
	PollInterval time.Duration
	// Offline skips the getMe call at startup. Used by tests.
	Offline bool
}

// New creates the bot and registers its handlers. It does not start polling.
func New(cfg Config, sessions Sessions) (*Bot, error) {
	if cfg.Token == "" && !cfg.Offline {
		return nil, errors.New("missing telegram bot token")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}

	tb, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: cfg.PollInterval},
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b := &Bot{
		bot:      tb,
		sessions: sessions,
		logger:   log.NewLogger(log.ComponentTelegram),
		timeout:  30 * time.Second,
	}
	tb.Handle("/start", b.handleStart)
	tb.Handle("/limpiar", b.handleClear)
	tb.Handle("/sugerencias", b.handleSuggestions)
	tb.Handle(tele.OnText, b.handleText)
	return b, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.logger.Info("Telegram bot polling started")
	b.bot.Start()
	b.logger.Info("Telegram bot stopped")
}

// SessionID names the chat session backing a Telegram chat.
func SessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

func chatID(c tele.Context) int64 {
	if ch := c.Chat(); ch != nil {
		return ch.ID
	}
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

func (b *Bot) session(c tele.Context) *chat.Session {
	sess, _ := b.sessions.Session(SessionID(chatID(c)))
	return sess
}

// handleStart drops any previous session for the chat and opens a new one.
func (b *Bot) handleStart(c tele.Context) error {
	b.sessions.Delete(SessionID(chatID(c)))
	sess := b.session(c)
	return c.Send(chat.WelcomeText, suggestionMarkup(sess.Suggestions()))
}

func (b *Bot) handleClear(c tele.Context) error {
	sess := b.session(c)
	sess.Clear()
	return c.Send("Conversación reiniciada. "+chat.WelcomeText, suggestionMarkup(sess.Suggestions()))
}

func (b *Bot) handleSuggestions(c tele.Context) error {
	sess := b.session(c)
	return c.Send("Prueba con alguna de estas opciones:", suggestionMarkup(sess.Suggestions()))
}

func (b *Bot) handleText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if strings.HasPrefix(text, "/") {
		return c.Send("Comando no reconocido. Usa /start, /limpiar o /sugerencias.")
	}

	sess := b.session(c)
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	reply, err := sess.SendMessage(ctx, text)
	if errors.Is(err, chat.ErrEmptyMessage) {
		return c.Send("El mensaje está vacío")
	}
	if err != nil {
		b.logger.ErrorContext(ctx, "Message not answered", log.FieldSessionID, sess.ID(), log.FieldError, err)
		return c.Send("Lo siento, hubo un error procesando tu mensaje. Por favor intenta de nuevo.")
	}
	return c.Send(reply.Content, suggestionMarkup(sess.Suggestions()))
}

// suggestionMarkup renders suggestions as a one-time reply keyboard, two per row.
func suggestionMarkup(suggestions []string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	if len(suggestions) == 0 {
		markup.RemoveKeyboard = true
		return markup
	}
	var rows []tele.Row
	for i := 0; i < len(suggestions); i += 2 {
		row := tele.Row{markup.Text(suggestions[i])}
		if i+1 < len(suggestions) {
			row = append(row, markup.Text(suggestions[i+1]))
		}
		rows = append(rows, row)
	}
	markup.Reply(rows...)
	return markup
}
