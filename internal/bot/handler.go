package bot

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/eliseohh/brainvaultbot/internal/metrics"
	"github.com/eliseohh/brainvaultbot/internal/tags"
	"github.com/eliseohh/brainvaultbot/internal/vault"
)

const (
	InternalErrorMessage = "⚠️ Something went wrong while saving to your vault. Please try again."

	UnknownCommandMessage = "🤷 Unknown command. Try /view, /export, /edit or /help."

	HelpMessage = "Welcome to Brain Vault - The Mockingjay!\n\n" +
		"📋 Quick Guide:\n" +
		"• Type anything to save a note.\n" +
		"• Use #tags in your note to auto-categorize.\n" +
		"• Or, select categories from the menu after typing.\n" +
		"• All notes are saved to #all by default.\n\n" +
		"⚡️ Commands:\n" +
		"• /view - Browse all your notes.\n" +
		"• /view #category - Filter notes by category.\n" +
		"• /export - Download a backup file (/export yaml for YAML).\n" +
		"• /edit - Manage your notes and categories.\n\n" +
		"Notes are stored with %s timestamps."
)

type Bot struct {
	api      *tele.Bot
	store    *vault.Store
	cfg      Config
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	sessions *sessions
	now      func() time.Time
}

type Config struct {
	Token       string
	PollTimeout time.Duration
}

func New(cfg Config, store *vault.Store, logger *zap.SugaredLogger, m *metrics.Metrics) (*Bot, error) {
	bot := newBot(cfg, store, logger, m)

	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	}
	if err := bot.attach(pref); err != nil {
		return nil, err
	}
	return bot, nil
}

// attach builds the telebot client from pref and registers every handler.
func (b *Bot) attach(pref tele.Settings) error {
	if pref.OnError == nil {
		pref.OnError = func(err error, c tele.Context) {
			if c != nil && c.Sender() != nil {
				b.logger.Errorw("update failed", "user", c.Sender().ID, "error", err)
				return
			}
			b.logger.Errorw("bot error", "error", err)
		}
	}

	api, err := tele.NewBot(pref)
	if err != nil {
		return errors.Wrap(err, "tele.NewBot")
	}

	b.api = api
	b.register()
	return nil
}

func newBot(cfg Config, store *vault.Store, logger *zap.SugaredLogger, m *metrics.Metrics) *Bot {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Bot{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		sessions: newSessions(),
		now:      time.Now,
	}
}

// Start blocks, polling Telegram until Stop is called.
func (b *Bot) Start() {
	b.logger.Infof("bot started: @%s", b.api.Me.Username)
	b.api.Start()
}

func (b *Bot) Stop() {
	b.api.Stop()
}

// commands is the fixed command set. Anything else falls through to text.
func (b *Bot) commands() map[string]tele.HandlerFunc {
	return map[string]tele.HandlerFunc{
		"/start":  b.handleStart,
		"/help":   b.handleStart,
		"/view":   b.handleView,
		"/export": b.handleExport,
		"/edit":   b.handleEdit,
	}
}

func (b *Bot) callbacks() map[*tele.Btn]tele.HandlerFunc {
	return map[*tele.Btn]tele.HandlerFunc{
		&btnCat:     b.onCategoryToggle,
		&btnCatDone: b.onCategoryDone,
		&btnDelCat:  b.onEditOption(actionDelCat),
		&btnDelNote: b.onEditOption(actionDelNote),
		&btnWipeYes: b.onWipeConfirm,
		&btnWipeNo:  b.onWipeCancel,
	}
}

func (b *Bot) register() {
	for cmd, h := range b.commands() {
		b.api.Handle(cmd, h, b.track(strings.TrimPrefix(cmd, "/")))
	}
	for btn, h := range b.callbacks() {
		b.api.Handle(btn, h, b.track(btn.Unique))
	}
	b.api.Handle(tele.OnText, b.handleText, b.track("text"))
}

// track records every handled update in the metrics.
func (b *Bot) track(name string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			b.metrics.Observe(name, start, err)
			return err
		}
	}
}

// fail tells the user what went wrong and hands storage errors back to the
// caller so they get logged; bad input is answered and swallowed.
func (b *Bot) fail(c tele.Context, err error) error {
	if vault.IsValidation(err) {
		return c.Send("⚠️ " + err.Error())
	}
	if vault.IsStorage(err) {
		b.metrics.StorageErrors.Inc()
	}
	if sendErr := c.Send(InternalErrorMessage); sendErr != nil {
		b.logger.Error(errors.Wrap(sendErr, "c.Send"))
	}
	return err
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send(fmt.Sprintf(HelpMessage, b.store.Location().String()), &tele.SendOptions{DisableWebPagePreview: true})
}

// /view [#tag]
func (b *Bot) handleView(c tele.Context) error {
	ctx := context.Background()
	user := c.Sender().ID
	args := strings.Fields(c.Message().Payload)

	if len(args) > 0 {
		tag := tags.Normalize(args[0])
		if !tags.Valid(tag) {
			return c.Send("Usage: /view or /view #category")
		}
		notes := b.store.ListByTag(ctx, user, tag)
		if len(notes) == 0 {
			return c.Send(fmt.Sprintf("⚠️ No entries found for <code>#%s</code>.", html.EscapeString(tag)), tele.ModeHTML)
		}
		return b.sendLong(c, formatCategory(tag, notes))
	}

	total := len(b.store.List(ctx, user))
	if total == 0 {
		return c.Send("📭 Your brain vault is empty. Start by typing a note!")
	}

	byTag := func(tag string) []vault.Note { return b.store.ListByTag(ctx, user, tag) }
	return b.sendLong(c, formatOverview(total, b.store.Categories(ctx, user), byTag))
}

func (b *Bot) sendLong(c tele.Context, text string) error {
	for _, chunk := range splitMessage(text, maxMessageChars) {
		if err := c.Send(chunk, tele.ModeHTML); err != nil {
			return err
		}
	}
	return nil
}

// /export [text|yaml]
func (b *Bot) handleExport(c tele.Context) error {
	ctx := context.Background()
	user := c.Sender().ID

	format := vault.FormatText
	if args := strings.Fields(c.Message().Payload); len(args) > 0 {
		format = strings.ToLower(args[0])
	}

	if len(b.store.List(ctx, user)) == 0 {
		return c.Send("📭 Nothing to export. Your vault is empty.")
	}

	data, err := b.store.Export(ctx, user, format)
	if err != nil {
		if vault.IsValidation(err) {
			return c.Send("Usage: /export or /export yaml")
		}
		return b.fail(c, err)
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: vault.FileName(b.now().In(b.store.Location()), format),
		Caption:  "📦 Here are your exported notes!",
	}
	return c.Send(doc)
}

func (b *Bot) handleEdit(c tele.Context) error {
	return c.Send("🔧 Choose what to edit:", editKeyboard())
}

// handleText saves bare text as a note, unless an edit action is waiting for
// its argument. With categories to pick from, the note waits for "Done".
func (b *Bot) handleText(c tele.Context) error {
	ctx := context.Background()
	user := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	if action := b.sessions.takeAwaiting(user); action != "" {
		return b.handleEditInput(c, action, text)
	}

	// Unknown commands reach OnText too; they are never notes.
	if strings.HasPrefix(text, "/") {
		return c.Send(UnknownCommandMessage)
	}

	cats := b.store.Selectable(ctx, user)
	if len(cats) == 0 || text == "" {
		return b.save(c, text, nil, b.now())
	}

	parsed := tags.Parse(text)[1:]
	var s *session
	b.sessions.update(user, func(ss *session) {
		ss.clearPending()
		ss.pendingText = text
		ss.pendingAt = b.now()
		ss.fromText = parsed
		cp := ss.snapshot()
		s = &cp
	})

	msg := "Select additional categories for your note:"
	if len(parsed) > 0 {
		auto := make([]string, len(parsed))
		for i, t := range parsed {
			auto[i] = "#" + t
		}
		msg += fmt.Sprintf("\n(Auto-selected from text: %s)", strings.Join(auto, ", "))
	}
	return c.Send(msg, categoryKeyboard(cats, s))
}

func (b *Bot) save(c tele.Context, text string, extra []string, at time.Time) error {
	n, err := b.store.SaveWithTags(context.Background(), c.Sender().ID, text, extra, at)
	if err != nil {
		return b.fail(c, err)
	}
	b.metrics.NotesSaved.Inc()
	b.logger.Debugw("note saved", "user", n.UserID, "id", n.ID, "tags", n.Tags)
	return c.Send(formatSaved(n, maxMessageChars))
}

func (b *Bot) onCategoryToggle(c tele.Context) error {
	user := c.Sender().ID
	tag := tags.Normalize(c.Callback().Data)

	var (
		s       session
		pending bool
		changed bool
	)
	b.sessions.update(user, func(ss *session) {
		pending = ss.hasPending()
		if pending {
			changed = ss.toggle(tag)
			s = ss.snapshot()
		}
	})

	if !pending {
		_ = c.Respond()
		return c.Edit("❌ Error: No pending note found. Please try again.")
	}
	if !changed {
		return c.Respond(&tele.CallbackResponse{Text: "#" + tag + " comes from the note text"})
	}
	if err := c.Respond(); err != nil {
		b.logger.Warn(errors.Wrap(err, "c.Respond"))
	}
	return c.Edit(categoryKeyboard(b.store.Selectable(context.Background(), user), &s))
}

func (b *Bot) onCategoryDone(c tele.Context) error {
	user := c.Sender().ID

	var s session
	b.sessions.update(user, func(ss *session) {
		s = ss.snapshot()
		ss.clearPending()
	})
	_ = c.Respond()

	if !s.hasPending() {
		return c.Edit("❌ Error: No pending note found. Please try again.")
	}

	n, err := b.store.SaveWithTags(context.Background(), user, s.pendingText, s.selected, s.pendingAt)
	if err != nil {
		if vault.IsValidation(err) {
			return c.Edit("⚠️ " + err.Error())
		}
		b.metrics.StorageErrors.Inc()
		if editErr := c.Edit(InternalErrorMessage); editErr != nil {
			b.logger.Error(errors.Wrap(editErr, "c.Edit"))
		}
		return err
	}
	b.metrics.NotesSaved.Inc()
	return c.Edit(formatSaved(n, maxMessageChars))
}
