package bot

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
	tele "gopkg.in/telebot.v3"

	"github.com/eliseohh/brainvaultbot/internal/tags"
	"github.com/eliseohh/brainvaultbot/internal/vault"
)

var (
	// "#work 2" is the 2nd note under #work, a bare "2" the 2nd under #all.
	reNoteRef = regexp.MustCompile(`^(?:#([\p{L}\p{M}\p{N}_-]+)\s+)?(\d+)$`)
)

func (b *Bot) onEditOption(action string) tele.HandlerFunc {
	return func(c tele.Context) error {
		b.sessions.update(c.Sender().ID, func(s *session) {
			s.awaiting = action
			s.confirmWipe = false
		})
		_ = c.Respond()

		var prompt string
		switch action {
		case actionDelCat:
			prompt = "Type the category to delete (e.g., <code>#work</code>). Every note tagged with it is deleted."
		case actionDelNote:
			prompt = "Type the category and note number to delete (e.g., <code>#work 2</code>), as numbered in /view."
		}
		return c.Edit(prompt, tele.ModeHTML)
	}
}

func (b *Bot) handleEditInput(c tele.Context, action, text string) error {
	switch action {
	case actionDelCat:
		return b.deleteCategory(c, text)
	case actionDelNote:
		return b.deleteNote(c, text)
	default:
		return c.Send(fmt.Sprintf(HelpMessage, b.store.Location().String()))
	}
}

func (b *Bot) deleteCategory(c tele.Context, text string) error {
	ctx := context.Background()
	user := c.Sender().ID
	tag := tags.Normalize(text)

	if !tags.Valid(tag) {
		return c.Send("⚠️ Invalid format. Please use: <code>#category</code> (e.g., #work). Run /edit to try again.", tele.ModeHTML)
	}

	if !b.store.Has(ctx, user, tag) {
		return c.Send(fmt.Sprintf("❌ Category <code>#%s</code> not found.", html.EscapeString(tag)), tele.ModeHTML)
	}

	if tag == tags.All {
		b.sessions.update(user, func(s *session) { s.confirmWipe = true })
		total := len(b.store.List(ctx, user))
		return c.Send(fmt.Sprintf("⚠️ Deleting <code>#all</code> removes every note in your vault (%d). Are you sure?", total),
			tele.ModeHTML, wipeKeyboard())
	}

	n, err := b.store.DeleteCategory(ctx, user, tag)
	if err != nil {
		return b.fail(c, err)
	}
	b.metrics.NotesDeleted.Add(float64(n))
	b.logger.Infow("category deleted", "user", user, "tag", tag, "notes", n)

	return c.Send(fmt.Sprintf("✅ Category <code>#%s</code> has been deleted (%d notes removed).", html.EscapeString(tag), n), tele.ModeHTML)
}

func (b *Bot) deleteNote(c tele.Context, text string) error {
	ctx := context.Background()
	user := c.Sender().ID

	m := reNoteRef.FindStringSubmatch(text)
	if m == nil {
		return c.Send("⚠️ Invalid format. Please use: <code>#category number</code> (e.g., #work 2). Run /edit to try again.", tele.ModeHTML)
	}

	tag := tags.All
	if m[1] != "" {
		tag = tags.Normalize(m[1])
	}
	pos, err := strconv.Atoi(m[2])
	if err != nil {
		return c.Send("⚠️ Invalid note number.")
	}

	note, err := b.store.NoteAt(ctx, user, tag, pos)
	if errors.Is(err, vault.ErrNotFound) {
		return c.Send(fmt.Sprintf("❌ Note <code>#%s %d</code> not found.", html.EscapeString(tag), pos), tele.ModeHTML)
	}

	ok, err := b.store.Delete(ctx, user, note.ID)
	if err != nil {
		return b.fail(c, err)
	}
	if !ok {
		// Deleted by a concurrent update between lookup and delete.
		return c.Send(fmt.Sprintf("❌ Note <code>#%s %d</code> not found.", html.EscapeString(tag), pos), tele.ModeHTML)
	}
	b.metrics.NotesDeleted.Inc()

	return c.Send(fmt.Sprintf("✅ Deleted note from <code>#%s</code>:\n<s>%s</s>", html.EscapeString(tag), html.EscapeString(note.Text)), tele.ModeHTML)
}

func (b *Bot) onWipeConfirm(c tele.Context) error {
	ctx := context.Background()
	user := c.Sender().ID

	var confirmed bool
	b.sessions.update(user, func(s *session) {
		confirmed = s.confirmWipe
		s.confirmWipe = false
	})
	_ = c.Respond()

	if !confirmed {
		return c.Edit("❌ Nothing to confirm. Use /edit to start over.")
	}

	n, err := b.store.DeleteCategory(ctx, user, tags.All)
	if err != nil {
		b.metrics.StorageErrors.Inc()
		if editErr := c.Edit(InternalErrorMessage); editErr != nil {
			b.logger.Error(errors.Wrap(editErr, "c.Edit"))
		}
		return err
	}
	b.metrics.NotesDeleted.Add(float64(n))
	b.logger.Infow("vault wiped", "user", user, "notes", n)

	return c.Edit(fmt.Sprintf("🗑️ Deleted all %d notes. Your vault is empty.", n))
}

func (b *Bot) onWipeCancel(c tele.Context) error {
	b.sessions.update(c.Sender().ID, func(s *session) { s.confirmWipe = false })
	_ = c.Respond()
	return c.Edit("👍 Cancelled. Your notes are untouched.")
}
