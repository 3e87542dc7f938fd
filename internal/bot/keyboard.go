package bot

import (
	"fmt"

	"github.com/eliseohh/brainvaultbot/internal/vault"
	tele "gopkg.in/telebot.v3"
)

// Telegram rejects callback data over 64 bytes; "\fcat|" takes 5 of them.
const maxCallbackTag = 59

var (
	btnCat     = tele.Btn{Unique: "cat"}
	btnCatDone = tele.Btn{Unique: "cat_done", Text: "Done ✅"}

	btnDelCat  = tele.Btn{Unique: actionDelCat, Text: "🗑️ Delete Category"}
	btnDelNote = tele.Btn{Unique: actionDelNote, Text: "✂️ Delete Note"}

	btnWipeYes = tele.Btn{Unique: "delall_yes", Text: "⚠️ Yes, delete everything"}
	btnWipeNo  = tele.Btn{Unique: "delall_no", Text: "Cancel"}
)

// categoryKeyboard lists the categories two per row with a Done button last.
func categoryKeyboard(cats []vault.Category, s *session) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}

	var (
		rows []tele.Row
		row  []tele.Btn
	)
	for _, c := range cats {
		if len(c.Name) > maxCallbackTag {
			continue
		}
		prefix := ""
		if s != nil && s.isSelected(c.Name) {
			prefix = "✅ "
		}
		row = append(row, m.Data(fmt.Sprintf("%s#%s (%d)", prefix, c.Name, c.Count), btnCat.Unique, c.Name))
		if len(row) == 2 {
			rows = append(rows, m.Row(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, m.Row(row...))
	}
	rows = append(rows, m.Row(btnCatDone))

	m.Inline(rows...)
	return m
}

func editKeyboard() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(btnDelCat), m.Row(btnDelNote))
	return m
}

func wipeKeyboard() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(btnWipeYes, btnWipeNo))
	return m
}
