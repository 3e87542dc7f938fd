package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/eliseohh/brainvaultbot/internal/vault"
)

// Telegram caps messages at 4096 chars; leave room for HTML entities.
const maxMessageChars = 4000

func formatEntry(idx int, n vault.Note) string {
	return fmt.Sprintf("<code>%d.</code> %s @ %s", idx, html.EscapeString(n.Text), n.CreatedAt.Format(vault.TimeFormat))
}

func formatCategory(name string, notes []vault.Note) string {
	lines := []string{fmt.Sprintf("<b>📝 Notes in #%s (%d)</b>", html.EscapeString(name), len(notes)), ""}
	for i, n := range notes {
		lines = append(lines, formatEntry(i+1, n))
	}
	return strings.Join(lines, "\n")
}

// formatOverview shows every category in order, each with its own numbering
// so "#tag N" in the edit flow matches what the user sees.
func formatOverview(total int, cats []vault.Category, byTag func(string) []vault.Note) string {
	lines := []string{fmt.Sprintf("📚 <b>All Notes (%d total)</b>", total), ""}
	for _, c := range cats {
		lines = append(lines, fmt.Sprintf("\n<b>📑 #%s (%d)</b>", html.EscapeString(c.Name), c.Count))
		for i, n := range byTag(c.Name) {
			lines = append(lines, formatEntry(i+1, n))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// formatSaved confirms a save in plain text. A note near the size cap would
// push the reply past limit, so the quoted text is shortened to fit.
func formatSaved(n vault.Note, limit int) string {
	saved := make([]string, len(n.Tags))
	for i, t := range n.Tags {
		saved[i] = "#" + t
	}
	head := fmt.Sprintf("✅ Note saved to: %s\n📝 ", strings.Join(saved, ", "))
	tail := " @ " + n.CreatedAt.Format(vault.TimeFormat)

	room := limit - utf8.RuneCountInString(head) - utf8.RuneCountInString(tail)
	return truncate(head, limit-utf8.RuneCountInString(tail)) + truncate(n.Text, room) + tail
}

// truncate shortens s to at most limit runes, marking the cut with "…".
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 1 {
		return ""
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

// splitMessage cuts text into chunks of at most limit runes, preferring line
// boundaries so HTML tags stay intact.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		for n > limit {
			flush()
			r := []rune(line)
			cut := safeCut(r, limit)
			chunks = append(chunks, string(r[:cut]))
			line = string(r[cut:])
			n -= cut
		}
		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}

// safeCut picks a cut point at or below limit that does not fall inside an
// HTML entity or tag, which Telegram would reject as unparseable.
func safeCut(r []rune, limit int) int {
	for i := limit - 1; i >= 0; i-- {
		switch r[i] {
		case ';', '>':
			return limit
		case '&', '<':
			if i == 0 {
				return limit
			}
			return i
		}
	}
	return limit
}
