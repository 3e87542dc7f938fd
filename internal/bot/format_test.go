package bot

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseohh/brainvaultbot/internal/vault"
)

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	text := "line one\nline two\nline three"
	chunks := splitMessage(text, 18)
	assert.Equal(t, []string{"line one\nline two", "line three"}, chunks)

	long := strings.Repeat("é", 25)
	chunks = splitMessage("head\n"+long, 10)
	assert.Equal(t, []string{"head", strings.Repeat("é", 10), strings.Repeat("é", 10), strings.Repeat("é", 5)}, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 10)
	}
}

func TestSplitMessageKeepsEntitiesWhole(t *testing.T) {
	line := "<code>1.</code> " + strings.Repeat("a", 3980) + strings.Repeat("&amp;", 10)
	chunks := splitMessage(line, maxMessageChars)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasSuffix(chunks[0], "a"), "first chunk ends %q", chunks[0][len(chunks[0])-8:])
	assert.Equal(t, strings.Repeat("&amp;", 10), chunks[1])

	assert.Equal(t, []string{"ab", "<b>c"}, splitMessage("ab<b>c", 4))
}

func TestFormatSavedFitsLimit(t *testing.T) {
	n := vault.Note{
		Text:      strings.Repeat("é", vault.MaxNoteChars),
		Tags:      []string{"all", "work"},
		CreatedAt: time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
	}
	out := formatSaved(n, maxMessageChars)
	assert.LessOrEqual(t, utf8.RuneCountInString(out), maxMessageChars)
	assert.True(t, strings.HasPrefix(out, "✅ Note saved to: #all, #work\n📝 éé"))
	assert.True(t, strings.HasSuffix(out, "… @ 2024-03-01 01:00:00 PM"))

	n.Text = "short"
	assert.Equal(t, "✅ Note saved to: #all, #work\n📝 short @ 2024-03-01 01:00:00 PM", formatSaved(n, maxMessageChars))
}

func TestSessionToggle(t *testing.T) {
	s := &session{pendingText: "x #work", fromText: []string{"work"}}

	assert.False(t, s.toggle("work"))
	assert.True(t, s.toggle("home"))
	assert.True(t, s.isSelected("home"))
	assert.True(t, s.toggle("home"))
	assert.False(t, s.isSelected("home"))
	assert.True(t, s.isSelected("work"))

	snap := s.snapshot()
	s.toggle("later")
	assert.Empty(t, snap.selected)
}

func TestSessionsForget(t *testing.T) {
	ss := newSessions()
	ss.update(1, func(s *session) { s.awaiting = actionDelCat })
	assert.Equal(t, actionDelCat, ss.takeAwaiting(1))
	assert.Empty(t, ss.takeAwaiting(1))
	assert.Empty(t, ss.m, "idle sessions are dropped")
}
