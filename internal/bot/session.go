package bot

import (
	"sync"
	"time"

	"github.com/eliseohh/brainvaultbot/internal/tags"
)

// Pending edit actions, stored until the user types the argument.
const (
	actionDelCat  = "edit_delcat"
	actionDelNote = "edit_delnote"
)

// session is the short-lived conversational state of one user. It is kept
// in memory only; losing it on restart just drops a half-finished dialog.
type session struct {
	pendingText string
	pendingAt   time.Time
	fromText    []string // tags parsed from pendingText, always applied
	selected    []string // extra categories picked on the keyboard

	awaiting    string
	confirmWipe bool
}

func (s *session) hasPending() bool {
	return s.pendingText != ""
}

// toggle flips an extra category. Tags that come from the note text itself
// cannot be switched off.
func (s *session) toggle(tag string) bool {
	if tags.Contains(s.fromText, tag) {
		return false
	}
	for i, t := range s.selected {
		if t == tag {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return true
		}
	}
	s.selected = append(s.selected, tag)
	return true
}

func (s *session) isSelected(tag string) bool {
	return tags.Contains(s.fromText, tag) || tags.Contains(s.selected, tag)
}

// snapshot copies the session so it can be read outside the lock.
func (s *session) snapshot() session {
	cp := *s
	cp.fromText = append([]string(nil), s.fromText...)
	cp.selected = append([]string(nil), s.selected...)
	return cp
}

func (s *session) clearPending() {
	s.pendingText = ""
	s.pendingAt = time.Time{}
	s.fromText = nil
	s.selected = nil
}

type sessions struct {
	mu sync.Mutex
	m  map[int64]*session
}

func newSessions() *sessions {
	return &sessions{m: make(map[int64]*session)}
}

// update runs fn on the user's session under the lock.
func (ss *sessions) update(userID int64, fn func(s *session)) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.m[userID]
	if !ok {
		s = &session{}
		ss.m[userID] = s
	}
	fn(s)

	if !s.hasPending() && s.awaiting == "" && !s.confirmWipe {
		delete(ss.m, userID)
	}
}

// takeAwaiting returns and clears the pending edit action.
func (ss *sessions) takeAwaiting(userID int64) string {
	var action string
	ss.update(userID, func(s *session) {
		action = s.awaiting
		s.awaiting = ""
	})
	return action
}
