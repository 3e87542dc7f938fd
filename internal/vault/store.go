package vault

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eliseohh/brainvaultbot/internal/tags"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// MaxNoteChars caps a single note, in runes.
const MaxNoteChars = 4096

type noteInput struct {
	Text string `validate:"required,max=4096"`
}

// Store keeps every user's notes in memory, written through to a Backend.
// The Backend is always written first, so the cache can be rebuilt from it.
type Store struct {
	backend  Backend
	loc      *time.Location
	logger   *zap.SugaredLogger
	validate *validator.Validate

	mu    sync.RWMutex
	notes map[int64][]Note

	// one lock per user, so users never wait on each other
	userLocks sync.Map
}

// Open loads the vault from backend. Timestamps are shown in loc.
func Open(ctx context.Context, backend Backend, loc *time.Location, logger *zap.SugaredLogger) (*Store, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := &Store{
		backend:  backend,
		loc:      loc,
		logger:   logger,
		validate: validator.New(),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload drops the cache and reads everything back from the backend.
func (s *Store) Reload(ctx context.Context) error {
	all, err := s.backend.LoadAll(ctx)
	if err != nil {
		return &StorageError{Op: "load", Err: err}
	}

	total := 0
	for user, notes := range all {
		for i := range notes {
			notes[i].CreatedAt = notes[i].CreatedAt.In(s.loc)
		}
		all[user] = notes
		total += len(notes)
	}

	s.mu.Lock()
	s.notes = all
	s.mu.Unlock()

	s.logger.Infof("vault loaded: %d notes for %d users", total, len(all))
	return nil
}

// Location is the zone note timestamps are rendered in.
func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) lockUser(userID int64) func() {
	m, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Save stores text as a new note tagged from its hashtags.
func (s *Store) Save(ctx context.Context, userID int64, text string, at time.Time) (Note, error) {
	return s.SaveWithTags(ctx, userID, text, nil, at)
}

// SaveWithTags is Save plus extra categories picked outside the text.
func (s *Store) SaveWithTags(ctx context.Context, userID int64, text string, extra []string, at time.Time) (Note, error) {
	text = strings.TrimSpace(text)
	if err := s.check(text); err != nil {
		return Note{}, err
	}

	n := Note{
		UserID:    userID,
		Text:      text,
		Tags:      tags.Merge(tags.Parse(text), extra...),
		CreatedAt: at.In(s.loc),
	}

	unlock := s.lockUser(userID)
	defer unlock()

	if err := s.backend.InsertNote(ctx, &n); err != nil {
		return Note{}, &StorageError{Op: "save", Err: err}
	}

	s.mu.Lock()
	s.notes[userID] = append(s.notes[userID], n)
	s.mu.Unlock()

	return cloneNote(n), nil
}

func (s *Store) check(text string) error {
	err := s.validate.Struct(noteInput{Text: text})
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "required":
			return &ValidationError{Field: "note", Reason: "text is empty"}
		case "max":
			return &ValidationError{Field: "note", Reason: fmt.Sprintf("text is longer than %d characters", MaxNoteChars)}
		}
	}
	return &ValidationError{Field: "note", Reason: err.Error()}
}

// List returns the user's notes in creation order. Unknown users get an
// empty slice.
func (s *Store) List(ctx context.Context, userID int64) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.notes[userID]
	out := make([]Note, len(src))
	for i, n := range src {
		out[i] = cloneNote(n)
	}
	return out
}

// ListByTag returns the notes carrying tag, in creation order.
func (s *Store) ListByTag(ctx context.Context, userID int64, tag string) []Note {
	tag = tags.Normalize(tag)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Note{}
	for _, n := range s.notes[userID] {
		if tags.Contains(n.Tags, tag) {
			out = append(out, cloneNote(n))
		}
	}
	return out
}

// NoteAt resolves the pos'th (1-based) note of a category view.
func (s *Store) NoteAt(ctx context.Context, userID int64, tag string, pos int) (Note, error) {
	notes := s.ListByTag(ctx, userID, tag)
	if pos < 1 || pos > len(notes) {
		return Note{}, ErrNotFound
	}
	return notes[pos-1], nil
}

// Delete removes one note. It reports false if the user has no such note.
func (s *Store) Delete(ctx context.Context, userID, id int64) (bool, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	if !s.owns(userID, id) {
		return false, nil
	}

	ok, err := s.backend.DeleteNote(ctx, userID, id)
	if err != nil {
		return false, &StorageError{Op: "delete", Err: err}
	}

	s.mu.Lock()
	s.notes[userID] = without(s.notes[userID], map[int64]bool{id: true})
	s.mu.Unlock()

	return ok, nil
}

// DeleteCategory removes every note tagged tag and returns how many went.
// Deleting "all" wipes the user's whole vault.
func (s *Store) DeleteCategory(ctx context.Context, userID int64, tag string) (int, error) {
	tag = tags.Normalize(tag)

	unlock := s.lockUser(userID)
	defer unlock()

	s.mu.RLock()
	var ids []int64
	for _, n := range s.notes[userID] {
		if tags.Contains(n.Tags, tag) {
			ids = append(ids, n.ID)
		}
	}
	s.mu.RUnlock()

	if len(ids) == 0 {
		return 0, nil
	}

	if _, err := s.backend.DeleteNotes(ctx, userID, ids); err != nil {
		return 0, &StorageError{Op: "delete category", Err: err}
	}

	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	s.notes[userID] = without(s.notes[userID], drop)
	if len(s.notes[userID]) == 0 {
		delete(s.notes, userID)
	}
	s.mu.Unlock()

	return len(ids), nil
}

func (s *Store) owns(userID, id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notes[userID] {
		if n.ID == id {
			return true
		}
	}
	return false
}

func without(notes []Note, drop map[int64]bool) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if !drop[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func cloneNote(n Note) Note {
	n.Tags = append([]string(nil), n.Tags...)
	return n
}
