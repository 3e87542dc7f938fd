package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseohh/brainvaultbot/internal/store"
	"github.com/eliseohh/brainvaultbot/internal/vault"
)

var (
	ctx = context.Background()
	t0  = time.Date(2024, 3, 1, 2, 30, 0, 0, time.UTC)
)

func openDB(t *testing.T, path string) *store.DB {
	t.Helper()
	db, err := store.NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndLoadAll(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "vault.db"))

	a := &vault.Note{UserID: 1, Text: "a #work", Tags: []string{"all", "work"}, CreatedAt: t0}
	b := &vault.Note{UserID: 2, Text: "b", Tags: []string{"all"}, CreatedAt: t0.Add(time.Second)}
	c := &vault.Note{UserID: 1, Text: "c #z #a", Tags: []string{"all", "z", "a"}, CreatedAt: t0.Add(time.Minute)}
	for _, n := range []*vault.Note{a, b, c} {
		require.NoError(t, db.InsertNote(ctx, n))
	}
	assert.Less(t, a.ID, b.ID)
	assert.Less(t, b.ID, c.ID)

	all, err := db.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all[1], 2)
	require.Len(t, all[2], 1)

	assert.Equal(t, a.ID, all[1][0].ID)
	assert.Equal(t, []string{"all", "z", "a"}, all[1][1].Tags, "tag order is preserved")
	assert.True(t, all[1][1].CreatedAt.Equal(c.CreatedAt))
	assert.Equal(t, "b", all[2][0].Text)
}

func TestDeleteNoteScopedToUser(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "vault.db"))

	n := &vault.Note{UserID: 1, Text: "mine", Tags: []string{"all"}, CreatedAt: t0}
	require.NoError(t, db.InsertNote(ctx, n))

	ok, err := db.DeleteNote(ctx, 2, n.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.DeleteNote(ctx, 1, n.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	var tagRows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM note_tags").Scan(&tagRows))
	assert.Zero(t, tagRows, "tags cascade with their note")
}

func TestDeleteNotes(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "vault.db"))

	var ids []int64
	for _, text := range []string{"a", "b", "c"} {
		n := &vault.Note{UserID: 1, Text: text, Tags: []string{"all"}, CreatedAt: t0}
		require.NoError(t, db.InsertNote(ctx, n))
		ids = append(ids, n.ID)
	}

	removed, err := db.DeleteNotes(ctx, 1, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = db.DeleteNotes(ctx, 1, nil)
	require.NoError(t, err)
	assert.Zero(t, removed)

	all, err := db.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all[1], 1)
	assert.Equal(t, "c", all[1][0].Text)
}

func TestDeleteNotesPastVariableLimit(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "vault.db"))

	total := 2*store.DeleteBatch + 3
	tx, err := db.Begin()
	require.NoError(t, err)
	for i := 0; i < total; i++ {
		_, err := tx.Exec(`INSERT INTO notes (user_id, text, created_at) VALUES (1, 'n', ?)`, t0.Format(time.RFC3339Nano))
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	all, err := db.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all[1], total)
	ids := make([]int64, len(all[1]))
	for i, n := range all[1] {
		ids[i] = n.ID
	}

	removed, err := db.DeleteNotes(ctx, 1, ids)
	require.NoError(t, err)
	assert.Equal(t, total, removed)

	all, err = db.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all[1])
}

func TestDeleteNotesRollsBackWholeWipe(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	ids := make([]int64, store.DeleteBatch+1)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM notes").WillReturnResult(sqlmock.NewResult(0, int64(store.DeleteBatch)))
	mock.ExpectExec("DELETE FROM notes").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	removed, err := store.Wrap(sqlDB).DeleteNotes(ctx, 1, ids)
	require.Error(t, err)
	assert.Zero(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVaultSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")
	loc, err := time.LoadLocation("Australia/Adelaide")
	require.NoError(t, err)

	db := openDB(t, path)
	s, err := vault.Open(ctx, db, loc, nil)
	require.NoError(t, err)

	keep, err := s.Save(ctx, 1, "keep #work", t0)
	require.NoError(t, err)
	gone, err := s.Save(ctx, 1, "gone #work", t0)
	require.NoError(t, err)
	ok, err := s.Delete(ctx, 1, gone.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, db.Close())

	// fresh process: only the file remains
	db2 := openDB(t, path)
	s2, err := vault.Open(ctx, db2, loc, nil)
	require.NoError(t, err)

	notes := s2.List(ctx, 1)
	require.Len(t, notes, 1)
	assert.Equal(t, keep.ID, notes[0].ID)
	assert.Equal(t, []string{"all", "work"}, notes[0].Tags)
	assert.Equal(t, loc, notes[0].CreatedAt.Location())
}

func TestInsertRollsBackOnTagFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("INSERT OR IGNORE INTO note_tags").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	n := &vault.Note{UserID: 1, Text: "x", Tags: []string{"all"}, CreatedAt: t0}
	err = store.Wrap(sqlDB).InsertNote(ctx, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Zero(t, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSurfacesStorageError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("SELECT n.id").WillReturnRows(
		sqlmock.NewRows([]string{"id", "user_id", "text", "created_at", "tag"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notes").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	s, err := vault.Open(ctx, store.Wrap(sqlDB), time.UTC, nil)
	require.NoError(t, err)

	_, err = s.Save(ctx, 1, "hello", t0)
	require.Error(t, err)
	assert.True(t, vault.IsStorage(err))
	assert.Empty(t, s.List(ctx, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAllBadTimestamp(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("SELECT n.id").WillReturnRows(
		sqlmock.NewRows([]string{"id", "user_id", "text", "created_at", "tag"}).
			AddRow(1, 1, "x", "yesterday", "all"))

	_, err = vault.Open(ctx, store.Wrap(sqlDB), time.UTC, nil)
	require.Error(t, err)
	assert.True(t, vault.IsStorage(err))
}
