package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseohh/brainvaultbot/internal/store"
	"github.com/eliseohh/brainvaultbot/internal/vault"
)

func seedVault(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.db")

	db, err := store.NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.InitSchema())

	s, err := vault.Open(context.Background(), db, time.UTC, nil)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), 42, "Remember to call Alice #reminders #work", time.Now())
	require.NoError(t, err)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestExportCommand(t *testing.T) {
	dbPath := seedVault(t)

	out, err := run(t, "export", "--db", dbPath, "--user", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Tags: #all, #reminders, #work")

	file := filepath.Join(t.TempDir(), "notes.yaml")
	_, err = run(t, "export", "--db", dbPath, "--user", "42", "--format", "yaml", "-o", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "count: 1")

	out, err = run(t, "export", "--db", dbPath, "--user", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "(no notes)")
}

func TestExportCommandErrors(t *testing.T) {
	_, err := run(t, "export", "--db", seedVault(t))
	assert.Error(t, err)

	_, err = run(t, "export", "--db", filepath.Join(t.TempDir(), "missing.db"), "--user", "1")
	assert.Error(t, err)

	_, err = run(t, "export", "--db", seedVault(t), "--user", "42", "--format", "pdf")
	assert.Error(t, err)
}

func TestResetCommand(t *testing.T) {
	dbPath := seedVault(t)

	_, err := run(t, "reset", "--db", dbPath)
	require.Error(t, err)
	out, err := run(t, "export", "--db", dbPath, "--user", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Notes: 1", "reset without --yes keeps the vault")

	_, err = run(t, "reset", "--db", dbPath, "--yes")
	require.NoError(t, err)
	out, err = run(t, "export", "--db", dbPath, "--user", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "(no notes)")
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	require.NoError(t, writeFileAtomic(target, []byte("new"), 0o600))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
