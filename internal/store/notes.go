package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/eliseohh/brainvaultbot/internal/vault"
	"github.com/pkg/errors"
)

const timeLayout = time.RFC3339Nano

// deleteBatch keeps each DELETE well under SQLite's bound-variable limit.
const deleteBatch = 500

var _ vault.Backend = (*DB)(nil)

// InsertNote writes the note and its tags in one transaction.
func (d *DB) InsertNote(ctx context.Context, n *vault.Note) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "d.BeginTx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO notes (user_id, text, created_at) VALUES (?, ?, ?)`,
		n.UserID, n.Text, n.CreatedAt.Format(timeLayout))
	if err != nil {
		return errors.Wrap(err, "insert note")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "res.LastInsertId")
	}

	for pos, tag := range n.Tags {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_tags (note_id, position, tag) VALUES (?, ?, ?)`,
			id, pos, tag)
		if err != nil {
			return errors.Wrap(err, "insert tag")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "tx.Commit")
	}

	n.ID = id
	return nil
}

func (d *DB) DeleteNote(ctx context.Context, userID, id int64) (bool, error) {
	res, err := d.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, errors.Wrap(err, "delete note")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "res.RowsAffected")
	}
	return n > 0, nil
}

// DeleteNotes removes all ids owned by userID, or none of them.
func (d *DB) DeleteNotes(ctx context.Context, userID int64, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "d.BeginTx")
	}
	defer tx.Rollback()

	var total int64
	for start := 0; start < len(ids); start += deleteBatch {
		end := start + deleteBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		args := make([]any, 0, len(batch)+1)
		args = append(args, userID)
		for _, id := range batch {
			args = append(args, id)
		}
		query := `DELETE FROM notes WHERE user_id = ? AND id IN (?` + strings.Repeat(", ?", len(batch)-1) + `)`

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, errors.Wrap(err, "delete notes")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "res.RowsAffected")
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "tx.Commit")
	}
	return int(total), nil
}

// LoadAll reads the whole vault with a single query, tags in saved order.
func (d *DB) LoadAll(ctx context.Context) (map[int64][]vault.Note, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT n.id, n.user_id, n.text, n.created_at, t.tag
		FROM notes n
		LEFT JOIN note_tags t ON t.note_id = n.id
		ORDER BY n.id, t.position`)
	if err != nil {
		return nil, errors.Wrap(err, "select notes")
	}
	defer rows.Close()

	out := make(map[int64][]vault.Note)
	var cur *vault.Note

	flush := func() {
		if cur != nil {
			out[cur.UserID] = append(out[cur.UserID], *cur)
		}
	}

	for rows.Next() {
		var (
			id, userID int64
			text, ts   string
			tag        sql.NullString
		)
		if err := rows.Scan(&id, &userID, &text, &ts, &tag); err != nil {
			return nil, errors.Wrap(err, "rows.Scan")
		}

		if cur == nil || cur.ID != id {
			flush()
			createdAt, err := time.Parse(timeLayout, ts)
			if err != nil {
				return nil, errors.Wrapf(err, "note %d: bad created_at %q", id, ts)
			}
			cur = &vault.Note{ID: id, UserID: userID, Text: text, CreatedAt: createdAt}
		}
		if tag.Valid {
			cur.Tags = append(cur.Tags, tag.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows.Err")
	}
	flush()

	return out, nil
}
