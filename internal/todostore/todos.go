package todostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/rxstore/internal/todos"
)

// ErrNotFound is returned when a todo ID does not exist.
var ErrNotFound = todos.ErrNotFound

var _ todos.Source = (*Store)(nil)

// FetchTodos returns every todo ordered by ID.
// Returns an empty slice (not nil) if there are none.
func (s *Store) FetchTodos(ctx context.Context) ([]todos.Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, completed
		FROM todos
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	out := []todos.Todo{}
	for rows.Next() {
		var t todos.Todo
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Completed); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return out, nil
}

// GetTodo returns the todo with id, or ErrNotFound.
func (s *Store) GetTodo(ctx context.Context, id int) (todos.Todo, error) {
	var t todos.Todo
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, completed
		FROM todos
		WHERE id = ?
	`, id).Scan(&t.ID, &t.UserID, &t.Title, &t.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return todos.Todo{}, fmt.Errorf("get todo %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return todos.Todo{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return t, nil
}

// SaveTodo inserts t or replaces the todo with the same ID. The title is
// trimmed and NFC normalized; the stored form is returned.
func (s *Store) SaveTodo(ctx context.Context, t todos.Todo) (todos.Todo, error) {
	if t.ID <= 0 {
		return todos.Todo{}, fmt.Errorf("save todo: invalid id %d", t.ID)
	}
	t.Title = normalizeTitle(t.Title)
	if t.Title == "" {
		return todos.Todo{}, fmt.Errorf("save todo %d: empty title", t.ID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todos (id, user_id, title, completed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			completed = excluded.completed
	`, t.ID, t.UserID, t.Title, t.Completed)
	if err != nil {
		return todos.Todo{}, fmt.Errorf("save todo %d: %w", t.ID, err)
	}
	return t, nil
}

// DeleteTodo removes the todo with id. Deleting a missing todo is not an
// error.
func (s *Store) DeleteTodo(ctx context.Context, id int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	return nil
}

// NextID returns one more than the largest stored ID, or 1.
func (s *Store) NextID(ctx context.Context) (int, error) {
	var next int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM todos`).Scan(&next); err != nil {
		return 0, fmt.Errorf("next todo id: %w", err)
	}
	return next, nil
}

// Seed saves every todo in one transaction.
func (s *Store) Seed(ctx context.Context, seed []todos.Todo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range seed {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO todos (id, user_id, title, completed)
			VALUES (?, ?, ?, ?)
		`, t.ID, t.UserID, normalizeTitle(t.Title), t.Completed)
		if err != nil {
			return fmt.Errorf("seed todo %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}
	return nil
}

// normalizeTitle applies NFC at the storage boundary so visually equal
// titles compare equal.
func normalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}
