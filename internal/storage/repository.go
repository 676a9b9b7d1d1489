// Package storage keeps an offline snapshot of the spaces, expenses and
// categories last seen from the API in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found in snapshot")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time avoids SQLITE_BUSY from concurrent refreshes
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSpaces replaces the stored space list. Contents of spaces that are no
// longer listed are dropped.
func (r *SQLiteRepository) SaveSpaces(ctx context.Context, spaces []core.Space) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM spaces`); err != nil {
			return fmt.Errorf("clear spaces: %w", err)
		}
		for i, sp := range spaces {
			if err := insertSpace(ctx, tx, i, sp); err != nil {
				return err
			}
		}
		for _, table := range []string{"expenses", "categories"} {
			q := `DELETE FROM ` + table + ` WHERE space_id NOT IN (SELECT id FROM spaces)`
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("prune %s: %w", table, err)
			}
		}

		slog.InfoContext(ctx, "Spaces snapshot saved", "count", len(spaces))
		return nil
	})
}

// SaveSpace inserts or updates one space, keeping its position when it is
// already stored.
func (r *SQLiteRepository) SaveSpace(ctx context.Context, sp core.Space) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var pos int
		err := tx.QueryRowContext(ctx, `SELECT position FROM spaces WHERE id = ?`, sp.ID.String()).Scan(&pos)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM spaces`).Scan(&pos); err != nil {
				return fmt.Errorf("next space position: %w", err)
			}
		case err != nil:
			return fmt.Errorf("find space %s: %w", sp.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM spaces WHERE id = ?`, sp.ID.String()); err != nil {
			return fmt.Errorf("replace space %s: %w", sp.ID, err)
		}
		return insertSpace(ctx, tx, pos, sp)
	})
}

// SaveSpaceContents replaces the stored expenses and categories of a space.
func (r *SQLiteRepository) SaveSpaceContents(ctx context.Context, spaceID core.ID, expenses []core.Expense, categories []core.Category) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE space_id = ?`, spaceID.String()); err != nil {
			return fmt.Errorf("clear expenses: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE space_id = ?`, spaceID.String()); err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}

		for i, e := range expenses {
			var category sql.NullString
			if id := e.CategoryID(); id != "" {
				category = sql.NullString{String: id.String(), Valid: true}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO expenses (space_id, id, position, cost, description, date, paid_by, category_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				spaceID.String(), e.ID.String(), i, e.Cost, e.Description, e.Date, e.PaidBy, category)
			if err != nil {
				return fmt.Errorf("insert expense %s: %w", e.ID, err)
			}
		}

		for i, c := range categories {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO categories (space_id, id, position, title)
				VALUES (?, ?, ?, ?)`,
				spaceID.String(), c.ID.String(), i, c.Title)
			if err != nil {
				return fmt.Errorf("insert category %s: %w", c.ID, err)
			}
		}

		slog.InfoContext(ctx, "Space contents saved to SQLite",
			"space_id", spaceID.String(),
			"expenses", len(expenses),
			"categories", len(categories))
		return nil
	})
}

// DeleteSpace removes a space and everything stored under it.
func (r *SQLiteRepository) DeleteSpace(ctx context.Context, spaceID core.ID) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM expenses WHERE space_id = ?`,
			`DELETE FROM categories WHERE space_id = ?`,
			`DELETE FROM spaces WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, spaceID.String()); err != nil {
				return fmt.Errorf("delete space %s: %w", spaceID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListSpaces(ctx context.Context) ([]core.Space, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, admin, collaborators
		FROM spaces ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var spaces []core.Space
	for rows.Next() {
		sp, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, sp)
	}
	return spaces, rows.Err()
}

func (r *SQLiteRepository) GetSpace(ctx context.Context, spaceID core.ID) (core.Space, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, admin, collaborators
		FROM spaces WHERE id = ?`, spaceID.String())
	sp, err := scanSpace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Space{}, fmt.Errorf("space %s: %w", spaceID, ErrNotFound)
	}
	return sp, err
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, spaceID core.ID) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, cost, description, date, paid_by, category_id
		FROM expenses WHERE space_id = ? ORDER BY position`, spaceID.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e        core.Expense
			id       string
			category sql.NullString
		)
		if err := rows.Scan(&id, &e.Cost, &e.Description, &e.Date, &e.PaidBy, &category); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.ID = core.ID(id)
		e.Space = spaceID
		if category.Valid {
			c := core.ID(category.String)
			e.Category = &c
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, spaceID core.ID) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title FROM categories WHERE space_id = ? ORDER BY position`, spaceID.String())
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, core.Category{ID: core.ID(id), Title: title, SpaceID: spaceID})
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertSpace(ctx context.Context, tx *sql.Tx, pos int, sp core.Space) error {
	collaborators := sp.Collaborators
	if collaborators == nil {
		collaborators = []string{}
	}
	encoded, err := json.Marshal(collaborators)
	if err != nil {
		return fmt.Errorf("encode collaborators: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO spaces (id, position, name, description, admin, collaborators, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		sp.ID.String(), pos, sp.Name, sp.Description, sp.Admin, string(encoded))
	if err != nil {
		return fmt.Errorf("insert space %s: %w", sp.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpace(s scanner) (core.Space, error) {
	var (
		sp            core.Space
		id            string
		collaborators string
	)
	if err := s.Scan(&id, &sp.Name, &sp.Description, &sp.Admin, &collaborators); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sp, err
		}
		return sp, fmt.Errorf("scan space: %w", err)
	}
	sp.ID = core.ID(id)
	if err := json.Unmarshal([]byte(collaborators), &sp.Collaborators); err != nil {
		return sp, fmt.Errorf("decode collaborators of %s: %w", id, err)
	}
	return sp, nil
}
