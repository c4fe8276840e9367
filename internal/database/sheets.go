package database

import (
	"context"
	"database/sql"
	"fmt"

	"qwesade/internal/domain"
)

// Worksheet открывает лист, регистрируя его при первом обращении
func (db *DB) Worksheet(ctx context.Context, title string) (domain.Worksheet, error) {
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO sheets (title) VALUES (?)`, title); err != nil {
		return nil, fmt.Errorf("register sheet %q: %w", title, err)
	}
	return &worksheet{db: db, title: title}, nil
}

type worksheet struct {
	db    *DB
	title string
}

const upsertCell = `
    INSERT INTO sheet_cells (sheet, row_idx, col_idx, value, updated_at)
    VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
    ON CONFLICT(sheet, row_idx, col_idx) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

func (w *worksheet) Title() string { return w.title }

func (w *worksheet) Values(ctx context.Context) ([][]string, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT row_idx, col_idx, value FROM sheet_cells WHERE sheet = ? AND value <> '' ORDER BY row_idx, col_idx`,
		w.title)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", w.title, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var r, c int
		var v string
		if err := rows.Scan(&r, &c, &v); err != nil {
			return nil, err
		}
		for len(out) < r {
			out = append(out, []string{})
		}
		for len(out[r-1]) < c {
			out[r-1] = append(out[r-1], "")
		}
		out[r-1][c-1] = v
	}
	return out, rows.Err()
}

func (w *worksheet) UpdateRow(ctx context.Context, row int, values []string) error {
	return w.withTx(ctx, func(tx *sql.Tx) error {
		return writeRow(ctx, tx, w.title, row, values)
	})
}

func (w *worksheet) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell %d:%d", row, col)
	}
	if _, err := w.db.ExecContext(ctx, upsertCell, w.title, row, col, value); err != nil {
		return fmt.Errorf("update cell %d:%d in sheet %q: %w", row, col, w.title, err)
	}
	return nil
}

// AppendRow пишет строку сразу после последней непустой строки листа
func (w *worksheet) AppendRow(ctx context.Context, values []string) error {
	return w.withTx(ctx, func(tx *sql.Tx) error {
		var last int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(row_idx), 0) FROM sheet_cells WHERE sheet = ? AND value <> ''`,
			w.title).Scan(&last)
		if err != nil {
			return err
		}
		return writeRow(ctx, tx, w.title, last+1, values)
	})
}

func writeRow(ctx context.Context, tx *sql.Tx, title string, row int, values []string) error {
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	stmt, err := tx.PrepareContext(ctx, upsertCell)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, title, row, i+1, v); err != nil {
			return fmt.Errorf("write row %d in sheet %q: %w", row, title, err)
		}
	}
	return nil
}

func (w *worksheet) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
