package store

import (
	"context"
	"fmt"
	"sync"

	"qwesade/internal/domain"
)

// MemorySpreadsheet табличное хранилище в памяти процесса. Используется драйвером
// storage.driver=memory и в тестах.
type MemorySpreadsheet struct {
	mu     sync.Mutex
	sheets map[string]*MemoryWorksheet
}

func NewMemorySpreadsheet() *MemorySpreadsheet {
	return &MemorySpreadsheet{sheets: make(map[string]*MemoryWorksheet)}
}

func (s *MemorySpreadsheet) Worksheet(_ context.Context, title string) (domain.Worksheet, error) {
	return s.Sheet(title), nil
}

// Sheet возвращает лист с конкретным типом, создавая его при необходимости
func (s *MemorySpreadsheet) Sheet(title string) *MemoryWorksheet {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.sheets[title]
	if !ok {
		ws = &MemoryWorksheet{title: title}
		s.sheets[title] = ws
	}
	return ws
}

type MemoryWorksheet struct {
	title string
	mu    sync.RWMutex
	rows  [][]string
}

func NewMemoryWorksheet(title string, rows ...[]string) *MemoryWorksheet {
	ws := &MemoryWorksheet{title: title}
	for _, r := range rows {
		ws.rows = append(ws.rows, append([]string(nil), r...))
	}
	return ws
}

func (w *MemoryWorksheet) Title() string { return w.title }

func (w *MemoryWorksheet) Values(_ context.Context) ([][]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([][]string, len(w.rows))
	for i, r := range w.rows {
		out[i] = trimRow(r)
	}
	return trimRows(out), nil
}

func (w *MemoryWorksheet) UpdateRow(_ context.Context, row int, values []string) error {
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, v := range values {
		w.set(row, i+1, v)
	}
	return nil
}

func (w *MemoryWorksheet) UpdateCell(_ context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell %d:%d", row, col)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.set(row, col, value)
	return nil
}

func (w *MemoryWorksheet) AppendRow(_ context.Context, values []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row := len(trimRows(w.rows)) + 1
	for i, v := range values {
		w.set(row, i+1, v)
	}
	return nil
}

func (w *MemoryWorksheet) set(row, col int, value string) {
	for len(w.rows) < row {
		w.rows = append(w.rows, nil)
	}
	r := w.rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	w.rows[row-1] = r
}

func trimRow(r []string) []string {
	n := len(r)
	for n > 0 && r[n-1] == "" {
		n--
	}
	return append([]string{}, r[:n]...)
}

func trimRows(rows [][]string) [][]string {
	n := len(rows)
	for n > 0 && len(trimRow(rows[n-1])) == 0 {
		n--
	}
	return rows[:n]
}
