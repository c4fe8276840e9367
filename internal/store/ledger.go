package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"qwesade/internal/domain"
	"qwesade/internal/models"
	"qwesade/internal/parsing"
)

const dateHeader = "Date"

// Ledger календарь занятости: строка на дату, колонка на метку слота.
// Колонки для новых интервалов добавляются по требованию, строки дат создаются при первом обращении.
//
// Запись не транзакционна: перед записью ячейка перечитывается, но два процесса,
// пишущие в один лист одновременно, могут занять один слот.
type Ledger struct {
	ws       domain.Worksheet
	presets  []string
	wholeDay string
	logger   *zerolog.Logger

	mu sync.Mutex
}

func NewLedger(ctx context.Context, ws domain.Worksheet, presets []string, wholeDay string, logger *zerolog.Logger) (*Ledger, error) {
	if wholeDay == "" {
		return nil, errors.New("whole day label is required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	l := &Ledger{ws: ws, wholeDay: wholeDay, logger: logger}
	hasWholeDay := false
	for _, p := range presets {
		p = parsing.CanonicalSlot(p)
		if p == "" {
			continue
		}
		if l.isWholeDay(p) {
			hasWholeDay = true
		}
		l.presets = append(l.presets, p)
	}
	if !hasWholeDay {
		l.presets = append([]string{wholeDay}, l.presets...)
	}

	if err := l.ensureHeader(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Presets метки слотов из конфигурации, включая "весь день"
func (l *Ledger) Presets() []string {
	return append([]string(nil), l.presets...)
}

func (l *Ledger) WholeDayLabel() string {
	return l.wholeDay
}

func (l *Ledger) ensureHeader(ctx context.Context) error {
	c, err := l.load(ctx)
	if err != nil {
		return err
	}

	header := append([]string(nil), c.header...)
	if len(header) == 0 {
		header = []string{dateHeader}
	}
	changed := len(c.header) == 0
	for _, p := range l.presets {
		if l.columnOf(header, p) == 0 {
			header = append(header, p)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if err := l.ws.UpdateRow(ctx, 1, header); err != nil {
		return unavailable("write calendar header", err)
	}
	return nil
}

// EnsureDateRow возвращает номер строки даты, создавая пустую строку при отсутствии
func (l *Ledger) EnsureDateRow(ctx context.Context, date string) (int, error) {
	if err := validDate(date); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	_, row, err := l.ensureRow(ctx, date)
	return row, err
}

// GetAvailability отдает занятость всех колонок даты. Если день занят целиком,
// каждая колонка получает значение models.AllDaySentinel.
func (l *Ledger) GetAvailability(ctx context.Context, date string) (map[string]string, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c, row, err := l.ensureRow(ctx, date)
	if err != nil {
		return nil, err
	}

	allDay := l.wholeDayOccupied(c, row)
	out := make(map[string]string, len(c.header))
	for col := 2; col <= len(c.header); col++ {
		label := strings.TrimSpace(c.header[col-1])
		if label == "" {
			continue
		}
		if allDay {
			out[label] = models.AllDaySentinel
			continue
		}
		out[label] = c.cell(row, col)
	}
	return out, nil
}

func (l *Ledger) IsOccupied(ctx context.Context, date, slot string) (bool, error) {
	if err := validDate(date); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c, row, err := l.ensureRow(ctx, date)
	if err != nil {
		return false, err
	}
	return l.occupied(c, row, strings.TrimSpace(slot)), nil
}

// MarkSlot занимает слот. false без изменений в листе, если слот или пересекающийся
// с ним интервал уже занят либо нарушается правило "весь день".
func (l *Ledger) MarkSlot(ctx context.Context, date, slot, occupant string) (bool, error) {
	if err := validDate(date); err != nil {
		return false, err
	}
	slot = strings.TrimSpace(slot)
	if slot == "" || strings.TrimSpace(occupant) == "" {
		return false, errors.New("slot and occupant must not be empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c, row, err := l.ensureRow(ctx, date)
	if err != nil {
		return false, err
	}

	whole := l.isWholeDay(slot)
	switch {
	case !whole && l.wholeDayOccupied(c, row):
		return false, nil
	case whole && c.anyOccupied(row):
		return false, nil
	case l.occupied(c, row, slot):
		return false, nil
	}

	col := l.columnOf(c.header, slot)
	if col == 0 {
		label := parsing.CanonicalSlot(slot)
		if whole {
			label = l.wholeDay
		}
		col = len(c.header) + 1
		if err := l.ws.UpdateCell(ctx, 1, col, label); err != nil {
			return false, unavailable("add slot column", err)
		}
		l.logger.Info().Str("slot", label).Int("column", col).Msg("Calendar column added")
	}

	fresh, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	if fresh.cell(row, col) != "" {
		return false, nil
	}

	if err := l.ws.UpdateCell(ctx, row, col, occupant); err != nil {
		return false, unavailable("mark slot", err)
	}
	return true, nil
}

// ClearSlot освобождает слот. false, если даты или колонки нет либо ячейка уже пуста.
func (l *Ledger) ClearSlot(ctx context.Context, date, slot string) (bool, error) {
	if err := validDate(date); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	row := c.rowOf(date)
	col := l.columnOf(c.header, strings.TrimSpace(slot))
	if row == 0 || col == 0 || c.cell(row, col) == "" {
		return false, nil
	}

	if err := l.ws.UpdateCell(ctx, row, col, ""); err != nil {
		return false, unavailable("clear slot", err)
	}
	return true, nil
}

// BusyDatesForMonth даты месяца, в которых занят хотя бы один слот
func (l *Ledger) BusyDatesForMonth(ctx context.Context, year int, month time.Month) (map[string]bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	busy := make(map[string]bool)
	for i := 1; i < len(c.rows); i++ {
		date := c.cell(i+1, 1)
		if strings.HasPrefix(date, prefix) && c.anyOccupied(i+1) {
			busy[date] = true
		}
	}
	return busy, nil
}

// SlotStates состояние всех слотов из конфигурации и уже занятых пользовательских интервалов
func (l *Ledger) SlotStates(ctx context.Context, date string) ([]models.SlotState, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c, row, err := l.ensureRow(ctx, date)
	if err != nil {
		return nil, err
	}

	states := make([]models.SlotState, 0, len(c.header))
	seen := make(map[int]bool)
	for _, p := range l.presets {
		col := l.columnOf(c.header, p)
		seen[col] = true
		states = append(states, models.SlotState{
			Label:    p,
			Occupant: c.cell(row, col),
			Free:     !l.occupied(c, row, p),
		})
	}
	for col := 2; col <= len(c.header); col++ {
		if seen[col] || c.cell(row, col) == "" {
			continue
		}
		states = append(states, models.SlotState{Label: c.header[col-1], Occupant: c.cell(row, col)})
	}
	return states, nil
}

// occupied проверяет слот с учетом правила "весь день" и пересечения интервалов.
//
// Метки, которые не разбираются как интервал, в пересечениях не участвуют.
// Если такую метку проверяют саму, смотрится только ее собственная ячейка.
// Это известная неточность: "вечер" не конфликтует с "18:00-20:00".
func (l *Ledger) occupied(c *calendar, row int, slot string) bool {
	if l.isWholeDay(slot) {
		return c.anyOccupied(row)
	}
	if l.wholeDayOccupied(c, row) {
		return true
	}

	req, err := parsing.SlotToMinuteRange(slot)
	if err != nil {
		col := l.columnOf(c.header, slot)
		return col > 0 && c.cell(row, col) != ""
	}

	for col := 2; col <= len(c.header); col++ {
		if c.cell(row, col) == "" {
			continue
		}
		label := c.header[col-1]
		if l.isWholeDay(label) {
			return true
		}
		other, err := parsing.SlotToMinuteRange(label)
		if err != nil {
			continue
		}
		if req.Overlaps(other) {
			return true
		}
	}
	return false
}

func (l *Ledger) isWholeDay(label string) bool {
	return strings.EqualFold(strings.TrimSpace(label), l.wholeDay) || parsing.IsWholeDay(label)
}

func (l *Ledger) wholeDayOccupied(c *calendar, row int) bool {
	for col := 2; col <= len(c.header); col++ {
		if l.isWholeDay(c.header[col-1]) && c.cell(row, col) != "" {
			return true
		}
	}
	return false
}

// columnOf ищет колонку по точному совпадению метки, затем по каноническому виду интервала
func (l *Ledger) columnOf(header []string, label string) int {
	label = strings.TrimSpace(label)
	for i := 1; i < len(header); i++ {
		if strings.TrimSpace(header[i]) == label {
			return i + 1
		}
	}

	whole := l.isWholeDay(label)
	canon := parsing.CanonicalSlot(label)
	for i := 1; i < len(header); i++ {
		if whole && l.isWholeDay(header[i]) {
			return i + 1
		}
		if !whole && parsing.CanonicalSlot(header[i]) == canon {
			return i + 1
		}
	}
	return 0
}

func (l *Ledger) ensureRow(ctx context.Context, date string) (*calendar, int, error) {
	c, err := l.load(ctx)
	if err != nil {
		return nil, 0, err
	}
	if row := c.rowOf(date); row > 0 {
		return c, row, nil
	}

	row := len(c.rows) + 1
	if row < 2 {
		row = 2
	}
	if err := l.ws.UpdateRow(ctx, row, []string{date}); err != nil {
		return nil, 0, unavailable("create date row", err)
	}
	c.set(row, 1, date)
	l.logger.Debug().Str("date", date).Int("row", row).Msg("Calendar row created")
	return c, row, nil
}

func (l *Ledger) load(ctx context.Context) (*calendar, error) {
	values, err := l.ws.Values(ctx)
	if err != nil {
		return nil, unavailable("read calendar", err)
	}
	c := &calendar{rows: values}
	if len(values) > 0 {
		c.header = values[0]
	}
	return c, nil
}

type calendar struct {
	header []string
	rows   [][]string
}

func (c *calendar) rowOf(date string) int {
	for i := 1; i < len(c.rows); i++ {
		if c.cell(i+1, 1) == date {
			return i + 1
		}
	}
	return 0
}

func (c *calendar) cell(row, col int) string {
	if row < 1 || col < 1 || row > len(c.rows) || col > len(c.rows[row-1]) {
		return ""
	}
	return strings.TrimSpace(c.rows[row-1][col-1])
}

func (c *calendar) anyOccupied(row int) bool {
	if row < 1 || row > len(c.rows) {
		return false
	}
	for col := 2; col <= len(c.rows[row-1]); col++ {
		if c.cell(row, col) != "" {
			return true
		}
	}
	return false
}

func (c *calendar) set(row, col int, value string) {
	for len(c.rows) < row {
		c.rows = append(c.rows, nil)
	}
	r := c.rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	c.rows[row-1] = r
}
