package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"qwesade/internal/domain"
	"qwesade/internal/models"
)

// Bookings таблица заявок с фиксированным заголовком models.BookingHeaders
type Bookings struct {
	ws domain.Worksheet
	mu sync.Mutex
}

func NewBookings(ctx context.Context, ws domain.Worksheet) (*Bookings, error) {
	b := &Bookings{ws: ws}
	if err := b.ensureHeader(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bookings) ensureHeader(ctx context.Context) error {
	values, err := b.ws.Values(ctx)
	if err != nil {
		return unavailable("read bookings", err)
	}
	if len(values) > 0 && len(values[0]) > 0 {
		if sameHeader(values[0]) {
			return nil
		}
		if values[0][0] != models.BookingHeaders[0] {
			return fmt.Errorf("sheet %q: unexpected header %v", b.ws.Title(), values[0])
		}
	}
	if err := b.ws.UpdateRow(ctx, 1, models.BookingHeaders); err != nil {
		return unavailable("write bookings header", err)
	}
	return nil
}

func sameHeader(row []string) bool {
	if len(row) != len(models.BookingHeaders) {
		return false
	}
	for i, h := range models.BookingHeaders {
		if strings.TrimSpace(row[i]) != h {
			return false
		}
	}
	return true
}

// Append добавляет заявку в конец таблицы. RequestID должен быть уникальным.
func (b *Bookings) Append(ctx context.Context, booking *models.Booking) error {
	if booking.RequestID == "" {
		return fmt.Errorf("request id is required")
	}
	if !models.ValidStatus(booking.Status) {
		return fmt.Errorf("%w: %q", models.ErrInvalidStatus, booking.Status)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.ws.Values(ctx)
	if err != nil {
		return unavailable("read bookings", err)
	}
	if findRow(values, booking.RequestID) > 0 {
		return fmt.Errorf("%w: %s", models.ErrDuplicateRequestID, booking.RequestID)
	}

	if err := b.ws.AppendRow(ctx, booking.Row()); err != nil {
		return unavailable("append booking", err)
	}
	return nil
}

func (b *Bookings) Get(ctx context.Context, requestID string) (*models.Booking, error) {
	values, err := b.ws.Values(ctx)
	if err != nil {
		return nil, unavailable("read bookings", err)
	}
	row := findRow(values, requestID)
	if row == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrBookingNotFound, requestID)
	}
	return models.BookingFromRow(values[row-1]), nil
}

// SetStatus меняет статус заявки. Пустой comment оставляет AdminComment без изменений.
func (b *Bookings) SetStatus(ctx context.Context, requestID, status, comment string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.ws.Values(ctx)
	if err != nil {
		return unavailable("read bookings", err)
	}
	row := findRow(values, requestID)
	if row == 0 {
		return fmt.Errorf("%w: %s", models.ErrBookingNotFound, requestID)
	}

	if err := b.ws.UpdateCell(ctx, row, models.ColStatus, status); err != nil {
		return unavailable("update status", err)
	}
	if comment != "" {
		if err := b.ws.UpdateCell(ctx, row, models.ColAdminComment, comment); err != nil {
			return unavailable("update admin comment", err)
		}
	}
	return nil
}

// ByUser последние заявки пользователя, новые первыми. limit <= 0 отдает все.
func (b *Bookings) ByUser(ctx context.Context, telegramID int64, limit int) ([]*models.Booking, error) {
	all, err := b.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []*models.Booking
	for _, bk := range all {
		if bk.TelegramID == telegramID {
			out = append(out, bk)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List все заявки в порядке строк таблицы
func (b *Bookings) List(ctx context.Context) ([]*models.Booking, error) {
	values, err := b.ws.Values(ctx)
	if err != nil {
		return nil, unavailable("read bookings", err)
	}

	out := make([]*models.Booking, 0, len(values))
	for i := 1; i < len(values); i++ {
		bk := models.BookingFromRow(values[i])
		if bk.RequestID == "" {
			continue
		}
		out = append(out, bk)
	}
	return out, nil
}

func findRow(values [][]string, requestID string) int {
	for i := 1; i < len(values); i++ {
		r := values[i]
		if len(r) >= models.ColRequestID && strings.TrimSpace(r[models.ColRequestID-1]) == requestID {
			return i + 1
		}
	}
	return 0
}
