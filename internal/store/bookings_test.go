package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qwesade/internal/models"
)

func testBooking(id string, user int64, ts time.Time) *models.Booking {
	return &models.Booking{
		Timestamp:  ts,
		RequestID:  id,
		TelegramID: user,
		Username:   "alice",
		Name:       "Alice",
		Service:    "Walk",
		DateISO:    "2026-10-15",
		DateText:   "15.10.2026",
		TimeSlot:   "10:00–12:00",
		District:   "Center",
		Status:     models.StatusNew,
	}
}

func TestBookingsHeader(t *testing.T) {
	ws := NewMemoryWorksheet("Bookings")
	_, err := NewBookings(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, [][]string{models.BookingHeaders}, snapshot(t, ws))

	old := NewMemoryWorksheet("Bookings", []string{"Timestamp", "RequestID"})
	_, err = NewBookings(context.Background(), old)
	require.NoError(t, err)
	assert.Equal(t, models.BookingHeaders, snapshot(t, old)[0])

	foreign := NewMemoryWorksheet("Bookings", []string{"Name", "Phone"})
	_, err = NewBookings(context.Background(), foreign)
	assert.Error(t, err)
}

func TestBookingsAppendAndGet(t *testing.T) {
	ctx := context.Background()
	b, err := NewBookings(ctx, NewMemoryWorksheet("Bookings"))
	require.NoError(t, err)

	ts := time.Date(2026, 10, 14, 12, 0, 0, 0, time.Local)
	require.NoError(t, b.Append(ctx, testBooking("RQ-1", 42, ts)))

	got, err := b.Get(ctx, "RQ-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.TelegramID)
	assert.Equal(t, "10:00–12:00", got.TimeSlot)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.True(t, ts.Equal(got.Timestamp))

	err = b.Append(ctx, testBooking("RQ-1", 42, ts))
	assert.ErrorIs(t, err, models.ErrDuplicateRequestID)

	_, err = b.Get(ctx, "RQ-404")
	assert.ErrorIs(t, err, models.ErrBookingNotFound)

	bad := testBooking("RQ-2", 42, ts)
	bad.Status = "pending"
	assert.ErrorIs(t, b.Append(ctx, bad), models.ErrInvalidStatus)
}

func TestBookingsSetStatus(t *testing.T) {
	ctx := context.Background()
	b, err := NewBookings(ctx, NewMemoryWorksheet("Bookings"))
	require.NoError(t, err)
	require.NoError(t, b.Append(ctx, testBooking("RQ-1", 42, time.Now())))

	require.NoError(t, b.SetStatus(ctx, "RQ-1", models.StatusDeclined, "busy that day"))
	got, err := b.Get(ctx, "RQ-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, got.Status)
	assert.Equal(t, "busy that day", got.AdminComment)

	require.NoError(t, b.SetStatus(ctx, "RQ-1", models.StatusConfirmed, ""))
	got, err = b.Get(ctx, "RQ-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, "busy that day", got.AdminComment)

	assert.ErrorIs(t, b.SetStatus(ctx, "RQ-1", "Done", ""), models.ErrInvalidStatus)
	assert.ErrorIs(t, b.SetStatus(ctx, "RQ-9", models.StatusNew, ""), models.ErrBookingNotFound)
}

func TestBookingsByUser(t *testing.T) {
	ctx := context.Background()
	b, err := NewBookings(ctx, NewMemoryWorksheet("Bookings"))
	require.NoError(t, err)

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.Local)
	for i, id := range []string{"RQ-1", "RQ-2", "RQ-3"} {
		require.NoError(t, b.Append(ctx, testBooking(id, 42, base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, b.Append(ctx, testBooking("RQ-4", 7, base)))

	mine, err := b.ByUser(ctx, 42, 2)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "RQ-3", mine[0].RequestID)
	assert.Equal(t, "RQ-2", mine[1].RequestID)

	all, err := b.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
