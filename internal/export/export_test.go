package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qwesade/internal/models"
)

func TestWorkbook(t *testing.T) {
	bookings := []*models.Booking{
		{
			Timestamp:  time.Date(2026, 10, 1, 9, 30, 0, 0, time.Local),
			RequestID:  "RQ-20261001093000-ab12",
			TelegramID: 42,
			Username:   "alice",
			Service:    "Кафе",
			DateISO:    "2026-10-15",
			TimeSlot:   "10:00–12:00",
			Status:     models.StatusConfirmed,
		},
		{
			RequestID:  "RQ-20261002100000-cd34",
			TelegramID: 7,
			DateISO:    "2026-10-16",
			TimeSlot:   "Весь день",
			Status:     models.StatusDeclined,
		},
	}

	data, err := Workbook("Заявки за 10.2026", bookings)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Заявки за 10.2026", rows[0][0])
	assert.Equal(t, models.BookingHeaders, rows[1])
	assert.Equal(t, "RQ-20261001093000-ab12", rows[2][1])
	assert.Equal(t, "42", rows[2][2])
	assert.Equal(t, "2026-10-01T09:30:00", rows[2][0])
	assert.Equal(t, models.StatusDeclined, rows[3][11])
}

func TestWorkbookEmpty(t *testing.T) {
	data, err := Workbook("пусто", nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "bookings_2026-03.xlsx", FileName(2026, time.March))
}
