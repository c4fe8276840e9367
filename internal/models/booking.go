package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusNew       = "New"
	StatusConfirmed = "Confirmed"
	StatusDeclined  = "Declined"
)

// TimestampLayout формат колонки Timestamp в таблице заявок
const TimestampLayout = "2006-01-02T15:04:05"

// DateLayout формат колонки DateISO
const DateLayout = "2006-01-02"

// BookingHeaders заголовок таблицы заявок. Порядок колонок фиксирован.
var BookingHeaders = []string{
	"Timestamp",
	"RequestID",
	"TelegramID",
	"Username",
	"Name",
	"Service",
	"DateISO",
	"DateText",
	"TimeSlot",
	"District",
	"Wishes",
	"Status",
	"AdminComment",
}

// Номера колонок (1-based) в таблице заявок
const (
	ColRequestID    = 2
	ColStatus       = 12
	ColAdminComment = 13
)

type Booking struct {
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
	TelegramID   int64     `json:"telegram_id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Service      string    `json:"service"`
	DateISO      string    `json:"date_iso"`
	DateText     string    `json:"date_text"`
	TimeSlot     string    `json:"time_slot"`
	District     string    `json:"district"`
	Wishes       string    `json:"wishes"`
	Status       string    `json:"status"`
	AdminComment string    `json:"admin_comment"`
}

// Requester пользователь, от имени которого создается заявка
type Requester struct {
	ID       int64
	Username string
	Name     string
}

// Handle возвращает @username или числовой ID, если username не задан
func (r Requester) Handle() string {
	if r.Username != "" {
		return "@" + r.Username
	}
	return "@" + strconv.FormatInt(r.ID, 10)
}

// ContactURL ссылка для связи с пользователем
func (r Requester) ContactURL() string {
	if r.Username != "" {
		return "https://t.me/" + r.Username
	}
	return fmt.Sprintf("tg://user?id=%d", r.ID)
}

func (b *Booking) Requester() Requester {
	return Requester{ID: b.TelegramID, Username: b.Username, Name: b.Name}
}

// Row сериализует заявку в строку таблицы в порядке BookingHeaders
func (b *Booking) Row() []string {
	return []string{
		b.Timestamp.Format(TimestampLayout),
		b.RequestID,
		strconv.FormatInt(b.TelegramID, 10),
		b.Username,
		b.Name,
		b.Service,
		b.DateISO,
		b.DateText,
		b.TimeSlot,
		b.District,
		b.Wishes,
		b.Status,
		b.AdminComment,
	}
}

// BookingFromRow разбирает строку таблицы. Отсутствующие хвостовые ячейки считаются пустыми.
func BookingFromRow(row []string) *Booking {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	b := &Booking{
		RequestID:    cell(1),
		Username:     cell(3),
		Name:         cell(4),
		Service:      cell(5),
		DateISO:      cell(6),
		DateText:     cell(7),
		TimeSlot:     cell(8),
		District:     cell(9),
		Wishes:       cell(10),
		Status:       cell(11),
		AdminComment: cell(12),
	}
	if ts, err := time.ParseInLocation(TimestampLayout, cell(0), time.Local); err == nil {
		b.Timestamp = ts
	}
	if id, err := strconv.ParseInt(cell(2), 10, 64); err == nil {
		b.TelegramID = id
	}
	return b
}

func ValidStatus(status string) bool {
	switch status {
	case StatusNew, StatusConfirmed, StatusDeclined:
		return true
	}
	return false
}

// NewRequestID генерирует идентификатор заявки вида RQ-20260115093000-1a2b
func NewRequestID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return "RQ-" + now.Format("20060102150405") + "-" + suffix
}
