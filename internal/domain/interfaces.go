package domain

import (
	"context"
	"time"

	"qwesade/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Worksheet один лист табличного хранилища. Строки и колонки нумеруются с 1.
// Values возвращает строки без хвостовых пустых ячеек, как Google Sheets API.
type Worksheet interface {
	Title() string
	Values(ctx context.Context) ([][]string, error)
	UpdateRow(ctx context.Context, row int, values []string) error
	UpdateCell(ctx context.Context, row, col int, value string) error
	AppendRow(ctx context.Context, values []string) error
}

// Spreadsheet открывает лист по названию, создавая его при отсутствии
type Spreadsheet interface {
	Worksheet(ctx context.Context, title string) (Worksheet, error)
}

type Ledger interface {
	Presets() []string
	WholeDayLabel() string
	EnsureDateRow(ctx context.Context, date string) (int, error)
	GetAvailability(ctx context.Context, date string) (map[string]string, error)
	IsOccupied(ctx context.Context, date, slot string) (bool, error)
	MarkSlot(ctx context.Context, date, slot, occupant string) (bool, error)
	ClearSlot(ctx context.Context, date, slot string) (bool, error)
	BusyDatesForMonth(ctx context.Context, year int, month time.Month) (map[string]bool, error)
	SlotStates(ctx context.Context, date string) ([]models.SlotState, error)
}

type BookingStore interface {
	Append(ctx context.Context, booking *models.Booking) error
	Get(ctx context.Context, requestID string) (*models.Booking, error)
	SetStatus(ctx context.Context, requestID, status, comment string) error
	ByUser(ctx context.Context, telegramID int64, limit int) ([]*models.Booking, error)
	List(ctx context.Context) ([]*models.Booking, error)
}

type SessionRepository interface {
	GetSession(ctx context.Context, userID int64) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	ClearSession(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type SessionManager interface {
	GetSession(ctx context.Context, userID int64) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	ClearSession(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type TelegramService interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendWithReplyKeyboard(chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	EditMarkup(chatID int64, messageID int, keyboard tgbotapi.InlineKeyboardMarkup) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendDocument(chatID int64, fileName string, data []byte, caption string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type BookingService interface {
	Commit(ctx context.Context, requester models.Requester, draft models.Draft) (*models.Booking, error)
	FreeSlots(ctx context.Context, date string) ([]string, error)
	DaySchedule(ctx context.Context, date string) ([]models.SlotState, error)
	BusyDates(ctx context.Context, year int, month time.Month) (map[string]bool, error)
	Confirm(ctx context.Context, requestID string, adminID int64) (*models.Booking, error)
	Decline(ctx context.Context, requestID string, adminID int64, comment string) (*models.Booking, error)
	UserBookings(ctx context.Context, userID int64, limit int) ([]*models.Booking, error)
	Agenda(ctx context.Context, from time.Time) ([]*models.Booking, error)
	MonthBookings(ctx context.Context, year int, month time.Month) ([]*models.Booking, error)
	BookingsOn(ctx context.Context, date, status string) ([]*models.Booking, error)
}
