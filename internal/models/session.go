package models

import "time"

type Step string

const (
	StepIdle             Step = ""
	StepChoosingService  Step = "choosing_service"
	StepChoosingDate     Step = "choosing_date"
	StepChoosingTime     Step = "choosing_time"
	StepGettingTimeStart Step = "getting_time_start"
	StepGettingTimeEnd   Step = "getting_time_end"
	StepGettingDistrict  Step = "getting_district"
	StepGettingWishes    Step = "getting_wishes"
	StepConfirming       Step = "confirming"
)

// Draft данные заявки, собранные в диалоге до подтверждения
type Draft struct {
	Service   string `json:"service,omitempty"`
	DateISO   string `json:"date_iso,omitempty"`
	DateText  string `json:"date_text,omitempty"`
	TimeSlot  string `json:"time_slot,omitempty"`
	TimeStart string `json:"time_start,omitempty"`
	District  string `json:"district,omitempty"`
	Wishes    string `json:"wishes,omitempty"`
}

// Session состояние диалога одного пользователя
type Session struct {
	UserID int64 `json:"user_id"`
	Step   Step  `json:"step"`
	Draft  Draft `json:"draft"`

	// Служебные сообщения бота, которые заменяются при следующем шаге
	StepMessageID int    `json:"step_message_id,omitempty"`
	AnchorID      int    `json:"anchor_id,omitempty"`
	KeyboardMode  string `json:"keyboard_mode,omitempty"`
	CalendarMonth string `json:"calendar_month,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(userID int64) *Session {
	return &Session{UserID: userID}
}

// Reset очищает собранные данные и возвращает диалог в меню.
// Идентификаторы служебных сообщений сохраняются.
func (s *Session) Reset() {
	s.Step = StepIdle
	s.Draft = Draft{}
	s.CalendarMonth = ""
}

func (s *Session) Active() bool {
	return s.Step != StepIdle
}
