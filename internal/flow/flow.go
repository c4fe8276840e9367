// Package flow ведет диалог записи: услуга, дата, время, район, пожелания, подтверждение.
// Машина не зависит от транспорта: получает действие или текст и возвращает ответ с кнопками.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qwesade/internal/config"
	"qwesade/internal/domain"
	"qwesade/internal/models"
	"qwesade/internal/parsing"
)

// Input событие от пользователя: нажатая кнопка (Action) или введенный текст
type Input struct {
	Action string
	Text   string
}

// Reply ответ машины.
// Пустой Text без Edit означает, что новое сообщение не нужно (достаточно Notice).
type Reply struct {
	Text     string
	Options  [][]Option
	Keyboard string
	// Edit заменяет клавиатуру сообщения с нажатой кнопкой вместо отправки нового
	Edit    bool
	Notice  string
	Alert   bool
	Booking *models.Booking
	// Err ошибка, прервавшая запись
	Err error
}

var emptyWishes = map[string]bool{"нет": true, "-": true, "—": true, "none": true, "no": true}

type Machine struct {
	bookings domain.BookingService
	services []string
	slots    []string
	wholeDay string
	now      func() time.Time
}

func NewMachine(bookings domain.BookingService, cfg config.BookingConfig) *Machine {
	// метки слотов в том же виде, что и колонки календаря: 10:00-12:00 -> 10:00–12:00
	slots := make([]string, 0, len(cfg.TimeSlots))
	for _, s := range cfg.TimeSlots {
		slots = append(slots, parsing.CanonicalSlot(s))
	}
	return &Machine{
		bookings: bookings,
		services: cfg.Services,
		slots:    slots,
		wholeDay: cfg.WholeDayLabel,
		now:      time.Now,
	}
}

// Start начинает новую заявку, прежние данные сбрасываются
func (m *Machine) Start(sess *models.Session) Reply {
	sess.Reset()
	sess.Step = models.StepChoosingService
	return m.servicePrompt()
}

// Menu возвращает диалог в меню
func (m *Machine) Menu(sess *models.Session, title string) Reply {
	sess.Reset()
	if title == "" {
		title = textMenu
	}
	return Reply{Text: title, Options: MenuOptions(), Keyboard: KeyboardMenu}
}

// Handle обрабатывает одно событие и переводит сессию в следующий шаг
func (m *Machine) Handle(ctx context.Context, sess *models.Session, who models.Requester, in Input) Reply {
	in.Text = strings.TrimSpace(in.Text)

	switch in.Action {
	case ActionCancel:
		return m.Menu(sess, textCancelled)
	case ActionBack:
		return m.back(ctx, sess)
	case ActionNew:
		return m.Start(sess)
	case ActionNoop:
		return Reply{}
	}

	switch sess.Step {
	case models.StepChoosingService:
		return m.chooseService(sess, in)
	case models.StepChoosingDate:
		return m.chooseDate(ctx, sess, in)
	case models.StepChoosingTime:
		return m.chooseTime(ctx, sess, in)
	case models.StepGettingTimeStart:
		return m.timeStart(sess, in)
	case models.StepGettingTimeEnd:
		return m.timeEnd(sess, in)
	case models.StepGettingDistrict:
		if in.Action != "" {
			return stale()
		}
		if in.Text == "" {
			return textPrompt(textDistrict)
		}
		sess.Draft.District = in.Text
		sess.Step = models.StepGettingWishes
		return textPrompt(textWishes)
	case models.StepGettingWishes:
		if in.Action != "" {
			return stale()
		}
		wishes := in.Text
		if emptyWishes[strings.ToLower(wishes)] {
			wishes = ""
		}
		sess.Draft.Wishes = wishes
		sess.Step = models.StepConfirming
		return m.summary(sess)
	case models.StepConfirming:
		return m.confirm(ctx, sess, who, in)
	}

	if in.Action != "" {
		return stale()
	}
	return Reply{Text: textUseMenu}
}

func (m *Machine) chooseService(sess *models.Session, in Input) Reply {
	service := in.Text
	if in.Action != "" {
		idx, ok := index(in.Action, PrefixService, len(m.services))
		if !ok {
			return stale()
		}
		service = m.services[idx]
	}
	if service == "" {
		return m.servicePrompt()
	}

	sess.Draft.Service = service
	sess.Step = models.StepChoosingDate
	return datePrompt()
}

func (m *Machine) chooseDate(ctx context.Context, sess *models.Session, in Input) Reply {
	now := m.now()

	switch {
	case in.Action == "":
		d, err := parsing.ParseHumanDate(in.Text, now)
		if err != nil {
			return Reply{Text: textBadDate, Options: DateOptions(PrefixDate, true), Keyboard: KeyboardFlow}
		}
		return m.setDate(ctx, sess, d, in.Text)

	case strings.HasPrefix(in.Action, PrefixDate):
		key := strings.TrimPrefix(in.Action, PrefixDate)
		if key == PresetPick {
			return m.calendar(ctx, sess, now.Year(), now.Month())
		}
		d, label, ok := ResolvePreset(key, now)
		if !ok {
			return stale()
		}
		return m.setDate(ctx, sess, d, label)

	case strings.HasPrefix(in.Action, PrefixCalNav):
		y, mon, ok := ParseMonth(strings.TrimPrefix(in.Action, PrefixCalNav))
		if !ok {
			return stale()
		}
		return m.calendar(ctx, sess, y, mon)

	case strings.HasPrefix(in.Action, PrefixCalPick):
		d, err := time.ParseInLocation(models.DateLayout, strings.TrimPrefix(in.Action, PrefixCalPick), now.Location())
		if err != nil {
			return stale()
		}
		if err := notPast(d, now); err != nil {
			return Reply{Notice: textPastDate, Alert: true}
		}
		return m.setDate(ctx, sess, d, d.Format("02.01.2006"))
	}
	return stale()
}

func (m *Machine) setDate(ctx context.Context, sess *models.Session, d time.Time, label string) Reply {
	if err := notPast(d, m.now()); err != nil {
		return Reply{Text: textPastDate, Options: DateOptions(PrefixDate, true), Keyboard: KeyboardFlow}
	}
	sess.Draft.DateISO = d.Format(models.DateLayout)
	sess.Draft.DateText = label
	sess.CalendarMonth = ""
	sess.Step = models.StepChoosingTime
	return m.timePrompt(ctx, sess)
}

func (m *Machine) calendar(ctx context.Context, sess *models.Session, year int, month time.Month) Reply {
	busy, err := m.bookings.BusyDates(ctx, year, month)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to load busy dates, calendar shown without marks")
		busy = nil
	}
	sess.CalendarMonth = fmt.Sprintf("%04d-%02d", year, int(month))
	return Reply{
		Text:     textPickDate,
		Options:  Calendar(year, month, busy, m.now()),
		Keyboard: KeyboardFlow,
		Edit:     true,
	}
}

func (m *Machine) chooseTime(ctx context.Context, sess *models.Session, in Input) Reply {
	if in.Action != "" {
		if in.Action == ActionInterval {
			sess.Step = models.StepGettingTimeStart
			return textPrompt(textInterval)
		}
		idx, ok := index(in.Action, PrefixTime, len(m.slots))
		if !ok {
			return stale()
		}
		return m.setSlot(sess, m.slots[idx])
	}

	if parsing.IsWholeDay(in.Text) {
		return m.setSlot(sess, m.wholeDay)
	}
	slot, err := parsing.ParseIntervalText(in.Text)
	if err == nil {
		return m.setSlot(sess, slot)
	}
	if errors.Is(err, models.ErrInvalidInterval) {
		return textPrompt(textBadInterval)
	}
	if _, _, err := parsing.ParseClockTime(in.Text); err == nil {
		sess.Draft.TimeStart = in.Text
		sess.Step = models.StepGettingTimeEnd
		return textPrompt(textTimeEnd)
	}
	return textPrompt(textBadTime)
}

func (m *Machine) timeStart(sess *models.Session, in Input) Reply {
	if in.Action != "" {
		return stale()
	}
	slot, err := parsing.ParseIntervalText(in.Text)
	if err == nil {
		return m.setSlot(sess, slot)
	}
	if errors.Is(err, models.ErrInvalidInterval) {
		return textPrompt(textBadInterval)
	}
	if _, _, err := parsing.ParseClockTime(in.Text); err != nil {
		return textPrompt(textBadStart)
	}
	sess.Draft.TimeStart = in.Text
	sess.Step = models.StepGettingTimeEnd
	return textPrompt(textTimeEnd)
}

func (m *Machine) timeEnd(sess *models.Session, in Input) Reply {
	if in.Action != "" {
		return stale()
	}
	slot, err := parsing.NormalizeInterval(sess.Draft.TimeStart, in.Text)
	if err != nil {
		return textPrompt(textBadInterval)
	}
	return m.setSlot(sess, slot)
}

func (m *Machine) setSlot(sess *models.Session, slot string) Reply {
	sess.Draft.TimeSlot = slot
	sess.Draft.TimeStart = ""
	sess.Step = models.StepGettingDistrict
	return textPrompt(textDistrict)
}

func (m *Machine) confirm(ctx context.Context, sess *models.Session, who models.Requester, in Input) Reply {
	switch in.Action {
	case ActionEdit:
		r := m.Start(sess)
		r.Notice = textRestart
		return r
	case ActionConfirm:
		return m.commit(ctx, sess, who)
	case "":
		return m.summary(sess)
	}
	return stale()
}

func (m *Machine) commit(ctx context.Context, sess *models.Session, who models.Requester) Reply {
	draft := sess.Draft
	b, err := m.bookings.Commit(ctx, who, draft)
	switch {
	case err == nil:
		r := m.Menu(sess, fmt.Sprintf(textSubmitted, b.RequestID))
		r.Booking = b
		return r

	case errors.Is(err, models.ErrSlotConflict):
		text := textSlotTaken
		if free, ferr := m.bookings.FreeSlots(ctx, draft.DateISO); ferr == nil && len(free) > 0 {
			text += "\nСвободно:\n• " + strings.Join(free, "\n• ")
		}
		r := m.Menu(sess, text)
		r.Err = err
		return r

	case errors.Is(err, models.ErrUnparseableDate), errors.Is(err, models.ErrUnparseableTime):
		r := m.Menu(sess, textDateLost)
		r.Err = err
		return r
	}

	r := m.Menu(sess, textStoreFailed)
	r.Err = err
	return r
}

// back переходит на предыдущий шаг и заново показывает его вопрос
func (m *Machine) back(ctx context.Context, sess *models.Session) Reply {
	switch sess.Step {
	case models.StepConfirming:
		sess.Step = models.StepGettingWishes
		return textPrompt(textWishes)
	case models.StepGettingWishes:
		sess.Step = models.StepGettingDistrict
		return textPrompt(textDistrict)
	case models.StepGettingDistrict:
		sess.Step = models.StepChoosingTime
		return m.timePrompt(ctx, sess)
	case models.StepGettingTimeEnd:
		sess.Draft.TimeStart = ""
		sess.Step = models.StepGettingTimeStart
		return textPrompt(textInterval)
	case models.StepGettingTimeStart:
		sess.Step = models.StepChoosingTime
		return m.timePrompt(ctx, sess)
	case models.StepChoosingTime:
		sess.Step = models.StepChoosingDate
		return datePrompt()
	case models.StepChoosingDate:
		if sess.CalendarMonth != "" {
			sess.CalendarMonth = ""
			return datePrompt()
		}
		sess.Step = models.StepChoosingService
		return m.servicePrompt()
	}
	return m.Menu(sess, "")
}

func (m *Machine) servicePrompt() Reply {
	return Reply{Text: textService, Options: serviceOptions(m.services), Keyboard: KeyboardFlow}
}

func (m *Machine) timePrompt(ctx context.Context, sess *models.Session) Reply {
	free, err := m.bookings.FreeSlots(ctx, sess.Draft.DateISO)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("date", sess.Draft.DateISO).Msg("Failed to load free slots, showing all presets")
		return Reply{Text: textTime, Options: timeOptions(m.slots, nil), Keyboard: KeyboardFlow}
	}

	set := make(map[string]bool, len(free))
	for _, s := range free {
		set[s] = true
	}
	text := textTime
	if len(free) == 0 {
		text = textNoFreeSlots
	}
	return Reply{Text: text, Options: timeOptions(m.slots, set), Keyboard: KeyboardFlow}
}

func (m *Machine) summary(sess *models.Session) Reply {
	return Reply{Text: Summary(sess.Draft), Options: confirmOptions(), Keyboard: KeyboardFlow}
}

// Summary текст проверки заявки перед подтверждением
func Summary(d models.Draft) string {
	return fmt.Sprintf("%s\n\n• Услуга: %s\n• Когда: %s\n• Время: %s\n• Район: %s\n• Пожелания: %s",
		textSummaryTitle, d.Service, d.DateText, d.TimeSlot, d.District, orDash(d.Wishes))
}

func datePrompt() Reply {
	return Reply{Text: textDate, Options: DateOptions(PrefixDate, true), Keyboard: KeyboardFlow}
}

func textPrompt(text string) Reply {
	return Reply{Text: text, Keyboard: KeyboardFlow}
}

func stale() Reply {
	return Reply{Notice: textStaleButton}
}

func index(action, prefix string, n int) (int, bool) {
	if !strings.HasPrefix(action, prefix) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(action, prefix))
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

func notPast(d, now time.Time) error {
	if d.Format(models.DateLayout) < now.Format(models.DateLayout) {
		return fmt.Errorf("%w: %s", models.ErrPastDate, d.Format(models.DateLayout))
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
