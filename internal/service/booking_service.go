package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qwesade/internal/config"
	"qwesade/internal/domain"
	"qwesade/internal/events"
	"qwesade/internal/models"
	"qwesade/internal/parsing"
)

type BookingService struct {
	ledger   domain.Ledger
	bookings domain.BookingStore
	eventBus domain.EventPublisher
	cfg      config.BookingConfig
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(
	ledger domain.Ledger,
	bookings domain.BookingStore,
	eventBus domain.EventPublisher,
	cfg config.BookingConfig,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		ledger:   ledger,
		bookings: bookings,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// OccupantText текст ячейки календаря для занятого слота
func OccupantText(b *models.Booking) string {
	return strings.TrimSpace(fmt.Sprintf("%s (%s)\n%s", b.Service, b.Requester().Handle(), b.District))
}

// Commit занимает слот и записывает заявку со статусом New.
// Если запись заявки не удалась, слот освобождается обратно.
func (s *BookingService) Commit(ctx context.Context, requester models.Requester, draft models.Draft) (*models.Booking, error) {
	if _, err := time.Parse(models.DateLayout, draft.DateISO); err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrUnparseableDate, draft.DateISO)
	}
	slot := strings.TrimSpace(draft.TimeSlot)
	if slot == "" {
		return nil, fmt.Errorf("%w: empty slot", models.ErrUnparseableTime)
	}

	occupied, err := s.ledger.IsOccupied(ctx, draft.DateISO, slot)
	if err != nil {
		return nil, storeError(err)
	}
	if occupied {
		return nil, fmt.Errorf("%w: %s %s", models.ErrSlotConflict, draft.DateISO, slot)
	}

	now := s.now()
	b := &models.Booking{
		Timestamp:  now.Truncate(time.Second),
		RequestID:  models.NewRequestID(now),
		TelegramID: requester.ID,
		Username:   requester.Username,
		Name:       requester.Name,
		Service:    draft.Service,
		DateISO:    draft.DateISO,
		DateText:   draft.DateText,
		TimeSlot:   slot,
		District:   draft.District,
		Wishes:     draft.Wishes,
		Status:     models.StatusNew,
	}

	ok, err := s.ledger.MarkSlot(ctx, b.DateISO, slot, OccupantText(b))
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", models.ErrSlotConflict, draft.DateISO, slot)
	}

	if err := s.bookings.Append(ctx, b); err != nil {
		if _, cerr := s.ledger.ClearSlot(ctx, b.DateISO, slot); cerr != nil {
			s.logger.Error().Err(cerr).Str("request_id", b.RequestID).Msg("Failed to release slot after append failure")
		}
		return nil, storeError(err)
	}

	s.logger.Info().
		Str("request_id", b.RequestID).
		Int64("user_id", b.TelegramID).
		Str("date", b.DateISO).
		Str("slot", slot).
		Msg("Booking created")

	s.publish(events.EventBookingCreated, b, "user", requester.ID)
	return b, nil
}

// Confirm подтверждает заявку. Отклоненную заявку подтвердить нельзя: ее слот уже освобожден.
func (s *BookingService) Confirm(ctx context.Context, requestID string, adminID int64) (*models.Booking, error) {
	b, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if b.Status == models.StatusDeclined {
		return nil, fmt.Errorf("%w: %s", models.ErrBookingClosed, requestID)
	}

	if b.Status == models.StatusConfirmed {
		s.logger.Debug().Str("request_id", requestID).Int64("admin_id", adminID).Msg("Booking already confirmed")
		return b, nil
	}

	if err := s.bookings.SetStatus(ctx, requestID, models.StatusConfirmed, ""); err != nil {
		return nil, storeError(err)
	}
	b.Status = models.StatusConfirmed

	s.logger.Info().Str("request_id", requestID).Int64("admin_id", adminID).Msg("Booking confirmed")
	s.publish(events.EventBookingConfirmed, b, "admin", adminID)
	return b, nil
}

// Decline отклоняет заявку и освобождает ее слот в календаре
func (s *BookingService) Decline(ctx context.Context, requestID string, adminID int64, comment string) (*models.Booking, error) {
	b, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if b.Status == models.StatusDeclined {
		return nil, fmt.Errorf("%w: %s", models.ErrBookingClosed, requestID)
	}

	if err := s.bookings.SetStatus(ctx, requestID, models.StatusDeclined, comment); err != nil {
		return nil, storeError(err)
	}
	b.Status = models.StatusDeclined
	if comment != "" {
		b.AdminComment = comment
	}

	cleared, err := s.ledger.ClearSlot(ctx, b.DateISO, b.TimeSlot)
	switch {
	case err != nil:
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Failed to clear slot of declined booking")
	case !cleared:
		s.logger.Warn().Str("request_id", requestID).Str("slot", b.TimeSlot).Msg("Slot of declined booking was already empty")
	}

	s.logger.Info().Str("request_id", requestID).Int64("admin_id", adminID).Msg("Booking declined")
	s.publish(events.EventBookingDeclined, b, "admin", adminID)
	return b, nil
}

func (s *BookingService) get(ctx context.Context, requestID string) (*models.Booking, error) {
	b, err := s.bookings.Get(ctx, requestID)
	if errors.Is(err, models.ErrBookingNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, storeError(err)
	}
	return b, nil
}

// FreeSlots свободные слоты из конфигурации на дату
func (s *BookingService) FreeSlots(ctx context.Context, date string) ([]string, error) {
	states, err := s.ledger.SlotStates(ctx, date)
	if err != nil {
		return nil, err
	}
	var free []string
	for _, st := range states {
		if st.Free {
			free = append(free, st.Label)
		}
	}
	return free, nil
}

func (s *BookingService) DaySchedule(ctx context.Context, date string) ([]models.SlotState, error) {
	return s.ledger.SlotStates(ctx, date)
}

// BusyDates даты месяца для подсветки в календаре согласно busy_policy
func (s *BookingService) BusyDates(ctx context.Context, year int, month time.Month) (map[string]bool, error) {
	if s.cfg.BusyPolicy != config.BusyPolicyStatuses {
		return s.ledger.BusyDatesForMonth(ctx, year, month)
	}

	all, err := s.bookings.List(ctx)
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]bool, len(s.cfg.BusyStatuses))
	for _, st := range s.cfg.BusyStatuses {
		statuses[st] = true
	}

	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	busy := make(map[string]bool)
	for _, b := range all {
		if strings.HasPrefix(b.DateISO, prefix) && statuses[b.Status] {
			busy[b.DateISO] = true
		}
	}
	return busy, nil
}

// UserBookings последние заявки пользователя. limit <= 0 берет recent_limit из конфигурации.
func (s *BookingService) UserBookings(ctx context.Context, userID int64, limit int) ([]*models.Booking, error) {
	if limit <= 0 {
		limit = s.cfg.RecentLimit
	}
	return s.bookings.ByUser(ctx, userID, limit)
}

// Agenda подтвержденные заявки на agenda_days вперед от from, не больше agenda_limit
func (s *BookingService) Agenda(ctx context.Context, from time.Time) ([]*models.Booking, error) {
	all, err := s.bookings.List(ctx)
	if err != nil {
		return nil, err
	}

	start := from.Format(models.DateLayout)
	end := from.AddDate(0, 0, s.cfg.AgendaDays).Format(models.DateLayout)

	var out []*models.Booking
	for _, b := range all {
		if b.Status == models.StatusConfirmed && b.DateISO >= start && b.DateISO < end {
			out = append(out, b)
		}
	}
	sortBySchedule(out)
	if s.cfg.AgendaLimit > 0 && len(out) > s.cfg.AgendaLimit {
		out = out[:s.cfg.AgendaLimit]
	}
	return out, nil
}

// MonthBookings все заявки на даты месяца в порядке расписания
func (s *BookingService) MonthBookings(ctx context.Context, year int, month time.Month) ([]*models.Booking, error) {
	all, err := s.bookings.List(ctx)
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	var out []*models.Booking
	for _, b := range all {
		if strings.HasPrefix(b.DateISO, prefix) {
			out = append(out, b)
		}
	}
	sortBySchedule(out)
	return out, nil
}

// BookingsOn заявки на дату. Пустой status отдает заявки в любом статусе.
func (s *BookingService) BookingsOn(ctx context.Context, date, status string) ([]*models.Booking, error) {
	all, err := s.bookings.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.Booking
	for _, b := range all {
		if b.DateISO == date && (status == "" || b.Status == status) {
			out = append(out, b)
		}
	}
	sortBySchedule(out)
	return out, nil
}

func (s *BookingService) publish(eventType string, b *models.Booking, changedBy string, changedByID int64) {
	payload := events.BookingEventPayload{Booking: *b, ChangedBy: changedBy, ChangedByID: changedByID}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Str("request_id", b.RequestID).Msg("Event handler failed")
	}
}

func sortBySchedule(list []*models.Booking) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].DateISO != list[j].DateISO {
			return list[i].DateISO < list[j].DateISO
		}
		return slotStart(list[i].TimeSlot) < slotStart(list[j].TimeSlot)
	})
}

// slotStart минута начала слота; "весь день" идет первым, нераспознанные метки последними
func slotStart(slot string) int {
	r, err := parsing.SlotToMinuteRange(slot)
	switch {
	case err != nil:
		return 24 * 60
	case r.AllDay:
		return -1
	}
	return r.Start
}

func storeError(err error) error {
	if errors.Is(err, models.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
}
