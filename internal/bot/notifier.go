package bot

import (
	"errors"
	"fmt"

	"qwesade/internal/events"
)

// SubscribeEvents рассылает уведомления по событиям заявок: админам о новых, пользователю о решении
func (b *Bot) SubscribeEvents(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, b.onBookingCreated)
	bus.Subscribe(events.EventBookingConfirmed, b.onBookingConfirmed)
	bus.Subscribe(events.EventBookingDeclined, b.onBookingDeclined)
}

func (b *Bot) onBookingCreated(e *events.Event) error {
	p, err := e.BookingPayload()
	if err != nil {
		return err
	}

	recipients := b.config.AdminRecipients()
	if len(recipients) == 0 {
		b.logger.Warn().Str("request_id", p.Booking.RequestID).Msg("No admin recipients configured")
		return nil
	}

	text := formatAdminNotification(&p.Booking)
	kb := adminKeyboard(&p.Booking)

	var errs []error
	for _, id := range recipients {
		if _, err := b.tgService.SendWithInlineKeyboard(id, text, kb); err != nil {
			errs = append(errs, fmt.Errorf("notify admin %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) onBookingConfirmed(e *events.Event) error {
	p, err := e.BookingPayload()
	if err != nil {
		return err
	}
	bk := p.Booking
	text := fmt.Sprintf("Ваша заявка %s подтверждена ✅\n%s — %s %s", bk.RequestID, bk.Service, bk.DateText, bk.TimeSlot)
	if _, err := b.tgService.SendMessage(bk.TelegramID, text); err != nil {
		return fmt.Errorf("notify requester %d: %w", bk.TelegramID, err)
	}
	return nil
}

func (b *Bot) onBookingDeclined(e *events.Event) error {
	p, err := e.BookingPayload()
	if err != nil {
		return err
	}
	bk := p.Booking
	text := fmt.Sprintf("К сожалению, заявка %s отклонена ❌.\nМожно выбрать другой слот.", bk.RequestID)
	if bk.AdminComment != "" {
		text += "\nКомментарий: " + bk.AdminComment
	}
	if _, err := b.tgService.SendMessage(bk.TelegramID, text); err != nil {
		return fmt.Errorf("notify requester %d: %w", bk.TelegramID, err)
	}
	return nil
}
