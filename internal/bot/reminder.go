package bot

import (
	"context"
	"fmt"
	"time"

	"qwesade/internal/models"
)

// StartReminders schedules daily reminders for next-day bookings.
func (b *Bot) StartReminders(ctx context.Context) {
	if b == nil || b.tgService == nil || !b.config.Bot.RemindersEnabled {
		return
	}

	go func() {
		hour := b.config.Bot.ReminderHour

		// First wait until next reminder time local time, then once per day.
		timer := time.NewTimer(timeUntilNextHour(b.now(), hour))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendTomorrowReminders(ctx)
				timer.Reset(timeUntilNextHour(b.now(), hour))
			}
		}
	}()
}

func (b *Bot) sendTomorrowReminders(ctx context.Context) int {
	tomorrow := b.now().AddDate(0, 0, 1).Format(models.DateLayout)

	bookings, err := b.bookingService.BookingsOn(ctx, tomorrow, models.StatusConfirmed)
	if err != nil {
		b.logger.Error().Err(err).Str("date", tomorrow).Msg("reminder: get bookings error")
		return 0
	}

	sent := 0
	for _, booking := range bookings {
		if booking.TelegramID == 0 {
			continue
		}
		if _, err := b.tgService.SendMessage(booking.TelegramID, formatReminderMessage(booking)); err != nil {
			b.logger.Error().Err(err).Int64("telegram_id", booking.TelegramID).Msg("reminder: send error")
			continue
		}
		b.metrics.RemindersSent.Inc()
		sent++
	}

	b.logger.Info().Str("date", tomorrow).Int("sent", sent).Msg("Reminders sent")
	return sent
}

func formatReminderMessage(b *models.Booking) string {
	return fmt.Sprintf("Напоминание: завтра (%s) %s — %s.\nРайон: %s\nID: %s",
		b.DateText, b.TimeSlot, b.Service, orDash(b.District), b.RequestID)
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
