package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qwesade/internal/export"
	"qwesade/internal/flow"
	"qwesade/internal/models"
	"qwesade/internal/parsing"
)

var statusLabels = map[string]string{
	models.StatusNew:       "Новая",
	models.StatusConfirmed: "Подтверждена",
	models.StatusDeclined:  "Отклонена",
}

func statusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return "Новая"
}

func (b *Bot) helpText(userID int64) string {
	lines := []string{
		"/start — меню",
		"/new — новая запись",
		"/avail [дата] — доступность",
		"/mine — мои заявки",
		"/agenda — ближайшие подтверждённые",
		"/cancel — отменить заполнение заявки",
	}
	if b.config.IsAdmin(userID) {
		lines = append(lines, "/export [ГГГГ-ММ] — выгрузка заявок в Excel")
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) showMine(ctx context.Context, chatID, userID int64) {
	list, err := b.bookingService.UserBookings(ctx, userID, 0)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to load user bookings")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(list) == 0 {
		b.sendMessage(chatID, "Заявок нет")
		return
	}

	items := make([]string, 0, len(list))
	for _, bk := range list {
		items = append(items, fmt.Sprintf("• %s — %s — %s %s\n  Район: %s\n  Пожелания: %s\n  Статус: %s",
			bk.RequestID, bk.Service, bk.DateText, bk.TimeSlot,
			orDash(bk.District), orDash(bk.Wishes), statusLabel(bk.Status)))
	}
	b.sendMessage(chatID, "Ваши последние заявки:\n\n"+strings.Join(items, "\n\n"))
}

func (b *Bot) askAvailability(ctx context.Context, chatID int64) {
	markup := inlineMarkup(flow.DateOptions(availPrefix, false))
	if _, err := b.tgService.SendWithInlineKeyboard(chatID, "Когда показать?", *markup); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send availability presets")
	}
}

func (b *Bot) handleAvail(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.askAvailability(ctx, chatID)
		return
	}
	d, err := parsing.ParseHumanDate(args, b.now())
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.showAvailability(ctx, chatID, d, args)
}

func (b *Bot) availabilityPreset(ctx context.Context, chatID int64, key string) {
	d, label, ok := flow.ResolvePreset(key, b.now())
	if !ok {
		b.sendMessage(chatID, "Напиши дату, например 26.08.2025")
		return
	}
	b.showAvailability(ctx, chatID, d, label)
}

func (b *Bot) showAvailability(ctx context.Context, chatID int64, d time.Time, label string) {
	iso := d.Format(models.DateLayout)
	states, err := b.bookingService.DaySchedule(ctx, iso)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("date", iso).Msg("Failed to load availability")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	lines := []string{fmt.Sprintf("📅 Доступность на %s (%s):", label, iso)}
	for _, st := range states {
		mark := "✅ свободно"
		if !st.Free {
			mark = "❌ занято"
		}
		lines = append(lines, fmt.Sprintf("• %s — %s", st.Label, mark))
	}
	b.sendMessage(chatID, strings.Join(lines, "\n"))
}

func (b *Bot) showAgenda(ctx context.Context, chatID int64) {
	list, err := b.bookingService.Agenda(ctx, b.now())
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to load agenda")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(list) == 0 {
		b.sendMessage(chatID, "Ближайших подтверждённых записей нет.")
		return
	}

	lines := []string{"Ближайшие записи:", ""}
	for _, bk := range list {
		day := bk.DateISO
		if d, err := time.Parse(models.DateLayout, bk.DateISO); err == nil {
			day = d.Format("02.01")
		}
		lines = append(lines, fmt.Sprintf("%s %s — %s (%s)", day, bk.TimeSlot, bk.Service, bk.Requester().Handle()))
	}
	b.sendMessage(chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleExport(ctx context.Context, chatID, userID int64, args string) {
	l := zerolog.Ctx(ctx)
	if !b.config.IsAdmin(userID) {
		b.sendMessage(chatID, "Команда доступна только администраторам")
		return
	}

	month := b.now()
	if args != "" {
		m, err := time.Parse("2006-01", args)
		if err != nil {
			b.sendMessage(chatID, "Формат: /export 2026-10")
			return
		}
		month = m
	}

	list, err := b.bookingService.MonthBookings(ctx, month.Year(), month.Month())
	if err != nil {
		l.Error().Err(err).Msg("Failed to load bookings for export")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	data, err := export.Workbook(fmt.Sprintf("Заявки за %s", month.Format("01.2006")), list)
	if err != nil {
		l.Error().Err(err).Msg("Failed to build export workbook")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	name := export.FileName(month.Year(), month.Month())
	if err := b.tgService.SendDocument(chatID, name, data, fmt.Sprintf("Заявок: %d", len(list))); err != nil {
		l.Error().Err(err).Str("file", name).Msg("Failed to send export")
		return
	}
	l.Info().Str("file", name).Int("bookings", len(list)).Msg("Export sent")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
