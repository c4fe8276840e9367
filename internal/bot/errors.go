package bot

import (
	"errors"

	"qwesade/internal/models"
)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, models.ErrBookingNotFound) {
		return "Заявка не найдена"
	}

	if errors.Is(err, models.ErrBookingClosed) {
		return "Заявка уже отклонена, слот мог быть занят снова"
	}

	if errors.Is(err, models.ErrUnparseableDate) {
		return "Не распознал дату. Пример: 26.08.2025"
	}

	if errors.Is(err, models.ErrStoreUnavailable) {
		return "⚠️ Таблица сейчас недоступна. Пожалуйста, попробуйте позже."
	}

	// Default error message
	return "❌ Произошла ошибка при обработке запроса. Пожалуйста, попробуйте позже."
}

// commitFailureReason метка метрики для неудачной записи
func commitFailureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrSlotConflict):
		return "conflict"
	case errors.Is(err, models.ErrStoreUnavailable):
		return "store"
	}
	return "invalid"
}
