package flow

// Метки reply-клавиатуры
const (
	BackLabel   = "⬅ Назад"
	CancelLabel = "❌ Отмена"
	NewLabel    = "🆕 Новая заявка"
	MineLabel   = "📋 Мои заявки"
)

const (
	textMenu         = "Выбери действие:"
	textCancelled    = "Отменено."
	textService      = "Что хочется?"
	textDate         = "Когда удобно?"
	textPickDate     = "Выбери день в календаре или напиши дату, например 26.08.2025"
	textBadDate      = "Не распознал дату. Пример: 26.08.2025"
	textPastDate     = "Эта дата уже прошла. Выбери другую."
	textTime         = "Во сколько?"
	textNoFreeSlots  = "Во сколько?\nГотовые слоты на эту дату заняты, можно указать свой интервал."
	textInterval     = "Напиши интервал: HH:MM–HH:MM\nНапр.: 11:23–14:45"
	textBadTime      = "Не понял время. Введи, например: 11:30–17:45 или Весь день."
	textBadStart     = "Не понял время. Пример: 11:30–17:45"
	textTimeEnd      = "Конец: HH:MM"
	textBadInterval  = "Интервал некорректный: конец должен быть позже начала. Пример: 11:30–17:45"
	textDistrict     = "Какой район/локация? (можно 'без разницы')"
	textWishes       = "Пожелания/детали? (можно написать 'нет')"
	textSlotTaken    = "Этот слот занят."
	textStoreFailed  = "Не удалось записать заявку в таблицу. Попробуй позже."
	textDateLost     = "Не распознал дату, начнём заново."
	textSubmitted    = "Заявка отправлена ✅\nID: %s"
	textStaleButton  = "Эта кнопка уже неактивна"
	textUseMenu      = "Нажмите /start или кнопку в меню."
	textRestart      = "Заново"
	textSummaryTitle = "Проверь заявку:"
)
