package flow

import (
	"fmt"
	"strconv"
	"time"

	"qwesade/internal/models"
	"qwesade/internal/parsing"
)

// Option одна кнопка ответа. Если задан URL, кнопка открывает ссылку вместо Action.
type Option struct {
	Label  string
	Action string
	URL    string
}

const (
	KeyboardMenu = "menu"
	KeyboardFlow = "flow"
)

const (
	ActionNew     = "new"
	ActionMine    = "mine"
	ActionAvail   = "avail"
	ActionBack    = "back"
	ActionCancel  = "cancel"
	ActionConfirm = "confirm"
	ActionEdit    = "edit"
	ActionNoop    = "noop"

	PrefixService  = "svc:"
	PrefixDate     = "date:"
	PrefixTime     = "time:"
	PrefixCalNav   = "cal:nav:"
	PrefixCalPick  = "cal:pick:"
	ActionInterval = "time:interval"
)

// Пресеты дат. Ключ используется в callback data, метка показывается пользователю.
const (
	PresetToday    = "today"
	PresetTomorrow = "tomorrow"
	PresetWeekend  = "weekend"
	PresetPick     = "pick"
)

var datePresets = []struct {
	Key   string
	Label string
}{
	{PresetToday, "Сегодня"},
	{PresetTomorrow, "Завтра"},
	{PresetWeekend, "Ближайшие выходные"},
	{PresetPick, "Выбрать дату"},
}

var ruMonths = []string{"Янв", "Фев", "Мар", "Апр", "Май", "Июн", "Июл", "Авг", "Сен", "Окт", "Ноя", "Дек"}

// MenuOptions кнопки главного меню
func MenuOptions() [][]Option {
	return [][]Option{
		{{Label: "🗓 Записаться", Action: ActionNew}, {Label: "📋 Мои заявки", Action: ActionMine}},
		{{Label: "📅 Доступность", Action: ActionAvail}},
	}
}

// DateOptions пресеты дат с префиксом callback data
func DateOptions(prefix string, withBack bool) [][]Option {
	var rows [][]Option
	var row []Option
	for _, p := range datePresets {
		row = append(row, Option{Label: p.Label, Action: prefix + p.Key})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if withBack {
		rows = append(rows, []Option{{Label: BackLabel, Action: ActionBack}})
	}
	return rows
}

// ResolvePreset переводит ключ пресета в дату. Для PresetPick и неизвестных ключей ok = false.
func ResolvePreset(key string, now time.Time) (date time.Time, label string, ok bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch key {
	case PresetToday:
		return today, "Сегодня", true
	case PresetTomorrow:
		return today.AddDate(0, 0, 1), "Завтра", true
	case PresetWeekend:
		return parsing.NextSaturday(today), "Ближайшие выходные", true
	}
	return time.Time{}, "", false
}

func serviceOptions(services []string) [][]Option {
	var rows [][]Option
	for i := 0; i < len(services); i += 2 {
		row := []Option{{Label: services[i], Action: PrefixService + strconv.Itoa(i)}}
		if i+1 < len(services) {
			row = append(row, Option{Label: services[i+1], Action: PrefixService + strconv.Itoa(i+1)})
		}
		rows = append(rows, row)
	}
	return rows
}

// timeOptions кнопки свободных слотов. Индекс в callback data указывает на слот в конфигурации.
func timeOptions(slots []string, free map[string]bool) [][]Option {
	var rows [][]Option
	var row []Option
	for i, s := range slots {
		if free != nil && !free[s] {
			continue
		}
		row = append(row, Option{Label: s, Action: PrefixTime + strconv.Itoa(i)})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		[]Option{{Label: "⏱ Выбрать интервал", Action: ActionInterval}},
		[]Option{{Label: BackLabel, Action: ActionBack}},
	)
	return rows
}

func confirmOptions() [][]Option {
	return [][]Option{{
		{Label: "✅ Подтвердить", Action: ActionConfirm},
		{Label: "✏️ Исправить", Action: ActionEdit},
	}}
}

// Calendar компактный календарь месяца: навигация, дни по 7 в ряд, "Сегодня" и "Назад".
// Дни из busy помечаются точкой.
func Calendar(year int, month time.Month, busy map[string]bool, today time.Time) [][]Option {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)

	rows := [][]Option{{
		{Label: "«", Action: PrefixCalNav + prev.Format("2006-01")},
		{Label: fmt.Sprintf("%s %d", ruMonths[month-1], year), Action: ActionNoop},
		{Label: "»", Action: PrefixCalNav + next.Format("2006-01")},
	}}

	days := next.AddDate(0, 0, -1).Day()
	var row []Option
	for d := 1; d <= days; d++ {
		iso := fmt.Sprintf("%04d-%02d-%02d", year, int(month), d)
		label := strconv.Itoa(d)
		if busy[iso] {
			label += "•"
		}
		row = append(row, Option{Label: label, Action: PrefixCalPick + iso})
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []Option{
		{Label: "Сегодня", Action: PrefixCalPick + today.Format(models.DateLayout)},
		{Label: BackLabel, Action: ActionBack},
	})
	return rows
}

// ParseMonth разбирает "YYYY-MM"
func ParseMonth(s string) (int, time.Month, bool) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, false
	}
	return t.Year(), t.Month(), true
}
