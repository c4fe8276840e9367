// Package parsing разбирает даты и временные интервалы, введенные пользователем свободным текстом.
package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"qwesade/internal/models"
)

var (
	numericDateRe = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})(?:[./-](\d{4}))?$`)
	clockRe       = regexp.MustCompile(`^\s*(\d{1,2})[:.](\d{2})\s*$`)
	rangeRe       = regexp.MustCompile(`^\s*(\d{1,2})[:.](\d{2})\s*-\s*(\d{1,2})[:.](\d{2})\s*$`)
	dashReplacer  = strings.NewReplacer("—", "-", "–", "-", "−", "-", "‒", "-")
)

// WholeDayLabels метки, обозначающие бронь на весь день
var WholeDayLabels = []string{"whole day", "all day", "весь день"}

var (
	todayWords    = []string{"today", "сегодня"}
	afterTomorrow = []string{"послезавтра", "day after tomorrow"}
	tomorrowWords = []string{"tomorrow", "завтра"}
	weekendWords  = []string{"weekend", "выходн"}
)

// ParseHumanDate понимает "сегодня", "завтра", "послезавтра", "ближайшие выходные" (ближайшая суббота,
// включая сегодняшний день), ISO YYYY-MM-DD и даты вида D.M[.YYYY] с разделителями '.', '/' или '-'.
// Если год не указан, берется год из now.
func ParseHumanDate(text string, now time.Time) (time.Time, error) {
	t := strings.ToLower(strings.TrimSpace(text))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case t == "":
		return time.Time{}, models.ErrUnparseableDate
	case containsAny(t, todayWords):
		return today, nil
	case containsAny(t, afterTomorrow):
		return today.AddDate(0, 0, 2), nil
	case containsAny(t, tomorrowWords):
		return today.AddDate(0, 0, 1), nil
	case containsAny(t, weekendWords):
		return NextSaturday(today), nil
	}

	if d, err := time.ParseInLocation(models.DateLayout, t, now.Location()); err == nil {
		return d, nil
	}

	m := numericDateRe.FindStringSubmatch(t)
	if m == nil {
		return time.Time{}, models.ErrUnparseableDate
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	// time.Date нормализует 30.02 в 02.03, такие даты отбрасываем
	if d.Day() != day || int(d.Month()) != month || d.Year() != year {
		return time.Time{}, models.ErrUnparseableDate
	}
	return d, nil
}

// NextSaturday ближайшая суббота начиная с day
func NextSaturday(day time.Time) time.Time {
	offset := (int(time.Saturday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, offset)
}

// ParseClockTime разбирает H:MM или H.MM
func ParseClockTime(text string) (hour, minute int, err error) {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, models.ErrUnparseableTime
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour >= 24 || minute >= 60 {
		return 0, 0, models.ErrUnparseableTime
	}
	return hour, minute, nil
}

// NormalizeInterval собирает интервал "HH:MM–HH:MM". Конец должен быть строго позже начала
// в пределах одних суток.
func NormalizeInterval(startText, endText string) (string, error) {
	sh, sm, err := ParseClockTime(startText)
	if err != nil {
		return "", err
	}
	eh, em, err := ParseClockTime(endText)
	if err != nil {
		return "", err
	}
	if eh*60+em <= sh*60+sm {
		return "", models.ErrInvalidInterval
	}
	return fmt.Sprintf("%02d:%02d–%02d:%02d", sh, sm, eh, em), nil
}

// SlotRange полуоткрытый интервал [Start, End) в минутах от начала суток.
// AllDay означает бронь на весь день, Start и End при этом не используются.
type SlotRange struct {
	AllDay bool
	Start  int
	End    int
}

// Overlaps проверяет пересечение полуоткрытых интервалов
func (r SlotRange) Overlaps(o SlotRange) bool {
	if r.AllDay || o.AllDay {
		return true
	}
	return !(r.End <= o.Start || o.End <= r.Start)
}

// IsWholeDay распознает метку "весь день"
func IsWholeDay(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	for _, w := range WholeDayLabels {
		if l == w {
			return true
		}
	}
	return false
}

// SlotToMinuteRange переводит метку слота в интервал минут
func SlotToMinuteRange(label string) (SlotRange, error) {
	if IsWholeDay(label) {
		return SlotRange{AllDay: true}, nil
	}

	m := rangeRe.FindStringSubmatch(dashReplacer.Replace(label))
	if m == nil {
		return SlotRange{}, models.ErrUnparseableTime
	}
	v := make([]int, 4)
	for i := range v {
		v[i], _ = strconv.Atoi(m[i+1])
	}
	if v[0] >= 24 || v[2] >= 24 || v[1] >= 60 || v[3] >= 60 {
		return SlotRange{}, models.ErrUnparseableTime
	}

	r := SlotRange{Start: v[0]*60 + v[1], End: v[2]*60 + v[3]}
	if r.End <= r.Start {
		return SlotRange{}, models.ErrInvalidInterval
	}
	return r, nil
}

// CanonicalSlot приводит интервал к виду "HH:MM–HH:MM". Прочие метки возвращаются без изменений.
func CanonicalSlot(label string) string {
	label = strings.TrimSpace(label)
	r, err := SlotToMinuteRange(label)
	if err != nil || r.AllDay {
		return label
	}
	return fmt.Sprintf("%02d:%02d–%02d:%02d", r.Start/60, r.Start%60, r.End/60, r.End%60)
}

// ParseIntervalText разбирает интервал, введенный одним сообщением: "11.30-17.45", "11:30 — 17:45".
func ParseIntervalText(text string) (string, error) {
	parts := strings.Split(dashReplacer.Replace(text), "-")
	if len(parts) != 2 {
		return "", models.ErrUnparseableTime
	}
	return NormalizeInterval(parts[0], parts[1])
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
