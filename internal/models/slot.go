package models

// AllDaySentinel значение ячейки в отчете доступности, когда день занят целиком
const AllDaySentinel = "ALL_DAY"

// SlotState состояние одного слота на дату
type SlotState struct {
	Label    string `json:"label"`
	Occupant string `json:"-"`
	Free     bool   `json:"free"`
}
