// Package export формирует Excel-выгрузку заявок.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"qwesade/internal/models"
)

const sheetName = "Заявки"

var statusColors = map[string]string{
	models.StatusNew:       "#FFEB9C",
	models.StatusConfirmed: "#C6EFCE",
	models.StatusDeclined:  "#FFC7CE",
}

var columnWidths = []float64{20, 26, 14, 16, 20, 22, 12, 18, 14, 20, 30, 12, 24}

// FileName имя файла выгрузки за месяц
func FileName(year int, month time.Month) string {
	return fmt.Sprintf("bookings_%04d-%02d.xlsx", year, int(month))
}

// Workbook строит книгу: строка периода, заголовок таблицы заявок и по строке на заявку.
// Строки окрашиваются по статусу.
func Workbook(title string, bookings []*models.Booking) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	lastCol, err := excelize.ColumnNumberToName(len(models.BookingHeaders))
	if err != nil {
		return nil, err
	}

	_ = f.SetCellValue(sheetName, "A1", title)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	header := make([]interface{}, len(models.BookingHeaders))
	for i, h := range models.BookingHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A2", &header); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(sheetName, "A2", lastCol+"2", headerStyle)

	styles := make(map[string]int, len(statusColors))
	for status, color := range statusColors {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{
				Horizontal: "left",
				Vertical:   "top",
				WrapText:   true,
			},
		})
		if err != nil {
			return nil, err
		}
		styles[status] = id
	}

	for i, b := range bookings {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := b.Row()
		line := make([]interface{}, len(values))
		for j, v := range values {
			line[j] = v
		}
		// TelegramID пишется числом
		line[2] = b.TelegramID
		if err := f.SetSheetRow(sheetName, cell, &line); err != nil {
			return nil, fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := styles[b.Status]; ok {
			end, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(sheetName, cell, end, style)
		}
	}

	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, col, col, w)
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 2, TopLeftCell: "A3", ActivePane: "bottomLeft"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error saving workbook: %w", err)
	}
	return buf.Bytes(), nil
}
