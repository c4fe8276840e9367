package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"qwesade/internal/domain"
)

// SheetsService табличное хранилище поверх одной Google-таблицы
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string

	mu     sync.Mutex
	titles map[string]bool
}

// NewSheetsService создает клиент с учетной записью сервисного аккаунта.
// credentialsJSON может содержать JSON целиком или путь в виде "@path"; если пусто, читается credentialsFile.
func NewSheetsService(ctx context.Context, credentialsFile, credentialsJSON, spreadsheetID string) (*SheetsService, error) {
	creds, err := loadCredentials(credentialsFile, credentialsJSON)
	if err != nil {
		return nil, err
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return NewWithService(srv, spreadsheetID), nil
}

// NewWithService оборачивает готовый клиент Sheets API
func NewWithService(srv *sheets.Service, spreadsheetID string) *SheetsService {
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		titles:        make(map[string]bool),
	}
}

func loadCredentials(file, raw string) ([]byte, error) {
	var data []byte
	switch {
	case strings.HasPrefix(strings.TrimSpace(raw), "{"):
		data = []byte(raw)
	case strings.HasPrefix(raw, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(raw, "@"))
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file: %w", err)
		}
		data = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file: %w", err)
		}
		data = b
	default:
		return nil, errors.New("google credentials are not configured")
	}

	// private_key из переменных окружения часто приходит с экранированными переводами строк
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	if key, ok := fields["private_key"].(string); ok && strings.Contains(key, `\n`) {
		fields["private_key"] = strings.ReplaceAll(key, `\n`, "\n")
		return json.Marshal(fields)
	}
	return data, nil
}

// TestConnection проверяет доступ к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to access spreadsheet %s: %w", s.spreadsheetID, err)
	}
	return nil
}

// Worksheet возвращает лист по названию, добавляя его в таблицу при отсутствии
func (s *SheetsService) Worksheet(ctx context.Context, title string) (domain.Worksheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.titles[title] {
		if err := s.ensureSheet(ctx, title); err != nil {
			return nil, err
		}
		s.titles[title] = true
	}
	return &worksheet{svc: s, title: title}, nil
}

func (s *SheetsService) ensureSheet(ctx context.Context, title string) error {
	resp, err := s.service.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to get spreadsheet: %w", err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    1000,
						ColumnCount: 26,
					},
				},
			},
		}},
	}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to add sheet %q: %w", title, err)
	}
	return nil
}

type worksheet struct {
	svc   *SheetsService
	title string
}

func (w *worksheet) Title() string { return w.title }

func (w *worksheet) Values(ctx context.Context) ([][]string, error) {
	resp, err := w.svc.service.Spreadsheets.Values.Get(w.svc.spreadsheetID, sheetRange(w.title, "")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %w", w.title, err)
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func (w *worksheet) UpdateRow(ctx context.Context, row int, values []string) error {
	return w.update(ctx, "A"+strconv.Itoa(row), values)
}

func (w *worksheet) UpdateCell(ctx context.Context, row, col int, value string) error {
	return w.update(ctx, ColumnName(col)+strconv.Itoa(row), []string{value})
}

func (w *worksheet) AppendRow(ctx context.Context, values []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
	_, err := w.svc.service.Spreadsheets.Values.Append(w.svc.spreadsheetID, sheetRange(w.title, "A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to append to sheet %q: %w", w.title, err)
	}
	return nil
}

func (w *worksheet) update(ctx context.Context, cell string, values []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
	_, err := w.svc.service.Spreadsheets.Values.Update(w.svc.spreadsheetID, sheetRange(w.title, cell), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to update %s in sheet %q: %w", cell, w.title, err)
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ColumnName переводит номер колонки (с 1) в буквенное обозначение: 1 -> A, 27 -> AA
func ColumnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

func sheetRange(title, cell string) string {
	t := title
	if !isPlainTitle(title) {
		t = "'" + strings.ReplaceAll(title, "'", "''") + "'"
	}
	if cell == "" {
		return t
	}
	return t + "!" + cell
}

func isPlainTitle(title string) bool {
	if title == "" {
		return false
	}
	for _, r := range title {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
