package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var cellRe = regexp.MustCompile(`^([A-Z]+)(\d+)$`)

// fakeSheets минимальная реализация Sheets API v4 для одного документа
type fakeSheets struct {
	mu      sync.Mutex
	id      string
	sheets  map[string][][]string
	added   []string
	appends int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/" + f.id
	path := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case path == "" && r.Method == http.MethodGet:
		resp := sheets.Spreadsheet{SpreadsheetId: f.id}
		for title := range f.sheets {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(resp)

	case path == ":batchUpdate":
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.sheets[rq.AddSheet.Properties.Title] = nil
				f.added = append(f.added, rq.AddSheet.Properties.Title)
			}
		}
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: f.id})

	case strings.HasPrefix(path, "/values/"):
		f.values(w, r, strings.TrimPrefix(path, "/values/"))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) values(w http.ResponseWriter, r *http.Request, rng string) {
	appendCall := strings.HasSuffix(rng, ":append")
	rng = strings.TrimSuffix(rng, ":append")

	title, cell, _ := strings.Cut(rng, "!")
	title = strings.Trim(title, "'")
	grid, ok := f.sheets[title]
	if !ok {
		http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodGet {
		vr := sheets.ValueRange{Range: rng}
		for _, row := range grid {
			out := make([]interface{}, 0, len(row))
			for _, v := range row {
				out = append(out, v)
			}
			vr.Values = append(vr.Values, out)
		}
		_ = json.NewEncoder(w).Encode(vr)
		return
	}

	var body sheets.ValueRange
	_ = json.NewDecoder(r.Body).Decode(&body)
	if r.URL.Query().Get("valueInputOption") != "RAW" {
		http.Error(w, "valueInputOption must be RAW", http.StatusBadRequest)
		return
	}

	row, col := len(grid)+1, 1
	if !appendCall {
		m := cellRe.FindStringSubmatch(cell)
		col = 0
		for _, c := range m[1] {
			col = col*26 + int(c-'A') + 1
		}
		row, _ = strconv.Atoi(m[2])
	} else {
		f.appends++
	}
	for i, v := range body.Values[0] {
		for len(grid) < row {
			grid = append(grid, nil)
		}
		for len(grid[row-1]) < col+i {
			grid[row-1] = append(grid[row-1], "")
		}
		grid[row-1][col+i-1] = v.(string)
	}
	f.sheets[title] = grid
	_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
}

func setupFake(t *testing.T) (*fakeSheets, *SheetsService) {
	t.Helper()
	ctx := context.Background()
	fake := &fakeSheets{id: "sid", sheets: map[string][][]string{"Bookings": nil}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return fake, NewWithService(srv, "sid")
}

func TestSheetsService_TestConnection(t *testing.T) {
	_, s := setupFake(t)
	assert.NoError(t, s.TestConnection(context.Background()))

	bad := NewWithService(s.service, "other")
	assert.Error(t, bad.TestConnection(context.Background()))
}

func TestSheetsService_WorksheetCreatesMissingSheet(t *testing.T) {
	ctx := context.Background()
	fake, s := setupFake(t)

	_, err := s.Worksheet(ctx, "Bookings")
	require.NoError(t, err)
	assert.Empty(t, fake.added)

	ws, err := s.Worksheet(ctx, "Calendar")
	require.NoError(t, err)
	assert.Equal(t, "Calendar", ws.Title())
	assert.Equal(t, []string{"Calendar"}, fake.added)

	_, err = s.Worksheet(ctx, "Calendar")
	require.NoError(t, err)
	assert.Len(t, fake.added, 1)
}

func TestWorksheet_ReadWrite(t *testing.T) {
	ctx := context.Background()
	fake, s := setupFake(t)

	ws, err := s.Worksheet(ctx, "Bookings")
	require.NoError(t, err)

	require.NoError(t, ws.UpdateRow(ctx, 1, []string{"Date", "Весь день"}))
	require.NoError(t, ws.UpdateCell(ctx, 1, 3, "10:00–12:00"))
	require.NoError(t, ws.AppendRow(ctx, []string{"2026-10-15"}))
	require.NoError(t, ws.UpdateCell(ctx, 2, 28, "x"))

	v, err := ws.Values(ctx)
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.Equal(t, []string{"Date", "Весь день", "10:00–12:00"}, v[0])
	assert.Equal(t, "2026-10-15", v[1][0])
	assert.Equal(t, "x", v[1][27])
	assert.Equal(t, 1, fake.appends)
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "A", ColumnName(1))
	assert.Equal(t, "Z", ColumnName(26))
	assert.Equal(t, "AA", ColumnName(27))
	assert.Equal(t, "AZ", ColumnName(52))
	assert.Equal(t, "BA", ColumnName(53))
}

func TestSheetRange(t *testing.T) {
	assert.Equal(t, "Bookings!A1", sheetRange("Bookings", "A1"))
	assert.Equal(t, "'My Sheet'", sheetRange("My Sheet", ""))
	assert.Equal(t, "'Bob''s'!B2", sheetRange("Bob's", "B2"))
}

func TestLoadCredentials(t *testing.T) {
	raw := `{"type":"service_account","private_key":"line1\\nline2"}`
	data, err := loadCredentials("", raw)
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "line1\nline2", fields["private_key"])

	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))

	data, err = loadCredentials("", "@"+path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(data))

	data, err = loadCredentials(path, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(data))

	_, err = loadCredentials("", "")
	assert.Error(t, err)
}
