package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/sheets/v4"
)

// MockAPI is an in-memory API that behaves like the Sheets service for
// the calls the workbook makes. Numbers come back as float64.
type MockAPI struct {
	Err    error // returned by every call when set
	ids    map[string]int64
	values map[string][][]any
	Calls  []string
	ranges []string
	mu     sync.Mutex
}

// NewMockAPI creates a spreadsheet with the given tabs.
func NewMockAPI(titles ...string) *MockAPI {
	m := &MockAPI{
		ids:    make(map[string]int64, len(titles)),
		values: make(map[string][][]any, len(titles)),
	}
	for i, title := range titles {
		m.ids[title] = int64(i)
		m.values[title] = nil
	}
	return m
}

// SetValues replaces a tab's contents.
func (m *MockAPI) SetValues(title string, rows [][]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[title] = rows
}

// Values returns a copy of a tab's contents.
func (m *MockAPI) Values(title string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]any, len(m.values[title]))
	for i, row := range m.values[title] {
		out[i] = append([]any(nil), row...)
	}
	return out
}

// UpdatedRanges returns every range written by UpdateValues, in order.
func (m *MockAPI) UpdatedRanges() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ranges...)
}

// GetCalls returns a copy of the recorded call names.
func (m *MockAPI) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

func (m *MockAPI) record(call string) error {
	m.Calls = append(m.Calls, call)
	return m.Err
}

// SheetIDs implements API.
func (m *MockAPI) SheetIDs(_ context.Context, _ string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SheetIDs"); err != nil {
		return nil, err
	}

	ids := make(map[string]int64, len(m.ids))
	for k, v := range m.ids {
		ids[k] = v
	}
	return ids, nil
}

// GetValues implements API.
func (m *MockAPI) GetValues(_ context.Context, _ string, rng string) ([][]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetValues " + rng); err != nil {
		return nil, err
	}

	title, _, err := parseRange(rng)
	if err != nil {
		return nil, err
	}
	out := make([][]any, len(m.values[title]))
	for i, row := range m.values[title] {
		out[i] = append([]any(nil), row...)
	}
	return out, nil
}

// AppendValues implements API.
func (m *MockAPI) AppendValues(_ context.Context, _ string, rng string, values [][]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("AppendValues " + rng); err != nil {
		return err
	}

	title, _, err := parseRange(rng)
	if err != nil {
		return err
	}
	for _, row := range values {
		m.values[title] = append(m.values[title], numeric(row))
	}
	return nil
}

// UpdateValues implements API.
func (m *MockAPI) UpdateValues(_ context.Context, _ string, data []*sheets.ValueRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(fmt.Sprintf("UpdateValues %d", len(data))); err != nil {
		return err
	}

	for _, vr := range data {
		m.ranges = append(m.ranges, vr.Range)
		title, row, col, err := parseCell(vr.Range)
		if err != nil {
			return err
		}
		for i, values := range vr.Values {
			idx := row - 1 + i
			for len(m.values[title]) <= idx {
				m.values[title] = append(m.values[title], nil)
			}
			existing := m.values[title][idx]
			for len(existing) < col+len(values) {
				existing = append(existing, "")
			}
			copy(existing[col:], numeric(values))
			m.values[title][idx] = existing
		}
	}
	return nil
}

// DeleteRows implements API.
func (m *MockAPI) DeleteRows(_ context.Context, _ string, sheetID, start, end int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(fmt.Sprintf("DeleteRows %d %d-%d", sheetID, start, end)); err != nil {
		return err
	}

	for title, id := range m.ids {
		if id != sheetID {
			continue
		}
		rows := m.values[title]
		if end > int64(len(rows)) {
			return fmt.Errorf("row range %d-%d out of bounds", start, end)
		}
		m.values[title] = append(rows[:start:start], rows[end:]...)
		return nil
	}
	return fmt.Errorf("no sheet with id %d", sheetID)
}

// parseCell splits "'Title'!F5:H5" into title, 1-based first row and
// zero-based first column.
func parseCell(rng string) (string, int, int, error) {
	title, row, err := parseRange(rng)
	if err != nil {
		return "", 0, 0, err
	}
	bang := strings.LastIndex(rng, "!")
	col := 0
	for _, c := range rng[bang+1:] {
		if c < 'A' || c > 'Z' {
			break
		}
		col = col*26 + int(c-'A'+1)
	}
	if col == 0 {
		return "", 0, 0, fmt.Errorf("range %q has no column", rng)
	}
	return title, row, col - 1, nil
}

// parseRange splits "'Title'!A5", "'Title'!F5:H5" or "'Title'!A:I" into title and first row
// (zero when the range is whole columns).
func parseRange(rng string) (string, int, error) {
	bang := strings.LastIndex(rng, "!")
	if bang < 0 {
		return "", 0, fmt.Errorf("range %q has no sheet", rng)
	}
	title := strings.ReplaceAll(strings.Trim(rng[:bang], "'"), "''", "'")

	cell := strings.TrimLeft(rng[bang+1:], "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	if cell == "" || strings.HasPrefix(cell, ":") {
		return title, 0, nil
	}
	cell, _, _ = strings.Cut(cell, ":")
	row, err := strconv.Atoi(cell)
	if err != nil {
		return "", 0, fmt.Errorf("range %q: %w", rng, err)
	}
	return title, row, nil
}

func numeric(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch t := v.(type) {
		case int64:
			out[i] = float64(t)
		case int:
			out[i] = float64(t)
		default:
			out[i] = v
		}
	}
	return out
}
