package mirror

import (
	"context"
	"fmt"
	"sync"
)

// MemoryWorkbook is an in-process Workbook used in tests and dry runs.
type MemoryWorkbook struct {
	sheets map[string][][]string
	// FailWith, when set, is returned by every call.
	FailWith error
	mu       sync.Mutex
}

// NewMemoryWorkbook creates a workbook with the given empty sheets.
func NewMemoryWorkbook(sheets ...string) *MemoryWorkbook {
	m := &MemoryWorkbook{sheets: make(map[string][][]string)}
	for _, s := range sheets {
		m.sheets[s] = nil
	}
	return m
}

// NewCategoryWorkbook creates a workbook with every category sheet, each
// holding a header row.
func NewCategoryWorkbook() *MemoryWorkbook {
	m := NewMemoryWorkbook()
	for _, s := range Sheets() {
		m.sheets[s] = [][]string{Header()}
	}
	return m
}

// Header is the title row written above data rows.
func Header() []string {
	return []string{"STT", "Tuần", "Ngày", "Họ tên", "Lý do", "Nộp tiền", "Ngày nộp", "Số tiền chưa nộp", "Ghi chú"}
}

// Sheet returns a copy of a sheet's rows.
func (m *MemoryWorkbook) Sheet(sheet string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.sheets[sheet]
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// SetRows replaces a sheet's contents, creating it if needed.
func (m *MemoryWorkbook) SetRows(sheet string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = rows
}

func (m *MemoryWorkbook) HasSheet(_ context.Context, sheet string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return false, m.FailWith
	}
	_, ok := m.sheets[sheet]
	return ok, nil
}

func (m *MemoryWorkbook) Rows(_ context.Context, sheet string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (m *MemoryWorkbook) AppendRow(_ context.Context, sheet string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, ok := m.sheets[sheet]; !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	m.sheets[sheet] = append(m.sheets[sheet], append([]string(nil), values...))
	return nil
}

func (m *MemoryWorkbook) UpdateRows(_ context.Context, sheet string, updates []RowUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	rows, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	for _, u := range updates {
		if u.Index < 0 || u.Index >= len(rows) {
			return fmt.Errorf("row %d out of range on %s", u.Index, sheet)
		}
		if u.Column < 0 {
			return fmt.Errorf("column %d out of range on %s", u.Column, sheet)
		}
		row := append([]string(nil), rows[u.Index]...)
		for len(row) < u.Column+len(u.Values) {
			row = append(row, "")
		}
		copy(row[u.Column:], u.Values)
		rows[u.Index] = row
	}
	return nil
}

func (m *MemoryWorkbook) DeleteRow(_ context.Context, sheet string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	rows, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("row %d out of range on %s", index, sheet)
	}
	m.sheets[sheet] = append(rows[:index], rows[index+1:]...)
	return nil
}

var _ Workbook = (*MemoryWorkbook)(nil)
