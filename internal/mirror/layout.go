package mirror

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned for codes without a mirror sheet.
var ErrUnknownCategory = errors.New("no mirror sheet for category")

// RosterSheet lists the class roster: names in the second column, header
// row labelled "STT".
const RosterSheet = "DS_LOP"

var sheetTable = []struct {
	code  string
	sheet string
}{
	{"VP01", "NHAT_KI_DI_MUON"},
	{"VP02", "NG_LA"},
	{"VP03", "DOI_CHO"},
	{"VP04", "QUEN_DDHT"},
	{"VP05", "NGU_TRONG_GIO"},
	{"VP06", "NGHI_HOC"},
}

// SheetFor returns the sheet holding a category's rows.
func SheetFor(code string) (string, error) {
	for _, e := range sheetTable {
		if e.code == code {
			return e.sheet, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, code)
}

// CodeFor returns the category stored on a sheet.
func CodeFor(sheet string) (string, bool) {
	for _, e := range sheetTable {
		if e.sheet == sheet {
			return e.code, true
		}
	}
	return "", false
}

// Sheets lists every category sheet in code order.
func Sheets() []string {
	names := make([]string, len(sheetTable))
	for i, e := range sheetTable {
		names[i] = e.sheet
	}
	return names
}
