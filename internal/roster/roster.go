// Package roster reads uploaded class lists. The output feeds the AI
// reconciliation flow as plain roster text, one student per line.
package roster

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FromXLSX extracts student names from the first sheet of a spreadsheet.
// Each row contributes its first non-empty cell; a leading header row such
// as "Name" or "Students" is skipped. Blank rows are ignored.
func FromXLSX(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var names []string
	for i, row := range rows {
		name := firstCell(row)
		if name == "" {
			continue
		}
		if i == 0 && isHeader(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Join renders names as the roster text pasted into the reconcile request.
func Join(names []string) string {
	return strings.Join(names, "\n")
}

func firstCell(row []string) string {
	for _, cell := range row {
		if trimmed := strings.TrimSpace(cell); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func isHeader(value string) bool {
	switch strings.ToLower(value) {
	case "name", "names", "student", "students", "student name":
		return true
	}
	return false
}
