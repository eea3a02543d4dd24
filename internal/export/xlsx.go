package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"seatplan/api/internal/seating"
)

const (
	xlsxSheet   = "Seating Chart"
	xlsxTopRow  = 4
	xlsxMime    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	deskBorder  = "3E4C59"
	priorityBg  = "FFF3CD"
	gridColWide = 18.0
)

// buildXLSX writes the chart grid into a workbook. Occupied and empty desks
// get bordered cells; priority seats get a highlight fill. Cells that are
// not desks stay blank, mirroring the rendered room.
func buildXLSX(state seating.State, title string) (*Result, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeXLSXHeader(f, state.Settings); err != nil {
		return nil, err
	}

	deskStyle, priorityStyle, err := xlsxStyles(f)
	if err != nil {
		return nil, err
	}

	data := buildTemplateData(state)
	for r, rowCells := range data.Cells {
		excelRow := xlsxTopRow + r
		if err := f.SetRowHeight(xlsxSheet, excelRow, 36); err != nil {
			return nil, fmt.Errorf("set row height: %w", err)
		}
		for c, cell := range rowCells {
			if !cell.Active {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, excelRow)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(xlsxSheet, ref, deskLabel(cell)); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", ref, err)
			}
			style := deskStyle
			if cell.Priority {
				style = priorityStyle
			}
			if err := f.SetCellStyle(xlsxSheet, ref, ref, style); err != nil {
				return nil, fmt.Errorf("style cell %s: %w", ref, err)
			}
		}
	}

	if state.Cols > 0 {
		lastCol, err := excelize.ColumnNumberToName(state.Cols)
		if err == nil {
			_ = f.SetColWidth(xlsxSheet, "A", lastCol, gridColWide)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(title) + ".xlsx",
		MimeType: xlsxMime,
	}, nil
}

func writeXLSXHeader(f *excelize.File, settings seating.Settings) error {
	heading := strings.TrimSpace(settings.ClassName)
	if heading == "" {
		heading = "Seating Chart"
	}
	if err := f.SetCellValue(xlsxSheet, "A1", heading); err != nil {
		return fmt.Errorf("write heading: %w", err)
	}

	var parts []string
	if settings.Period != "" {
		parts = append(parts, "Period "+settings.Period)
	}
	if settings.DateLabel != "" {
		parts = append(parts, settings.DateLabel)
	}
	if len(parts) > 0 {
		if err := f.SetCellValue(xlsxSheet, "A2", strings.Join(parts, " / ")); err != nil {
			return fmt.Errorf("write subheading: %w", err)
		}
	}
	return nil
}

func xlsxStyles(f *excelize.File) (desk int, priority int, err error) {
	border := []excelize.Border{
		{Type: "left", Color: deskBorder, Style: 1},
		{Type: "top", Color: deskBorder, Style: 1},
		{Type: "right", Color: deskBorder, Style: 1},
		{Type: "bottom", Color: deskBorder, Style: 1},
	}
	alignment := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	desk, err = f.NewStyle(&excelize.Style{Border: border, Alignment: alignment})
	if err != nil {
		return 0, 0, fmt.Errorf("desk style: %w", err)
	}
	priority, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: alignment,
		Fill:      excelize.Fill{Type: "pattern", Color: []string{priorityBg}, Pattern: 1},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("priority style: %w", err)
	}
	return desk, priority, nil
}

func deskLabel(cell TemplateCell) string {
	label := cell.Name
	if cell.FlagType != "" {
		if label != "" {
			label += " "
		}
		label += "[" + cell.FlagType + "]"
	}
	return label
}
