package audit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// Workbook implements TableWriter with excelize.
type Workbook struct {
	file   *excelize.File
	sheet  string
	row    int
	widths map[int]int
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// AddSheet adds a sheet, reusing the default one for the first call.
func (w *Workbook) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.sheet = name
	w.row = 1
	w.widths = make(map[int]int)
	return nil
}

// WriteHeader writes bold column headers and freezes the header row.
func (w *Workbook) WriteHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.WriteRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	first, _ := excelize.CoordinatesToCellName(1, w.row-1)
	last, _ := excelize.CoordinatesToCellName(len(columns), w.row-1)
	if err := w.file.SetCellStyle(w.sheet, first, last, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	return w.file.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// WriteRow writes one row and widens columns to fit.
func (w *Workbook) WriteRow(row []any) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}

	start, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, start, &row); err != nil {
		return fmt.Errorf("write row %d: %w", w.row, err)
	}

	for i, v := range row {
		n := len([]rune(fmt.Sprint(v)))
		if n <= w.widths[i] {
			continue
		}
		w.widths[i] = n
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = w.file.SetColWidth(w.sheet, col, col, float64(min(n+2, 60)))
	}

	w.row++
	return nil
}

// Rows returns how many rows the current sheet holds, header included.
func (w *Workbook) Rows() int {
	return w.row - 1
}

// Save writes the workbook to wr.
func (w *Workbook) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// SaveToFile writes the workbook to disk.
func (w *Workbook) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

// Close releases resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}
