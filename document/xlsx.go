package document

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// MaxCellChars is the longest value a workbook cell holds. Excel truncates
// anything longer, so Encode refuses it instead.
const MaxCellChars = excelize.TotalCellChars

// Codec converts between the stored byte form and a Document.
type Codec interface {
	Decode(data []byte) (*Document, error)
	Encode(doc *Document) ([]byte, error)
}

// =============================================================================
// XLSX CODEC - one workbook, one sheet per table, header on row 1
// =============================================================================

// XLSX stores a Document as an Excel workbook.
//
// Every cell is written as a string so values round-trip exactly (no float
// formatting of money, no date coercion). Empty sheets are ignored on decode:
// a table always has at least its header row.
type XLSX struct{}

var _ Codec = XLSX{}

// Decode reads every non-empty sheet as a table.
func (XLSX) Decode(data []byte) (*Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	defer func() { _ = f.Close() }()

	doc := New()
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %s: %v", ErrMalformedDocument, sheet, err)
		}
		if len(rows) == 0 || len(rows[0]) == 0 {
			continue
		}
		t := &Table{Name: sheet, Columns: rows[0]}
		for _, r := range rows[1:] {
			if isBlank(r) {
				continue
			}
			t.Rows = append(t.Rows, t.normalize(r))
		}
		doc.putTable(t)
	}
	return doc, nil
}

// Encode writes the document as a workbook.
func (XLSX) Encode(doc *Document) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const defaultSheet = "Sheet1"
	for i, t := range doc.tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return nil, fmt.Errorf("rename sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", t.Name, err)
		}

		if err := writeRow(f, t.Name, 1, t.Columns); err != nil {
			return nil, err
		}
		for r, row := range t.Rows {
			if err := writeRow(f, t.Name, r+2, row); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		if n := utf8.RuneCountInString(v); n > MaxCellChars {
			return fmt.Errorf("%w: %s row %d column %d has %d characters", ErrCellTooLong, sheet, row, i+1, n)
		}
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
