// Package sheet is the narrow cell-level interface to the attendance
// spreadsheet plus two stores behind it: an in-memory workbook (seeded from
// YAML) and a MySQL-backed one.
//
// Rows and columns are 1-based, as in the spreadsheet UI.
package sheet

import (
	"context"
	"errors"
	"fmt"
)

// DefaultBackground is reported for cells that were never colored.
const DefaultBackground = "#ffffff"

var (
	ErrSheetNotFound = errors.New("sheet not found")
	ErrOutOfRange    = errors.New("cell index out of range")
)

// Table is one sheet of the workbook.
type Table interface {
	// RowValues returns count display values of row starting at col.
	RowValues(ctx context.Context, row, col, count int) ([]string, error)
	// ColumnValues returns count display values of col starting at row.
	ColumnValues(ctx context.Context, col, row, count int) ([]string, error)
	DisplayValue(ctx context.Context, row, col int) (string, error)
	Background(ctx context.Context, row, col int) (string, error)
	Note(ctx context.Context, row, col int) (string, error)
	SetValue(ctx context.Context, row, col int, value string) error
	SetNote(ctx context.Context, row, col int, note string) error
	// LastRow and LastColumn return the last index holding content, 0 if empty.
	LastRow(ctx context.Context) (int, error)
	LastColumn(ctx context.Context) (int, error)
}

// Workbook resolves sheets by name.
type Workbook interface {
	Sheet(ctx context.Context, name string) (Table, error)
}

// Cell is everything the attendance core reads or writes for one intersection.
type Cell struct {
	Value      string `yaml:"value"`
	Note       string `yaml:"note,omitempty"`
	Background string `yaml:"background,omitempty"`
}

func checkIndex(row, col int) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("%w: row=%d col=%d", ErrOutOfRange, row, col)
	}
	return nil
}

func checkSpan(row, col, count int) error {
	if err := checkIndex(row, col); err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("%w: count=%d", ErrOutOfRange, count)
	}
	return nil
}
