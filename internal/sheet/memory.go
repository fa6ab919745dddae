package sheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type cellKey struct{ row, col int }

// MemorySheet is an in-process Table.
type MemorySheet struct {
	mu    sync.RWMutex
	name  string
	cells map[cellKey]Cell
}

func NewMemorySheet(name string) *MemorySheet {
	return &MemorySheet{name: name, cells: make(map[cellKey]Cell)}
}

func (s *MemorySheet) Name() string { return s.name }

// Put replaces a whole cell.
func (s *MemorySheet) Put(row, col int, c Cell) {
	s.mu.Lock()
	s.cells[cellKey{row, col}] = c
	s.mu.Unlock()
}

// Cell returns a copy of the stored cell.
func (s *MemorySheet) Cell(row, col int) Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cells[cellKey{row, col}]
}

// SetRow writes values into row starting at column 1, leaving other cell
// attributes untouched.
func (s *MemorySheet) SetRow(row int, values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range values {
		k := cellKey{row, i + 1}
		c := s.cells[k]
		c.Value = v
		s.cells[k] = c
	}
}

func (s *MemorySheet) SetBackground(row, col int, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := cellKey{row, col}
	c := s.cells[k]
	c.Background = color
	s.cells[k] = c
}

func (s *MemorySheet) RowValues(_ context.Context, row, col, count int) ([]string, error) {
	if err := checkSpan(row, col, count); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, count)
	for i := range out {
		out[i] = s.cells[cellKey{row, col + i}].Value
	}
	return out, nil
}

func (s *MemorySheet) ColumnValues(_ context.Context, col, row, count int) ([]string, error) {
	if err := checkSpan(row, col, count); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, count)
	for i := range out {
		out[i] = s.cells[cellKey{row + i, col}].Value
	}
	return out, nil
}

func (s *MemorySheet) DisplayValue(_ context.Context, row, col int) (string, error) {
	if err := checkIndex(row, col); err != nil {
		return "", err
	}
	return s.Cell(row, col).Value, nil
}

func (s *MemorySheet) Background(_ context.Context, row, col int) (string, error) {
	if err := checkIndex(row, col); err != nil {
		return "", err
	}
	if bg := s.Cell(row, col).Background; bg != "" {
		return bg, nil
	}
	return DefaultBackground, nil
}

func (s *MemorySheet) Note(_ context.Context, row, col int) (string, error) {
	if err := checkIndex(row, col); err != nil {
		return "", err
	}
	return s.Cell(row, col).Note, nil
}

func (s *MemorySheet) SetValue(_ context.Context, row, col int, value string) error {
	if err := checkIndex(row, col); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := cellKey{row, col}
	c := s.cells[k]
	c.Value = value
	s.cells[k] = c
	return nil
}

func (s *MemorySheet) SetNote(_ context.Context, row, col int, note string) error {
	if err := checkIndex(row, col); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := cellKey{row, col}
	c := s.cells[k]
	c.Note = note
	s.cells[k] = c
	return nil
}

func (s *MemorySheet) LastRow(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := 0
	for k, c := range s.cells {
		if c.Value != "" && k.row > last {
			last = k.row
		}
	}
	return last, nil
}

func (s *MemorySheet) LastColumn(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := 0
	for k, c := range s.cells {
		if c.Value != "" && k.col > last {
			last = k.col
		}
	}
	return last, nil
}

// MemoryWorkbook holds MemorySheets by name.
type MemoryWorkbook struct {
	mu     sync.RWMutex
	sheets map[string]*MemorySheet
}

func NewMemoryWorkbook(sheets ...*MemorySheet) *MemoryWorkbook {
	wb := &MemoryWorkbook{sheets: make(map[string]*MemorySheet)}
	for _, s := range sheets {
		wb.sheets[s.name] = s
	}
	return wb
}

func (w *MemoryWorkbook) Add(s *MemorySheet) {
	w.mu.Lock()
	w.sheets[s.name] = s
	w.mu.Unlock()
}

func (w *MemoryWorkbook) Sheet(_ context.Context, name string) (Table, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return s, nil
}

// seedFile is the YAML layout accepted by LoadMemoryWorkbook.
//
//	sheets:
//	  - name: Spring
//	    rows:
//	      - ["", "", "Practice"]
//	    cells:
//	      - {row: 8, col: 3, background: "#000000"}
type seedFile struct {
	Sheets []seedSheet `yaml:"sheets"`
}

type seedSheet struct {
	Name  string     `yaml:"name"`
	Rows  [][]string `yaml:"rows"`
	Cells []seedCell `yaml:"cells"`
}

type seedCell struct {
	Row        int     `yaml:"row"`
	Col        int     `yaml:"col"`
	Value      *string `yaml:"value"`
	Note       *string `yaml:"note"`
	Background *string `yaml:"background"`
}

// LoadMemoryWorkbook builds a workbook from a YAML seed file.
func LoadMemoryWorkbook(path string) (*MemoryWorkbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sheet: read seed: %w", err)
	}
	return ParseMemoryWorkbook(data)
}

// ParseMemoryWorkbook is LoadMemoryWorkbook over an in-memory document.
func ParseMemoryWorkbook(data []byte) (*MemoryWorkbook, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("sheet: parse seed: %w", err)
	}

	wb := NewMemoryWorkbook()
	for _, ss := range seed.Sheets {
		if ss.Name == "" {
			return nil, errors.New("sheet: seed sheet without name")
		}
		s := NewMemorySheet(ss.Name)
		for i, row := range ss.Rows {
			s.SetRow(i+1, row...)
		}
		for _, sc := range ss.Cells {
			if err := checkIndex(sc.Row, sc.Col); err != nil {
				return nil, fmt.Errorf("sheet: seed %q: %w", ss.Name, err)
			}
			c := s.Cell(sc.Row, sc.Col)
			if sc.Value != nil {
				c.Value = *sc.Value
			}
			if sc.Note != nil {
				c.Note = *sc.Note
			}
			if sc.Background != nil {
				c.Background = *sc.Background
			}
			s.Put(sc.Row, sc.Col, c)
		}
		wb.Add(s)
	}
	return wb, nil
}
