package sheet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const driverName = "mysql"

// MySQLConfig describes the cell store connection. DSN, when set, wins over
// the individual fields.
type MySQLConfig struct {
	DSN      string
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
}

func (c MySQLConfig) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS sheet_cells (
	sheet_name VARCHAR(100)  NOT NULL,
	row_idx    INT           NOT NULL,
	col_idx    INT           NOT NULL,
	value      VARCHAR(1024) NOT NULL DEFAULT '',
	note       VARCHAR(2048) NOT NULL DEFAULT '',
	background CHAR(7)       NOT NULL DEFAULT '#ffffff',
	PRIMARY KEY (sheet_name, row_idx, col_idx)
)`

// MySQLWorkbook stores every sheet's cells in one sheet_cells table.
type MySQLWorkbook struct {
	db *sql.DB
}

// OpenMySQL connects, pings and ensures the schema exists.
func OpenMySQL(ctx context.Context, c MySQLConfig) (*MySQLWorkbook, error) {
	db, err := sql.Open(driverName, c.dsn())
	if err != nil {
		return nil, fmt.Errorf("sheet: open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sheet: ping mysql: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sheet: ensure schema: %w", err)
	}
	return &MySQLWorkbook{db: db}, nil
}

func (w *MySQLWorkbook) Close() error {
	return w.db.Close()
}

func (w *MySQLWorkbook) Sheet(ctx context.Context, name string) (Table, error) {
	var one int
	err := w.db.QueryRowContext(ctx,
		`SELECT 1 FROM sheet_cells WHERE sheet_name = ? LIMIT 1`, name,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &mysqlSheet{db: w.db, name: name}, nil
}

type mysqlSheet struct {
	db   DBTX
	name string
}

func (s *mysqlSheet) RowValues(ctx context.Context, row, col, count int) ([]string, error) {
	if err := checkSpan(row, col, count); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT col_idx, value FROM sheet_cells
	WHERE sheet_name = ? AND row_idx = ? AND col_idx BETWEEN ? AND ?`,
		s.name, row, col, col+count-1)
	if err != nil {
		return nil, err
	}
	return scanSpan(rows, col, count)
}

func (s *mysqlSheet) ColumnValues(ctx context.Context, col, row, count int) ([]string, error) {
	if err := checkSpan(row, col, count); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT row_idx, value FROM sheet_cells
	WHERE sheet_name = ? AND col_idx = ? AND row_idx BETWEEN ? AND ?`,
		s.name, col, row, row+count-1)
	if err != nil {
		return nil, err
	}
	return scanSpan(rows, row, count)
}

// scanSpan places (index, value) rows into a dense slice starting at first.
func scanSpan(rows *sql.Rows, first, count int) ([]string, error) {
	defer rows.Close()
	out := make([]string, count)
	for rows.Next() {
		var idx int
		var v string
		if err := rows.Scan(&idx, &v); err != nil {
			return nil, err
		}
		if i := idx - first; i >= 0 && i < count {
			out[i] = v
		}
	}
	return out, rows.Err()
}

func (s *mysqlSheet) cell(ctx context.Context, row, col int) (Cell, error) {
	if err := checkIndex(row, col); err != nil {
		return Cell{}, err
	}
	var c Cell
	err := s.db.QueryRowContext(ctx, `
	SELECT value, note, background FROM sheet_cells
	WHERE sheet_name = ? AND row_idx = ? AND col_idx = ?`,
		s.name, row, col,
	).Scan(&c.Value, &c.Note, &c.Background)
	if errors.Is(err, sql.ErrNoRows) {
		return Cell{Background: DefaultBackground}, nil
	}
	return c, err
}

func (s *mysqlSheet) DisplayValue(ctx context.Context, row, col int) (string, error) {
	c, err := s.cell(ctx, row, col)
	return c.Value, err
}

func (s *mysqlSheet) Background(ctx context.Context, row, col int) (string, error) {
	c, err := s.cell(ctx, row, col)
	return c.Background, err
}

func (s *mysqlSheet) Note(ctx context.Context, row, col int) (string, error) {
	c, err := s.cell(ctx, row, col)
	return c.Note, err
}

func (s *mysqlSheet) SetValue(ctx context.Context, row, col int, value string) error {
	if err := checkIndex(row, col); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO sheet_cells (sheet_name, row_idx, col_idx, value)
	VALUES (?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE value = VALUES(value)`,
		s.name, row, col, value)
	return err
}

func (s *mysqlSheet) SetNote(ctx context.Context, row, col int, note string) error {
	if err := checkIndex(row, col); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO sheet_cells (sheet_name, row_idx, col_idx, note)
	VALUES (?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE note = VALUES(note)`,
		s.name, row, col, note)
	return err
}

func (s *mysqlSheet) LastRow(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_idx), 0) FROM sheet_cells WHERE sheet_name = ? AND value <> ''`, s.name,
	).Scan(&n)
	return n, err
}

func (s *mysqlSheet) LastColumn(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(col_idx), 0) FROM sheet_cells WHERE sheet_name = ? AND value <> ''`, s.name,
	).Scan(&n)
	return n, err
}
