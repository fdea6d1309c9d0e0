package storage

import (
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/Shelfie/internal/types"
)

// SheetName is the worksheet products are written to.
const SheetName = "Products"

// XLSXStorage writes products to a spreadsheet with a header row and
// columns sized to their longest cell.
type XLSXStorage struct {
	path     string
	products []*types.Product
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewXLSXStorage creates a new spreadsheet storage. The file is written on
// Close.
func NewXLSXStorage(outputPath string, logger *slog.Logger) (*XLSXStorage, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}
	return &XLSXStorage{
		path:   outputPath,
		logger: logger.With("component", "xlsx_storage"),
	}, nil
}

func (s *XLSXStorage) Name() string { return "xlsx" }

func (s *XLSXStorage) Path() string { return s.path }

func (s *XLSXStorage) Store(products []*types.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, products...)
	s.logger.Debug("products buffered", "count", len(products), "total", len(s.products))
	return nil
}

func (s *XLSXStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeRow(f, 1, types.Columns); err != nil {
		return err
	}
	for i, p := range s.products {
		if err := writeRow(f, i+2, p.Row()); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(types.Columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, w := range ColumnWidths(s.products) {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, float64(w)); err != nil {
			return fmt.Errorf("set width of column %s: %w", col, err)
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save spreadsheet: %w", err)
	}

	s.logger.Info("spreadsheet written", "path", s.path, "products", len(s.products))
	return nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(SheetName, cell, v); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
	}
	return nil
}

// ColumnWidths returns the widths XLSXStorage gives each column for
// products: the longest cell, header included, plus two.
func ColumnWidths(products []*types.Product) []int {
	widths := make([]int, len(types.Columns))
	for i, col := range types.Columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for _, p := range products {
		for i, v := range p.Row() {
			widths[i] = max(widths[i], utf8.RuneCountInString(v))
		}
	}
	for i := range widths {
		widths[i] += 2
	}
	return widths
}
