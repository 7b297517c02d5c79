package dataload

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-agent/internal/model"
)

// ReadFile reads purchase rows from a .csv or .xlsx export.
func ReadFile(ctx context.Context, path string) ([]model.PurchaseRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "dataload: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f)
	case ".xlsx":
		return ReadXLSX(ctx, path, "")
	default:
		return nil, eris.Errorf("dataload: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// ReadCSV reads purchase rows from a CSV export with a header row.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.PurchaseRow, error) {
	rowCh, errCh := StreamCSV(ctx, r)

	var c collector
	var mapErr error
	for rec := range rowCh {
		if mapErr != nil {
			continue // drain
		}
		mapErr = c.add(rec)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}
	return c.result()
}

// StreamCSV parses r and sends each record, header first, on the returned
// channel. Both channels are closed when parsing completes; the caller must
// drain the record channel.
func StreamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "dataload: csv: context cancelled")
				return
			}
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "dataload: csv: read row")
				return
			}
			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "dataload: csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadXLSX reads purchase rows from a sheet of an XLSX export. An empty
// sheetName selects the first sheet.
func ReadXLSX(ctx context.Context, path, sheetName string) ([]model.PurchaseRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataload: xlsx: open %s", path)
	}
	sheet, err := pickSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	var c collector
	for _, row := range sheet.Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "dataload: xlsx: context cancelled")
		}
		if err := c.add(rowToStrings(row)); err != nil {
			return nil, err
		}
	}
	return c.result()
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("dataload: xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("dataload: xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// collector maps records to rows. The first non-blank record is the header.
type collector struct {
	mapper  *Mapper
	rows    []model.PurchaseRow
	line    int
	skipped int
}

func (c *collector) add(rec []string) error {
	c.line++
	if blank(rec) {
		c.skipped++
		return nil
	}
	if c.mapper == nil {
		m, err := NewMapper(rec)
		if err != nil {
			return err
		}
		c.mapper = m
		return nil
	}
	row, err := c.mapper.Map(rec, c.line)
	if err != nil {
		return err
	}
	c.rows = append(c.rows, row)
	return nil
}

func (c *collector) result() ([]model.PurchaseRow, error) {
	if c.mapper == nil {
		return nil, eris.New("dataload: file has no header row")
	}
	zap.L().Debug("dataload: parsed export",
		zap.Int("rows", len(c.rows)),
		zap.Int("blank_lines", c.skipped),
	)
	return c.rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
