package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"gridexport/internal/exporter"
	"gridexport/pkg/contracts/domain"
)

const (
	// DefaultSheetName is the worksheet the export is written to
	DefaultSheetName = "Export"
	maxColumnWidth   = 60.0
	minColumnWidth   = 8.0
)

// ExcelSink renders the spreadsheet projection into an xlsx workbook
type ExcelSink struct {
	sheet  string
	logger *slog.Logger
}

// NewExcelSink creates an Excel sink writing to the named sheet
func NewExcelSink(sheet string, logger *slog.Logger) *ExcelSink {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelSink{sheet: sheet, logger: logger.With(slog.String("component", "excel_sink"))}
}

// Format implements exporter.Sink
func (s *ExcelSink) Format() domain.Format { return domain.FormatExcel }

// Mount builds the workbook. The handle is ready as soon as Mount returns.
func (s *ExcelSink) Mount(ctx context.Context, prepared *exporter.Prepared) (exporter.Handle, error) {
	data, ok := prepared.Payload.(*exporter.SpreadsheetData)
	if !ok {
		return nil, fmt.Errorf("excel sink: unexpected payload %T", prepared.Payload)
	}

	f := excelize.NewFile()
	if err := s.build(f, data, prepared.Records); err != nil {
		f.Close()
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.DebugContext(ctx, "workbook rendered",
		slog.String("export_id", prepared.ID),
		slog.Int("row_count", len(data.Rows)),
		slog.Int("bytes", buf.Len()))

	return newBufferedHandle(&exporter.Artifact{
		FileName:    prepared.FileName,
		ContentType: domain.FormatExcel.ContentType(),
		Data:        buf.Bytes(),
	}, f.Close), nil
}

func (s *ExcelSink) build(f *excelize.File, data *exporter.SpreadsheetData, records []domain.FlatRecord) error {
	if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	groupStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
	})
	if err != nil {
		return err
	}

	widths := make([]float64, len(data.Columns))
	header := make([]interface{}, 0, len(data.Columns))
	for i, col := range data.Columns {
		header = append(header, col.Label())
		widths[i] = textWidth(col.Label())
	}
	if err := f.SetSheetRow(s.sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(max(len(data.Columns), 1))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range data.Rows {
		cells := make([]interface{}, 0, len(data.Columns))
		for j, col := range data.Columns {
			v, _ := row.Get(col.Field)
			text, _ := v.(string)
			cells = append(cells, text)
			widths[j] = max(widths[j], textWidth(text))
		}

		rowNum := i + 2
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
		if i < len(records) && records[i].IsSynthetic() {
			if err := f.SetCellStyle(s.sheet, cell, fmt.Sprintf("%s%d", lastCol, rowNum), groupStyle); err != nil {
				return err
			}
		}
	}

	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.sheet, name, name, w); err != nil {
			return err
		}
	}
	return nil
}

func textWidth(s string) float64 {
	w := float64(utf8.RuneCountInString(s)) + 2
	switch {
	case w < minColumnWidth:
		return minColumnWidth
	case w > maxColumnWidth:
		return maxColumnWidth
	}
	return w
}
