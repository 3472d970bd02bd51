package exporter

import (
	"fmt"
	"log/slog"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"

	"gridexport/pkg/contracts/domain"
)

// Header is one delimited-text column
type Header struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// SpreadsheetData is the spreadsheet projection: one row per record, keyed
// by column field.
type SpreadsheetData struct {
	Columns []domain.Column          `json:"columns"`
	Rows    []*orderedmap.OrderedMap `json:"rows"`
}

// Len returns the number of projected rows
func (d *SpreadsheetData) Len() int { return len(d.Rows) }

// DelimitedData is the delimited-text projection
type DelimitedData struct {
	Headers []Header                 `json:"headers"`
	Rows    []*orderedmap.OrderedMap `json:"rows"`
}

// Len returns the number of projected rows
func (d *DelimitedData) Len() int { return len(d.Rows) }

// Alignment of a print cell
type Alignment string

const (
	AlignLeft  Alignment = "left"
	AlignRight Alignment = "right"
)

// PrintCell is one cell of the print matrix
type PrintCell struct {
	Text  string    `json:"text"`
	Align Alignment `json:"align"`
}

// PrintRow is one row of the print matrix. Emphasized rows are shaded and bold.
type PrintRow struct {
	Kind       domain.RecordKind `json:"kind"`
	Emphasized bool              `json:"emphasized"`
	Cells      []PrintCell       `json:"cells"`
}

// PrintData is the paginated print projection
type PrintData struct {
	Columns []domain.Column `json:"columns"`
	Rows    []PrintRow      `json:"rows"`
}

// Len returns the number of projected rows
func (d *PrintData) Len() int { return len(d.Rows) }

// Payload is a projection handed to a sink
type Payload interface {
	Len() int
}

// Projector turns flat records into the per-format shapes. A failure inside
// a projection is logged and yields an empty data set.
type Projector struct {
	logger *slog.Logger
}

// NewProjector creates a projector
func NewProjector(logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{logger: logger.With(slog.String("component", "projector"))}
}

// Project dispatches to the projection for format. Only the print
// projection uses primary; the other two carry the label as a plain cell.
func (p *Projector) Project(format domain.Format, records []domain.FlatRecord, columns []domain.Column, primary string) (Payload, error) {
	switch format {
	case domain.FormatExcel:
		return p.Spreadsheet(records, columns), nil
	case domain.FormatCSV:
		return p.Delimited(records, columns), nil
	case domain.FormatPDF:
		return p.Print(records, columns, primary), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Spreadsheet builds the spreadsheet projection
func (p *Projector) Spreadsheet(records []domain.FlatRecord, columns []domain.Column) (data *SpreadsheetData) {
	cols := exportableColumns(columns)
	data = &SpreadsheetData{Columns: cols, Rows: []*orderedmap.OrderedMap{}}
	defer p.recoverProjection("spreadsheet", func() { data = &SpreadsheetData{Columns: cols, Rows: []*orderedmap.OrderedMap{}} })

	rows, err := projectRows(records, cols)
	if err != nil {
		p.logFailure("spreadsheet", err)
		return data
	}
	data.Rows = rows
	return data
}

// Delimited builds the delimited-text projection. Cell values are identical
// to the spreadsheet projection.
func (p *Projector) Delimited(records []domain.FlatRecord, columns []domain.Column) (data *DelimitedData) {
	cols := exportableColumns(columns)
	headers := make([]Header, 0, len(cols))
	for _, col := range cols {
		headers = append(headers, Header{Label: col.Label(), Key: col.Field})
	}
	data = &DelimitedData{Headers: headers, Rows: []*orderedmap.OrderedMap{}}
	defer p.recoverProjection("delimited", func() { data = &DelimitedData{Headers: headers, Rows: []*orderedmap.OrderedMap{}} })

	rows, err := projectRows(records, cols)
	if err != nil {
		p.logFailure("delimited", err)
		return data
	}
	data.Rows = rows
	return data
}

// Print builds the print projection. Synthetic rows are emphasized and
// aggregate rows right-align their non-empty value cells.
func (p *Projector) Print(records []domain.FlatRecord, columns []domain.Column, primary string) (data *PrintData) {
	cols := exportableColumns(columns)
	data = &PrintData{Columns: cols, Rows: []PrintRow{}}
	defer p.recoverProjection("print", func() { data = &PrintData{Columns: cols, Rows: []PrintRow{}} })

	rows := make([]PrintRow, 0, len(records))
	for i, rec := range records {
		row := PrintRow{Kind: rec.Kind, Emphasized: rec.IsSynthetic(), Cells: make([]PrintCell, 0, len(cols))}
		for _, col := range cols {
			text, err := cellValue(rec, col.Field)
			if err != nil {
				p.logFailure("print", fmt.Errorf("record %d: %w", i, err))
				return data
			}
			align := AlignLeft
			if rec.IsAggregateRow() && col.Field != primary && text != "" {
				align = AlignRight
			}
			row.Cells = append(row.Cells, PrintCell{Text: text, Align: align})
		}
		rows = append(rows, row)
	}
	data.Rows = rows
	return data
}

func (p *Projector) recoverProjection(projection string, reset func()) {
	if r := recover(); r != nil {
		p.logger.Error("export projection panicked",
			slog.String("projection", projection),
			slog.Any("panic", r))
		reset()
	}
}

func (p *Projector) logFailure(projection string, err error) {
	p.logger.Error("export projection failed",
		slog.String("projection", projection),
		slog.String("error", err.Error()))
}

// projectRows is shared by the spreadsheet and delimited projections
func projectRows(records []domain.FlatRecord, cols []domain.Column) ([]*orderedmap.OrderedMap, error) {
	rows := make([]*orderedmap.OrderedMap, 0, len(records))
	for i, rec := range records {
		row := orderedmap.New()
		for _, col := range cols {
			v, err := cellValue(rec, col.Field)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			row.Set(col.Field, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cellValue renders one field of a record. Synthetic records keep their
// label in the primary field and stored text elsewhere; data records are
// stringified with non-ASCII runes removed.
func cellValue(rec domain.FlatRecord, field string) (string, error) {
	v, ok := rec.Get(field)
	if !ok || v == nil {
		return "", nil
	}
	if rec.IsSynthetic() {
		return cast.ToString(v), nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", field, err)
	}
	return stripNonASCII(s), nil
}

// exportableColumns drops columns without a field
func exportableColumns(columns []domain.Column) []domain.Column {
	out := make([]domain.Column, 0, len(columns))
	for _, col := range columns {
		if col.Field != "" {
			out = append(out, col)
		}
	}
	return out
}
