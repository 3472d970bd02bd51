package renderer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"gridexport/internal/exporter"
	"gridexport/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize UTF-8 encoded CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// CSVWriter writes delimited text
type CSVWriter struct{}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Write writes headers and records to w
func (cw *CSVWriter) Write(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// CSVSink renders the delimited-text projection
type CSVSink struct {
	writer *CSVWriter
	bom    bool
	logger *slog.Logger
}

// NewCSVSink creates a CSV sink. bom prefixes the output with a UTF-8 BOM.
func NewCSVSink(bom bool, logger *slog.Logger) *CSVSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVSink{
		writer: NewCSVWriter(),
		bom:    bom,
		logger: logger.With(slog.String("component", "csv_sink")),
	}
}

// Format implements exporter.Sink
func (s *CSVSink) Format() domain.Format { return domain.FormatCSV }

// Mount writes the whole file into memory
func (s *CSVSink) Mount(ctx context.Context, prepared *exporter.Prepared) (exporter.Handle, error) {
	data, ok := prepared.Payload.(*exporter.DelimitedData)
	if !ok {
		return nil, fmt.Errorf("csv sink: unexpected payload %T", prepared.Payload)
	}

	headers := make([]string, 0, len(data.Headers))
	for _, h := range data.Headers {
		headers = append(headers, h.Label)
	}
	records := make([][]string, 0, len(data.Rows))
	for _, row := range data.Rows {
		record := make([]string, 0, len(data.Headers))
		for _, h := range data.Headers {
			v, _ := row.Get(h.Key)
			s, _ := v.(string)
			record = append(record, s)
		}
		records = append(records, record)
	}

	var buf bytes.Buffer
	if err := s.writer.Write(&buf, WriteOptions{Headers: headers, Records: records, BOMPrefix: s.bom}); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "csv rendered",
		slog.String("export_id", prepared.ID),
		slog.Int("record_count", len(records)),
		slog.Int("bytes", buf.Len()))

	return newBufferedHandle(&exporter.Artifact{
		FileName:    prepared.FileName,
		ContentType: domain.FormatCSV.ContentType(),
		Data:        buf.Bytes(),
	}, nil), nil
}
