// Package renderer provides the export sinks that turn projected export
// data into downloadable artifacts.
//
// ExcelSink builds an .xlsx workbook with excelize, CSVSink writes UTF-8
// delimited text and PDFSink prints an HTML table through headless Chrome.
// Every sink implements exporter.Sink: Mount prepares the artifact and
// returns a handle whose Ready channel closes once the sink can save.
package renderer
