package exporter

import "errors"

var (
	// ErrNoData is returned when the resolved scope has no rows
	ErrNoData = errors.New("no data to export")
	// ErrProjectionFailed is returned when a projection yields no rows
	ErrProjectionFailed = errors.New("export projection produced no data")
	// ErrRendererNotReady is returned when the sink did not become live in time
	ErrRendererNotReady = errors.New("renderer not ready")
	// ErrUnsupportedFormat is returned when no sink is registered for a format
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// ErrTooManyRows is returned when the resolved scope exceeds the configured row limit
var ErrTooManyRows = errors.New("too many rows to export")
