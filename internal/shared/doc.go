// Package shared holds helpers used by more than one internal package.
//
// The testutil subpackage provides a capturing slog handler and grid
// fixtures for tests:
//
//	logger, logs := testutil.NewTestLogger(t)
//	grid := testutil.SalesGrid()
//	svc := services.NewExportService(orch, logger)
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelWarn, "export abandoned")
//
// Nothing here may import domain packages other than pkg/contracts.
package shared
