// Package exporter turns a grid's rows and view state into export records
// for the spreadsheet, delimited-text and print formats.
//
// The pipeline has four stages:
//
// Resolve picks the rows of the requested scope. The current scope is the
// displayed page as-is; the all scope is the full source re-sorted by the
// first active sort.
//
// Group and Flatten turn grouped rows into a pre-order list of records:
// a header per group, the group's rows, then an aggregate row.
//
// Projector builds the per-format shapes from those records. The
// spreadsheet and delimited projections share one cell function so they
// always agree.
//
// Orchestrator ties the stages together, mounts the sink for the format,
// waits a bounded time for it to become live and saves the artifact.
//
// Example usage:
//
//	orch := exporter.NewOrchestrator(sinks, exporter.Options{ReadyTimeout: 2 * time.Second})
//	result, err := orch.Export(ctx, grid, domain.ExportRequest{
//		Format: domain.FormatExcel,
//		Scope:  domain.ScopeCurrent,
//	})
package exporter
