// Package api contains the HTTP contract definitions for the grid export service.
// Version v1 represents the current stable API version.
package api

import (
	"gridexport/pkg/contracts/domain"
)

// ExportRequest asks the service to export a grid. The grid state is sent
// as the grid had it when the user triggered the export.
type ExportRequest struct {
	Format     domain.Format      `json:"format" validate:"required,oneof=excel csv pdf"`
	Scope      domain.Scope       `json:"scope" validate:"required,oneof=current all"`
	Aggregates []domain.Aggregate `json:"aggregates,omitempty" validate:"dive"`
	Grid       domain.GridState   `json:"grid" validate:"required"`
}

// Domain returns the engine-level export request
func (r ExportRequest) Domain() domain.ExportRequest {
	return domain.ExportRequest{
		Format:     r.Format,
		Scope:      r.Scope,
		Aggregates: r.Aggregates,
	}
}

// PreviewRequest asks for the flattened records of an export without
// rendering a file. Format selects the projection returned alongside them.
type PreviewRequest struct {
	ExportRequest
}
