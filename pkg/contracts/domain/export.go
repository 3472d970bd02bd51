package domain

import "math"

// Format is the output format of an export
type Format string

const (
	FormatExcel Format = "excel"
	FormatCSV   Format = "csv"
	FormatPDF   Format = "pdf"
)

// Formats lists every supported format in presentation order
var Formats = []Format{FormatExcel, FormatCSV, FormatPDF}

// Valid reports whether f is a supported format
func (f Format) Valid() bool {
	switch f {
	case FormatExcel, FormatCSV, FormatPDF:
		return true
	}
	return false
}

// Extension returns the artifact file extension, without the dot
func (f Format) Extension() string {
	switch f {
	case FormatExcel:
		return "xlsx"
	case FormatCSV:
		return "csv"
	case FormatPDF:
		return "pdf"
	}
	return ""
}

// ContentType returns the MIME type of the artifact
func (f Format) ContentType() string {
	switch f {
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Scope selects which rows an export covers
type Scope string

const (
	// ScopeCurrent exports the rows currently on screen
	ScopeCurrent Scope = "current"
	// ScopeAll exports the whole source, re-sorted by the active sort
	ScopeAll Scope = "all"
)

// SortDirection is asc or desc
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortDescriptor is one entry of the grid's active sort
type SortDescriptor struct {
	Field string        `json:"field" validate:"required"`
	Dir   SortDirection `json:"dir" validate:"omitempty,oneof=asc desc"`
}

// PageState is the grid's paging and grouping state
type PageState struct {
	Skip  int      `json:"skip" validate:"min=0"`
	Take  int      `json:"take" validate:"min=0"`
	Group []string `json:"group,omitempty"`
}

// GridState is everything the grid hands to the export engine. The engine
// only reads it.
type GridState struct {
	ProcessedRows []Row            `json:"processed_rows"`
	SourceRows    []Row            `json:"source_rows"`
	Sort          []SortDescriptor `json:"sort,omitempty" validate:"dive"`
	Page          PageState        `json:"page"`
	Columns       []Column         `json:"columns" validate:"required,min=1"`
	Aggregates    []Aggregate      `json:"aggregates,omitempty" validate:"dive"`
	PrimaryField  string           `json:"primary_field,omitempty"`
}

// LabelField returns the field that carries group and aggregate labels:
// PrimaryField when set, otherwise the first column with a field name.
func (g GridState) LabelField() string {
	if g.PrimaryField != "" {
		return g.PrimaryField
	}
	for _, col := range g.Columns {
		if col.Field != "" {
			return col.Field
		}
	}
	return ""
}

// CurrentPage returns the 1-based page currently displayed
func (g GridState) CurrentPage() int {
	if g.Page.Take <= 0 {
		return 1
	}
	return g.Page.Skip/g.Page.Take + 1
}

// TotalPages returns the number of pages of the full source, at least 1
func (g GridState) TotalPages() int {
	if g.Page.Take <= 0 || len(g.SourceRows) == 0 {
		return 1
	}
	return int(math.Ceil(float64(len(g.SourceRows)) / float64(g.Page.Take)))
}

// ExportRequest is one user export action. It is consumed exactly once.
type ExportRequest struct {
	Format     Format      `json:"format" validate:"required,oneof=excel csv pdf"`
	Scope      Scope       `json:"scope" validate:"required,oneof=current all"`
	Aggregates []Aggregate `json:"aggregates,omitempty" validate:"dive"`
}
