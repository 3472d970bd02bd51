package api

import (
	"time"

	"gridexport/pkg/contracts/domain"
)

// PreviewResponse describes what an export would contain
type PreviewResponse struct {
	ExportID    string              `json:"export_id"`
	Format      domain.Format       `json:"format"`
	Scope       domain.Scope        `json:"scope"`
	FileName    string              `json:"file_name"`
	CurrentPage int                 `json:"current_page"`
	TotalPages  int                 `json:"total_pages"`
	RecordCount int                 `json:"record_count"`
	Records     []domain.FlatRecord `json:"records"`
	Projection  interface{}         `json:"projection"`
	CreatedAt   time.Time           `json:"created_at"`
}

// FormatsResponse lists the formats the service can render
type FormatsResponse struct {
	Formats []domain.Format `json:"formats"`
}

// ArtifactInfo describes a stored export artifact
type ArtifactInfo struct {
	Name    string        `json:"name"`
	Format  domain.Format `json:"format"`
	Size    int64         `json:"size"`
	ModTime time.Time     `json:"mod_time"`
}

// ArtifactsResponse lists stored export artifacts, oldest first
type ArtifactsResponse struct {
	Artifacts []ArtifactInfo `json:"artifacts"`
	Count     int            `json:"count"`
}
