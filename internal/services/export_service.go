package services

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	apierrors "gridexport/internal/errors"
	"gridexport/internal/exporter"
	"gridexport/internal/infrastructure"
	api "gridexport/pkg/contracts/api/v1"
	"gridexport/pkg/contracts/domain"
)

// Exporter runs exports. *exporter.Orchestrator implements it.
type Exporter interface {
	Export(ctx context.Context, grid domain.GridState, req domain.ExportRequest) (*exporter.Result, error)
	Prepare(ctx context.Context, grid domain.GridState, req domain.ExportRequest) (*exporter.Prepared, error)
	Formats() []domain.Format
}

// ArtifactStore keeps produced artifacts. *files.Store implements it.
type ArtifactStore interface {
	Write(artifact *exporter.Artifact) (string, error)
}

// ExportService serves export and preview requests
type ExportService struct {
	exporter Exporter
	store    ArtifactStore
	logger   *slog.Logger
}

// NewExportService creates an export service. store may be nil, in which
// case artifacts are only returned to the caller.
func NewExportService(exp Exporter, store ArtifactStore, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		exporter: exp,
		store:    store,
		logger:   infrastructure.WithComponent(logger, "export_service"),
	}
}

// Export runs one export and returns its artifact
func (s *ExportService) Export(ctx context.Context, req api.ExportRequest) (*exporter.Result, error) {
	result, err := s.exporter.Export(ctx, req.Grid, req.Domain())
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, wrapExportError(err)
	}
	infrastructure.SetSpanAttributes(ctx,
		attribute.String("export.id", result.ID),
		attribute.Int("export.records", result.Records),
		attribute.Int("export.bytes", len(result.Artifact.Data)),
	)

	if s.store != nil {
		path, err := s.store.Write(result.Artifact)
		if err != nil {
			// The caller still gets the artifact
			infrastructure.WithError(s.logger, err).WarnContext(ctx, "failed to persist artifact",
				slog.String("export_id", result.ID),
				slog.String("file_name", result.FileName))
		} else {
			s.logger.DebugContext(ctx, "artifact persisted",
				slog.String("export_id", result.ID),
				slog.String("path", path))
		}
	}

	return result, nil
}

// Preview prepares an export without rendering it and describes what the
// artifact would contain
func (s *ExportService) Preview(ctx context.Context, req api.ExportRequest) (*api.PreviewResponse, error) {
	prepared, err := s.exporter.Prepare(ctx, req.Grid, req.Domain())
	if err != nil {
		return nil, wrapExportError(err)
	}

	ctx = infrastructure.WithExportID(ctx, prepared.ID)
	s.logger.DebugContext(ctx, "export preview prepared",
		slog.String("format", string(req.Format)),
		slog.String("scope", string(req.Scope)),
		slog.Int("records", len(prepared.Records)))

	return &api.PreviewResponse{
		ExportID:    prepared.ID,
		Format:      req.Format,
		Scope:       req.Scope,
		FileName:    prepared.FileName,
		CurrentPage: req.Grid.CurrentPage(),
		TotalPages:  req.Grid.TotalPages(),
		RecordCount: len(prepared.Records),
		Records:     prepared.Records,
		Projection:  prepared.Payload,
		CreatedAt:   prepared.CreatedAt,
	}, nil
}

// Formats lists the formats that have a sink
func (s *ExportService) Formats() []domain.Format {
	return s.exporter.Formats()
}

// wrapExportError classifies engine errors. The sentinel stays reachable
// through errors.Is.
func wrapExportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, exporter.ErrRendererNotReady):
		return apierrors.NewRenderError("export renderer not ready", err)
	case errors.Is(err, exporter.ErrUnsupportedFormat):
		return apierrors.NewAppError(apierrors.ErrTypeValidation, "unsupported export format", err)
	}
	return apierrors.NewExportError("export failed", err)
}
