package http

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "gridexport/internal/errors"
	"gridexport/internal/exporter"
	"gridexport/internal/infrastructure"
	"gridexport/internal/middleware"
	api "gridexport/pkg/contracts/api/v1"
	"gridexport/pkg/contracts/domain"
)

// rendererRetryAfter is the Retry-After value sent when a sink was not live in time
const rendererRetryAfter = 5

// ExportService is the service layer behind ExportHandler
type ExportService interface {
	Export(ctx context.Context, req api.ExportRequest) (*exporter.Result, error)
	Preview(ctx context.Context, req api.ExportRequest) (*api.PreviewResponse, error)
	Formats() []domain.Format
}

// ExportHandler handles export requests
type ExportHandler struct {
	service      ExportService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(service ExportService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "export")),
	}
}

// Routes returns the export routes
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.ContentTypeValidator("application/json")).Post("/", h.Export)
	r.With(middleware.ContentTypeValidator("application/json")).Post("/preview", h.Preview)
	r.Get("/formats", h.Formats)
	return r
}

// Export handles POST /api/export. The artifact is written as an attachment.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req api.ExportRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	h.logger.InfoContext(ctx, "export requested",
		slog.String("format", string(req.Format)),
		slog.String("scope", string(req.Scope)),
		slog.Int("processed_rows", len(req.Grid.ProcessedRows)),
		slog.Int("source_rows", len(req.Grid.SourceRows)),
		slog.Any("group", req.Grid.Page.Group))

	result, err := h.service.Export(ctx, req)
	if err != nil {
		if errors.Is(err, exporter.ErrRendererNotReady) {
			w.Header().Set("Retry-After", strconv.Itoa(rendererRetryAfter))
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	artifact := result.Artifact
	ctx = infrastructure.WithExportID(ctx, result.ID)
	h.logger.InfoContext(ctx, "export completed",
		slog.String("file_name", artifact.FileName),
		slog.Int("records", result.Records),
		slog.Int("bytes", len(artifact.Data)))

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set(middleware.ExportIDHeader, result.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		h.logger.WarnContext(ctx, "failed to write artifact", slog.String("error", err.Error()))
	}
}

// Preview handles POST /api/export/preview
func (h *ExportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req api.PreviewRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	preview, err := h.service.Preview(r.Context(), req.ExportRequest)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set(middleware.ExportIDHeader, preview.ExportID)
	render.JSON(w, r, preview)
}

// Formats handles GET /api/export/formats
func (h *ExportHandler) Formats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, api.FormatsResponse{Formats: h.service.Formats()})
}
