package http

import (
	"errors"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "gridexport/internal/errors"
	"gridexport/internal/exporter"
	"gridexport/internal/files"
	api "gridexport/pkg/contracts/api/v1"
	"gridexport/pkg/contracts/domain"
)

// ArtifactReader reads persisted artifacts. *files.Store implements it.
type ArtifactReader interface {
	Read(name string) ([]byte, error)
}

// ArtifactLister lists persisted artifacts. *files.Discovery implements it.
type ArtifactLister interface {
	List() ([]files.FileInfo, error)
	ListFormat(format domain.Format) ([]files.FileInfo, error)
}

// ArtifactHandler serves artifacts kept by the export store
type ArtifactHandler struct {
	reader       ArtifactReader
	lister       ArtifactLister
	prefix       string
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewArtifactHandler creates a new artifact handler. prefix is the export
// file name prefix downloads must carry.
func NewArtifactHandler(reader ArtifactReader, lister ArtifactLister, prefix string, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		reader:       reader,
		lister:       lister,
		prefix:       prefix,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "artifacts")),
	}
}

// Routes returns the artifact routes
func (h *ArtifactHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Route("/{name}", func(r chi.Router) {
		r.Use(h.NameCtx)
		r.Get("/", h.Download)
	})
	return r
}

// NameCtx rejects names that do not match the export file name pattern
// "<prefix>-YYYY-MM-DD[-N].<ext>"
func (h *ArtifactHandler) NameCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if name == "" || name != filepath.Base(name) {
			h.errorHandler.HandleError(w, r, apierrors.InvalidField("name", "Invalid artifact name"))
			return
		}
		if _, ok := exporter.ParseFileName(h.prefix, name); !ok {
			h.errorHandler.HandleError(w, r, apierrors.InvalidField("name", "Not an export artifact: "+name))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// List handles GET /api/artifacts. ?format= narrows the list to one format.
func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		list []files.FileInfo
		err  error
	)
	if format := domain.Format(r.URL.Query().Get("format")); format != "" {
		if !format.Valid() {
			h.errorHandler.HandleError(w, r, apierrors.InvalidField("format", "Unknown format: "+string(format)))
			return
		}
		list, err = h.lister.ListFormat(format)
	} else {
		list, err = h.lister.List()
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list artifacts", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("failed to list artifacts", err))
		return
	}

	artifacts := make([]api.ArtifactInfo, 0, len(list))
	for _, f := range list {
		artifacts = append(artifacts, api.ArtifactInfo{
			Name:    f.Name,
			Format:  f.Format,
			Size:    f.Size,
			ModTime: f.ModTime,
		})
	}
	render.JSON(w, r, api.ArtifactsResponse{Artifacts: artifacts, Count: len(artifacts)})
}

// Download handles GET /api/artifacts/{name}
func (h *ArtifactHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	data, err := h.reader.Read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.errorHandler.HandleError(w, r, apierrors.NotFoundError("artifact"))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("failed to read artifact", err))
		return
	}

	format, _ := files.FormatOf(name)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write artifact",
			slog.String("name", name),
			slog.String("error", err.Error()))
	}
}
