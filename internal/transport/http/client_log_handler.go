package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "gridexport/internal/errors"
	"gridexport/internal/infrastructure"
	"gridexport/internal/middleware"
)

// ClientLogEntry is a log line sent by the grid front end, typically about a
// download the browser failed to save. ExportID ties it to the server's
// log lines for that export.
type ClientLogEntry struct {
	Level    string                 `json:"level"`
	Message  string                 `json:"message" validate:"required,max=2048"`
	ExportID string                 `json:"export_id,omitempty" validate:"omitempty,uuid"`
	Source   string                 `json:"source,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// level parses debug, info, warn or error. Anything else is info.
func (e ClientLogEntry) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(e.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

type ackResponse struct {
	Success bool `json:"success"`
}

// ClientLogHandler serves POST /api/logs
type ClientLogHandler struct {
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

func NewClientLogHandler(validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "client_log")),
	}
}

func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var entry ClientLogEntry
	if err := h.validator.Decode(r, &entry); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	if entry.ExportID != "" {
		ctx = infrastructure.WithExportID(ctx, entry.ExportID)
	}
	attrs := []slog.Attr{slog.String("client_source", entry.Source)}
	if len(entry.Data) > 0 {
		attrs = append(attrs, slog.Any("data", entry.Data))
	}
	h.logger.LogAttrs(ctx, entry.level(), entry.Message, attrs...)

	render.JSON(w, r, ackResponse{Success: true})
}
