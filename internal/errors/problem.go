package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"gridexport/internal/exporter"
)

// ProblemDetails is an RFC 7807 response body. Extensions are written as
// top-level members; they cannot override the standard ones.
type ProblemDetails struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string

	Extensions map[string]interface{}
}

func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: map[string]interface{}{},
	}
}

// WithExtension sets an extension member and returns pd for chaining
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = map[string]interface{}{}
	}
	pd.Extensions[key] = value
	return pd
}

// Render implements render.Renderer
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		out[k] = v
	}
	out["type"] = pd.Type
	out["title"] = pd.Title
	out["status"] = pd.Status
	if pd.Detail != "" {
		out["detail"] = pd.Detail
	} else {
		delete(out, "detail")
	}
	if pd.Instance != "" {
		out["instance"] = pd.Instance
	} else {
		delete(out, "instance")
	}
	return json.Marshal(out)
}

// exportProblem describes the response for one export engine sentinel. An
// empty detail means the wrapped error text is shown, since it names the
// offending format or row count.
type exportProblem struct {
	sentinel   error
	status     int
	typ        string
	title      string
	detail     string
	retryAfter int
}

var exportProblems = []exportProblem{
	{
		sentinel: exporter.ErrNoData,
		status:   http.StatusUnprocessableEntity,
		typ:      TypeExportNoData,
		title:    "No Data",
		detail:   "There is no data to export for the selected scope.",
	},
	{
		sentinel: exporter.ErrProjectionFailed,
		status:   http.StatusUnprocessableEntity,
		typ:      TypeExportProjection,
		title:    "Export Preparation Failed",
		detail:   "The export data could not be prepared for the selected format.",
	},
	{
		sentinel: exporter.ErrTooManyRows,
		status:   http.StatusUnprocessableEntity,
		typ:      TypeExportTooManyRows,
		title:    "Too Many Rows",
	},
	{
		sentinel: exporter.ErrUnsupportedFormat,
		status:   http.StatusBadRequest,
		typ:      TypeExportFormat,
		title:    "Unsupported Format",
	},
	{
		sentinel:   exporter.ErrRendererNotReady,
		status:     http.StatusServiceUnavailable,
		typ:        TypeExportRenderer,
		title:      "Renderer Not Ready",
		detail:     "The export renderer did not become ready in time. Please try again.",
		retryAfter: 5,
	},
}

// MapExportError returns the problem for an export engine error, or nil
// when err wraps none of the engine's sentinels.
func MapExportError(err error, instance string) *ProblemDetails {
	for _, p := range exportProblems {
		if !errors.Is(err, p.sentinel) {
			continue
		}
		detail := p.detail
		if detail == "" {
			detail = causeText(err)
		}
		problem := NewProblemDetails(p.status, p.typ, p.title, detail, instance)
		if p.retryAfter > 0 {
			problem.WithExtension("retry_after", p.retryAfter)
		}
		return problem
	}
	return nil
}

// causeText drops the service layer's "[STAGE] message:" prefix
func causeText(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		return appErr.Cause.Error()
	}
	return err.Error()
}
