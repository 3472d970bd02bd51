package middleware

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "gridexport/internal/errors"
	"gridexport/pkg/contracts/domain"
)

// Validator decodes and validates JSON request bodies using struct tags
type Validator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateGridState, domain.GridState{})

	return &Validator{
		validator: v,
		logger:    logger.With(slog.String("component", "validator")),
	}
}

// validateGridState checks cross-field rules tags cannot express: every
// grouping field must be a column field.
func validateGridState(sl validator.StructLevel) {
	grid, ok := sl.Current().Interface().(domain.GridState)
	if !ok {
		return
	}
	fields := make(map[string]struct{}, len(grid.Columns))
	for _, col := range grid.Columns {
		fields[col.Field] = struct{}{}
	}
	for i, field := range grid.Page.Group {
		if _, ok := fields[field]; !ok {
			sl.ReportError(field, fmt.Sprintf("page.group[%d]", i), "Group", "groupcolumn", field)
		}
	}
}

// Struct validates v and returns an *errors.APIError listing failed fields
func (v *Validator) Struct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	return apierrors.NewValidationErrors(apierrors.FieldErrors(valErrs))
}

// Decode reads a JSON body into dst and validates it
func (v *Validator) Decode(r *http.Request, dst interface{}) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return maxBytes
		}
		if errors.Is(err, io.EOF) {
			return apierrors.NewValidationError("request body is empty")
		}
		v.logger.DebugContext(r.Context(), "invalid request body", slog.String("error", err.Error()))
		return apierrors.InvalidRequestWithError(err)
	}
	return v.Struct(dst)
}

// ContentTypeValidator ensures requests with a body have an allowed content type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			_ = render.Render(w, r, apierrors.UnsupportedMediaType(contentType, contentTypes))
		})
	}
}
