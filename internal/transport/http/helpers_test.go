package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "gridexport/internal/errors"
	"gridexport/internal/exporter"
	"gridexport/internal/middleware"
	"gridexport/internal/shared/testutil"
	api "gridexport/pkg/contracts/api/v1"
	"gridexport/pkg/contracts/domain"
)

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, req api.ExportRequest) (*exporter.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exporter.Result), args.Error(1)
}

func (m *MockExportService) Preview(ctx context.Context, req api.ExportRequest) (*api.PreviewResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.PreviewResponse), args.Error(1)
}

func (m *MockExportService) Formats() []domain.Format {
	args := m.Called()
	return args.Get(0).([]domain.Format)
}

func newTestDeps(t *testing.T) (*middleware.Validator, *apierrors.ErrorHandler, *testutil.LogRecorder) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	return middleware.NewValidator(logger), apierrors.NewErrorHandler(logger, false), logs
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func postJSON(t *testing.T, handler http.Handler, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func salesRequest(format domain.Format) api.ExportRequest {
	return api.ExportRequest{
		Format: format,
		Scope:  domain.ScopeCurrent,
		Grid:   testutil.GroupedSalesGrid(),
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func newTestLogger(t *testing.T) (*slog.Logger, *testutil.LogRecorder) {
	return testutil.NewTestLogger(t)
}
