package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "gridexport/internal/errors"
	"gridexport/internal/exporter"
	"gridexport/internal/files"
	api "gridexport/pkg/contracts/api/v1"
	"gridexport/pkg/contracts/domain"
)

func newArtifactRouter(t *testing.T, dir string) http.Handler {
	t.Helper()
	_, errorHandler, _ := newTestDeps(t)
	logger, _ := newTestLogger(t)
	store := files.NewStore(dir, logger)
	return NewArtifactHandler(store, files.NewDiscovery(dir, exporter.DefaultFilePrefix), exporter.DefaultFilePrefix, errorHandler, logger).Routes()
}

func seedArtifacts(t *testing.T, dir string) {
	t.Helper()
	logger, _ := newTestLogger(t)
	store := files.NewStore(dir, logger)
	for _, a := range []*exporter.Artifact{
		{FileName: "grid-export-2024-03-15.csv", ContentType: domain.FormatCSV.ContentType(), Data: []byte("a,b\n")},
		{FileName: "grid-export-2024-03-15.pdf", ContentType: domain.FormatPDF.ContentType(), Data: []byte("%PDF-1.4")},
	} {
		_, err := store.Write(a)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.csv"), []byte("secret"), 0o644))
}

func TestArtifactHandler_List(t *testing.T) {
	dir := t.TempDir()
	seedArtifacts(t, dir)
	router := newArtifactRouter(t, dir)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantNames  []string
	}{
		{name: "all", query: "", wantStatus: http.StatusOK, wantNames: []string{"grid-export-2024-03-15.csv", "grid-export-2024-03-15-1.csv", "grid-export-2024-03-15.pdf"}},
		{name: "by format", query: "?format=pdf", wantStatus: http.StatusOK, wantNames: []string{"grid-export-2024-03-15.pdf"}},
		{name: "unknown format", query: "?format=docx", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp api.ArtifactsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, len(tt.wantNames), resp.Count)
			names := make([]string, 0, len(resp.Artifacts))
			for _, a := range resp.Artifacts {
				names = append(names, a.Name)
			}
			assert.ElementsMatch(t, tt.wantNames, names)
		})
	}
}

func TestArtifactHandler_Download(t *testing.T) {
	dir := t.TempDir()
	seedArtifacts(t, dir)
	router := newArtifactRouter(t, dir)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantType    string
		wantBody    string
		wantProblem string
	}{
		{
			name:       "csv",
			path:       "/grid-export-2024-03-15.csv",
			wantStatus: http.StatusOK,
			wantType:   "text/csv; charset=utf-8",
			wantBody:   "a,b\n",
		},
		{
			name:       "pdf",
			path:       "/grid-export-2024-03-15.pdf",
			wantStatus: http.StatusOK,
			wantType:   "application/pdf",
			wantBody:   "%PDF-1.4",
		},
		{
			name:       "collision suffix",
			path:       "/grid-export-2024-03-15-1.csv",
			wantStatus: http.StatusOK,
			wantType:   "text/csv; charset=utf-8",
			wantBody:   "c,d\n",
		},
		{
			name:        "missing",
			path:        "/grid-export-2020-01-01.csv",
			wantStatus:  http.StatusNotFound,
			wantProblem: apierrors.TypeNotFound,
		},
		{
			name:        "not an export",
			path:        "/notes.txt",
			wantStatus:  http.StatusBadRequest,
			wantProblem: apierrors.TypeValidation,
		},
		{
			name:        "csv outside the export pattern",
			path:        "/report.csv",
			wantStatus:  http.StatusBadRequest,
			wantProblem: apierrors.TypeValidation,
		},
		{
			name:        "other prefix",
			path:        "/sales-2024-03-15.csv",
			wantStatus:  http.StatusBadRequest,
			wantProblem: apierrors.TypeValidation,
		},
		{
			name:        "hidden file",
			path:        "/.grid-export.csv",
			wantStatus:  http.StatusBadRequest,
			wantProblem: apierrors.TypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantProblem != "" {
				assert.Equal(t, tt.wantProblem, decodeProblem(t, rec)["type"])
				return
			}
			assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

type failingLister struct{}

func (failingLister) List() ([]files.FileInfo, error) { return nil, errors.New("permission denied") }

func (failingLister) ListFormat(domain.Format) ([]files.FileInfo, error) {
	return nil, errors.New("permission denied")
}

func TestArtifactHandler_ListFailure(t *testing.T) {
	_, errorHandler, logs := newTestDeps(t)
	logger, _ := newTestLogger(t)
	router := NewArtifactHandler(files.NewStore(t.TempDir(), logger), failingLister{}, exporter.DefaultFilePrefix, errorHandler, logger).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, logs.ContainsMessage("request failed"))
}
