package http

import (
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gridexport/internal/shared/testutil"
)

func TestClientLogHandler_Handle(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		wantLevel      slog.Level
		wantMessage    string
	}{
		{
			name:           "info entry",
			body:           `{"level":"info","message":"download saved","source":"grid","data":{"format":"csv"}}`,
			expectedStatus: http.StatusOK,
			wantLevel:      slog.LevelInfo,
			wantMessage:    "download saved",
		},
		{
			name:           "error entry with export id",
			body:           `{"level":"error","message":"save dialog failed","export_id":"0b5e4c1e-4a4f-4d0c-9a43-5a0c1f7d2b11"}`,
			expectedStatus: http.StatusOK,
			wantLevel:      slog.LevelError,
			wantMessage:    "save dialog failed",
		},
		{
			name:           "unknown level falls back to info",
			body:           `{"level":"trace","message":"verbose"}`,
			expectedStatus: http.StatusOK,
			wantLevel:      slog.LevelInfo,
			wantMessage:    "verbose",
		},
		{
			name:           "missing message",
			body:           `{"level":"warn"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad export id",
			body:           `{"message":"x","export_id":"not-a-uuid"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			body:           `{"message":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, errorHandler, _ := newTestDeps(t)
			logger, logs := newTestLogger(t)
			handler := NewClientLogHandler(validator, errorHandler, logger)

			rec := postJSON(t, http.HandlerFunc(handler.Handle), "/api/logs", strings.NewReader(tt.body))

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedStatus == http.StatusOK {
				assert.JSONEq(t, `{"success":true}`, rec.Body.String())
				testutil.AssertLogContains(t, logs, tt.wantLevel, tt.wantMessage)
			} else {
				assert.Equal(t, 0, logs.Count())
			}
		})
	}
}
