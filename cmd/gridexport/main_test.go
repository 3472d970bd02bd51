package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridexport/internal/config"
	"gridexport/internal/shared/testutil"
	"gridexport/pkg/contracts/domain"
)

func writeGrid(t *testing.T, grid domain.GridState) string {
	t.Helper()
	data, err := json.Marshal(grid)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "grid.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    []domain.Format
		wantErr bool
	}{
		{"all", "all", []domain.Format{domain.FormatExcel, domain.FormatCSV, domain.FormatPDF}, false},
		{"all uppercase", " ALL ", []domain.Format{domain.FormatExcel, domain.FormatCSV, domain.FormatPDF}, false},
		{"single", "csv", []domain.Format{domain.FormatCSV}, false},
		{"list", "excel, csv", []domain.Format{domain.FormatExcel, domain.FormatCSV}, false},
		{"duplicates", "csv,csv,excel", []domain.Format{domain.FormatCSV, domain.FormatExcel}, false},
		{"unknown", "docx", nil, true},
		{"empty", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFormats(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Export.OutputDir = "/tmp/exports"

	opts, err := parseFlags([]string{"-input", "grid.json", "-format", "csv", "-scope", "all"}, cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "grid.json", opts.input)
	assert.Equal(t, []domain.Format{domain.FormatCSV}, opts.formats)
	assert.Equal(t, domain.ScopeAll, opts.scope)
	assert.Equal(t, "/tmp/exports", opts.out)

	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"-format", "csv"}},
		{"bad scope", []string{"-input", "grid.json", "-scope", "page"}},
		{"bad format", []string{"-input", "grid.json", "-format", "docx"}},
		{"unknown flag", []string{"-input", "grid.json", "-verbose"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, cfg, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	input := writeGrid(t, testutil.GroupedSalesGrid())
	out := t.TempDir()

	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-input", input, "-format", "csv,excel", "-out", out}, config.Default(), logger, &stdout)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, out, filepath.Dir(line))
		assert.FileExists(t, line)
	}
	assert.True(t, strings.HasSuffix(lines[0], ".csv"))
	assert.True(t, strings.HasSuffix(lines[1], ".xlsx"))

	data, err := os.ReadFile(lines[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "region: East")
}

func TestRun_RepeatedExportsKeepEarlierFiles(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	input := writeGrid(t, testutil.SalesGrid())
	out := t.TempDir()
	args := []string{"-input", input, "-format", "csv", "-out", out}

	require.NoError(t, run(context.Background(), args, config.Default(), logger, &bytes.Buffer{}))
	require.NoError(t, run(context.Background(), args, config.Default(), logger, &bytes.Buffer{}))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRun_Errors(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	empty := testutil.SalesGrid()
	empty.ProcessedRows = nil
	empty.SourceRows = nil

	noColumns := testutil.SalesGrid()
	noColumns.Columns = nil

	badJSON := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(badJSON, []byte("{not json"), 0o644))

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"missing file", filepath.Join(t.TempDir(), "missing.json"), "failed to read grid file"},
		{"invalid json", badJSON, "failed to parse grid file"},
		{"no columns", writeGrid(t, noColumns), "invalid grid"},
		{"no data", writeGrid(t, empty), "csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			err := run(context.Background(), []string{"-input", tt.input, "-format", "csv", "-out", t.TempDir()}, config.Default(), logger, &stdout)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, stdout.String())
		})
	}
}
