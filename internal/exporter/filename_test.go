package exporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gridexport/pkg/contracts/domain"
)

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*60*60))

	assert.Equal(t, "grid-export-2024-03-10.xlsx", FileName("", domain.FormatExcel, at))
	assert.Equal(t, "grid-export-2024-03-10.csv", FileName("grid-export", domain.FormatCSV, at))
	assert.Equal(t, "sales-2024-03-10.pdf", FileName("sales", domain.FormatPDF, at))
}

func TestParseFileName(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		file       string
		wantFormat domain.Format
		wantOK     bool
	}{
		{"excel", "", "grid-export-2024-03-10.xlsx", domain.FormatExcel, true},
		{"collision suffix", "grid-export", "grid-export-2024-03-10-12.csv", domain.FormatCSV, true},
		{"custom prefix", "sales", "sales-2024-03-10.pdf", domain.FormatPDF, true},
		{"round trip", "sales", FileName("sales", domain.FormatCSV, time.Now()), domain.FormatCSV, true},
		{"other prefix", "sales", "grid-export-2024-03-10.pdf", "", false},
		{"no date", "", "grid-export.csv", "", false},
		{"bad date", "", "grid-export-2024-13-40.csv", "", false},
		{"zero suffix", "", "grid-export-2024-03-10-0.csv", "", false},
		{"unknown extension", "", "grid-export-2024-03-10.txt", "", false},
		{"upper case extension", "", "grid-export-2024-03-10.CSV", "", false},
		{"trailing text", "", "grid-export-2024-03-10.csv.bak", "", false},
		{"path", "", "../grid-export-2024-03-10.csv", "", false},
		{"plain file", "", "notes.csv", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, ok := ParseFileName(tt.prefix, tt.file)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFormat, format)
		})
	}
}
