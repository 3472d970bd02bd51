package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecorder(t *testing.T) {
	t.Run("captures messages and attrs", func(t *testing.T) {
		logger, rec := NewTestLogger(t)

		logger.Info("export dispatched", slog.String("format", "csv"))
		logger.Error("sink failed", slog.Int("status", 500))

		require.Equal(t, 2, rec.Count())
		assert.True(t, rec.ContainsMessage("dispatched"))
		assert.Equal(t, int64(500), rec.GetRecordsByLevel(slog.LevelError)[0].Attrs["status"])
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, rec := NewTestLogger(t)

		logger.Debug("d")
		logger.Info("i")
		logger.Warn("w")

		assert.Len(t, rec.GetRecordsByLevel(slog.LevelDebug), 1)
		assert.Len(t, rec.GetRecordsByLevel(slog.LevelWarn), 1)
		assert.Empty(t, rec.GetRecordsByLevel(slog.LevelError))
	})

	t.Run("derived loggers share the log", func(t *testing.T) {
		logger, rec := NewTestLogger(t)

		logger.With(slog.String("component", "export_orchestrator")).Warn("export abandoned")
		logger.Info("unrelated")

		require.Equal(t, 2, rec.Count())
		AssertLogAttr(t, rec, "component", "export_orchestrator")
		_, ok := rec.GetRecordsByLevel(slog.LevelInfo)[0].Attrs["component"]
		assert.False(t, ok)
	})

	t.Run("groups are flattened", func(t *testing.T) {
		logger, rec := NewTestLogger(t)

		logger.WithGroup("export").Info("done",
			slog.String("id", "e1"),
			slog.Group("result", slog.Int("records", 8)))

		attrs := rec.GetRecords()[0].Attrs
		assert.Equal(t, "e1", attrs["export.id"])
		assert.Equal(t, int64(8), attrs["export.result.records"])
	})
}

func TestGridFixtures(t *testing.T) {
	grid := GroupedSalesGrid()

	assert.Len(t, grid.ProcessedRows, 4)
	assert.Equal(t, "region", grid.LabelField())
	assert.Equal(t, []string{"region"}, grid.Page.Group)
	assert.Equal(t, "East", grid.ProcessedRows[0].Value("region"))
}
