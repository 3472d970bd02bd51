package exporter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridexport/pkg/contracts/domain"
	"gridexport/pkg/contracts/events"
)

// stubSink records every mount and hands out handles that are ready unless
// told otherwise.
type stubSink struct {
	format   domain.Format
	notReady bool
	loadErr  error

	mu      sync.Mutex
	mounted []*Prepared
	closed  int
}

func (s *stubSink) Format() domain.Format { return s.format }

func (s *stubSink) Mount(_ context.Context, prepared *Prepared) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = append(s.mounted, prepared)
	ready := make(chan struct{})
	if !s.notReady {
		close(ready)
	}
	h := &stubHandle{sink: s, prepared: prepared, ready: ready}
	if s.loadErr != nil {
		h.failed = make(chan error, 1)
		h.failed <- s.loadErr
	}
	return h, nil
}

func (s *stubSink) mounts() []*Prepared {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Prepared(nil), s.mounted...)
}

type stubHandle struct {
	sink     *stubSink
	prepared *Prepared
	ready    chan struct{}
	failed   chan error
}

func (h *stubHandle) Ready() <-chan struct{} { return h.ready }

func (h *stubHandle) Failed() <-chan error { return h.failed }

func (h *stubHandle) Save(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Artifact{
		FileName:    h.prepared.FileName,
		ContentType: h.prepared.Request.Format.ContentType(),
		Data:        []byte(h.prepared.ID),
	}, nil
}

func (h *stubHandle) Close() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.closed++
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.ExportEvent
}

func (n *recordingNotifier) NotifyExport(_ context.Context, e events.ExportEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) all() []events.ExportEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]events.ExportEvent(nil), n.events...)
}

func gridState() domain.GridState {
	return domain.GridState{
		ProcessedRows: salesRows(),
		SourceRows:    salesRows(),
		Page:          domain.PageState{Take: 10, Group: []string{"region"}},
		Columns:       salesColumns(),
		Aggregates:    sumSales(),
	}
}

func newTestOrchestrator(clock clockwork.Clock, notifier Notifier, sinks ...Sink) *Orchestrator {
	return NewOrchestrator(sinks, Options{
		Clock:    clock,
		Notifier: notifier,
	})
}

func TestOrchestrator_Export(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	sink := &stubSink{format: domain.FormatExcel}
	notifier := &recordingNotifier{}

	var transitions []string
	o := NewOrchestrator([]Sink{sink}, Options{
		Clock:    clock,
		Notifier: notifier,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	result, err := o.Export(context.Background(), gridState(), domain.ExportRequest{Format: domain.FormatExcel, Scope: domain.ScopeCurrent})
	require.NoError(t, err)

	assert.Equal(t, "grid-export-2024-05-01.xlsx", result.FileName)
	assert.Equal(t, 7, result.Records)
	assert.Equal(t, []byte(result.ID), result.Artifact.Data)
	assert.Equal(t, []string{"idle->preparing", "preparing->dispatched", "dispatched->idle"}, transitions)

	mounts := sink.mounts()
	require.Len(t, mounts, 1)
	assert.Equal(t, result.ID, mounts[0].ID)
	assert.Equal(t, "region", mounts[0].Primary)
	sheet, ok := mounts[0].Payload.(*SpreadsheetData)
	require.True(t, ok)
	assert.Equal(t, "Sum: 30", get(sheet.Rows[3], "sales"))
	assert.Equal(t, 1, sink.closed)

	evts := notifier.all()
	require.Len(t, evts, 1)
	assert.Equal(t, events.LevelInfo, evts[0].Level)
	assert.Equal(t, "dispatched", evts[0].State)
}

func TestOrchestrator_EmptyCurrentScopeAborts(t *testing.T) {
	sink := &stubSink{format: domain.FormatCSV}
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(clockwork.NewFakeClock(), notifier, sink)

	grid := gridState()
	grid.ProcessedRows = nil

	var result *Result
	var err error
	assert.NotPanics(t, func() {
		result, err = o.Export(context.Background(), grid, domain.ExportRequest{Format: domain.FormatCSV, Scope: domain.ScopeCurrent})
	})
	assert.ErrorIs(t, err, ErrNoData)
	assert.Nil(t, result)
	assert.Empty(t, sink.mounts())

	evts := notifier.all()
	require.Len(t, evts, 1)
	assert.Equal(t, events.LevelWarning, evts[0].Level)
	assert.Equal(t, "No data to export", evts[0].Message)
}

func TestOrchestrator_AllScopeSortsBeforeGrouping(t *testing.T) {
	sink := &stubSink{format: domain.FormatCSV}
	o := newTestOrchestrator(clockwork.NewFakeClock(), nil, sink)

	grid := domain.GridState{
		SourceRows: []domain.Row{row("sales", 5.0), row("sales", 20.0), row("sales", 10.0)},
		Sort:       []domain.SortDescriptor{{Field: "sales", Dir: domain.SortAsc}},
		Columns:    []domain.Column{{Field: "sales"}},
	}

	_, err := o.Export(context.Background(), grid, domain.ExportRequest{Format: domain.FormatCSV, Scope: domain.ScopeAll})
	require.NoError(t, err)

	data := sink.mounts()[0].Payload.(*DelimitedData)
	got := make([]interface{}, 0, len(data.Rows))
	for _, r := range data.Rows {
		got = append(got, get(r, "sales"))
	}
	assert.Equal(t, []interface{}{"5", "10", "20"}, got)
}

func TestOrchestrator_RendererNotReady(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &stubSink{format: domain.FormatPDF, notReady: true}
	notifier := &recordingNotifier{}
	o := NewOrchestrator([]Sink{sink}, Options{Clock: clock, Notifier: notifier, ReadyTimeout: time.Second})

	done := o.ExportAsync(context.Background(), gridState(), domain.ExportRequest{Format: domain.FormatPDF, Scope: domain.ScopeCurrent})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	select {
	case outcome := <-done:
		assert.ErrorIs(t, outcome.Err, ErrRendererNotReady)
		assert.Nil(t, outcome.Result)
	case <-ctx.Done():
		t.Fatal("export did not finish")
	}

	assert.Equal(t, 1, sink.closed)
	evts := notifier.all()
	require.Len(t, evts, 1)
	assert.Equal(t, events.LevelWarning, evts[0].Level)
	assert.Equal(t, "preparing", evts[0].State)
}

func TestOrchestrator_LoadFailureFailsFast(t *testing.T) {
	// the fake clock is never advanced, so only the load failure can end the wait
	clock := clockwork.NewFakeClock()
	sink := &stubSink{format: domain.FormatPDF, notReady: true, loadErr: context.Canceled}
	notifier := &recordingNotifier{}
	o := NewOrchestrator([]Sink{sink}, Options{Clock: clock, Notifier: notifier, ReadyTimeout: time.Minute})

	done := o.ExportAsync(context.Background(), gridState(), domain.ExportRequest{Format: domain.FormatPDF, Scope: domain.ScopeCurrent})

	select {
	case outcome := <-done:
		assert.ErrorIs(t, outcome.Err, ErrRendererNotReady)
		assert.Contains(t, outcome.Err.Error(), "failed to load")
		assert.Nil(t, outcome.Result)
	case <-time.After(5 * time.Second):
		t.Fatal("export waited for the ready timeout")
	}

	assert.Equal(t, 1, sink.closed)
	evts := notifier.all()
	require.Len(t, evts, 1)
	assert.Equal(t, events.LevelWarning, evts[0].Level)
}

func TestOrchestrator_DispatchedSaveIgnoresCancellation(t *testing.T) {
	sink := &stubSink{format: domain.FormatExcel}
	var cancel context.CancelFunc
	o := NewOrchestrator([]Sink{sink}, Options{
		Clock: clockwork.NewFakeClock(),
		OnStateChange: func(_ string, _, to State) {
			if to == StateDispatched {
				cancel()
			}
		},
	})

	ctx, c := context.WithCancel(context.Background())
	cancel = c
	defer cancel()

	result, err := o.Export(ctx, gridState(), domain.ExportRequest{Format: domain.FormatExcel, Scope: domain.ScopeCurrent})
	require.NoError(t, err)
	assert.NotNil(t, result.Artifact)
}

func TestOrchestrator_ConcurrentRequestsAreIndependent(t *testing.T) {
	sink := &stubSink{format: domain.FormatCSV}
	o := newTestOrchestrator(clockwork.NewFakeClock(), nil, sink)

	east := gridState()
	east.ProcessedRows = salesRows()[:2]
	west := gridState()
	west.ProcessedRows = salesRows()[2:]
	req := domain.ExportRequest{Format: domain.FormatCSV, Scope: domain.ScopeCurrent}

	first := o.ExportAsync(context.Background(), east, req)
	second := o.ExportAsync(context.Background(), west, req)
	a := <-first
	b := <-second
	require.NoError(t, a.Err)
	require.NoError(t, b.Err)
	assert.NotEqual(t, a.Result.ID, b.Result.ID)

	byID := map[string]*Prepared{}
	for _, p := range sink.mounts() {
		byID[p.ID] = p
	}
	require.Len(t, byID, 2)
	assert.Equal(t, "region: East", get(byID[a.Result.ID].Payload.(*DelimitedData).Rows[0], "region"))
	assert.Equal(t, "region: West", get(byID[b.Result.ID].Payload.(*DelimitedData).Rows[0], "region"))
}

func TestOrchestrator_TwoCallsTwoInvocations(t *testing.T) {
	sink := &stubSink{format: domain.FormatExcel}
	o := newTestOrchestrator(clockwork.NewFakeClock(), nil, sink)
	req := domain.ExportRequest{Format: domain.FormatExcel, Scope: domain.ScopeCurrent}

	_, err := o.Export(context.Background(), gridState(), req)
	require.NoError(t, err)
	_, err = o.Export(context.Background(), gridState(), req)
	require.NoError(t, err)

	assert.Len(t, sink.mounts(), 2)
}

func TestOrchestrator_UnsupportedFormat(t *testing.T) {
	o := newTestOrchestrator(clockwork.NewFakeClock(), nil, &stubSink{format: domain.FormatExcel})

	_, err := o.Export(context.Background(), gridState(), domain.ExportRequest{Format: domain.FormatPDF, Scope: domain.ScopeCurrent})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOrchestrator_MaxRows(t *testing.T) {
	sink := &stubSink{format: domain.FormatExcel}
	o := NewOrchestrator([]Sink{sink}, Options{Clock: clockwork.NewFakeClock(), MaxRows: 2})

	_, err := o.Export(context.Background(), gridState(), domain.ExportRequest{Format: domain.FormatExcel, Scope: domain.ScopeCurrent})
	assert.ErrorIs(t, err, ErrTooManyRows)
	assert.Empty(t, sink.mounts())
}

func TestOrchestrator_PrepareWithoutGrouping(t *testing.T) {
	o := newTestOrchestrator(clockwork.NewFakeClock(), nil)
	grid := gridState()
	grid.Page.Group = nil

	prepared, err := o.Prepare(context.Background(), grid, domain.ExportRequest{Format: domain.FormatPDF, Scope: domain.ScopeCurrent})
	require.NoError(t, err)
	assert.Len(t, prepared.Records, 3)
	for _, r := range prepared.Records {
		assert.False(t, r.IsSynthetic())
	}
}

func TestOrchestrator_RequestAggregatesOverrideGrid(t *testing.T) {
	o := newTestOrchestrator(clockwork.NewFakeClock(), nil)
	req := domain.ExportRequest{
		Format:     domain.FormatCSV,
		Scope:      domain.ScopeCurrent,
		Aggregates: []domain.Aggregate{{Field: "sales", Aggregate: domain.AggregateAverage}},
	}

	prepared, err := o.Prepare(context.Background(), gridState(), req)
	require.NoError(t, err)
	assert.Equal(t, "Avg: 15.00", get(prepared.Records[3].Values, "sales"))
}

func TestOrchestrator_Formats(t *testing.T) {
	o := newTestOrchestrator(clockwork.NewFakeClock(), nil,
		&stubSink{format: domain.FormatPDF}, &stubSink{format: domain.FormatExcel})
	assert.Equal(t, []domain.Format{domain.FormatExcel, domain.FormatPDF}, o.Formats())
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "no_data", outcomeOf(ErrNoData))
	assert.Equal(t, "renderer_not_ready", outcomeOf(ErrRendererNotReady))
	assert.Equal(t, "cancelled", outcomeOf(context.Canceled))
	assert.Equal(t, "error", outcomeOf(assert.AnError))
}
