package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gridexport/pkg/contracts/domain"
	"gridexport/pkg/contracts/events"
)

// DefaultReadyTimeout bounds the wait for a sink to become live
const DefaultReadyTimeout = 2 * time.Second

// State of one export invocation
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateDispatched
)

func (s State) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StateDispatched:
		return "dispatched"
	default:
		return "idle"
	}
}

// Prepared is the data of a single export request. Each invocation builds
// its own value and hands it to the sink directly.
type Prepared struct {
	ID        string
	Request   domain.ExportRequest
	FileName  string
	Columns   []domain.Column
	Primary   string
	Records   []domain.FlatRecord
	Payload   Payload
	CreatedAt time.Time
}

// Artifact is a produced export file
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Handle is a mounted sink holding one prepared export
type Handle interface {
	// Ready is closed once the sink is live and can save
	Ready() <-chan struct{}
	// Save produces the artifact
	Save(ctx context.Context) (*Artifact, error)
	// Close releases the sink's resources
	Close() error
}

// LoadFailer is implemented by handles whose load continues after Mount
// and can fail. A value on Failed means Ready will never close.
type LoadFailer interface {
	Failed() <-chan error
}

// Sink renders one format
type Sink interface {
	Format() domain.Format
	Mount(ctx context.Context, prepared *Prepared) (Handle, error)
}

// Notifier receives non-blocking export events
type Notifier interface {
	NotifyExport(ctx context.Context, event events.ExportEvent)
}

// StateObserver is told about every state transition of an export
type StateObserver func(exportID string, from, to State)

// Result of a dispatched export
type Result struct {
	ID       string
	FileName string
	Records  int
	Artifact *Artifact
}

// Outcome is delivered by ExportAsync
type Outcome struct {
	Result *Result
	Err    error
}

// Options configures an Orchestrator
type Options struct {
	ReadyTimeout   time.Duration
	FilePrefix     string
	DefaultPrimary string
	// MaxRows rejects exports whose resolved scope is larger; 0 disables the check
	MaxRows       int
	Clock         clockwork.Clock
	Logger        *slog.Logger
	Metrics       *Metrics
	Notifier      Notifier
	OnStateChange StateObserver
}

// Orchestrator runs exports: resolve, flatten, project, mount the sink, wait
// for it to become live and save. It keeps no per-export state, so
// concurrent exports never share data.
type Orchestrator struct {
	sinks     map[domain.Format]Sink
	projector *Projector
	opts      Options
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator for the given sinks
func NewOrchestrator(sinks []Sink, opts Options) *Orchestrator {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.FilePrefix == "" {
		opts.FilePrefix = DefaultFilePrefix
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With(slog.String("component", "export_orchestrator"))

	registered := make(map[domain.Format]Sink, len(sinks))
	for _, s := range sinks {
		registered[s.Format()] = s
	}
	return &Orchestrator{
		sinks:     registered,
		projector: NewProjector(opts.Logger),
		opts:      opts,
		logger:    logger,
	}
}

// Formats returns the formats a sink is registered for
func (o *Orchestrator) Formats() []domain.Format {
	out := make([]domain.Format, 0, len(o.sinks))
	for _, f := range domain.Formats {
		if _, ok := o.sinks[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Prepare resolves, flattens and projects an export without touching a
// sink. It returns ErrNoData or ErrProjectionFailed when there is nothing to
// export.
func (o *Orchestrator) Prepare(ctx context.Context, grid domain.GridState, req domain.ExportRequest) (*Prepared, error) {
	_, span := tracer.Start(ctx, "exporter.Prepare")
	defer span.End()

	if !req.Format.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	rows := Resolve(req.Scope, grid.ProcessedRows, grid.SourceRows, grid.Sort)
	span.SetAttributes(attribute.Int("export.rows", len(rows)))
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	if o.opts.MaxRows > 0 && len(rows) > o.opts.MaxRows {
		return nil, fmt.Errorf("%w: %d rows exceed the limit of %d", ErrTooManyRows, len(rows), o.opts.MaxRows)
	}

	primary := grid.LabelField()
	if grid.PrimaryField == "" && o.opts.DefaultPrimary != "" {
		primary = o.opts.DefaultPrimary
	}

	aggregates := req.Aggregates
	if len(aggregates) == 0 {
		aggregates = grid.Aggregates
	}

	var records []domain.FlatRecord
	if len(grid.Page.Group) > 0 {
		records = Flatten(Group(rows, grid.Page.Group, aggregates), aggregates, primary)
	} else {
		records = Records(rows)
	}

	payload, err := o.projector.Project(req.Format, records, grid.Columns, primary)
	if err != nil {
		return nil, err
	}
	if payload.Len() == 0 {
		return nil, ErrProjectionFailed
	}

	now := o.opts.Clock.Now()
	return &Prepared{
		ID:        uuid.New().String(),
		Request:   req,
		FileName:  FileName(o.opts.FilePrefix, req.Format, now),
		Columns:   exportableColumns(grid.Columns),
		Primary:   primary,
		Records:   records,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}

// Export runs one export to completion. Failures are returned as errors and
// reported to the notifier as warnings; no artifact is produced for them.
// Once the sink is live the save is not cancelled by ctx.
func (o *Orchestrator) Export(ctx context.Context, grid domain.GridState, req domain.ExportRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "exporter.Export", trace.WithAttributes(
		attribute.String("export.format", string(req.Format)),
		attribute.String("export.scope", string(req.Scope)),
	))
	defer span.End()

	start := o.opts.Clock.Now()
	run := &exportRun{o: o, id: uuid.New().String(), req: req}

	result, err := o.export(ctx, run, grid)
	duration := o.opts.Clock.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.opts.Metrics.record(ctx, string(req.Format), string(req.Scope), outcomeOf(err), 0, duration)
		return nil, err
	}

	span.SetAttributes(attribute.Int("export.records", result.Records))
	o.opts.Metrics.record(ctx, string(req.Format), string(req.Scope), "success", result.Records, duration)
	return result, nil
}

// ExportAsync runs Export on its own goroutine and delivers the outcome on
// the returned channel, which receives exactly one value.
func (o *Orchestrator) ExportAsync(ctx context.Context, grid domain.GridState, req domain.ExportRequest) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		result, err := o.Export(ctx, grid, req)
		out <- Outcome{Result: result, Err: err}
	}()
	return out
}

func (o *Orchestrator) export(ctx context.Context, run *exportRun, grid domain.GridState) (*Result, error) {
	sink, ok := o.sinks[run.req.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, run.req.Format)
	}

	run.transition(StatePreparing)
	prepared, err := o.Prepare(ctx, grid, run.req)
	if err != nil {
		run.abort(ctx, err)
		return nil, err
	}
	prepared.ID = run.id
	run.fileName = prepared.FileName
	run.records = len(prepared.Records)

	handle, err := sink.Mount(ctx, prepared)
	if err != nil {
		err = fmt.Errorf("%w: mount %s sink: %v", ErrRendererNotReady, run.req.Format, err)
		run.abort(ctx, err)
		return nil, err
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			o.logger.Warn("failed to release export sink",
				slog.String("export_id", run.id),
				slog.String("error", cerr.Error()))
		}
	}()

	var failed <-chan error
	if lf, ok := handle.(LoadFailer); ok {
		failed = lf.Failed()
	}

	select {
	case <-handle.Ready():
	case lerr := <-failed:
		err = fmt.Errorf("%w: %s sink failed to load: %v", ErrRendererNotReady, run.req.Format, lerr)
		run.abort(ctx, err)
		return nil, err
	case <-o.opts.Clock.After(o.opts.ReadyTimeout):
		err = fmt.Errorf("%w: %s sink not live after %s", ErrRendererNotReady, run.req.Format, o.opts.ReadyTimeout)
		run.abort(ctx, err)
		return nil, err
	case <-ctx.Done():
		run.abort(ctx, ctx.Err())
		return nil, ctx.Err()
	}

	run.transition(StateDispatched)
	artifact, err := handle.Save(context.WithoutCancel(ctx))
	if err != nil {
		err = fmt.Errorf("save %s export: %w", run.req.Format, err)
		run.finish(ctx, events.LevelError, err.Error())
		return nil, err
	}

	o.logger.InfoContext(ctx, "export completed",
		slog.String("export_id", run.id),
		slog.String("format", string(run.req.Format)),
		slog.String("scope", string(run.req.Scope)),
		slog.String("file_name", artifact.FileName),
		slog.Int("records", run.records),
		slog.Int("bytes", len(artifact.Data)))
	run.finish(ctx, events.LevelInfo, "export completed")

	return &Result{
		ID:       run.id,
		FileName: artifact.FileName,
		Records:  run.records,
		Artifact: artifact,
	}, nil
}

// exportRun tracks the state of a single invocation
type exportRun struct {
	o        *Orchestrator
	id       string
	req      domain.ExportRequest
	state    State
	fileName string
	records  int
}

func (r *exportRun) transition(to State) {
	from := r.state
	r.state = to
	if r.o.opts.OnStateChange != nil {
		r.o.opts.OnStateChange(r.id, from, to)
	}
}

// abort logs a warning, notifies and returns to idle
func (r *exportRun) abort(ctx context.Context, err error) {
	r.o.logger.WarnContext(ctx, "export abandoned",
		slog.String("export_id", r.id),
		slog.String("format", string(r.req.Format)),
		slog.String("scope", string(r.req.Scope)),
		slog.String("state", r.state.String()),
		slog.String("error", err.Error()))
	r.notify(ctx, events.LevelWarning, warningMessage(err))
	r.transition(StateIdle)
}

func (r *exportRun) finish(ctx context.Context, level events.Level, message string) {
	r.notify(ctx, level, message)
	r.transition(StateIdle)
}

func (r *exportRun) notify(ctx context.Context, level events.Level, message string) {
	if r.o.opts.Notifier == nil {
		return
	}
	r.o.opts.Notifier.NotifyExport(ctx, events.ExportEvent{
		ExportID: r.id,
		Format:   string(r.req.Format),
		Scope:    string(r.req.Scope),
		State:    r.state.String(),
		Level:    level,
		Message:  message,
		FileName: r.fileName,
		Records:  r.records,
	})
}

func warningMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoData):
		return "No data to export"
	case errors.Is(err, ErrProjectionFailed):
		return "Export data could not be prepared"
	case errors.Is(err, ErrRendererNotReady):
		return "Export renderer is not ready, please try again"
	case errors.Is(err, ErrTooManyRows):
		return "Too many rows to export"
	}
	return err.Error()
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrProjectionFailed):
		return "projection_failed"
	case errors.Is(err, ErrRendererNotReady):
		return "renderer_not_ready"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrTooManyRows):
		return "too_many_rows"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}
