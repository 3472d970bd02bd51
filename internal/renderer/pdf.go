package renderer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"gridexport/internal/exporter"
	"gridexport/pkg/contracts/domain"
)

//go:embed templates/print.html
var templateFS embed.FS

var printTemplate = template.Must(template.ParseFS(templateFS, "templates/print.html"))

const cmPerInch = 2.54

// PDFOptions configures the print engine
type PDFOptions struct {
	ChromePath string
	Headless   bool
	Landscape  bool
	Scale      float64
	MarginCM   float64
}

// DefaultPDFOptions returns landscape A4-style output at 90% scale with 0.8cm margins
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Headless:  true,
		Landscape: true,
		Scale:     0.9,
		MarginCM:  0.8,
	}
}

// PDFSink renders the print projection with headless Chrome. One browser
// is started on first use and every export gets its own tab.
type PDFSink struct {
	opts   PDFOptions
	logger *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewPDFSink creates a PDF sink
func NewPDFSink(opts PDFOptions, logger *slog.Logger) *PDFSink {
	if opts.Scale <= 0 {
		opts.Scale = 0.9
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFSink{opts: opts, logger: logger.With(slog.String("component", "pdf_sink"))}
}

// Format implements exporter.Sink
func (s *PDFSink) Format() domain.Format { return domain.FormatPDF }

// RenderHTML renders the print projection as a standalone HTML document
func RenderHTML(title string, data *exporter.PrintData) ([]byte, error) {
	var buf bytes.Buffer
	err := printTemplate.Execute(&buf, struct {
		Title   string
		Columns []domain.Column
		Rows    []exporter.PrintRow
	}{Title: title, Columns: data.Columns, Rows: data.Rows})
	if err != nil {
		return nil, fmt.Errorf("failed to render print template: %w", err)
	}
	return buf.Bytes(), nil
}

// Mount opens a tab and loads the document into it. The handle becomes
// ready once Chrome has loaded the page. A load failure is reported on
// Failed instead.
func (s *PDFSink) Mount(ctx context.Context, prepared *exporter.Prepared) (exporter.Handle, error) {
	data, ok := prepared.Payload.(*exporter.PrintData)
	if !ok {
		return nil, fmt.Errorf("pdf sink: unexpected payload %T", prepared.Payload)
	}

	html, err := RenderHTML(prepared.FileName, data)
	if err != nil {
		return nil, err
	}

	browserCtx, err := s.browser()
	if err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(browserCtx)

	h := &pdfHandle{
		sink:     s,
		prepared: prepared,
		tabCtx:   tabCtx,
		cancel:   cancel,
		ready:    make(chan struct{}),
		failed:   make(chan error, 1),
	}
	go h.load(string(html))
	return h, nil
}

// Close shuts the browser down
func (s *PDFSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelBrowser != nil {
		s.cancelBrowser()
		s.cancelAlloc()
		s.browserCtx, s.cancelBrowser, s.cancelAlloc = nil, nil, nil
	}
	return nil
}

// browser returns the shared browser context, relaunching Chrome when the
// previous instance crashed or lost its connection.
func (s *PDFSink) browser() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx != nil {
		if s.browserCtx.Err() == nil {
			return s.browserCtx, nil
		}
		s.logger.Warn("chrome is gone, relaunching", slog.String("error", context.Cause(s.browserCtx).Error()))
		s.cancelBrowser()
		s.cancelAlloc()
		s.browserCtx, s.cancelBrowser, s.cancelAlloc = nil, nil, nil
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", s.opts.Headless))
	if s.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(s.opts.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	// launch eagerly
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	s.browserCtx, s.cancelBrowser, s.cancelAlloc = browserCtx, cancelBrowser, cancelAlloc
	return browserCtx, nil
}

type pdfHandle struct {
	sink     *PDFSink
	prepared *exporter.Prepared
	tabCtx   context.Context
	cancel   context.CancelFunc
	ready    chan struct{}
	failed   chan error
	closed   atomic.Bool
}

func (h *pdfHandle) load(html string) {
	err := chromedp.Run(h.tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("table", chromedp.ByQuery),
	)
	if err != nil {
		// a closed handle cancels its own tab
		if !h.closed.Load() {
			h.sink.logger.Warn("print document failed to load",
				slog.String("export_id", h.prepared.ID),
				slog.String("error", err.Error()))
		}
		h.failed <- err
		return
	}
	close(h.ready)
}

func (h *pdfHandle) Ready() <-chan struct{} { return h.ready }

// Failed implements exporter.LoadFailer
func (h *pdfHandle) Failed() <-chan error { return h.failed }

func (h *pdfHandle) Save(ctx context.Context) (*exporter.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	margin := h.sink.opts.MarginCM / cmPerInch
	var pdf []byte
	err := chromedp.Run(h.tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdf, _, err = page.PrintToPDF().
			WithLandscape(h.sink.opts.Landscape).
			WithScale(h.sink.opts.Scale).
			WithPrintBackground(true).
			WithMarginTop(margin).
			WithMarginBottom(margin).
			WithMarginLeft(margin).
			WithMarginRight(margin).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to print pdf: %w", err)
	}

	return &exporter.Artifact{
		FileName:    h.prepared.FileName,
		ContentType: domain.FormatPDF.ContentType(),
		Data:        pdf,
	}, nil
}

func (h *pdfHandle) Close() error {
	h.closed.Store(true)
	h.cancel()
	return nil
}
