package assemble

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MeKo-Tech/docslice/internal/document"
	"github.com/MeKo-Tech/docslice/internal/engine"
	"github.com/MeKo-Tech/docslice/internal/geometry"
	"github.com/MeKo-Tech/docslice/internal/pdf"
	"github.com/MeKo-Tech/docslice/internal/refs"
	"github.com/MeKo-Tech/docslice/internal/render"
)

// State identifies where a request is in the pipeline.
type State string

const (
	StateReceived    State = "received"
	StateValidated   State = "validated"
	StateRecognizing State = "recognizing"
	StateAssembling  State = "assembling"
	StateRendering   State = "rendering"
	StateComplete    State = "complete"
	StateFailed      State = "failed"
)

// Event is one progress notification. PageNo is 0 for state transitions that
// are not page-scoped.
type Event struct {
	State  State `json:"state"`
	PageNo int   `json:"page_no,omitempty"`
}

// ProgressFunc receives pipeline progress events. It is called synchronously
// from the processing goroutine.
type ProgressFunc func(Event)

// Config controls the assembly pipeline.
type Config struct {
	Origin         geometry.CoordOrigin // public coordinate frame
	Precision      int                  // bbox decimal places
	MarkdownTables bool                 // emit markdown alongside table grids
	MaxPages       int                  // page-count ceiling, 0 = unlimited
	MaxBytes       int64                // upload ceiling, 0 = unlimited
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Origin:         geometry.TopLeft,
		Precision:      2,
		MarkdownTables: true,
	}
}

// Orchestrator drives one document through recognition, assembly and
// rendering. It is stateless across requests; every request owns its own
// allocator and mappings, so an Orchestrator may serve requests concurrently.
type Orchestrator struct {
	engine      engine.Engine
	newRenderer render.Factory
	cfg         Config
	pageCount   func([]byte) (int, error)
}

// New builds an orchestrator. The renderer factory may be nil when rendering
// is never requested.
func New(eng engine.Engine, factory render.Factory, cfg Config) *Orchestrator {
	if !cfg.Origin.Valid() {
		cfg.Origin = geometry.TopLeft
	}
	return &Orchestrator{engine: eng, newRenderer: factory, cfg: cfg, pageCount: pdf.PageCount}
}

// Process runs the full pipeline for one request.
func (o *Orchestrator) Process(ctx context.Context, req *document.Request) (*document.Response, error) {
	return o.ProcessWithProgress(ctx, req, nil)
}

// ProcessWithProgress runs the pipeline and reports state transitions and
// per-page completions through progress (which may be nil).
func (o *Orchestrator) ProcessWithProgress(ctx context.Context, req *document.Request, progress ProgressFunc) (*document.Response, error) {
	emit := func(ev Event) {
		if progress != nil {
			progress(ev)
		}
	}
	emit(Event{State: StateReceived})

	if err := o.validate(req); err != nil {
		emit(Event{State: StateFailed})
		return nil, err
	}

	totalPages, err := o.pageCount(req.Data)
	if err != nil {
		emit(Event{State: StateFailed})
		return nil, document.NewProcessingError("inspection", err)
	}

	first, last, err := pdf.NormalizeRange(req.FirstPage, req.LastPage, totalPages)
	if err != nil {
		emit(Event{State: StateFailed})
		return nil, &document.InvalidRequestError{Reason: err.Error()}
	}
	if o.cfg.MaxPages > 0 && last-first+1 > o.cfg.MaxPages {
		emit(Event{State: StateFailed})
		return nil, document.NewInvalidRequest("page range spans %d pages, limit is %d", last-first+1, o.cfg.MaxPages)
	}
	emit(Event{State: StateValidated})

	emit(Event{State: StateRecognizing})
	res, err := o.recognize(ctx, req, first, last)
	if err != nil {
		emit(Event{State: StateFailed})
		return nil, document.NewProcessingError("recognition", err)
	}

	emit(Event{State: StateAssembling})
	slices := o.buildSlices(res)
	pages := assemblePages(slices, res.Pages, first, last)
	for i := range pages {
		emit(Event{State: StateAssembling, PageNo: pages[i].PageNo})
	}

	if req.WantScreenshots() {
		emit(Event{State: StateRendering})
		o.renderScreenshots(ctx, req, res, pages, progress)
	}

	emit(Event{State: StateComplete})
	return &document.Response{
		DocumentName: req.DocumentName,
		ContentType:  req.ContentType,
		Size:         int64(len(req.Data)),
		TotalPages:   totalPages,
		FirstPage:    first,
		LastPage:     last,
		Pages:        pages,
	}, nil
}

// validate performs the caller-facing boundary checks before any expensive
// work is committed. It also fills request defaults.
func (o *Orchestrator) validate(req *document.Request) error {
	if len(req.Data) == 0 {
		return document.NewInvalidRequest("no document provided")
	}
	if req.ContentType != "application/pdf" {
		return document.NewInvalidRequest("unsupported content type %q, only application/pdf is accepted", req.ContentType)
	}
	if o.cfg.MaxBytes > 0 && int64(len(req.Data)) > o.cfg.MaxBytes {
		return document.NewInvalidRequest("document of %d bytes exceeds the %d byte limit", len(req.Data), o.cfg.MaxBytes)
	}
	if req.Mode == "" {
		req.Mode = document.ModeHybrid
	}
	if !req.Mode.Valid() {
		return document.NewInvalidRequest("unknown mode %q", req.Mode)
	}
	if req.FirstPage < 0 || req.LastPage < 0 {
		return document.NewInvalidRequest("page numbers must be positive")
	}
	if req.FirstPage > 0 && req.LastPage > 0 && req.LastPage < req.FirstPage {
		return document.NewInvalidRequest("last page %d before first page %d", req.LastPage, req.FirstPage)
	}
	if req.WantScreenshots() {
		if req.ImageFormat == "" {
			req.ImageFormat = document.FormatJPEG
		}
		if !req.ImageFormat.Valid() {
			return document.NewInvalidRequest("unsupported image format %q", req.ImageFormat)
		}
		if req.ImageQuality < 0 || req.ImageQuality > 100 {
			return document.NewInvalidRequest("image quality %d out of range 0-100", req.ImageQuality)
		}
		if req.ImageQuality == 0 {
			req.ImageQuality = 80
		}
		if req.ImageScale < 0 {
			return document.NewInvalidRequest("image scale must be positive")
		}
		if req.ImageScale == 0 {
			req.ImageScale = 1
		}
	}
	return nil
}

// recognize invokes the engine. Hybrid mode runs the fast pass first and
// retries pages that produced no text with the accurate pass, merging the
// results back in page order.
func (o *Orchestrator) recognize(ctx context.Context, req *document.Request, first, last int) (*engine.Result, error) {
	if req.Mode != document.ModeHybrid {
		return o.recognizeOnce(ctx, req.Data, engine.Options{
			Mode:      string(req.Mode),
			FirstPage: first,
			LastPage:  last,
		})
	}

	res, err := o.recognizeOnce(ctx, req.Data, engine.Options{
		Mode:      string(document.ModeSpeed),
		FirstPage: first,
		LastPage:  last,
	})
	if err != nil {
		return nil, err
	}

	for _, info := range res.Pages {
		if pageHasText(res, info.PageNo) {
			continue
		}
		retry, err := o.recognizeOnce(ctx, req.Data, engine.Options{
			Mode:      string(document.ModeAccuracy),
			FirstPage: info.PageNo,
			LastPage:  info.PageNo,
		})
		if err != nil {
			// Context cancellation aborts the request; anything else leaves
			// the page empty rather than failing the document.
			if ctx.Err() != nil {
				return nil, err
			}
			slog.Warn("Accurate retry failed, keeping fast-pass page", "page", info.PageNo, "error", err)
			continue
		}
		mergePage(res, retry, info.PageNo)
	}
	return res, nil
}

func (o *Orchestrator) recognizeOnce(ctx context.Context, data []byte, opts engine.Options) (*engine.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := o.engine.Recognize(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("engine returned no result")
	}
	return res, nil
}

// pageHasText reports whether any element on the page carries usable text.
func pageHasText(res *engine.Result, pageNo int) bool {
	for _, el := range res.Elements {
		if elementFirstPage(el) == pageNo && pdf.CleanText(el.Text) != "" {
			return true
		}
	}
	return false
}

func elementFirstPage(el engine.Element) int {
	if len(el.Boxes) == 0 {
		return 0
	}
	return el.Boxes[0].PageNo
}

// mergePage replaces one page's elements and metadata in res with the retry
// result, keeping the stream in page order. Elements without boxes stay with
// the page of the element preceding them.
func mergePage(res, retry *engine.Result, pageNo int) {
	merged := make([]engine.Element, 0, len(res.Elements)+len(retry.Elements))
	lastPage := 0
	inserted := false
	for _, el := range res.Elements {
		if p := elementFirstPage(el); p != 0 {
			lastPage = p
		}
		if lastPage == pageNo {
			if !inserted {
				merged = append(merged, retry.Elements...)
				inserted = true
			}
			continue
		}
		if lastPage > pageNo && !inserted {
			merged = append(merged, retry.Elements...)
			inserted = true
		}
		merged = append(merged, el)
	}
	if !inserted {
		merged = append(merged, retry.Elements...)
	}
	res.Elements = merged

	for i, info := range res.Pages {
		if info.PageNo != pageNo {
			continue
		}
		for _, ri := range retry.Pages {
			if ri.PageNo == pageNo {
				res.Pages[i] = ri
			}
		}
	}
}

// buildSlices runs the element stream through the allocator and the slice
// builder. Elements without any visual presence (container nodes) are
// tracked for lineage but not emitted; their children are promoted to the
// nearest surviving ancestor.
func (o *Orchestrator) buildSlices(res *engine.Result) []document.Slice {
	alloc := refs.NewAllocator()
	pages := make(map[int]engine.PageInfo, len(res.Pages))
	for _, info := range res.Pages {
		pages[info.PageNo] = info
	}
	byID := make(map[string]engine.Element, len(res.Elements))
	for _, el := range res.Elements {
		alloc.Track(el.NativeID, el.NativeParentID)
		byID[el.NativeID] = el
	}

	cfg := builderConfig{
		origin:    o.cfg.Origin,
		precision: o.cfg.Precision,
		markdown:  o.cfg.MarkdownTables,
	}

	slices := make([]document.Slice, 0, len(res.Elements))
	for _, el := range res.Elements {
		if !emittable(el) {
			continue
		}
		alloc.Allocate(el.NativeID)
		var captionText string
		if el.CaptionID != "" {
			captionText = byID[el.CaptionID].Text
		}
		slices = append(slices, buildSlice(el, alloc, pages, captionText, cfg))
	}
	return slices
}

// emittable reports whether an element has a visual representation of its
// own. Containers without one are filtered; the ref space skips them.
func emittable(el engine.Element) bool {
	return len(el.Boxes) > 0 || el.TableCells != nil || pdf.CleanText(el.Text) != ""
}

// renderScreenshots fills in page and slice screenshots in place. Every
// failure here is per-page or per-slice: the field stays null and the
// document is still returned.
func (o *Orchestrator) renderScreenshots(ctx context.Context, req *document.Request, res *engine.Result, pages []document.Page, progress ProgressFunc) {
	if o.newRenderer == nil {
		slog.Warn("Screenshots requested but no renderer configured")
		return
	}
	dims := make(map[int]pdf.Dim, len(res.Pages))
	for _, info := range res.Pages {
		dims[info.PageNo] = pdf.Dim{Width: info.Width, Height: info.Height}
	}
	renderer, err := o.newRenderer(req.Data, dims)
	if err != nil {
		slog.Warn("Renderer unavailable, returning document without screenshots", "error", err)
		return
	}

	opts := render.Options{Format: req.ImageFormat, Quality: req.ImageQuality, Scale: req.ImageScale}
	for i := range pages {
		page := &pages[i]
		if req.PageScreenshots {
			img, err := renderer.RenderPage(ctx, page.PageNo, nil, opts)
			if err != nil {
				slog.Warn("Page screenshot failed", "page", page.PageNo, "error", err)
			} else {
				page.Screenshot = img
			}
		}
		if req.SliceScreenshots {
			o.renderSliceScreenshots(ctx, renderer, page, opts)
		}
		if progress != nil {
			progress(Event{State: StateRendering, PageNo: page.PageNo})
		}
	}
}

// renderSliceScreenshots renders the bounding region of table and picture
// slices on one page.
func (o *Orchestrator) renderSliceScreenshots(ctx context.Context, renderer render.Renderer, page *document.Page, opts render.Options) {
	for i := range page.Slices {
		s := &page.Slices[i]
		if s.Label != document.LabelTable && s.Label != document.LabelPicture {
			continue
		}
		box, ok := sliceBoxOnPage(s, page, o.cfg.Origin)
		if !ok {
			continue
		}
		img, err := renderer.RenderPage(ctx, page.PageNo, &box, opts)
		if err != nil {
			slog.Warn("Slice screenshot failed", "page", page.PageNo, "ref", s.Ref, "error", err)
			continue
		}
		s.Screenshot = img
	}
}

// sliceBoxOnPage returns the slice's first bounding box on the page,
// converted to the renderer's top-left frame.
func sliceBoxOnPage(s *document.Slice, page *document.Page, origin geometry.CoordOrigin) (geometry.BBox, bool) {
	for _, pos := range s.Positions {
		if pos.PageNo != page.PageNo || pos.Malformed {
			continue
		}
		box := geometry.BBox{Top: pos.Top, Right: pos.Right, Bottom: pos.Bottom, Left: pos.Left}
		converted, err := geometry.Convert(box, origin, geometry.TopLeft, page.Height)
		if err != nil {
			return geometry.BBox{}, false
		}
		return converted, true
	}
	return geometry.BBox{}, false
}
