// Package render produces encoded page and slice screenshots. Rendering is
// lazy: a renderer is only constructed when the request asked for
// screenshots, and every invocation is counted so tests can prove the
// common path never touches it.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync/atomic"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/docslice/internal/document"
	"github.com/MeKo-Tech/docslice/internal/geometry"
	"github.com/MeKo-Tech/docslice/internal/pdf"
)

// Options control the encoding of a rendered image.
type Options struct {
	Format  document.ImageFormat
	Quality int     // 0-100, lossy formats only
	Scale   float64 // multiplier over the native page image resolution
}

// Renderer rasterizes a page or a bounding region of it. A nil box means the
// whole page. Failures are per-page: the caller keeps the document and nulls
// the screenshot.
type Renderer interface {
	RenderPage(ctx context.Context, pageNo int, box *geometry.BBox, opts Options) (*document.Image, error)
	Calls() int64
}

// Factory builds a renderer for one document. The orchestrator only calls it
// when screenshots were requested.
type Factory func(data []byte, dims map[int]pdf.Dim) (Renderer, error)

// PageRenderer renders from the page images embedded in the PDF. Page
// geometry (points) maps linearly onto the page image (pixels).
type PageRenderer struct {
	pages map[int]image.Image
	dims  map[int]pdf.Dim
	calls atomic.Int64
}

// NewPageRenderer extracts the page images of a document up front.
func NewPageRenderer(data []byte, dims map[int]pdf.Dim) (Renderer, error) {
	pages, err := extractPageImages(data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page images: %w", err)
	}
	return &PageRenderer{pages: pages, dims: dims}, nil
}

// RenderPage implements Renderer. The box is interpreted in the page's
// top-left-down point frame.
func (r *PageRenderer) RenderPage(ctx context.Context, pageNo int, box *geometry.BBox, opts Options) (*document.Image, error) {
	r.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, ok := r.pages[pageNo]
	if !ok {
		return nil, fmt.Errorf("no renderable image for page %d", pageNo)
	}

	dim, ok := r.dims[pageNo]
	if !ok || dim.Width <= 0 || dim.Height <= 0 {
		return nil, fmt.Errorf("no geometry for page %d", pageNo)
	}

	if box != nil {
		cropped, err := cropToBox(img, *box, dim)
		if err != nil {
			return nil, err
		}
		img = cropped
	}

	if opts.Scale > 0 && opts.Scale != 1 {
		bounds := img.Bounds()
		w := int(float64(bounds.Dx()) * opts.Scale)
		h := int(float64(bounds.Dy()) * opts.Scale)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("scale %.2f collapses page %d to zero pixels", opts.Scale, pageNo)
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	return Encode(img, opts.Format, opts.Quality)
}

// Calls returns how many times RenderPage has been invoked.
func (r *PageRenderer) Calls() int64 {
	return r.calls.Load()
}

// cropToBox maps a point-frame box onto image pixels and crops.
func cropToBox(img image.Image, box geometry.BBox, dim pdf.Dim) (image.Image, error) {
	if err := geometry.Validate(box, geometry.TopLeft); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	sx := float64(bounds.Dx()) / dim.Width
	sy := float64(bounds.Dy()) / dim.Height
	rect := image.Rect(
		bounds.Min.X+int(box.Left*sx),
		bounds.Min.Y+int(box.Top*sy),
		bounds.Min.X+int(box.Right*sx+0.5),
		bounds.Min.Y+int(box.Bottom*sy+0.5),
	)
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("box %+v lies outside the page image", box)
	}
	return imaging.Crop(img, rect), nil
}

// Encode serializes an image to the requested format and wraps it in the
// public payload shape.
func Encode(img image.Image, format document.ImageFormat, quality int) (*document.Image, error) {
	if format.Lossy() && (quality <= 0 || quality > 100) {
		quality = 80
	}

	var buf bytes.Buffer
	switch format {
	case document.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("png encoding failed: %w", err)
		}
	case document.FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("jpeg encoding failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}

	bounds := img.Bounds()
	return &document.Image{
		Data:        base64.StdEncoding.EncodeToString(buf.Bytes()),
		ContentType: format.ContentType(),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}
