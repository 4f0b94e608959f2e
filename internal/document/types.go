// Package document defines the public request/response model of the slice
// extraction service. Internal pipeline stages use richer variant-typed
// representations; everything is flattened to the nullable wire fields here
// at the boundary.
package document

import (
	"github.com/MeKo-Tech/docslice/internal/geometry"
)

// Mode selects the speed/accuracy trade-off of the recognition pass.
type Mode string

const (
	ModeSpeed    Mode = "speed"
	ModeAccuracy Mode = "accuracy"
	ModeHybrid   Mode = "hybrid"
)

// Valid reports whether the mode is one of the supported pipeline modes.
func (m Mode) Valid() bool {
	return m == ModeSpeed || m == ModeAccuracy || m == ModeHybrid
}

// ImageFormat selects the screenshot encoding.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"  // lossless
	FormatJPEG ImageFormat = "jpeg" // lossy, honors quality
)

// Valid reports whether the format is supported.
func (f ImageFormat) Valid() bool {
	return f == FormatPNG || f == FormatJPEG
}

// Lossy reports whether the quality factor is meaningful for the format.
func (f ImageFormat) Lossy() bool {
	return f == FormatJPEG
}

// ContentType returns the MIME type of the encoded image.
func (f ImageFormat) ContentType() string {
	return "image/" + string(f)
}

// Label tags the content kind of a slice. The set is open: elements the
// engine reports with a label outside the known kinds are passed through as
// LabelGeneric, never dropped.
type Label string

const (
	LabelTitle      Label = "title"
	LabelHeading    Label = "section_header"
	LabelParagraph  Label = "text"
	LabelListItem   Label = "list_item"
	LabelTable      Label = "table"
	LabelPicture    Label = "picture"
	LabelCaption    Label = "caption"
	LabelFormula    Label = "formula"
	LabelCode       Label = "code"
	LabelFootnote   Label = "footnote"
	LabelPageHeader Label = "page_header"
	LabelPageFooter Label = "page_footer"
	LabelGeneric    Label = "generic"
)

// Known reports whether the label is part of the recognized set.
func (l Label) Known() bool {
	switch l {
	case LabelTitle, LabelHeading, LabelParagraph, LabelListItem, LabelTable,
		LabelPicture, LabelCaption, LabelFormula, LabelCode, LabelFootnote,
		LabelPageHeader, LabelPageFooter, LabelGeneric:
		return true
	}
	return false
}

// Image is an encoded screenshot payload.
type Image struct {
	Data        string `json:"data"` // base64
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Position is one bounding box occurrence of a slice on a page. Malformed
// marks a box that could not be converted into the public frame: the page
// attribution is kept so the slice still lands on its page, the coordinates
// are zeroed and must not be trusted.
type Position struct {
	PageNo      int                  `json:"page_no"`
	Top         float64              `json:"top"`
	Right       float64              `json:"right"`
	Bottom      float64              `json:"bottom"`
	Left        float64              `json:"left"`
	CoordOrigin geometry.CoordOrigin `json:"coord_origin"`
	Malformed   bool                 `json:"malformed,omitempty"`
}

// Slice is one recognized content unit with its place in the document
// hierarchy. Which optional fields are populated depends on the label.
type Slice struct {
	Level           int        `json:"level"`
	Ref             string     `json:"ref"`
	Sequence        int        `json:"sequence"`
	ParentRef       *string    `json:"parent_ref"`
	Label           Label      `json:"label"`
	ContentText     *string    `json:"content_text"`
	CaptionText     *string    `json:"caption_text"`
	TableData       [][]string `json:"table_data"`
	ContentMarkdown *string    `json:"content_markdown"`
	Screenshot      *Image     `json:"screenshot"`
	Positions       []Position `json:"positions"`
}

// Page is one page of the processed document with its slices in sequence
// order.
type Page struct {
	PageNo     int     `json:"page_no"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Screenshot *Image  `json:"screenshot"`
	Slices     []Slice `json:"slices"`
}

// Request describes one processing request. Data is the raw document.
type Request struct {
	DocumentName     string
	ContentType      string
	Data             []byte
	FirstPage        int // 1-based; 0 means first
	LastPage         int // 0 means last page of the document
	Mode             Mode
	PageScreenshots  bool
	SliceScreenshots bool
	ImageFormat      ImageFormat
	ImageQuality     int     // 0-100, lossy formats only
	ImageScale       float64 // native-resolution multiplier
}

// WantScreenshots reports whether any rendering work was requested.
func (r *Request) WantScreenshots() bool {
	return r.PageScreenshots || r.SliceScreenshots
}

// Response is the complete structured decomposition of a document.
type Response struct {
	DocumentName string `json:"document_name"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
	TotalPages   int    `json:"total_pages"`
	FirstPage    int    `json:"first_page"`
	LastPage     int    `json:"last_page"`
	Pages        []Page `json:"pages"`
}

// HealthResponse reports service liveness and build identity.
type HealthResponse struct {
	Version   string `json:"version"`
	BuildID   string `json:"build_id"`
	CommitSHA string `json:"commit_sha"`
	UpSince   string `json:"up_since"`
}
