package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docslice/internal/assemble"
	"github.com/MeKo-Tech/docslice/internal/document"
)

// stubProcessor records the request it was given and replays a canned
// response, error and progress event stream.
type stubProcessor struct {
	resp   *document.Response
	err    error
	events []assemble.Event

	lastReq *document.Request
}

func (p *stubProcessor) Process(ctx context.Context, req *document.Request) (*document.Response, error) {
	return p.ProcessWithProgress(ctx, req, nil)
}

func (p *stubProcessor) ProcessWithProgress(_ context.Context, req *document.Request, progress assemble.ProgressFunc) (*document.Response, error) {
	p.lastReq = req
	if progress != nil {
		for _, ev := range p.events {
			progress(ev)
		}
	}
	return p.resp, p.err
}

func newTestServer(p processor) *Server {
	return &Server{
		pipeline:    p,
		corsOrigin:  "*",
		maxUploadMB: 10,
		timeoutSec:  5,
		defaults: Defaults{
			Mode:    document.ModeHybrid,
			Format:  document.FormatJPEG,
			Quality: 80,
			Scale:   1,
		},
		started: time.Now().UTC(),
	}
}

func sampleResponse() *document.Response {
	return &document.Response{
		DocumentName: "sample.pdf",
		ContentType:  "application/pdf",
		TotalPages:   1,
		FirstPage:    1,
		LastPage:     1,
		Pages:        []document.Page{{PageNo: 1, Width: 612, Height: 792, Slices: []document.Slice{}}},
	}
}

// multipartBody builds a multipart upload with a document part and extra
// form fields.
func multipartBody(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("document", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&stubProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	s.healthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health document.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.NotEmpty(t, health.Version)
	assert.NotEmpty(t, health.UpSince)
	_, err := time.Parse(time.RFC3339, health.UpSince)
	assert.NoError(t, err)
}

func TestHealthHandlerMethodNotAllowed(t *testing.T) {
	s := newTestServer(&stubProcessor{})
	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()

	s.healthHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProcessHandler(t *testing.T) {
	stub := &stubProcessor{resp: sampleResponse()}
	s := newTestServer(stub)

	body, contentType := multipartBody(t, "sample.pdf", []byte("%PDF-fake"), map[string]string{
		"first_page":       "2",
		"last_page":        "4",
		"mode":             "speed",
		"page_screenshots": "true",
		"image_format":     "png",
		"image_scale":      "2.0",
	})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.processHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp document.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sample.pdf", resp.DocumentName)

	require.NotNil(t, stub.lastReq)
	assert.Equal(t, "sample.pdf", stub.lastReq.DocumentName)
	assert.Equal(t, 2, stub.lastReq.FirstPage)
	assert.Equal(t, 4, stub.lastReq.LastPage)
	assert.Equal(t, document.ModeSpeed, stub.lastReq.Mode)
	assert.True(t, stub.lastReq.PageScreenshots)
	assert.False(t, stub.lastReq.SliceScreenshots)
	assert.Equal(t, document.FormatPNG, stub.lastReq.ImageFormat)
	assert.InDelta(t, 2.0, stub.lastReq.ImageScale, 0)
	assert.Equal(t, 80, stub.lastReq.ImageQuality, "server default applies")
}

func TestProcessHandlerDefaults(t *testing.T) {
	stub := &stubProcessor{resp: sampleResponse()}
	s := newTestServer(stub)

	body, contentType := multipartBody(t, "sample.pdf", []byte("%PDF-fake"), nil)
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.processHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.lastReq)
	assert.Equal(t, document.ModeHybrid, stub.lastReq.Mode)
	assert.Equal(t, document.FormatJPEG, stub.lastReq.ImageFormat)
	assert.Equal(t, "application/pdf", stub.lastReq.ContentType)
	assert.Equal(t, 0, stub.lastReq.FirstPage)
}

func TestProcessHandlerMissingDocument(t *testing.T) {
	s := newTestServer(&stubProcessor{resp: sampleResponse()})

	body, contentType := multipartBody(t, "", nil, map[string]string{"mode": "speed"})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.processHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Contains(t, errResp.Error, "No document")
}

func TestProcessHandlerBadFormField(t *testing.T) {
	s := newTestServer(&stubProcessor{resp: sampleResponse()})

	body, contentType := multipartBody(t, "sample.pdf", []byte("%PDF-fake"), map[string]string{
		"first_page": "abc",
	})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.processHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessHandlerInvalidRequestError(t *testing.T) {
	s := newTestServer(&stubProcessor{err: document.NewInvalidRequest("unknown mode %q", "turbo")})

	body, contentType := multipartBody(t, "sample.pdf", []byte("%PDF-fake"), nil)
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.processHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Contains(t, errResp.Error, "unknown mode")
}

func TestProcessHandlerProcessingError(t *testing.T) {
	s := newTestServer(&stubProcessor{err: document.NewProcessingError("recognition", assert.AnError)})

	body, contentType := multipartBody(t, "sample.pdf", []byte("%PDF-fake"), nil)
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.processHandler(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Contains(t, errResp.Error, "recognition")
	assert.NotContains(t, errResp.Error, assert.AnError.Error(), "internal detail stays out of the response")
}

func TestProcessHandlerUnreadableDocument(t *testing.T) {
	s := newTestServer(&stubProcessor{err: document.NewProcessingError("inspection", assert.AnError)})

	body, contentType := multipartBody(t, "sample.pdf", []byte("not a pdf"), nil)
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.processHandler(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Contains(t, errResp.Error, "could not be read")
}

func TestProcessHandlerMethodNotAllowed(t *testing.T) {
	s := newTestServer(&stubProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/process", nil)
	rec := httptest.NewRecorder()

	s.processHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
