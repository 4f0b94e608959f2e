package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/docslice/internal/assemble"
	"github.com/MeKo-Tech/docslice/internal/document"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers enforce CORS on the HTTP endpoints; the CORS origin
		// setting is applied there. Accept any origin for the socket itself.
		return true
	},
}

// WSProcessRequest is a processing request sent over a WebSocket. The
// document travels base64-encoded inside the JSON message; options mirror
// the multipart form fields of the HTTP endpoint.
type WSProcessRequest struct {
	DocumentName     string  `json:"document_name"`
	ContentType      string  `json:"content_type,omitempty"`
	Document         string  `json:"document"` // base64
	FirstPage        int     `json:"first_page,omitempty"`
	LastPage         int     `json:"last_page,omitempty"`
	Mode             string  `json:"mode,omitempty"`
	PageScreenshots  bool    `json:"page_screenshots,omitempty"`
	SliceScreenshots bool    `json:"slice_screenshots,omitempty"`
	ImageFormat      string  `json:"image_format,omitempty"`
	ImageQuality     int     `json:"image_quality,omitempty"`
	ImageScale       float64 `json:"image_scale,omitempty"`
}

// WSMessage is one server-to-client frame. Type is "progress", "result" or
// "error"; exactly one of the payload fields is set per type.
type WSMessage struct {
	Type     string             `json:"type"`
	State    assemble.State     `json:"state,omitempty"`
	PageNo   int                `json:"page_no,omitempty"`
	Result   *document.Response `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
	ErrClass string             `json:"error_class,omitempty"`
}

// processWebSocketHandler streams pipeline progress while a document is
// being sliced. The client sends one request message and receives progress
// frames followed by a terminal result or error frame.
func (s *Server) processWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Ping to keep the connection alive across long documents.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
			// Processing extends well past the initial read deadline.
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}

// handleWebSocketMessage runs one processing request and streams its
// progress back over the connection.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn *websocket.Conn, data []byte) {
	var wsReq WSProcessRequest
	if err := json.Unmarshal(data, &wsReq); err != nil {
		s.sendWebSocketError(conn, "invalid_request", "Failed to parse request: "+err.Error())
		return
	}

	req, err := s.requestFromWS(&wsReq)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", err.Error())
		return
	}

	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.pipeline.ProcessWithProgress(ctx, req, func(ev assemble.Event) {
		s.sendWebSocketMessage(conn, WSMessage{Type: "progress", State: ev.State, PageNo: ev.PageNo})
	})
	if err != nil {
		processRequestsTotal.WithLabelValues(string(req.Mode), "error").Inc()
		var invalid *document.InvalidRequestError
		if errors.As(err, &invalid) {
			s.sendWebSocketError(conn, "invalid_request", invalid.Reason)
		} else {
			s.sendWebSocketError(conn, "processing_error", err.Error())
		}
		return
	}

	processRequestsTotal.WithLabelValues(string(req.Mode), "success").Inc()
	processDuration.WithLabelValues(string(req.Mode)).Observe(time.Since(start).Seconds())
	s.sendWebSocketMessage(conn, WSMessage{Type: "result", Result: resp})
}

// requestFromWS converts a WebSocket request into a pipeline request,
// applying the server defaults.
func (s *Server) requestFromWS(wsReq *WSProcessRequest) (*document.Request, error) {
	if wsReq.Document == "" {
		return nil, errors.New("no document data provided")
	}
	data, err := base64.StdEncoding.DecodeString(wsReq.Document)
	if err != nil {
		return nil, errors.New("document is not valid base64")
	}

	contentType := wsReq.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	req := &document.Request{
		DocumentName:     wsReq.DocumentName,
		ContentType:      contentType,
		Data:             data,
		FirstPage:        wsReq.FirstPage,
		LastPage:         wsReq.LastPage,
		Mode:             s.defaults.Mode,
		PageScreenshots:  wsReq.PageScreenshots,
		SliceScreenshots: wsReq.SliceScreenshots,
		ImageFormat:      s.defaults.Format,
		ImageQuality:     s.defaults.Quality,
		ImageScale:       s.defaults.Scale,
	}
	if wsReq.Mode != "" {
		req.Mode = document.Mode(wsReq.Mode)
	}
	if wsReq.ImageFormat != "" {
		req.ImageFormat = document.ImageFormat(wsReq.ImageFormat)
	}
	if wsReq.ImageQuality != 0 {
		req.ImageQuality = wsReq.ImageQuality
	}
	if wsReq.ImageScale != 0 {
		req.ImageScale = wsReq.ImageScale
	}
	return req, nil
}

// sendWebSocketMessage sends one frame over the connection.
func (s *Server) sendWebSocketMessage(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error frame over the connection.
func (s *Server) sendWebSocketError(conn *websocket.Conn, errClass, message string) {
	s.sendWebSocketMessage(conn, WSMessage{Type: "error", ErrClass: errClass, Error: message})
}
