// Package relay implements the CDP Relay Server (spec.md §4.1): a
// two-endpoint WebSocket server that bridges a CDP client to a single
// browser-extension peer, intercepting a small command table and
// synthesizing auto-attach notifications.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/vibetemplate/prompthub/internal/events"
	"github.com/vibetemplate/prompthub/internal/logging"
)

// Close codes (spec.md §6).
const (
	CloseSuperseded   = 1000
	reasonSuperseded  = "New connection established"
	CloseInvalidPath  = 4004
	reasonInvalidPath = "Invalid path"
)

const pendingCallTimeout = 30 * time.Second

// clientTopic is the single internal/events topic a relay instance
// publishes outbound client frames on. There is at most one CDP client per
// instance (spec.md §3, "RelaySession"), so one topic suffices.
const clientTopic = "cdp.client"

// state names the relay's lifecycle (spec.md §4.1). DRAIN is not stored as
// a distinct value: it is the instantaneous transition performed inside
// the disconnect handlers before the state is recomputed from the
// remaining socket.
type state int32

const (
	stateInit state = iota
	stateWaitExt
	statePaired
	stateActive
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case stateWaitExt:
		return "WAIT_EXT"
	case statePaired:
		return "PAIRED"
	case stateActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Frame is the wire shape on the client<->relay socket (spec.md §6,
// "CDPFrame") and also the inner payload carried by extension envelopes.
type Frame struct {
	ID        int         `json:"id,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Method    string      `json:"method,omitempty"`
	Params    any         `json:"params,omitempty"`
	Result    any         `json:"result,omitempty"`
	Error     *FrameError `json:"error,omitempty"`
}

// FrameError is the error shape of a Frame (spec.md §6).
type FrameError struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// Attachment is the relay's cached record of the tab under debug (spec.md
// §3, "TargetAttachment").
type Attachment struct {
	SessionID  string          `json:"sessionId"`
	TargetInfo json.RawMessage `json:"targetInfo"`
}

type extEnvelope struct {
	ID        int    `json:"id,omitempty"`
	Method    string `json:"method,omitempty"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type forwardParams struct {
	SessionID string `json:"sessionId,omitempty"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
}

type extInboundMessage struct {
	ID     int             `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *FrameError     `json:"error,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

type extEventParams struct {
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type pendingCall struct {
	resolve chan json.RawMessage
	reject  chan error
	timer   *time.Timer
}

// sensitiveMethods are CDP methods whose forwarding is audit-logged at
// warn level rather than info (mirrors the teacher's audit.go).
var sensitiveMethods = map[string]bool{
	"Runtime.evaluate":            true,
	"Runtime.callFunctionOn":      true,
	"Page.navigate":               true,
	"Network.setCookie":           true,
	"Network.deleteCookies":       true,
	"Network.setExtraHTTPHeaders": true,
	"Storage.clearDataForOrigin":  true,
	"Input.dispatchKeyEvent":      true,
	"Fetch.fulfillRequest":        true,
	"Security.setIgnoreCertErrors":  true,
	"Emulation.setUserAgentOverride": true,
}

var browserVersionResult = map[string]string{
	"protocolVersion": "1.3",
	"product":         "Chrome/Bridge",
	"userAgent":       "CDP-Bridge/1.0",
}

// Server is one relay instance: at most one CDP client socket and at most
// one extension socket (spec.md §3, invariant I2).
type Server struct {
	log *slog.Logger

	mu         sync.Mutex
	state      state
	clientConn *websocket.Conn
	extConn    *websocket.Conn
	attachment *Attachment
	pending    map[int]*pendingCall
	nextID     int
	extReady   chan struct{} // closed when the extension attaches; replaced on detach

	extWriteMu sync.Mutex

	clientEvents *events.Subject
	upgrader     websocket.Upgrader
}

// New constructs an unstarted relay. Call Handler (to mount on an existing
// server) or Listen (to bind its own loopback listener).
func New() *Server {
	return &Server{
		log:      logging.Named("cdp-relay"),
		state:    stateInit,
		pending:  make(map[int]*pendingCall),
		nextID:   1,
		extReady: make(chan struct{}),
		clientEvents: events.NewSubject(
			events.WithSyncDelivery(),
			events.WithBufferSize(64),
		),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// State reports the relay's current lifecycle state, for tests and
// diagnostics.
func (s *Server) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.String()
}

// ExtensionConnected reports whether an extension peer is currently attached.
func (s *Server) ExtensionConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extConn != nil
}

// Handler returns an http.Handler exposing /cdp and /extension; any other
// path is closed with code 4004 (spec.md §4.1).
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.HandleFunc("/cdp", s.handleCDP)
	r.HandleFunc("/extension", s.handleExtension)
	r.NotFound(s.handleInvalidPath)
	return r
}

// Listen binds a TCP listener at addr (use "127.0.0.1:0" for an
// OS-assigned port, per spec.md §4.5's port-discovery step) and serves the
// relay until the returned stop function is called.
func (s *Server) Listen(addr string) (net.Addr, func() error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("relay listen: %w", err)
	}

	httpServer := &http.Server{Handler: s.Handler()}
	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("relay server error", "error", err)
		}
	}()

	stop := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
	return ln.Addr(), stop, nil
}

func (s *Server) handleInvalidPath(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseInvalidPath, reasonInvalidPath),
		time.Now().Add(time.Second))
	conn.Close()
}

func (s *Server) transitionLocked() {
	hasClient := s.clientConn != nil
	hasExt := s.extConn != nil
	switch {
	case hasClient && hasExt:
		s.state = stateActive
	case hasClient && !hasExt:
		s.state = stateWaitExt
	case !hasClient && hasExt:
		s.state = statePaired
	default:
		s.state = stateInit
	}
}

// --- extension endpoint -----------------------------------------------

func (s *Server) handleExtension(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	prior := s.extConn
	s.extConn = conn
	select {
	case <-s.extReady:
	default:
		close(s.extReady)
	}
	s.transitionLocked()
	s.mu.Unlock()

	if prior != nil {
		_ = prior.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseSuperseded, reasonSuperseded),
			time.Now().Add(time.Second))
		prior.Close()
	}
	s.log.Info("extension connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleExtensionMessage(data)
	}

	s.log.Info("extension disconnected")
	s.mu.Lock()
	if s.extConn == conn {
		s.extConn = nil
		s.extReady = make(chan struct{})
	}
	s.attachment = nil
	for id, p := range s.pending {
		p.timer.Stop()
		select {
		case p.reject <- fmt.Errorf("WebSocket closed"):
		default:
		}
		delete(s.pending, id)
	}
	s.transitionLocked()
	s.mu.Unlock()
}

func (s *Server) handleExtensionMessage(data []byte) {
	var msg extInboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("malformed extension frame, closing socket", "error", err)
		s.closeExtensionSocket()
		return
	}

	if msg.ID != 0 {
		s.mu.Lock()
		p := s.pending[msg.ID]
		delete(s.pending, msg.ID)
		s.mu.Unlock()
		if p == nil {
			s.log.Warn("extension reply with unknown id, dropped", "id", msg.ID)
			return
		}
		p.timer.Stop()
		if msg.Error != nil {
			p.reject <- fmt.Errorf("%s", msg.Error.Message)
		} else {
			p.resolve <- msg.Result
		}
		return
	}

	switch msg.Method {
	case "detachedFromTab":
		s.mu.Lock()
		s.attachment = nil
		s.mu.Unlock()
		s.closeExtensionSocket()
	case "forwardCDPEvent":
		var params extEventParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return
		}
		s.replyToClient(Frame{
			SessionID: params.SessionID,
			Method:    params.Method,
			Params:    json.RawMessage(params.Params),
		})
	}
}

func (s *Server) closeExtensionSocket() {
	s.mu.Lock()
	conn := s.extConn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// --- cdp client endpoint ------------------------------------------------

func (s *Server) handleCDP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	prior := s.clientConn
	s.clientConn = conn
	s.transitionLocked()
	s.mu.Unlock()

	if prior != nil {
		_ = prior.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseSuperseded, reasonSuperseded),
			time.Now().Add(time.Second))
		prior.Close()
	}
	s.log.Info("cdp client connected")

	sub := events.Subscribe[Frame](s.clientEvents, clientTopic, func(_ context.Context, f Frame) error {
		return conn.WriteJSON(f)
	})
	defer sub.Unsubscribe()

	done := make(chan struct{})
	cmds := make(chan Frame, 32)

	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame Frame
			if err := json.Unmarshal(data, &frame); err != nil {
				s.log.Warn("malformed client frame, closing socket", "error", err)
				conn.Close()
				return
			}
			select {
			case cmds <- frame:
			case <-done:
				return
			}
		}
	}()

loop:
	for {
		select {
		case frame := <-cmds:
			s.handleClientCommand(done, frame)
		case <-done:
			break loop
		}
	}

	s.log.Info("cdp client disconnected")
	s.mu.Lock()
	if s.clientConn == conn {
		s.clientConn = nil
	}
	s.transitionLocked()
	s.mu.Unlock()

	// Best-effort: tell the extension to detach its debugger now that no
	// CDP client is attached (spec.md §4.1).
	_ = s.writeExtension(extEnvelope{Method: "detachFromTab"})
}

func (s *Server) replyToClient(f Frame) {
	events.Emit(s.clientEvents, clientTopic, f)
}

func (s *Server) handleClientCommand(done <-chan struct{}, frame Frame) {
	switch {
	case frame.Method == "Browser.getVersion":
		s.replyToClient(Frame{ID: frame.ID, Result: browserVersionResult})
	case frame.Method == "Browser.setDownloadBehavior":
		s.replyToClient(Frame{ID: frame.ID, Result: map[string]any{}})
	case frame.Method == "Target.setAutoAttach" && frame.SessionID == "":
		s.handleAutoAttach(done, frame)
	case frame.Method == "Target.getTargetInfo":
		s.replyTargetInfo(frame)
	default:
		s.auditLog(frame.Method, frame.SessionID)
		s.forwardCommand(done, frame)
	}
}

func (s *Server) auditLog(method, sessionID string) {
	attrs := []any{"method", method}
	if sessionID != "" {
		attrs = append(attrs, "session", sessionID)
	}
	if sensitiveMethods[method] {
		s.log.Warn("cdp_sensitive_command", attrs...)
	} else {
		s.log.Info("cdp_command", attrs...)
	}
}

func (s *Server) replyTargetInfo(frame Frame) {
	s.mu.Lock()
	att := s.attachment
	s.mu.Unlock()
	if att == nil {
		s.replyToClient(Frame{ID: frame.ID, Error: &FrameError{Message: "no attachment recorded"}})
		return
	}
	s.replyToClient(Frame{
		ID:     frame.ID,
		Result: map[string]any{"targetInfo": json.RawMessage(att.TargetInfo)},
	})
}

func (s *Server) handleAutoAttach(done <-chan struct{}, frame Frame) {
	result, err := s.callExtension(done, "attachToTab", nil)
	if err != nil {
		s.replyToClient(Frame{ID: frame.ID, Error: &FrameError{Message: err.Error()}})
		return
	}

	var att Attachment
	if err := json.Unmarshal(result, &att); err != nil {
		s.replyToClient(Frame{ID: frame.ID, Error: &FrameError{Message: "malformed attachToTab reply"}})
		return
	}

	s.mu.Lock()
	s.attachment = &att
	s.mu.Unlock()

	// Unsolicited attach notification is delivered before the id response
	// (spec.md scenario S3).
	s.replyToClient(Frame{
		Method: "Target.attachedToTarget",
		Params: map[string]any{
			"sessionId":          att.SessionID,
			"targetInfo":         withAttachedTrue(att.TargetInfo),
			"waitingForDebugger": false,
		},
	})
	s.replyToClient(Frame{ID: frame.ID, Result: map[string]any{}})
}

func withAttachedTrue(raw json.RawMessage) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		m = map[string]any{}
	}
	m["attached"] = true
	return m
}

func (s *Server) forwardCommand(done <-chan struct{}, frame Frame) {
	result, err := s.callExtension(done, "forwardCDPCommand", forwardParams{
		SessionID: frame.SessionID,
		Method:    frame.Method,
		Params:    frame.Params,
	})
	if err != nil {
		s.replyToClient(Frame{ID: frame.ID, SessionID: frame.SessionID, Error: &FrameError{Message: err.Error()}})
		return
	}
	var decoded any
	if len(result) > 0 {
		_ = json.Unmarshal(result, &decoded)
	}
	s.replyToClient(Frame{ID: frame.ID, SessionID: frame.SessionID, Result: decoded})
}

// callExtension awaits extension readiness, then sends an envelope and
// blocks for its correlated reply, the client's disconnect, or a timeout
// — whichever happens first (spec.md §4.1 "readiness synchronization",
// §5 "suspension points").
func (s *Server) callExtension(done <-chan struct{}, method string, params any) (json.RawMessage, error) {
	s.mu.Lock()
	ready := s.extReady
	s.mu.Unlock()

	select {
	case <-ready:
	case <-done:
		return nil, fmt.Errorf("client disconnected before command could be processed")
	}

	s.mu.Lock()
	conn := s.extConn
	s.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("Extension disconnected before command could be processed")
	}

	id := s.allocID()
	resolve := make(chan json.RawMessage, 1)
	reject := make(chan error, 1)
	timer := time.AfterFunc(pendingCallTimeout, func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		select {
		case reject <- fmt.Errorf("extension request timeout"):
		default:
		}
	})

	s.mu.Lock()
	s.pending[id] = &pendingCall{resolve: resolve, reject: reject, timer: timer}
	s.mu.Unlock()

	if err := s.writeExtension(extEnvelope{ID: id, Method: method, Params: params}); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		timer.Stop()
		return nil, err
	}

	select {
	case res := <-resolve:
		return res, nil
	case err := <-reject:
		return nil, err
	case <-done:
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		timer.Stop()
		return nil, fmt.Errorf("client disconnected before command could be processed")
	}
}

func (s *Server) writeExtension(v any) error {
	s.mu.Lock()
	conn := s.extConn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("extension not connected")
	}
	s.extWriteMu.Lock()
	defer s.extWriteMu.Unlock()
	return conn.WriteJSON(v)
}

func (s *Server) allocID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}
