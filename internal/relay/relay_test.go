package relay

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestRelay(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func wsURL(httpURL, path string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + path
}

func dial(t *testing.T, httpURL, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(httpURL, path), nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// S2 — Intercepted getVersion: answered immediately with no extension
// connected.
func TestInterceptedGetVersion(t *testing.T) {
	_, srv := newTestRelay(t)

	client := dial(t, srv.URL, "/cdp")
	defer client.Close()

	require.NoError(t, client.WriteJSON(Frame{ID: 7, Method: "Browser.getVersion"}))

	got := readFrame(t, client)
	require.Equal(t, 7, got.ID)
	require.Nil(t, got.Error)

	resultBytes, err := json.Marshal(got.Result)
	require.NoError(t, err)
	require.JSONEq(t, `{"protocolVersion":"1.3","product":"Chrome/Bridge","userAgent":"CDP-Bridge/1.0"}`, string(resultBytes))
}

// S1 — Basic forwarding of a non-intercepted command through the extension.
func TestBasicForwarding(t *testing.T) {
	_, srv := newTestRelay(t)

	ext := dial(t, srv.URL, "/extension")
	defer ext.Close()

	client := dial(t, srv.URL, "/cdp")
	defer client.Close()

	require.NoError(t, client.WriteJSON(Frame{
		ID:     1,
		Method: "Page.navigate",
		Params: map[string]string{"url": "about:blank"},
	}))

	var envelope extEnvelope
	ext.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, ext.ReadJSON(&envelope))
	require.Equal(t, "forwardCDPCommand", envelope.Method)

	paramsBytes, err := json.Marshal(envelope.Params)
	require.NoError(t, err)
	var params forwardParams
	require.NoError(t, json.Unmarshal(paramsBytes, &params))
	require.Equal(t, "Page.navigate", params.Method)

	require.NoError(t, ext.WriteJSON(map[string]any{
		"id":     envelope.ID,
		"result": map[string]string{"frameId": "f1"},
	}))

	got := readFrame(t, client)
	require.Equal(t, 1, got.ID)
	resultBytes, _ := json.Marshal(got.Result)
	require.JSONEq(t, `{"frameId":"f1"}`, string(resultBytes))
}

// S3 — Auto-attach synthesis: the unsolicited attach event precedes the id
// response.
func TestAutoAttachSynthesis(t *testing.T) {
	_, srv := newTestRelay(t)

	ext := dial(t, srv.URL, "/extension")
	defer ext.Close()
	client := dial(t, srv.URL, "/cdp")
	defer client.Close()

	require.NoError(t, client.WriteJSON(Frame{
		ID:     12,
		Method: "Target.setAutoAttach",
		Params: map[string]any{"autoAttach": true, "waitForDebuggerOnStart": false, "flatten": true},
	}))

	var envelope extEnvelope
	ext.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, ext.ReadJSON(&envelope))
	require.Equal(t, "attachToTab", envelope.Method)

	require.NoError(t, ext.WriteJSON(map[string]any{
		"id": envelope.ID,
		"result": map[string]any{
			"sessionId": "S1",
			"targetInfo": map[string]any{
				"targetId": "T1", "type": "page", "title": "x", "url": "https://a",
				"attached": false, "browserContextId": "B",
			},
		},
	}))

	first := readFrame(t, client)
	require.Equal(t, "Target.attachedToTarget", first.Method)
	require.Equal(t, 0, first.ID)

	second := readFrame(t, client)
	require.Equal(t, 12, second.ID)
	require.Nil(t, second.Error)
}

// S6 — Supersede: the first client receives a 1000 close before the second
// client is used.
func TestSupersedeClosesFirstClient(t *testing.T) {
	_, srv := newTestRelay(t)

	c1 := dial(t, srv.URL, "/cdp")
	defer c1.Close()

	closeCode := make(chan int, 1)
	c1.SetCloseHandler(func(code int, text string) error {
		closeCode <- code
		return nil
	})
	go func() {
		for {
			if _, _, err := c1.ReadMessage(); err != nil {
				return
			}
		}
	}()

	c2 := dial(t, srv.URL, "/cdp")
	defer c2.Close()

	select {
	case code := <-closeCode:
		require.Equal(t, CloseSuperseded, code)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for supersede close")
	}
}

// Invalid path gets a 4004 close.
func TestInvalidPathCloses(t *testing.T) {
	_, srv := newTestRelay(t)

	conn := dial(t, srv.URL, "/not-a-real-path")
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, CloseInvalidPath, closeErr.Code)
}

// B2 — extension disconnect with a pending forward fails it with an error
// response under the original id.
func TestExtensionDisconnectFailsPending(t *testing.T) {
	_, srv := newTestRelay(t)

	ext := dial(t, srv.URL, "/extension")
	client := dial(t, srv.URL, "/cdp")
	defer client.Close()

	require.NoError(t, client.WriteJSON(Frame{ID: 5, Method: "Page.navigate"}))

	var envelope extEnvelope
	ext.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, ext.ReadJSON(&envelope))

	ext.Close()

	got := readFrame(t, client)
	require.Equal(t, 5, got.ID)
	require.NotNil(t, got.Error)
}
