package server

import (
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/dsmapper/internal/gamepad"
	"github.com/soar/dsmapper/internal/hub"
)

type fixedState gamepad.State

func (f fixedState) CurrentState() gamepad.State { return gamepad.State(f) }

type quitCounter struct{ n atomic.Int32 }

func (q *quitCounter) Quit() { q.n.Add(1) }

var testFrontend = fstest.MapFS{
	"index.html": {Data: []byte(`<!DOCTYPE html>
<html>
  <head>
    <title>  Status  </title>
    <link rel="stylesheet" href="style.css">
  </head>
  <body>
    <!-- status line -->
    <p id="status">Initializing...</p>
  </body>
</html>
`)},
	"style.css": {Data: []byte("body {\n  margin: 0px;\n  color: #ff0000;\n}\n")},
	"app.js":    {Data: []byte("// feed\nfunction hello ( name ) {\n  return 'hi ' + name ;\n}\n")},
}

func newTestServer(t *testing.T, state gamepad.State, q hub.Quitter) *httptest.Server {
	t.Helper()
	h := hub.NewHub()
	go h.Run()
	b := hub.NewBroadcaster(h, nil)

	s, err := New(h, b, q, fixedState(state), testFrontend, "127.0.0.1:0")
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIndexIsMinified(t *testing.T) {
	ts := newTestServer(t, gamepad.State{}, &quitCounter{})

	resp, body := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Initializing...")
	assert.NotContains(t, body, "<!-- status line -->")
	assert.NotContains(t, body, "\n    ")
}

func TestStylesAndScriptsAreMinified(t *testing.T) {
	ts := newTestServer(t, gamepad.State{}, &quitCounter{})

	resp, css := get(t, ts.URL+"/style.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	assert.Less(t, len(css), len(testFrontend["style.css"].Data))
	assert.NotContains(t, css, "\n")

	resp, js := get(t, ts.URL+"/app.js")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.NotContains(t, js, "// feed")
	assert.Less(t, len(js), len(testFrontend["app.js"].Data))
}

func TestUnknownAssetIsNotFound(t *testing.T) {
	ts := newTestServer(t, gamepad.State{}, &quitCounter{})

	resp, _ := get(t, ts.URL+"/missing.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStateEndpoint(t *testing.T) {
	st := gamepad.State{Connected: true, Running: true, Name: "DualSense Wireless Controller", Status: "Connected: DualSense Wireless Controller"}
	st.Controls[gamepad.StickLeft] = true
	ts := newTestServer(t, st, &quitCounter{})

	resp, body := get(t, ts.URL+"/api/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, true, got["connected"])
	assert.Equal(t, "DualSense Wireless Controller", got["name"])
	assert.Equal(t, true, got["controls"].(map[string]any)["stick_left"])
}

func TestStateEndpointRejectsPost(t *testing.T) {
	ts := newTestServer(t, gamepad.State{}, &quitCounter{})

	resp, err := http.Post(ts.URL+"/api/state", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebSocketSendsStateAndAcceptsQuit(t *testing.T) {
	q := &quitCounter{}
	ts := newTestServer(t, gamepad.State{}, q)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg hub.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "full", msg.Type)
	require.NotNil(t, msg.Data)

	require.NoError(t, conn.WriteJSON(hub.ClientMessage{Type: "bogus"}))
	require.NoError(t, conn.WriteJSON(hub.ClientMessage{Type: "quit"}))
	assert.Eventually(t, func() bool { return q.n.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	q := &quitCounter{}
	ts := newTestServer(t, gamepad.State{}, q)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	hdr := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	hdr = http.Header{"Origin": []string{ts.URL}}
	conn, _, err = websocket.DefaultDialer.Dial(url, hdr)
	require.NoError(t, err)
	conn.Close()
	assert.Zero(t, q.n.Load())
}

func TestSameOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8080/ws", nil)
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "http://127.0.0.1:8080")
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "http://localhost:8080")
	assert.False(t, sameOrigin(r))

	r.Header.Set("Origin", "https://example.com")
	assert.False(t, sameOrigin(r))

	r.Header.Set("Origin", "::bad")
	assert.False(t, sameOrigin(r))
}

func TestNewFailsOnUnreadableFrontend(t *testing.T) {
	h := hub.NewHub()
	_, err := New(h, hub.NewBroadcaster(h, nil), &quitCounter{}, fixedState{}, brokenFS{}, "")
	assert.Error(t, err)
}

type brokenFS struct{}

func (brokenFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}
