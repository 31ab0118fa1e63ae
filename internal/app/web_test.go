package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/qibla_compass/internal/geo"
	"github.com/relabs-tech/qibla_compass/internal/qibla"
)

func newTestWeb(t *testing.T) (*webServer, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>qibla</h1>"), 0o644))

	log, _ := logtest.NewNullLogger()
	srv := newWebServer(log)
	ts := httptest.NewServer(srv.routes(dir))
	t.Cleanup(ts.Close)
	return srv, ts
}

var testResult = qibla.Result{
	Location:       geo.Point{Latitude: 41.0082, Longitude: 28.9784},
	BearingDegrees: 151.623,
	DistanceKm:     2405,
	CompassPoint:   "SE",
	Declination:    5.0,
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestWebAPINoDataYet(t *testing.T) {
	_, ts := newTestWeb(t)

	for _, path := range []string{"/api/qibla", "/api/orientation"} {
		code, body := get(t, ts.URL+path)
		assert.Equal(t, http.StatusServiceUnavailable, code, path)
		assert.Equal(t, "no data yet\n", body, path)
	}
}

func TestWebAPIServesLatest(t *testing.T) {
	srv, ts := newTestWeb(t)

	srv.handleResult(nil, jsonMessage(t, "qibla/result", testResult))
	o := qibla.Orientation{MagneticHeading: 90, TrueHeading: 95, TurnAngle: 56.6}
	srv.handleOrientation(nil, jsonMessage(t, "qibla/orientation", o))

	code, body := get(t, ts.URL+"/api/qibla")
	require.Equal(t, http.StatusOK, code)
	var r qibla.Result
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	assert.Equal(t, testResult, r)

	code, body = get(t, ts.URL+"/api/orientation")
	require.Equal(t, http.StatusOK, code)
	var got qibla.Orientation
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, o, got)
}

func TestWebIgnoresMalformedPayload(t *testing.T) {
	srv, ts := newTestWeb(t)

	srv.handleResult(nil, &fakeMessage{payload: []byte("{")})

	code, _ := get(t, ts.URL+"/api/qibla")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestWebServesStaticFiles(t *testing.T) {
	_, ts := newTestWeb(t)

	code, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "qibla")
}

func dialCompass(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/compass"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func clientCount(s *webServer) int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func TestCompassWebsocket(t *testing.T) {
	srv, ts := newTestWeb(t)
	srv.handleResult(nil, jsonMessage(t, "qibla/result", testResult))

	conn := dialCompass(t, ts)

	var first wsMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "result", first.Type)
	require.NotNil(t, first.Result)
	assert.Equal(t, testResult, *first.Result)

	o := qibla.Orientation{MagneticHeading: 10, TrueHeading: 15, TurnAngle: 136.623, IsCalibrated: true}
	srv.handleOrientation(nil, jsonMessage(t, "qibla/orientation", o))

	var next wsMessage
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "orientation", next.Type)
	require.NotNil(t, next.Orientation)
	assert.Equal(t, o, *next.Orientation)
	assert.Nil(t, next.Result)
}

func TestCompassWebsocketUnregistersOnClose(t *testing.T) {
	srv, ts := newTestWeb(t)

	conn := dialCompass(t, ts)
	assert.Eventually(t, func() bool { return clientCount(srv) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return clientCount(srv) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastDropsForSlowClient(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	srv := newWebServer(log)
	_, ch := srv.addClient()

	for i := 0; i < clientBuffer+5; i++ {
		srv.broadcast(wsMessage{Type: "orientation"})
	}

	assert.Len(t, ch, clientBuffer)
}
