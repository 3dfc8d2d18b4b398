package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/picotune/pkg/bus"
	"github.com/sipeed/picotune/pkg/config"
	"github.com/sipeed/picotune/pkg/settings"
)

type fakeCalls int

func (f fakeCalls) Count() int { return int(f) }

type fakeRooms []string

func (f fakeRooms) Rooms() []string { return f }

type fakeGuilds struct {
	err    error
	guilds []settings.Guild
}

func (f *fakeGuilds) Health(ctx context.Context) error { return f.err }

func (f *fakeGuilds) List(ctx context.Context) ([]settings.Guild, error) {
	return f.guilds, f.err
}

func newTestServer(t *testing.T, key string, guilds *fakeGuilds) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(config.DashboardConfig{APIKey: key}, bus.NewMessageBus(), Deps{
		Calls:  fakeCalls(2),
		Rooms:  fakeRooms{"g1"},
		Guilds: guilds,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealthIsPublic(t *testing.T) {
	_, ts := newTestServer(t, "secret", &fakeGuilds{})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	code, body := getJSON(t, req)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestHealthReportsStorageFailure(t *testing.T) {
	_, ts := newTestServer(t, "", &fakeGuilds{err: errors.New("disk full")})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	code, body := getJSON(t, req)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])
}

func TestStatusRequiresToken(t *testing.T) {
	_, ts := newTestServer(t, "secret", &fakeGuilds{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	code, _ := getJSON(t, req)
	assert.Equal(t, http.StatusUnauthorized, code)

	for _, set := range []func(r *http.Request){
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") },
		func(r *http.Request) { r.Header.Set("X-API-Key", "secret") },
		func(r *http.Request) { r.URL.RawQuery = "token=secret" },
	} {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
		set(req)
		code, body := getJSON(t, req)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 2, body["active_calls"])
		assert.Equal(t, []interface{}{"g1"}, body["notifier_rooms"])
		assert.Equal(t, "0m", body["uptime"])
	}
}

func TestGuildsListing(t *testing.T) {
	guilds := &fakeGuilds{guilds: []settings.Guild{
		{GuildID: "g1", StatusChannelID: "c1", NotifierEnabled: true, UpdatedAt: time.Now().Add(-time.Hour)},
	}}
	_, ts := newTestServer(t, "", guilds)

	resp, err := http.Get(ts.URL + "/api/guilds")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "c1", body[0]["status_channel_id"])
	assert.Equal(t, "1 hour ago", body[0]["updated"])
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t, "secret", &fakeGuilds{})
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func readEvent(t *testing.T, conn *websocket.Conn) WSEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev WSEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWebSocketStreamsSystemEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgBus := bus.NewMessageBus()
	s := NewServer(config.DashboardConfig{APIKey: "secret"}, msgBus, Deps{Calls: fakeCalls(1)})
	go s.wsHub.Run(ctx)
	s.eventBridge.Run(ctx)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token=secret", nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readEvent(t, conn)
	assert.Equal(t, "initial_state", initial.Type)
	assert.EqualValues(t, 1, initial.Data.(map[string]interface{})["active_calls"])

	msgBus.PublishSystem(bus.SystemEvent{
		Type:   "notifier.sent",
		Source: "notifier",
		Data:   map[string]interface{}{"room_id": "g1"},
	})

	ev := readEvent(t, conn)
	assert.Equal(t, "notifier.sent", ev.Type)
	data := ev.Data.(map[string]interface{})
	assert.Equal(t, "notifier", data["source"])
	assert.Equal(t, "g1", data["data"].(map[string]interface{})["room_id"])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5m", formatDuration(5*time.Minute))
	assert.Equal(t, "2h 3m", formatDuration(2*time.Hour+3*time.Minute))
	assert.Equal(t, "1d 1h 0m", formatDuration(25*time.Hour))
}
