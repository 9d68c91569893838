package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"selenex/internal/api/handlers"
	"selenex/internal/capture"
	"selenex/internal/models"
	"selenex/internal/recorder"
	"selenex/pkg/auth"
	"selenex/pkg/database"
)

const goPage = `<html><head><title>Go</title></head><body><main><button id="go">Go</button></main></body></html>`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	token   string
	manager *recorder.Manager
}

func newTestServer(t *testing.T, issuer *auth.Issuer) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	manager := recorder.NewManager(recorder.Options{Capture: capture.DefaultOptions()}, zap.NewNop())
	t.Cleanup(manager.Shutdown)
	h := handlers.NewRecordingHandler(manager, database.NewSessionStore(db), "", zap.NewNop())
	return &testServer{t: t, router: SetupRoutes(h, issuer, zap.NewNop()), manager: manager}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) call(method, path string, body interface{}) envelope {
	s.t.Helper()
	w := s.do(method, path, body)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (s *testServer) startRemote() string {
	s.t.Helper()
	env := s.call(http.MethodPost, "/api/v1/recording/remote", gin.H{"url": "https://app.test/"})
	require.Equal(s.t, 200, env.Code, env.Message)
	var data struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.SessionID
}

func clickGo(ts int64) capture.RawEvent {
	return capture.RawEvent{Type: capture.EventClick, TargetPath: []int{1, 0, 0}, HTML: goPage, URL: "https://app.test/", Timestamp: ts}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	env := s.call(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, 200, env.Code)
	assert.Contains(t, string(env.Data), `"status":"healthy"`)
}

func TestRemoteRecordingFlow(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.startRemote()

	env := s.call(http.MethodPost, "/api/v1/recording/events", gin.H{
		"session_id": id,
		"events":     []capture.RawEvent{clickGo(1000), {Type: capture.EventKeydown, Key: "a", URL: "u"}},
	})
	require.Equal(t, 200, env.Code, env.Message)
	assert.JSONEq(t, `{"received":2,"recorded":1}`, string(env.Data))

	env = s.call(http.MethodGet, "/api/v1/recording/status?session_id="+id, nil)
	var status struct {
		Status  recorder.Status       `json:"status"`
		Actions []models.ActionRecord `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.Status.IsRecording)
	require.Len(t, status.Actions, 1)
	assert.Equal(t, "BUTTON", status.Actions[0].ElementContext.Tag)

	env = s.call(http.MethodPost, "/api/v1/recording/stop", gin.H{"session_id": id})
	require.Equal(t, 200, env.Code, env.Message)
	assert.JSONEq(t, fmt.Sprintf(`{"session_id":%q,"action_count":1}`, id), string(env.Data))

	env = s.call(http.MethodPost, "/api/v1/recording/stop", gin.H{"session_id": id})
	assert.Equal(t, 400, env.Code, "second stop")

	env = s.call(http.MethodPost, "/api/v1/recording/events", gin.H{"session_id": id, "events": []capture.RawEvent{clickGo(2000)}})
	assert.Equal(t, 400, env.Code, "ingest after stop")

	w := s.do(http.MethodGet, "/api/v1/sessions/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="session.json"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "[\n  {\n    \"action\": \"click\""), w.Body.String())

	var exported []models.ActionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "go", *exported[0].ElementContext.Attributes.ID)

	live := s.do(http.MethodGet, "/api/v1/recording/export?session_id="+id, nil)
	assert.Equal(t, w.Body.String(), live.Body.String(), "tracked recorder exports the same artifact")

	env = s.call(http.MethodGet, "/api/v1/sessions?page=1&page_size=5", nil)
	assert.Contains(t, string(env.Data), `"total":1`)

	env = s.call(http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, 200, env.Code)
	assert.Contains(t, string(env.Data), `"status":"stopped"`)
	assert.Contains(t, string(env.Data), `"action_count":1`)

	env = s.call(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, 200, env.Code)
	assert.False(t, s.manager.Has(id))
	env = s.call(http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, 404, env.Code)
}

func TestExportEmptySession(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.startRemote()

	env := s.call(http.MethodGet, "/api/v1/recording/export?session_id="+id, nil)
	assert.Equal(t, 400, env.Code)
	assert.Equal(t, "No session data found!", env.Message)

	s.call(http.MethodPost, "/api/v1/recording/stop", gin.H{"session_id": id})
	env = s.call(http.MethodGet, "/api/v1/sessions/"+id+"/export", nil)
	assert.Equal(t, 400, env.Code)
	assert.Equal(t, "No session data found!", env.Message)
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t, nil)

	env := s.call(http.MethodPost, "/api/v1/recording/events", gin.H{"session_id": "ghost", "events": []capture.RawEvent{}})
	assert.Equal(t, 404, env.Code)

	env = s.call(http.MethodPost, "/api/v1/recording/stop", gin.H{})
	assert.Equal(t, 400, env.Code)

	env = s.call(http.MethodGet, "/api/v1/recording/status", nil)
	assert.Equal(t, 400, env.Code)

	env = s.call(http.MethodPost, "/api/v1/recording/start", gin.H{"url": "not a url"})
	assert.Equal(t, 400, env.Code)

	env = s.call(http.MethodPost, "/api/v1/recording/start", gin.H{"url": "https://app.test/", "device": "Nokia 3310"})
	assert.Equal(t, 400, env.Code)
	assert.Contains(t, env.Message, "unknown device")

	id := s.startRemote()
	env = s.call(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, 409, env.Code)
}

func TestRemoteStartWithoutBody(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recording/remote", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"code":200`)
}

func TestAuthentication(t *testing.T) {
	issuer := auth.NewIssuer("s3cret", time.Hour)
	s := newTestServer(t, issuer)

	env := s.call(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, 200, env.Code, "health is public")

	env = s.call(http.MethodGet, "/api/v1/sessions", nil)
	assert.Equal(t, 401, env.Code)

	s.token = "garbage"
	env = s.call(http.MethodGet, "/api/v1/sessions", nil)
	assert.Equal(t, 401, env.Code)

	token, err := issuer.GenerateToken("tester")
	require.NoError(t, err)
	s.token = token
	env = s.call(http.MethodGet, "/api/v1/sessions", nil)
	assert.Equal(t, 200, env.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodOptions, "/api/v1/recording/start", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecordingWebSocketStreamsRecords(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.startRemote()

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/recording?session_id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	received := make(chan models.ActionRecord, 16)
	go func() {
		defer close(received)
		for {
			var rec models.ActionRecord
			if err := conn.ReadJSON(&rec); err != nil {
				return
			}
			received <- rec
		}
	}()

	// The subscription lands shortly after the handshake, so keep clicking until one arrives.
	var got models.ActionRecord
	require.Eventually(t, func() bool {
		s.call(http.MethodPost, "/api/v1/recording/events", gin.H{"session_id": id, "events": []capture.RawEvent{clickGo(0)}})
		select {
		case got = <-received:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, models.ActionClick, got.Action)
	assert.Equal(t, "BUTTON", got.ElementContext.Tag)
}

func TestRecordingWebSocketUnknownSession(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws/recording?session_id=ghost", nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg map[string]string
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "Recording session not found", msg["error"])
}
