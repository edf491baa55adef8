package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ent0n29/voiceagent/internal/config"
	"github.com/ent0n29/voiceagent/internal/interaction"
	"github.com/ent0n29/voiceagent/internal/observability"
	"github.com/ent0n29/voiceagent/internal/protocol"
	"github.com/ent0n29/voiceagent/internal/session"
)

// fakeOrchestrator answers a client_hello with a snapshot and treats every
// activate as a move to listening.
type fakeOrchestrator struct {
	mu     sync.Mutex
	live   map[string]interaction.Snapshot
	closed []string
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{live: make(map[string]interaction.Snapshot)}
}

func (f *fakeOrchestrator) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			switch m := msg.(type) {
			case protocol.ClientHello:
				f.mu.Lock()
				f.live[s.ID] = interaction.Initial()
				f.mu.Unlock()
				outbound <- protocol.NewStateSnapshot(s.ID, interaction.Initial())
			case protocol.ClientControl:
				if m.Action == protocol.ActionActivate {
					snap, _ := f.Activate(s.ID)
					outbound <- protocol.NewStateSnapshot(s.ID, snap)
				}
			}
		}
	}
}

func (f *fakeOrchestrator) Activate(sessionID string) (interaction.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[sessionID]; !ok {
		return interaction.Snapshot{}, fmt.Errorf("no live connection for session")
	}
	snap := interaction.Snapshot{State: interaction.StateListening, Status: interaction.StatusListening, Turn: 1}
	f.live[sessionID] = snap
	return snap, nil
}

func (f *fakeOrchestrator) Snapshot(sessionID string) (interaction.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.live[sessionID]
	return snap, ok
}

func (f *fakeOrchestrator) Close(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, sessionID)
	return true
}

func newTestServer(t *testing.T, cfg config.Config, orch Orchestrator) *httptest.Server {
	t.Helper()
	if cfg.VoiceLanguage == "" {
		cfg.VoiceLanguage = "en-US"
	}
	sessions := session.NewManager(2 * time.Minute)
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", time.Now().UnixNano()))
	srv := New(cfg, sessions, orch, metrics, "mock", zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func createSession(t *testing.T, ts *httptest.Server, body map[string]string) map[string]any {
	t.Helper()
	payload, _ := json.Marshal(body)
	res, err := http.Post(ts.URL+"/v1/voice/session", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("create session request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var created map[string]any
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if id, _ := created["session_id"].(string); id == "" {
		t.Fatalf("missing session_id in create response: %+v", created)
	}
	return created
}

func TestCreateGetAndEndSession(t *testing.T) {
	orch := newFakeOrchestrator()
	ts := newTestServer(t, config.Config{VoiceLanguage: "fr-FR"}, orch)

	created := createSession(t, ts, map[string]string{"user_id": "user-1"})
	if created["language"] != "fr-FR" || created["state"] != "idle" {
		t.Fatalf("unexpected create response: %+v", created)
	}
	sessionID := created["session_id"].(string)

	getRes, err := http.Get(ts.URL + "/v1/voice/session/" + sessionID)
	if err != nil {
		t.Fatalf("get session error = %v", err)
	}
	defer getRes.Body.Close()
	var got map[string]any
	if err := json.NewDecoder(getRes.Body).Decode(&got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if got["user_id"] != "user-1" || got["live"] != false {
		t.Fatalf("unexpected get response: %+v", got)
	}

	endRes, err := http.Post(ts.URL+"/v1/voice/session/"+sessionID+"/end", "application/json", nil)
	if err != nil {
		t.Fatalf("end session request error = %v", err)
	}
	defer endRes.Body.Close()
	if endRes.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want %d", endRes.StatusCode, http.StatusOK)
	}
	orch.mu.Lock()
	closed := append([]string(nil), orch.closed...)
	orch.mu.Unlock()
	if len(closed) != 1 || closed[0] != sessionID {
		t.Fatalf("closed = %v, want [%s]", closed, sessionID)
	}

	missing, err := http.Get(ts.URL + "/v1/voice/session/nope")
	if err != nil {
		t.Fatalf("get missing error = %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want %d", missing.StatusCode, http.StatusNotFound)
	}
}

func TestActivateRequiresLiveConnection(t *testing.T) {
	ts := newTestServer(t, config.Config{}, newFakeOrchestrator())
	sessionID := createSession(t, ts, nil)["session_id"].(string)

	res, err := http.Post(ts.URL+"/v1/voice/session/"+sessionID+"/activate", "application/json", nil)
	if err != nil {
		t.Fatalf("activate error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("activate status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestSessionWebsocketRoundTrip(t *testing.T) {
	orch := newFakeOrchestrator()
	ts := newTestServer(t, config.Config{}, orch)
	sessionID := createSession(t, ts, nil)["session_id"].(string)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/voice/session/ws?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	if err := conn.WriteJSON(map[string]any{"type": "client_hello", "session_id": sessionID, "capture": true, "synthesis": true}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	var snap map[string]any
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap["type"] != "state_snapshot" || snap["state"] != "idle" {
		t.Fatalf("unexpected first message: %+v", snap)
	}

	if err := conn.WriteJSON(map[string]any{"type": "nonsense"}); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	var errEvent map[string]any
	if err := conn.ReadJSON(&errEvent); err != nil {
		t.Fatalf("read error event: %v", err)
	}
	if errEvent["type"] != "error_event" || errEvent["code"] != "invalid_client_message" {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}

	res, err := http.Post(ts.URL+"/v1/voice/session/"+sessionID+"/activate", "application/json", nil)
	if err != nil {
		t.Fatalf("activate error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var activated struct {
		View interaction.View `json:"view"`
	}
	if err := json.NewDecoder(res.Body).Decode(&activated); err != nil {
		t.Fatalf("decode activate: %v", err)
	}
	if activated.View.AltText != "Stop Listening" {
		t.Fatalf("activate view = %+v", activated.View)
	}
}

func TestSessionWebsocketKeepaliveHoldsIdleSession(t *testing.T) {
	sessions := session.NewManager(2 * time.Minute)
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_keepalive_%d", time.Now().UnixNano()))
	orch := newFakeOrchestrator()
	srv := New(config.Config{VoiceLanguage: "en-US"}, sessions, orch, metrics, "mock", zerolog.Nop())
	srv.pingInterval = 20 * time.Millisecond
	srv.pongWait = 150 * time.Millisecond
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sess := sessions.Create("u1", "en-US")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/voice/session/ws?session_id=" + sess.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "client_hello", "session_id": sess.ID, "capture": true, "synthesis": true}); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	// Reading lets the client answer pings.
	msgs := make(chan map[string]any, 8)
	readErr := make(chan error, 1)
	go func() {
		for {
			var m map[string]any
			if err := conn.ReadJSON(&m); err != nil {
				readErr <- err
				return
			}
			msgs <- m
		}
	}()

	select {
	case <-msgs:
	case err := <-readErr:
		t.Fatalf("read snapshot: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatalf("no snapshot after hello")
	}

	// Stay idle for several read deadlines.
	select {
	case err := <-readErr:
		t.Fatalf("idle connection dropped: %v", err)
	case <-time.After(600 * time.Millisecond):
	}

	got, err := sessions.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.LastActivityAt.After(sess.LastActivityAt) {
		t.Fatalf("pongs should refresh session activity")
	}

	res, err := http.Post(ts.URL+"/v1/voice/session/"+sess.ID+"/activate", "application/json", nil)
	if err != nil {
		t.Fatalf("activate error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestSessionWebsocketUnknownSession(t *testing.T) {
	ts := newTestServer(t, config.Config{}, newFakeOrchestrator())
	res, err := http.Get(ts.URL + "/v1/voice/session/ws?session_id=missing")
	if err != nil {
		t.Fatalf("GET ws error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestUIRoutes(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	rootRes, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer rootRes.Body.Close()
	if rootRes.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("GET / status = %d, want %d", rootRes.StatusCode, http.StatusTemporaryRedirect)
	}
	if got := rootRes.Header.Get("Location"); got != "/ui/" {
		t.Fatalf("GET / location = %q, want %q", got, "/ui/")
	}

	uiRes, err := http.Get(ts.URL + "/ui/")
	if err != nil {
		t.Fatalf("GET /ui/ error = %v", err)
	}
	defer uiRes.Body.Close()
	if uiRes.StatusCode != http.StatusOK {
		t.Fatalf("GET /ui/ status = %d, want %d", uiRes.StatusCode, http.StatusOK)
	}

	var body bytes.Buffer
	if _, err := body.ReadFrom(uiRes.Body); err != nil {
		t.Fatalf("reading /ui/ body failed: %v", err)
	}
	if !strings.Contains(body.String(), "id=\"orb\"") {
		t.Fatalf("GET /ui/ body missing expected content")
	}
}

func TestOnboardingStatus(t *testing.T) {
	ts := newTestServer(t, config.Config{VoiceProvider: "mock", MockUtterance: "hello"}, nil)

	res, err := http.Get(ts.URL + "/v1/onboarding/status")
	if err != nil {
		t.Fatalf("GET /v1/onboarding/status error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var payload onboardingStatusResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.VoiceProvider != "mock" || payload.AgentBackend != "mock" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	var ids []string
	for _, c := range payload.Checks {
		ids = append(ids, c.ID+"="+c.Status)
	}
	if got := strings.Join(ids, ","); got != "voice_provider=warn,agent_endpoint=warn" {
		t.Fatalf("checks = %s", got)
	}
}

func TestDialEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	if err := dialEndpoint(ts.URL + "/agent"); err != nil {
		t.Fatalf("dialEndpoint(live) error = %v", err)
	}
	if err := dialEndpoint("not a url"); err == nil {
		t.Fatalf("dialEndpoint(invalid) should fail")
	}
}

func TestReadyRequiresOrchestrator(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)
	res, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusServiceUnavailable)
	}
}
