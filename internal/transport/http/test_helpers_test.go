package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/vovakirdan/loungecore/internal/auth"
	"github.com/vovakirdan/loungecore/internal/config"
	"github.com/vovakirdan/loungecore/internal/core"
	"github.com/vovakirdan/loungecore/internal/preview"
	"github.com/vovakirdan/loungecore/internal/proto"
)

const testPassword = "hunter22"

type testServer struct {
	ts      *httptest.Server
	auth    *auth.Service
	network *core.Network
	account *core.Account
	storage *preview.Storage
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Prefetch = true
	cfg.PrefetchStorage = true

	storage, err := preview.New(afero.NewMemMapFs(), "/storage", &logger)
	if err != nil {
		t.Fatalf("preview storage: %v", err)
	}
	svc := &core.Services{
		Options:    cfg.Options(),
		ChannelIDs: core.NewIDAllocator(),
		MessageIDs: core.NewIDAllocator(),
		Previews:   storage,
		Thumbnails: storage,
		Log:        &logger,
	}

	account, err := core.NewAccount(core.AccountConfig{Name: "alice"}, &logger)
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	network, err := core.NewNetwork(svc, account, core.NetworkConfig{Name: "libera", Host: "irc.libera.chat", Nick: "alice"})
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	hub := core.NewHub([]*core.Account{account}, &logger)

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	authService := auth.NewService(map[string]string{"alice": hash}, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		network.Run(ctx)
	}()

	ts := httptest.NewServer(NewServer(hub, authService, storage, &cfg, &logger).Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		wg.Wait()
	})

	return &testServer{ts: ts, auth: authService, network: network, account: account, storage: storage}
}

func (s *testServer) token(t *testing.T) string {
	t.Helper()

	token, err := s.auth.Login("alice", testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *stdhttp.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := stdhttp.NewRequest(method, s.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) ingest(t *testing.T, token string, ev proto.IRCEvent) {
	t.Helper()

	resp := s.do(t, stdhttp.MethodPost, "/api/networks/"+s.network.ID.String()+"/events", token, ev)
	if resp.StatusCode != stdhttp.StatusAccepted {
		t.Fatalf("ingest %s: unexpected status %d", ev.Type, resp.StatusCode)
	}
}

func decodeJSON(t *testing.T, resp *stdhttp.Response, v any) {
	t.Helper()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// rawOutbound mirrors proto.Outbound with undecoded data.
type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func (s *testServer) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// readEvent reads until an event with the given name arrives and decodes
// its data into v.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, v any) {
	t.Helper()

	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %s: %v", name, err)
		}
		if out.Type != proto.OutboundTypeEvent || out.Event != name {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(out.Data, v); err != nil {
				t.Fatalf("decode %s: %v", name, err)
			}
		}
		return
	}
}

func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for error: %v", err)
		}
		if out.Type == proto.OutboundTypeError {
			return out.Error
		}
	}
}
