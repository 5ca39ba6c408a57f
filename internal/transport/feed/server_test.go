package feed_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxen/internal/config"
	"voxen/internal/engine"
	"voxen/internal/protocol"
	"voxen/internal/registry"
	"voxen/internal/transport/feed"
	"voxen/internal/world"
)

type fixture struct {
	eng *engine.Engine
	srv *feed.Server
	ts  *httptest.Server
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Workers = 2
	cfg.TickHz = 200
	if mutate != nil {
		mutate(&cfg)
	}

	eng := engine.New(cfg, registry.Default(), nil)
	srv := feed.NewServer(eng, cfg.Feed, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.Handler())
	ts := httptest.NewServer(mux)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
		eng.Close()
	})
	return &fixture{eng: eng, srv: srv, ts: ts}
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return c
}

func subscribe(t *testing.T, c *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	sub := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, Name: "test"}
	if err := c.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	var welcome protocol.WelcomeMsg
	if err := c.ReadJSON(&welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	return welcome
}

// readFrames pulls binary messages until fn reports done or the deadline hits.
func readFrames(t *testing.T, c *websocket.Conn, fn func(protocol.Frame) bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	_ = c.SetReadDeadline(deadline)
	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if fn(frame) {
			return
		}
	}
}

func TestSubscribeReceivesSnapshot(t *testing.T) {
	f := newFixture(t, nil)

	stone, _ := f.eng.Registry().Get(registry.StoneID)
	f.eng.Commands() <- engine.Command{Kind: engine.CommandEdit, Edits: []world.Edit{{X: 1, Y: 1, Z: 1, V: stone.Voxel()}}}

	deadline := time.Now().Add(3 * time.Second)
	for f.eng.Stats().MeshesApplied == 0 {
		if time.Now().After(deadline) {
			t.Fatal("mesh never applied")
		}
		time.Sleep(time.Millisecond)
	}

	c := dial(t, f.ts)
	defer c.Close()
	welcome := subscribe(t, c)

	if !strings.HasPrefix(welcome.SessionID, "F") {
		t.Fatalf("session id = %q", welcome.SessionID)
	}
	if welcome.WorldID != f.eng.ID.String() {
		t.Fatalf("world id = %q, want %q", welcome.WorldID, f.eng.ID.String())
	}
	if welcome.ChunkSize != world.ChunkSize {
		t.Fatalf("chunk size = %d, want %d", welcome.ChunkSize, world.ChunkSize)
	}

	var gotCreated, gotMesh bool
	readFrames(t, c, func(frame protocol.Frame) bool {
		if frame.Coord != (world.ChunkCoord{}) {
			return false
		}
		switch frame.Kind {
		case protocol.FrameChunkCreated:
			gotCreated = true
		case protocol.FrameMeshUpdate:
			if n := frame.Mesh.FaceCount(); n != 6 {
				t.Fatalf("snapshot mesh has %d faces, want 6", n)
			}
			gotMesh = true
		}
		return gotCreated && gotMesh
	})
}

func TestEditFlowsBackAsMeshFrame(t *testing.T) {
	f := newFixture(t, nil)

	c := dial(t, f.ts)
	defer c.Close()
	subscribe(t, c)

	edit := protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		Edits:           []protocol.EditCell{{X: 2, Y: 3, Z: 4, Block: uint8(registry.StoneID)}},
	}
	if err := c.WriteJSON(edit); err != nil {
		t.Fatalf("write edit: %v", err)
	}

	readFrames(t, c, func(frame protocol.Frame) bool {
		if frame.Kind != protocol.FrameMeshUpdate || frame.Coord != (world.ChunkCoord{}) {
			return false
		}
		if n := frame.Mesh.FaceCount(); n != 6 {
			t.Fatalf("mesh has %d faces, want 6", n)
		}
		return true
	})

	if got := f.srv.Stats().EditsIn; got != 1 {
		t.Fatalf("EditsIn = %d, want 1", got)
	}
}

func TestActorMessageReachesEngine(t *testing.T) {
	f := newFixture(t, nil)

	c := dial(t, f.ts)
	defer c.Close()
	subscribe(t, c)

	actor := protocol.ActorMsg{Type: protocol.TypeActor, ProtocolVersion: protocol.Version, Pos: [3]float64{40.5, 8, 8}}
	if err := c.WriteJSON(actor); err != nil {
		t.Fatalf("write actor: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for f.srv.Stats().ActorsIn == 0 {
		if time.Now().After(deadline) {
			t.Fatal("actor message never forwarded")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestUnknownBlockRejected(t *testing.T) {
	f := newFixture(t, nil)

	c := dial(t, f.ts)
	defer c.Close()
	subscribe(t, c)

	edit := protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		Edits:           []protocol.EditCell{{X: 0, Y: 0, Z: 0, Block: 200}},
	}
	if err := c.WriteJSON(edit); err != nil {
		t.Fatalf("write edit: %v", err)
	}

	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	mt, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.TextMessage {
		t.Fatalf("message type = %d, want text", mt)
	}
	var em protocol.ErrorMsg
	if err := json.Unmarshal(data, &em); err != nil {
		t.Fatalf("unmarshal error msg: %v", err)
	}
	if em.Type != protocol.TypeError || em.Code != protocol.ErrBadRequest {
		t.Fatalf("error = %+v", em)
	}
	if got := f.eng.Stats().EditsApplied; got != 0 {
		t.Fatalf("EditsApplied = %d, want 0", got)
	}
}

func TestRejectsWrongProtocolVersion(t *testing.T) {
	f := newFixture(t, nil)

	c := dial(t, f.ts)
	defer c.Close()
	sub := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: "0"}
	if err := c.WriteJSON(sub); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := c.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err = %v, want policy violation close", err)
	}
}

func TestRejectsNonSubscribeFirstMessage(t *testing.T) {
	f := newFixture(t, nil)

	c := dial(t, f.ts)
	defer c.Close()
	actor := protocol.ActorMsg{Type: protocol.TypeActor, ProtocolVersion: protocol.Version}
	if err := c.WriteJSON(actor); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := c.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err = %v, want policy violation close", err)
	}
}

func TestSessionCap(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Feed.MaxSessions = 1
	})

	first := dial(t, f.ts)
	defer first.Close()
	subscribe(t, first)

	second := dial(t, f.ts)
	defer second.Close()
	sub := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version}
	if err := second.WriteJSON(sub); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = second.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := second.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Fatalf("err = %v, want try-again-later close", err)
	}

	if got := f.srv.Stats().Sessions; got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}
}

func TestRemoteForbiddenByDefault(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "203.0.113.9:44321"
	rec := httptest.NewRecorder()
	f.srv.Handler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestAllowRemoteOverridesLoopbackCheck(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Feed.AllowRemote = true
	})

	// Not a websocket upgrade, so the handler falls through to the upgrader,
	// which rejects it; the loopback gate no longer answers 403.
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "203.0.113.9:44321"
	rec := httptest.NewRecorder()
	f.srv.Handler()(rec, req)
	if rec.Code == http.StatusForbidden {
		t.Fatal("remote still forbidden with allow_remote set")
	}
}
