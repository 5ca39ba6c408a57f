// Package feed streams engine output to websocket subscribers and forwards
// their input back in. Subscribers receive chunk meshes as compressed binary
// frames and may drive the world with EDIT and ACTOR messages; the engine
// consumes those on its own goroutine, so the feed never touches simulation
// state directly.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"voxen/internal/config"
	"voxen/internal/engine"
	"voxen/internal/protocol"
	"voxen/internal/world"
)

const (
	// frameQueueSize absorbs the snapshot burst on join; a subscriber that
	// falls further behind than this starts losing frames.
	frameQueueSize = 4096
	ctlQueueSize   = 16
	// maxEditBatch caps cells per EDIT message.
	maxEditBatch = 4096
)

type session struct {
	id     string
	frames chan []byte // binary mesh frames
	ctl    chan []byte // JSON control replies
}

// Server owns the websocket endpoint and the subscriber set.
type Server struct {
	engine *engine.Engine
	cfg    config.Feed
	log    *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*session

	framesSent    atomic.Uint64
	framesDropped atomic.Uint64
	editsIn       atomic.Uint64
	actorsIn      atomic.Uint64
	rejects       atomic.Uint64
}

// Stats is a point-in-time copy of the feed counters.
type Stats struct {
	Sessions      int
	FramesSent    uint64
	FramesDropped uint64
	EditsIn       uint64
	ActorsIn      uint64
	Rejects       uint64
}

// NewServer wires a feed onto eng. Call it before the engine starts ticking
// so the event sink registration does not race the simulation goroutine.
func NewServer(eng *engine.Engine, cfg config.Feed, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		engine:   eng,
		cfg:      cfg,
		log:      logger,
		sessions: make(map[string]*session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	eng.OnEvent(s.broadcast)
	return s
}

// Handler returns the websocket endpoint.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.cfg.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		defer s.remove(sess.id)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine. Control replies go out as text, frames as binary.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.ctl:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				case b := <-sess.frames:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
						writeErr <- err
						return
					}
					s.framesSent.Add(1)
				}
			}
		}()

		s.readLoop(conn, sess)

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait so the writer does not outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Stats returns a copy of the counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	return Stats{
		Sessions:      n,
		FramesSent:    s.framesSent.Load(),
		FramesDropped: s.framesDropped.Load(),
		EditsIn:       s.editsIn.Load(),
		ActorsIn:      s.actorsIn.Load(),
		Rejects:       s.rejects.Load(),
	}
}

// handshake reads the SUBSCRIBE message, replies with WELCOME and queues the
// world snapshot. It returns nil when the connection should be dropped.
func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeSubscribe {
		closePolicy(conn, "expected SUBSCRIBE")
		return nil
	}
	if base.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return nil
	}

	sess := &session{
		id:     fmt.Sprintf("F%d", s.nextID.Add(1)),
		frames: make(chan []byte, frameQueueSize),
		ctl:    make(chan []byte, ctlQueueSize),
	}
	if !s.add(sess) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
		return nil
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		WorldID:         s.engine.ID.String(),
		ChunkSize:       world.ChunkSize,
	}
	b, _ := json.Marshal(welcome)
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		s.remove(sess.id)
		return nil
	}

	// Queue the current world state. The reply runs on the simulation
	// goroutine, so the snapshot serializes with live events.
	sync := engine.Command{Kind: engine.CommandSync, Reply: func(events []engine.Event) {
		for _, ev := range events {
			if b := encodeEvent(ev); b != nil {
				s.queueFrame(sess, b)
			}
		}
	}}
	select {
	case s.engine.Commands() <- sync:
	default:
		s.log.Printf("feed: %s joined without snapshot, command queue full", sess.id)
	}

	s.log.Printf("feed: %s subscribed", sess.id)
	return sess
}

// readLoop forwards subscriber input until the connection errors out.
func (s *Server) readLoop(conn *websocket.Conn, sess *session) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.ProtocolVersion != protocol.Version {
			continue
		}
		switch base.Type {
		case protocol.TypeEdit:
			s.handleEdit(sess, msg)
		case protocol.TypeActor:
			s.handleActor(sess, msg)
		}
	}
}

func (s *Server) handleEdit(sess *session, msg []byte) {
	var edit protocol.EditMsg
	if err := json.Unmarshal(msg, &edit); err != nil {
		s.reject(sess, protocol.ErrBadRequest, "malformed EDIT")
		return
	}
	if len(edit.Edits) == 0 || len(edit.Edits) > maxEditBatch {
		s.reject(sess, protocol.ErrBadRequest, fmt.Sprintf("edit batch must carry 1-%d cells", maxEditBatch))
		return
	}

	reg := s.engine.Registry()
	edits := make([]world.Edit, 0, len(edit.Edits))
	for _, c := range edit.Edits {
		id := world.BlockID(c.Block)
		def, ok := reg.Get(id)
		if !ok {
			s.reject(sess, protocol.ErrBadRequest, fmt.Sprintf("unknown block %d", c.Block))
			return
		}
		v := def.Voxel()
		if c.Color != 0 && id != world.AirID {
			v = world.MakeVoxel(id, c.Color)
		}
		edits = append(edits, world.Edit{X: c.X, Y: c.Y, Z: c.Z, V: v})
	}

	select {
	case s.engine.Commands() <- engine.Command{Kind: engine.CommandEdit, Edits: edits}:
		s.editsIn.Add(uint64(len(edits)))
	default:
		s.reject(sess, protocol.ErrBusy, "command queue full")
	}
}

func (s *Server) handleActor(sess *session, msg []byte) {
	var actor protocol.ActorMsg
	if err := json.Unmarshal(msg, &actor); err != nil {
		s.reject(sess, protocol.ErrBadRequest, "malformed ACTOR")
		return
	}
	cmd := engine.Command{Kind: engine.CommandActor, Actor: mgl64.Vec3{actor.Pos[0], actor.Pos[1], actor.Pos[2]}}
	select {
	case s.engine.Commands() <- cmd:
		s.actorsIn.Add(1)
	default:
		s.reject(sess, protocol.ErrBusy, "command queue full")
	}
}

// broadcast encodes one engine event and fans it out. It runs on the
// simulation goroutine, so every send must stay non-blocking.
func (s *Server) broadcast(ev engine.Event) {
	b := encodeEvent(ev)
	if b == nil {
		return
	}
	s.mu.Lock()
	for _, sess := range s.sessions {
		s.queueFrame(sess, b)
	}
	s.mu.Unlock()
}

func encodeEvent(ev engine.Event) []byte {
	switch ev.Kind {
	case engine.EventChunkCreated:
		return protocol.EncodeChunkCreated(ev.Coord)
	case engine.EventMeshUpdated:
		return protocol.EncodeMeshUpdate(ev.Coord, ev.Mesh)
	case engine.EventMeshDetached:
		return protocol.EncodeMeshDetach(ev.Coord)
	}
	return nil
}

func (s *Server) queueFrame(sess *session, b []byte) {
	select {
	case sess.frames <- b:
	default:
		s.framesDropped.Add(1)
	}
}

func (s *Server) reject(sess *session, code, detail string) {
	s.rejects.Add(1)
	b, _ := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         detail,
	})
	select {
	case sess.ctl <- b:
	default:
	}
}

func (s *Server) add(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		return false
	}
	s.sessions[sess.id] = sess
	return true
}

func (s *Server) remove(id string) {
	s.mu.Lock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		s.log.Printf("feed: %s left", id)
	}
	s.mu.Unlock()
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
