// Package stream serves the mesh stream over websockets: clients send
// HELLO and MOVE, the server pushes zstd-compressed MESH frames and
// UNMESH retractions for every chunk entering or leaving the mesh
// area around the client's viewer.
package stream

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"voxelstream.dev/internal/protocol"
	"voxelstream.dev/internal/sim/chunk"
	"voxelstream.dev/internal/sim/engine"
	"voxelstream.dev/internal/sim/mesh"
	"voxelstream.dev/internal/sim/tuning"
)

const (
	outBufferFrames = 1024
	writeTimeout    = 5 * time.Second
	readTimeout     = 60 * time.Second
)

type outFrame struct {
	data   []byte
	binary bool
}

type session struct {
	id  string
	out chan outFrame
}

type Server struct {
	engine  *engine.Engine
	cfg     tuning.Tuning
	palette protocol.BlockPalette
	log     *log.Logger

	upgrader websocket.Upgrader
	enc      *zstd.Encoder

	mu          sync.Mutex
	sessions    map[string]*session
	meshCache   map[chunk.Position][]byte // compressed MESH frames for replay
	nextSession int
	dropped     uint64
}

func NewServer(e *engine.Engine, cfg tuning.Tuning, palette protocol.BlockPalette, logger *log.Logger) (*Server, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &Server{
		engine:  e,
		cfg:     cfg,
		palette: palette,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		enc:       enc,
		sessions:  map[string]*session{},
		meshCache: map[chunk.Position][]byte{},
	}, nil
}

// UpsertMesh implements engine.Renderer. The frame is compressed once
// and fanned out; it also lands in the replay cache so late joiners
// see the current world.
func (s *Server) UpsertMesh(m *mesh.ChunkMesh) {
	msg := protocol.MeshMsg{
		Type:    protocol.TypeMesh,
		Pos:     [3]int{m.Pos.X, m.Pos.Y, m.Pos.Z},
		Tick:    s.engine.Stats().Tick,
		Batches: make([]protocol.QuadBatch, 0, len(m.Batches)),
	}
	for _, b := range m.Batches {
		quads := make([]uint32, len(b.Quads))
		for i, q := range b.Quads {
			quads[i] = uint32(q)
		}
		msg.Batches = append(msg.Batches, protocol.QuadBatch{Block: uint16(b.Block), Quads: quads})
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		s.log.Printf("mesh frame marshal: %v", err)
		return
	}
	frame := s.enc.EncodeAll(raw, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshCache[m.Pos] = frame
	s.broadcastLocked(outFrame{data: frame, binary: true})
}

// RemoveMesh implements engine.Renderer.
func (s *Server) RemoveMesh(pos chunk.Position) {
	raw, _ := json.Marshal(protocol.UnmeshMsg{
		Type: protocol.TypeUnmesh,
		Pos:  [3]int{pos.X, pos.Y, pos.Z},
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meshCache, pos)
	s.broadcastLocked(outFrame{data: raw})
}

// PublishStats pushes a scheduler snapshot to all sessions.
func (s *Server) PublishStats(st engine.TickStats) {
	raw, _ := json.Marshal(protocol.StatsMsg{
		Type:          protocol.TypeStats,
		Tick:          st.Tick,
		LoadDataQueue: st.LoadDataQueue,
		LoadMeshQueue: st.LoadMeshQueue,
		DataTasks:     st.DataTasks,
		MeshTasks:     st.MeshTasks,
		Resident:      st.Resident,
		Meshed:        st.Meshed,
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(outFrame{data: raw})
}

// broadcastLocked fans a frame out to every session. A session whose
// buffer is full is dropped rather than allowed to stall the engine.
func (s *Server) broadcastLocked(f outFrame) {
	for id, sess := range s.sessions {
		select {
		case sess.out <- f:
		default:
			s.dropped++
			s.log.Printf("session %s too slow, dropping (code=%s)", id, protocol.ErrSlowChunk)
			close(sess.out)
			delete(s.sessions, id)
		}
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		defer s.dropSession(sess.id)

		done := make(chan struct{})

		// Writer goroutine: owns all writes after the handshake.
		go func() {
			defer close(done)
			for f := range sess.out {
				kind := websocket.TextMessage
				if f.binary {
					kind = websocket.BinaryMessage
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(kind, f.data); err != nil {
					return
				}
			}
		}()

		// Reader loop: MOVE only.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeMove {
				continue
			}
			var move protocol.MoveMsg
			if err := json.Unmarshal(msg, &move); err != nil {
				continue
			}
			if move.ProtocolVersion != protocol.Version {
				continue
			}
			s.engine.SetViewer(mgl32.Vec3{move.Pos[0], move.Pos[1], move.Pos[2]})
		}

		s.dropSession(sess.id)
		<-done
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.refuse(conn, protocol.ErrHandshake, "expected HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.refuse(conn, protocol.ErrProtoBadRequest, "malformed HELLO")
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		s.refuse(conn, protocol.ErrProtoVersion, "unsupported protocol_version")
		return nil
	}

	s.mu.Lock()
	s.nextSession++
	sess := &session{
		id:  fmt.Sprintf("S%06d", s.nextSession),
		out: make(chan outFrame, outBufferFrames),
	}
	s.sessions[sess.id] = sess
	// Replay the current world under the lock so no upsert between
	// snapshot and registration is lost or duplicated.
	for _, frame := range s.meshCache {
		select {
		case sess.out <- outFrame{data: frame, binary: true}:
		default:
		}
	}
	s.mu.Unlock()

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		WorldParams: protocol.WorldParams{
			TickRateHz: s.cfg.TickRateHz,
			ChunkSize:  chunk.Size,
			MeshRadius: s.cfg.MeshRadius,
			DataRadius: s.cfg.DataRadius(),
			Seed:       s.cfg.Seed,
		},
		BlockPalette: s.palette,
	}
	raw, _ := json.Marshal(welcome)
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		s.dropSession(sess.id)
		return nil
	}
	s.log.Printf("session %s joined (%s)", sess.id, hello.ClientName)
	return sess
}

func (s *Server) refuse(conn *websocket.Conn, code, reason string) {
	raw, _ := json.Marshal(protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Message: reason})
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.TextMessage, raw)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		close(sess.out)
		delete(s.sessions, id)
	}
}

// SessionCount is used by the health endpoint.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
