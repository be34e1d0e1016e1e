// Command bot is a roaming viewer: it connects to the mesh stream,
// flies a circle around the origin and reports what it receives.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"voxelstream.dev/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "client name")
		radius = flag.Float64("radius", 200, "flight circle radius in world units")
		speed  = flag.Float64("speed", 8, "flight speed in world units per second")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		logger.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var meshes, unmeshes, quads atomic.Int64

	// Flight path: a circle at fixed height, one MOVE every 500ms.
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		start := time.Now()
		for range ticker.C {
			t := time.Since(start).Seconds()
			angle := t * *speed / *radius
			pos := mgl32.Vec3{
				float32(*radius * math.Cos(angle)),
				24,
				float32(*radius * math.Sin(angle)),
			}
			move := protocol.MoveMsg{
				Type:            protocol.TypeMove,
				ProtocolVersion: protocol.Version,
				Pos:             [3]float32{pos.X(), pos.Y(), pos.Z()},
			}
			if err := conn.WriteJSON(move); err != nil {
				return
			}
		}
	}()

	go func() {
		<-stop
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("meshes=%d unmeshes=%d quads=%d", meshes.Load(), unmeshes.Load(), quads.Load())
			return
		}
		if kind == websocket.BinaryMessage {
			raw, err := dec.DecodeAll(msg, nil)
			if err != nil {
				logger.Printf("decompress: %v", err)
				continue
			}
			msg = raw
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s tick_rate=%d seed=%d mesh_radius=%d palette=%s",
				w.SessionID, w.WorldParams.TickRateHz, w.WorldParams.Seed, w.WorldParams.MeshRadius, w.BlockPalette.Digest)

		case protocol.TypeMesh:
			var m protocol.MeshMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			meshes.Add(1)
			for _, b := range m.Batches {
				quads.Add(int64(len(b.Quads)))
			}

		case protocol.TypeUnmesh:
			unmeshes.Add(1)

		case protocol.TypeStats:
			var st protocol.StatsMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			logger.Printf("STATS tick=%d resident=%d meshed=%d data_tasks=%d mesh_tasks=%d (recv meshes=%d quads=%d)",
				st.Tick, st.Resident, st.Meshed, st.DataTasks, st.MeshTasks, meshes.Load(), quads.Load())

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR code=%s msg=%s", e.Code, e.Message)
		}
	}
}
