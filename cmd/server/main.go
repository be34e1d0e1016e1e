package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "voxelstream.dev/internal/persistence/log"
	"voxelstream.dev/internal/protocol"
	"voxelstream.dev/internal/sim/block"
	"voxelstream.dev/internal/sim/catalogs"
	"voxelstream.dev/internal/sim/engine"
	"voxelstream.dev/internal/sim/mesh"
	"voxelstream.dev/internal/sim/terrain"
	"voxelstream.dev/internal/sim/tuning"
	"voxelstream.dev/internal/transport/stream"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 0, "world seed override (0 keeps the tuning value)")
		disableDB  = flag.Bool("disable_db", false, "disable the telemetry index db")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	idx, err := openRuntimeIndex(*dataDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	reg := block.NewRegistry(&cats.Blocks)
	gen, err := terrain.NewGenerator(tune.Seed, tune.Terrain, reg)
	if err != nil {
		logger.Fatalf("terrain: %v", err)
	}

	eng := engine.New(tune, logger, gen, mesh.NewMesher(reg), nil)
	srv, err := stream.NewServer(eng, tune, protocol.BlockPalette{
		Digest: cats.Blocks.PaletteDigest,
		Count:  len(cats.Blocks.Palette),
	}, logger)
	if err != nil {
		logger.Fatalf("stream: %v", err)
	}
	eng.SetRenderer(srv)

	tickLog := persistlog.NewTickLogger(*dataDir)
	meshLog := persistlog.NewMeshLogger(*dataDir)
	defer tickLog.Close()
	defer meshLog.Close()

	statsEvery := uint64(tune.TickRateHz) // one STATS frame per second
	eng.TickHook = func(st engine.TickStats) {
		if err := tickLog.WriteTick(st); err != nil {
			logger.Printf("tick log: %v", err)
		}
		if idx != nil {
			idx.RecordTick(st)
		}
		if st.Tick%statsEvery == 0 {
			srv.PublishStats(st)
		}
	}
	eng.MeshHook = func(r engine.MeshRecord) {
		if err := meshLog.WriteMesh(r); err != nil {
			logger.Printf("mesh log: %v", err)
		}
		if idx != nil {
			idx.RecordMesh(r)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		st := eng.Stats()
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"ok":       true,
			"tick":     st.Tick,
			"sessions": srv.SessionCount(),
		})
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := eng.Stats()

		fmt.Fprintf(rw, "# HELP voxelstream_tick Current engine tick.\n")
		fmt.Fprintf(rw, "# TYPE voxelstream_tick gauge\n")
		fmt.Fprintf(rw, "voxelstream_tick %d\n", st.Tick)

		fmt.Fprintf(rw, "# HELP voxelstream_resident_chunks Chunks resident in the world map.\n")
		fmt.Fprintf(rw, "# TYPE voxelstream_resident_chunks gauge\n")
		fmt.Fprintf(rw, "voxelstream_resident_chunks %d\n", st.Resident)

		fmt.Fprintf(rw, "# HELP voxelstream_meshed_chunks Chunks with a live mesh at the renderer.\n")
		fmt.Fprintf(rw, "# TYPE voxelstream_meshed_chunks gauge\n")
		fmt.Fprintf(rw, "voxelstream_meshed_chunks %d\n", st.Meshed)

		fmt.Fprintf(rw, "# HELP voxelstream_queue_depth Scheduler queue depths.\n")
		fmt.Fprintf(rw, "# TYPE voxelstream_queue_depth gauge\n")
		fmt.Fprintf(rw, "voxelstream_queue_depth{queue=%q} %d\n", "load_data", st.LoadDataQueue)
		fmt.Fprintf(rw, "voxelstream_queue_depth{queue=%q} %d\n", "load_mesh", st.LoadMeshQueue)
		fmt.Fprintf(rw, "voxelstream_queue_depth{queue=%q} %d\n", "unload_data", st.UnloadDataQueue)
		fmt.Fprintf(rw, "voxelstream_queue_depth{queue=%q} %d\n", "unload_mesh", st.UnloadMeshQueue)

		fmt.Fprintf(rw, "# HELP voxelstream_tasks_inflight Running background tasks.\n")
		fmt.Fprintf(rw, "# TYPE voxelstream_tasks_inflight gauge\n")
		fmt.Fprintf(rw, "voxelstream_tasks_inflight{kind=%q} %d\n", "data", st.DataTasks)
		fmt.Fprintf(rw, "voxelstream_tasks_inflight{kind=%q} %d\n", "mesh", st.MeshTasks)

		fmt.Fprintf(rw, "# HELP voxelstream_sessions Connected stream sessions.\n")
		fmt.Fprintf(rw, "# TYPE voxelstream_sessions gauge\n")
		fmt.Fprintf(rw, "voxelstream_sessions %d\n", srv.SessionCount())
	})
	if envBool("VS_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", srv.Handler())

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = httpSrv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (seed=%d mesh_radius=%d)", *addr, tune.Seed, tune.MeshRadius)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
