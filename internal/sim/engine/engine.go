// Package engine runs the chunk lifecycle: it watches the viewer,
// schedules terrain generation and mesh extraction on worker
// goroutines with bounded concurrency, and retires chunks that fall
// out of range. All scheduler state is owned by the single loop
// goroutine; workers only ever see immutable chunk data.
package engine

import (
	"context"
	"log"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxelstream.dev/internal/sim/chunk"
	"voxelstream.dev/internal/sim/mesh"
	"voxelstream.dev/internal/sim/tuning"
	"voxelstream.dev/internal/sim/world"
)

// Generator produces chunk data. Must be safe for concurrent calls.
type Generator interface {
	Generate(pos chunk.Position) *chunk.Data
}

// Renderer receives mesh lifecycle events. Called from the engine
// loop goroutine.
type Renderer interface {
	UpsertMesh(m *mesh.ChunkMesh)
	RemoveMesh(pos chunk.Position)
}

type editReq struct {
	pos   chunk.Position
	edits []chunk.Edit
}

type meshResult struct {
	mesh  *mesh.ChunkMesh
	build time.Duration
}

type Engine struct {
	cfg      tuning.Tuning
	log      *log.Logger
	gen      Generator
	mesher   *mesh.Mesher
	renderer Renderer

	world   *world.Map
	scanner *scanner

	viewerPos   mgl32.Vec3
	viewerChunk chunk.Position

	loadData   map[chunk.Position]bool
	loadMesh   map[chunk.Position]bool
	unloadData map[chunk.Position]bool
	unloadMesh map[chunk.Position]bool

	dataTasks map[chunk.Position]*future[*chunk.Data]
	meshTasks map[chunk.Position]*future[meshResult]

	// meshed tracks which chunks currently have a mesh at the
	// renderer, so unloads and emptied chunks retract exactly what
	// was published.
	meshed map[chunk.Position]bool

	tick uint64

	move  chan mgl32.Vec3
	edits chan editReq
	stop  chan struct{}

	lastStats atomic.Pointer[TickStats]

	// Optional observation hooks, invoked on the loop goroutine.
	TickHook func(TickStats)
	MeshHook func(MeshRecord)
}

func New(cfg tuning.Tuning, logger *log.Logger, gen Generator, mesher *mesh.Mesher, renderer Renderer) *Engine {
	return &Engine{
		cfg:      cfg,
		log:      logger,
		gen:      gen,
		mesher:   mesher,
		renderer: renderer,

		world:   world.NewMap(),
		scanner: newScanner(cfg.MeshRadius),

		loadData:   map[chunk.Position]bool{},
		loadMesh:   map[chunk.Position]bool{},
		unloadData: map[chunk.Position]bool{},
		unloadMesh: map[chunk.Position]bool{},
		dataTasks:  map[chunk.Position]*future[*chunk.Data]{},
		meshTasks:  map[chunk.Position]*future[meshResult]{},
		meshed:     map[chunk.Position]bool{},

		move:  make(chan mgl32.Vec3, 1),
		edits: make(chan editReq, 256),
		stop:  make(chan struct{}),
	}
}

// SetRenderer installs the mesh sink. Must be called before Run or
// StepOnce when the renderer could not be passed to New (the stream
// server and the engine reference each other).
func (e *Engine) SetRenderer(r Renderer) { e.renderer = r }

// Run drives the tick loop until ctx is canceled or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingEdits []editReq
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case pos := <-e.move:
			e.viewerPos = pos
		case req := <-e.edits:
			pendingEdits = append(pendingEdits, req)
		case <-ticker.C:
			e.step(pendingEdits)
			pendingEdits = pendingEdits[:0]
		}
	}
}

func (e *Engine) Stop() { close(e.stop) }

// SetViewer reports the viewer's world position. Latest write wins;
// never blocks.
func (e *Engine) SetViewer(pos mgl32.Vec3) {
	select {
	case e.move <- pos:
		return
	default:
	}
	select {
	case <-e.move:
	default:
	}
	select {
	case e.move <- pos:
	default:
	}
}

// ApplyEdits queues voxel edits for pos, applied on the next tick.
func (e *Engine) ApplyEdits(pos chunk.Position, edits []chunk.Edit) {
	e.edits <- editReq{pos: pos, edits: edits}
}

// Stats returns the snapshot taken at the end of the last tick.
func (e *Engine) Stats() TickStats {
	if s := e.lastStats.Load(); s != nil {
		return *s
	}
	return TickStats{}
}

// StepOnce advances the engine one tick synchronously, draining any
// queued viewer moves and edits first. Intended for tests and replay
// tooling; do not mix with a concurrent Run.
func (e *Engine) StepOnce() TickStats {
	var pendingEdits []editReq
	for {
		select {
		case pos := <-e.move:
			e.viewerPos = pos
		case req := <-e.edits:
			pendingEdits = append(pendingEdits, req)
		default:
			e.step(pendingEdits)
			return e.Stats()
		}
	}
}

// step runs one scheduler tick. Admission runs before polling so a
// task can never start and finish within the same tick, and polling
// runs before unload so results for chunks leaving range are
// discarded in the same tick they arrive.
func (e *Engine) step(pendingEdits []editReq) {
	e.reconcileViewer()
	e.applyEdits(pendingEdits)

	e.startDataTasks()
	e.startMeshTasks()

	e.joinDataTasks()
	e.joinMeshTasks()

	e.unloadDataStep()
	e.unloadMeshStep()

	e.tick++
	stats := TickStats{
		Tick:            e.tick,
		ViewerChunk:     e.viewerChunk,
		LoadDataQueue:   len(e.loadData),
		UnloadDataQueue: len(e.unloadData),
		LoadMeshQueue:   len(e.loadMesh),
		UnloadMeshQueue: len(e.unloadMesh),
		DataTasks:       len(e.dataTasks),
		MeshTasks:       len(e.meshTasks),
		Resident:        e.world.Len(),
		Meshed:          len(e.meshed),
	}
	e.lastStats.Store(&stats)
	if e.TickHook != nil {
		e.TickHook(stats)
	}
}

func (e *Engine) reconcileViewer() {
	now := chunk.PositionAt(
		int(math.Floor(float64(e.viewerPos.X()))),
		int(math.Floor(float64(e.viewerPos.Y()))),
		int(math.Floor(float64(e.viewerPos.Z()))),
	)
	e.viewerChunk = now

	res, moved := e.scanner.reconcile(now)
	if !moved {
		return
	}

	// Unloads first so a coordinate both newly wanted and newly
	// unwanted resolves to keep: the load enqueue below retracts it
	// from the unload queues again.
	for _, p := range res.unloadData {
		delete(e.loadData, p)
		if e.world.Contains(p) || e.dataTasks[p] != nil {
			e.unloadData[p] = true
		}
	}
	for _, p := range res.unloadMesh {
		delete(e.loadMesh, p)
		e.unloadMesh[p] = true
	}

	for _, p := range res.loadData {
		delete(e.unloadData, p)
		if e.world.Contains(p) || e.dataTasks[p] != nil {
			continue
		}
		e.loadData[p] = true
	}
	for _, p := range res.loadMesh {
		delete(e.unloadMesh, p)
		if e.meshed[p] || e.meshTasks[p] != nil {
			continue
		}
		e.loadMesh[p] = true
	}
}

// applyEdits rewrites edited chunks copy-on-write and queues a remesh
// for the chunk, and for adjacent chunks when an edit touches a
// border voxel.
func (e *Engine) applyEdits(reqs []editReq) {
	for _, req := range reqs {
		d, ok := e.world.Get(req.pos)
		if !ok {
			e.log.Printf("edit dropped, chunk %v not resident", req.pos)
			continue
		}
		nd := d.Clone()
		nd.Apply(req.edits)
		e.world.Put(req.pos, nd)

		remesh := map[chunk.Position]bool{req.pos: true}
		for _, ed := range req.edits {
			x, y, z := chunk.Coords(ed.Index)
			for _, adj := range edgingChunks(x, y, z) {
				remesh[req.pos.Add(adj)] = true
			}
		}
		for p := range remesh {
			if e.meshed[p] || e.scanner.inMeshArea(e.viewerChunk, p) {
				e.loadMesh[p] = true
			}
		}
	}
}

// edgingChunks returns the neighbor offsets whose meshes depend on
// the voxel at local position (x,y,z): face, edge and corner
// neighbors when the voxel lies on the chunk border.
func edgingChunks(x, y, z int) []chunk.Position {
	var dx, dy, dz int
	switch {
	case x == 0:
		dx = -1
	case x == chunk.Size-1:
		dx = 1
	}
	switch {
	case y == 0:
		dy = -1
	case y == chunk.Size-1:
		dy = 1
	}
	switch {
	case z == 0:
		dz = -1
	case z == chunk.Size-1:
		dz = 1
	}
	if dx == 0 && dy == 0 && dz == 0 {
		return nil
	}
	var out []chunk.Position
	for _, px := range []int{0, dx} {
		for _, py := range []int{0, dy} {
			for _, pz := range []int{0, dz} {
				p := chunk.Position{X: px, Y: py, Z: pz}
				if p == (chunk.Position{}) {
					continue
				}
				out = append(out, p)
			}
		}
	}
	return dedupe(out)
}

func dedupe(in []chunk.Position) []chunk.Position {
	seen := make(map[chunk.Position]bool, len(in))
	out := in[:0]
	for _, p := range in {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// sortedByDistance returns the queued coordinates nearest the viewer
// first.
func (e *Engine) sortedByDistance(queue map[chunk.Position]bool) []chunk.Position {
	out := make([]chunk.Position, 0, len(queue))
	for p := range queue {
		out = append(out, p)
	}
	center := e.viewerChunk
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].DistSq(center), out[j].DistSq(center)
		if di != dj {
			return di < dj
		}
		return less(out[i], out[j])
	})
	return out
}

// less is a tiebreak so admission order is deterministic.
func less(a, b chunk.Position) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func (e *Engine) startDataTasks() {
	capacity := e.cfg.MaxDataTasks - len(e.dataTasks)
	if capacity <= 0 || len(e.loadData) == 0 {
		return
	}
	for _, pos := range e.sortedByDistance(e.loadData) {
		if capacity == 0 {
			break
		}
		delete(e.loadData, pos)
		if e.world.Contains(pos) || e.dataTasks[pos] != nil {
			continue
		}
		p := pos
		e.dataTasks[pos] = spawn(func() (*chunk.Data, error) {
			return e.gen.Generate(p), nil
		})
		capacity--
	}
}

func (e *Engine) startMeshTasks() {
	capacity := e.cfg.MaxMeshTasks - len(e.meshTasks)
	if capacity <= 0 || len(e.loadMesh) == 0 {
		return
	}
	for _, pos := range e.sortedByDistance(e.loadMesh) {
		if capacity == 0 {
			break
		}
		if e.meshTasks[pos] != nil {
			delete(e.loadMesh, pos)
			continue
		}
		n, ok := world.NewNeighborhood(e.world, pos)
		if !ok {
			// Neighbor data still loading; keep queued and retry
			// next tick.
			continue
		}
		delete(e.loadMesh, pos)
		e.meshTasks[pos] = spawn(func() (meshResult, error) {
			start := time.Now()
			m := e.mesher.Build(n)
			return meshResult{mesh: m, build: time.Since(start)}, nil
		})
		capacity--
	}
}

func (e *Engine) joinDataTasks() {
	for pos, f := range e.dataTasks {
		res, done := f.poll()
		if !done {
			continue
		}
		delete(e.dataTasks, pos)
		if res.err != nil {
			// Released; the scanner re-requests it on a later move.
			e.log.Printf("worldgen %v failed: %v", pos, res.err)
			continue
		}
		e.world.Put(pos, res.val)
	}
}

func (e *Engine) joinMeshTasks() {
	for pos, f := range e.meshTasks {
		res, done := f.poll()
		if !done {
			continue
		}
		delete(e.meshTasks, pos)
		if res.err != nil {
			e.log.Printf("mesh %v failed: %v", pos, res.err)
			continue
		}
		if res.val.mesh == nil {
			// Nothing to draw. Retract a previous mesh if edits
			// emptied the chunk.
			if e.meshed[pos] {
				delete(e.meshed, pos)
				if e.renderer != nil {
					e.renderer.RemoveMesh(pos)
				}
			}
			continue
		}
		e.meshed[pos] = true
		if e.renderer != nil {
			e.renderer.UpsertMesh(res.val.mesh)
		}
		if e.MeshHook != nil {
			e.MeshHook(MeshRecord{
				Pos:     pos,
				Quads:   res.val.mesh.QuadCount(),
				Batches: len(res.val.mesh.Batches),
				Build:   res.val.build,
				Tick:    e.tick,
			})
		}
	}
}

// unloadDataStep drops chunk data synchronously and unbounded: memory
// comes back the same tick the chunk leaves range.
func (e *Engine) unloadDataStep() {
	for pos := range e.unloadData {
		e.world.Remove(pos)
		delete(e.dataTasks, pos)
	}
	clear(e.unloadData)
}

func (e *Engine) unloadMeshStep() {
	for pos := range e.unloadMesh {
		delete(e.meshTasks, pos)
		if e.meshed[pos] {
			delete(e.meshed, pos)
			if e.renderer != nil {
				e.renderer.RemoveMesh(pos)
			}
		}
	}
	clear(e.unloadMesh)
}
