package engine

import (
	"sort"

	"voxelstream.dev/internal/sim/chunk"
	"voxelstream.dev/internal/sim/mathx"
)

// scanner tracks the viewer's chunk and computes, on each move, which
// chunk coordinates enter and leave the data and mesh areas. The data
// area extends one chunk beyond the mesh area so every meshable chunk
// has its full neighborhood resident.
type scanner struct {
	meshRadius  int
	dataOffsets []chunk.Position
	meshOffsets []chunk.Position

	prev    chunk.Position
	started bool
}

func newScanner(meshRadius int) *scanner {
	return &scanner{
		meshRadius:  meshRadius,
		dataOffsets: makeOffsets(meshRadius + 1),
		meshOffsets: makeOffsets(meshRadius),
	}
}

// makeOffsets builds the cube of offsets within radius r, nearest
// first so admission order starts out distance-sorted.
func makeOffsets(r int) []chunk.Position {
	out := make([]chunk.Position, 0, (2*r+1)*(2*r+1)*(2*r+1))
	for z := -r; z <= r; z++ {
		for y := -r; y <= r; y++ {
			for x := -r; x <= r; x++ {
				out = append(out, chunk.Position{X: x, Y: y, Z: z})
			}
		}
	}
	origin := chunk.Position{}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DistSq(origin) < out[j].DistSq(origin)
	})
	return out
}

type scanResult struct {
	loadData   []chunk.Position
	unloadData []chunk.Position
	loadMesh   []chunk.Position
	unloadMesh []chunk.Position
}

// reconcile moves the scanner to the viewer's current chunk and
// returns the area set differences. The first call loads the full
// areas and unloads nothing.
func (s *scanner) reconcile(now chunk.Position) (scanResult, bool) {
	if s.started && now == s.prev {
		return scanResult{}, false
	}

	var res scanResult
	if !s.started {
		s.started = true
		s.prev = now
		for _, off := range s.dataOffsets {
			res.loadData = append(res.loadData, now.Add(off))
		}
		for _, off := range s.meshOffsets {
			res.loadMesh = append(res.loadMesh, now.Add(off))
		}
		return res, true
	}

	prev := s.prev
	s.prev = now
	res.loadData, res.unloadData = areaDiff(s.dataOffsets, now, prev)
	res.loadMesh, res.unloadMesh = areaDiff(s.meshOffsets, now, prev)
	return res, true
}

// areaDiff returns the coordinates only in the area around now (to
// load) and only in the area around prev (to unload).
func areaDiff(offsets []chunk.Position, now, prev chunk.Position) (load, unload []chunk.Position) {
	nowSet := make(map[chunk.Position]bool, len(offsets))
	for _, off := range offsets {
		nowSet[now.Add(off)] = true
	}
	for _, off := range offsets {
		p := prev.Add(off)
		if nowSet[p] {
			delete(nowSet, p) // shared, neither loads nor unloads
		} else {
			unload = append(unload, p)
		}
	}
	for _, off := range offsets {
		p := now.Add(off)
		if nowSet[p] {
			load = append(load, p)
		}
	}
	return load, unload
}

// inMeshArea reports whether pos lies in the mesh area around center.
func (s *scanner) inMeshArea(center, pos chunk.Position) bool {
	d := pos.Sub(center)
	return mathx.AbsInt(d.X) <= s.meshRadius &&
		mathx.AbsInt(d.Y) <= s.meshRadius &&
		mathx.AbsInt(d.Z) <= s.meshRadius
}
