package mesh

import (
	"testing"

	"voxelstream.dev/internal/sim/block"
	"voxelstream.dev/internal/sim/catalogs"
	"voxelstream.dev/internal/sim/chunk"
	"voxelstream.dev/internal/sim/world"
)

func testRegistry() *block.Registry {
	cat := &catalogs.BlockCatalog{
		Palette: []string{"AIR", "DIRT", "GRASS", "STONE"},
		Defs: map[string]catalogs.BlockDef{
			"AIR":   {ID: "AIR"},
			"DIRT":  {ID: "DIRT", Solid: true},
			"GRASS": {ID: "GRASS", Solid: true},
			"STONE": {ID: "STONE", Solid: true},
		},
	}
	return block.NewRegistry(cat)
}

// airWorld fills the 27-chunk neighborhood around origin with air and
// returns the map for further edits.
func airWorld(t *testing.T) *world.Map {
	t.Helper()
	m := world.NewMap()
	for z := -1; z <= 1; z++ {
		for y := -1; y <= 1; y++ {
			for x := -1; x <= 1; x++ {
				m.Put(chunk.Position{X: x, Y: y, Z: z}, chunk.NewHomogeneous(chunk.Air))
			}
		}
	}
	return m
}

func buildAt(t *testing.T, m *world.Map, pos chunk.Position) *ChunkMesh {
	t.Helper()
	n, ok := world.NewNeighborhood(m, pos)
	if !ok {
		t.Fatal("neighborhood incomplete")
	}
	return NewMesher(testRegistry()).Build(n)
}

func allQuads(mesh *ChunkMesh) []Quad {
	if mesh == nil {
		return nil
	}
	var out []Quad
	for _, b := range mesh.Batches {
		out = append(out, b.Quads...)
	}
	return out
}

func TestUniformNeighborhoodSkipsMeshing(t *testing.T) {
	m := world.NewMap()
	for z := -1; z <= 1; z++ {
		for y := -1; y <= 1; y++ {
			for x := -1; x <= 1; x++ {
				m.Put(chunk.Position{X: x, Y: y, Z: z}, chunk.NewHomogeneous(1))
			}
		}
	}
	if mesh := buildAt(t, m, chunk.Position{}); mesh != nil {
		t.Fatalf("uniform solid neighborhood produced %d quads", mesh.QuadCount())
	}
	m2 := airWorld(t)
	if mesh := buildAt(t, m2, chunk.Position{}); mesh != nil {
		t.Fatal("all-air neighborhood produced a mesh")
	}
}

func TestSingleVoxelEmitsSixFaces(t *testing.T) {
	m := airWorld(t)
	c := chunk.NewHomogeneous(chunk.Air)
	c.Set(chunk.Index(10, 11, 12), 1)
	m.Put(chunk.Position{}, c)

	mesh := buildAt(t, m, chunk.Position{})
	quads := allQuads(mesh)
	if len(quads) != 6 {
		t.Fatalf("got %d quads, want 6", len(quads))
	}
	seen := map[uint32]bool{}
	for _, q := range quads {
		if q.X() != 10 || q.Y() != 11 || q.Z() != 12 {
			t.Fatalf("anchor (%d,%d,%d), want (10,11,12)", q.X(), q.Y(), q.Z())
		}
		if q.W() != 1 || q.H() != 1 {
			t.Fatalf("extent %dx%d, want 1x1", q.W(), q.H())
		}
		if q.AO() != 0 {
			t.Fatalf("isolated voxel has ao %d", q.AO())
		}
		if seen[q.Normal()] {
			t.Fatalf("duplicate normal %d", q.Normal())
		}
		seen[q.Normal()] = true
	}
	if len(seen) != 6 {
		t.Fatalf("got %d distinct normals, want 6", len(seen))
	}
	if len(mesh.Batches) != 1 || mesh.Batches[0].Block != 1 {
		t.Fatalf("batches = %+v, want one batch for block 1", mesh.Batches)
	}
}

func TestFloorMergesToFullQuads(t *testing.T) {
	m := airWorld(t)
	c := chunk.NewHomogeneous(chunk.Air)
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			c.Set(chunk.Index(x, 0, z), 1)
		}
	}
	m.Put(chunk.Position{}, c)

	quads := allQuads(buildAt(t, m, chunk.Position{}))

	var up, down, side []Quad
	for _, q := range quads {
		switch q.Normal() {
		case FaceUp.NormalIndex():
			up = append(up, q)
		case FaceDown.NormalIndex():
			down = append(down, q)
		default:
			side = append(side, q)
		}
	}
	if len(up) != 1 || up[0].W() != chunk.Size || up[0].H() != chunk.Size {
		t.Fatalf("up faces did not merge to one 32x32 quad: %d quads", len(up))
	}
	if up[0].X() != 0 || up[0].Y() != 0 || up[0].Z() != 0 {
		t.Fatalf("up quad anchor (%d,%d,%d), want origin", up[0].X(), up[0].Y(), up[0].Z())
	}
	if len(down) != 1 || down[0].W() != chunk.Size || down[0].H() != chunk.Size {
		t.Fatalf("down faces did not merge: %d quads", len(down))
	}
	if len(side) != 4 {
		t.Fatalf("got %d side quads, want 4", len(side))
	}
	for _, q := range side {
		if q.W()*q.H() != chunk.Size {
			t.Fatalf("side quad area %d, want %d", q.W()*q.H(), chunk.Size)
		}
	}
}

func TestAdjacentChunkCullsSharedFace(t *testing.T) {
	m := airWorld(t)
	m.Put(chunk.Position{}, chunk.NewHomogeneous(1))

	mesh := buildAt(t, m, chunk.Position{})
	if got := allQuads(mesh); len(got) != 6 {
		t.Fatalf("solid cube in air: got %d quads, want 6", len(got))
	}

	// A solid +x neighbor must cull the shared face.
	m.Put(chunk.Position{X: 1}, chunk.NewHomogeneous(1))
	mesh = buildAt(t, m, chunk.Position{})
	quads := allQuads(mesh)
	if len(quads) != 5 {
		t.Fatalf("got %d quads, want 5 after culling shared face", len(quads))
	}
	for _, q := range quads {
		if q.Normal() == FaceRight.NormalIndex() {
			t.Fatal("right face survived although neighbor is solid")
		}
	}
}

func TestDifferentBlocksDoNotMerge(t *testing.T) {
	m := airWorld(t)
	c := chunk.NewHomogeneous(chunk.Air)
	c.Set(chunk.Index(0, 0, 0), 1)
	c.Set(chunk.Index(1, 0, 0), 2)
	m.Put(chunk.Position{}, c)

	mesh := buildAt(t, m, chunk.Position{})
	if len(mesh.Batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(mesh.Batches))
	}
	if mesh.Batches[0].Block != 1 || mesh.Batches[1].Block != 2 {
		t.Fatalf("batches not ordered by block id: %+v", mesh.Batches)
	}
	for _, q := range allQuads(mesh) {
		if q.Normal() == FaceUp.NormalIndex() && q.W()*q.H() != 1 {
			t.Fatalf("up faces of different blocks merged into %dx%d", q.W(), q.H())
		}
	}
}

func TestAmbientOcclusionSplitsMerge(t *testing.T) {
	m := airWorld(t)
	c := chunk.NewHomogeneous(chunk.Air)
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			c.Set(chunk.Index(x, 0, z), 1)
		}
	}
	c.Set(chunk.Index(5, 1, 5), 1)
	m.Put(chunk.Position{}, c)

	quads := allQuads(buildAt(t, m, chunk.Position{}))

	area := 0
	var at44 Quad
	found44 := false
	for _, q := range quads {
		if q.Normal() != FaceUp.NormalIndex() {
			continue
		}
		area += q.W() * q.H()
		if q.X() <= 4 && 4 < q.X()+q.W() && q.Z() <= 4 && 4 < q.Z()+q.H() && q.Y() == 0 {
			at44 = q
			found44 = true
		}
		if q.X() <= 20 && 20 < q.X()+q.W() && q.Z() <= 20 && 20 < q.Z()+q.H() && q.AO() != 0 {
			t.Fatalf("far floor face has ao %d", q.AO())
		}
	}
	// Floor minus the covered voxel, plus the top of the raised block.
	want := chunk.Size*chunk.Size - 1 + 1
	if area != want {
		t.Fatalf("up-face area %d, want %d", area, want)
	}
	if !found44 {
		t.Fatal("no up quad covers (4,0,4)")
	}
	if at44.AO() == 0 {
		t.Fatal("face next to raised block has zero ao")
	}
	if at44.W() != 1 || at44.H() != 1 {
		t.Fatalf("occluded face merged into %dx%d", at44.W(), at44.H())
	}
}

func TestAmbientOcclusionCrossesChunkBorder(t *testing.T) {
	m := airWorld(t)
	c := chunk.NewHomogeneous(chunk.Air)
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			c.Set(chunk.Index(x, 0, z), 1)
		}
	}
	m.Put(chunk.Position{}, c)

	// Occluder just across the +x border at the same height as a
	// raised block would be.
	nx := chunk.NewHomogeneous(chunk.Air)
	nx.Set(chunk.Index(0, 1, 5), 1)
	m.Put(chunk.Position{X: 1}, nx)

	quads := allQuads(buildAt(t, m, chunk.Position{}))
	for _, q := range quads {
		if q.Normal() != FaceUp.NormalIndex() {
			continue
		}
		covers := q.X() <= 31 && 31 < q.X()+q.W() && q.Z() <= 5 && 5 < q.Z()+q.H()
		if covers && q.AO() == 0 {
			t.Fatal("border face ignores occluder in neighbor chunk")
		}
	}
}

func TestQuadPackRoundTrip(t *testing.T) {
	cases := []struct {
		x, y, z int
		normal  uint32
		ao      uint32
		w, h    int
	}{
		{0, 0, 0, 0, 0, 1, 1},
		{31, 31, 31, 5, 8, 32, 32},
		{7, 0, 19, 3, 4, 13, 1},
	}
	for _, c := range cases {
		q := PackQuad(c.x, c.y, c.z, c.normal, c.ao, c.w, c.h)
		if q.X() != c.x || q.Y() != c.y || q.Z() != c.z {
			t.Fatalf("position round trip failed for %+v: got (%d,%d,%d)", c, q.X(), q.Y(), q.Z())
		}
		if q.Normal() != c.normal || q.AO() != c.ao {
			t.Fatalf("normal/ao round trip failed for %+v", c)
		}
		if q.W() != c.w || q.H() != c.h {
			t.Fatalf("extent round trip failed for %+v: got %dx%d", c, q.W(), q.H())
		}
	}
}

func TestGreedyMeshBinaryPlane(t *testing.T) {
	var plane [chunk.Size]uint32
	// Full plane merges to one rectangle.
	for i := range plane {
		plane[i] = ^uint32(0)
	}
	quads := greedyMeshBinaryPlane(&plane)
	if len(quads) != 1 || quads[0].w != 32 || quads[0].h != 32 {
		t.Fatalf("full plane: %+v", quads)
	}

	// An L shape needs two rectangles covering every bit once.
	var l [chunk.Size]uint32
	l[0] = 0b1111
	l[1] = 0b0001
	l[2] = 0b0001
	quads = greedyMeshBinaryPlane(&l)
	area := 0
	for _, q := range quads {
		area += q.w * q.h
	}
	if area != 6 {
		t.Fatalf("L shape area %d, want 6 (quads %+v)", area, quads)
	}
	if len(quads) != 2 {
		t.Fatalf("L shape merged into %d quads, want 2", len(quads))
	}
}

func TestAOCountExcludesCenterSample(t *testing.T) {
	if got := aoCount(0x1ff); got != 8 {
		t.Fatalf("all nine samples solid: ao = %d, want 8", got)
	}
	if got := aoCount(aoCenterBit); got != 0 {
		t.Fatalf("center-only mask: ao = %d, want 0", got)
	}
	if got := aoCount(0x1ff &^ aoCenterBit); got != 8 {
		t.Fatalf("ring mask: ao = %d, want 8", got)
	}
}
