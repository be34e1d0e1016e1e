package terrain

import (
	"testing"

	"voxelstream.dev/internal/sim/block"
	"voxelstream.dev/internal/sim/catalogs"
	"voxelstream.dev/internal/sim/chunk"
	"voxelstream.dev/internal/sim/tuning"
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

func newGen(t *testing.T, seed int64) *Generator {
	t.Helper()
	g, err := NewGenerator(seed, tuning.Defaults().Terrain, testRegistry())
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := newGen(t, 7)
	b := newGen(t, 7)
	positions := []chunk.Position{{}, {X: 3, Y: 0, Z: -2}, {X: -5, Y: -1, Z: 9}}
	for _, pos := range positions {
		da := a.Generate(pos)
		db := b.Generate(pos)
		for i := 0; i < chunk.Size3; i++ {
			if da.Get(i) != db.Get(i) {
				x, y, z := chunk.Coords(i)
				t.Fatalf("chunk %+v differs at (%d,%d,%d)", pos, x, y, z)
			}
		}
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	a := newGen(t, 1)
	b := newGen(t, 2)
	pos := chunk.Position{}
	da := a.Generate(pos)
	db := b.Generate(pos)
	for i := 0; i < chunk.Size3; i++ {
		if da.Get(i) != db.Get(i) {
			return
		}
	}
	t.Fatal("seeds 1 and 2 generated identical origin chunks")
}

func TestExtremityShortcuts(t *testing.T) {
	g := newGen(t, 7)

	sky := g.Generate(chunk.Position{Y: 4})
	if u, ok := sky.Uniform(); !ok || u != g.air {
		t.Fatalf("high chunk not pure air: uniform=%v block=%d", ok, u)
	}
	deep := g.Generate(chunk.Position{Y: -4})
	if u, ok := deep.Uniform(); !ok || u != g.stone {
		t.Fatalf("deep chunk not pure stone: uniform=%v block=%d", ok, u)
	}
}

func TestSurfaceColumnShape(t *testing.T) {
	g := newGen(t, 7)
	d := g.Generate(chunk.Position{})

	// Walk a few columns of the origin chunk top-down: air until the
	// surface, then a solid grass block.
	for _, probe := range [][2]int{{0, 0}, {7, 19}, {31, 31}} {
		x, z := probe[0], probe[1]
		h := g.height(x, z)
		if h < 0 || h >= chunk.Size {
			continue
		}
		if got := d.Get(chunk.Index(x, h, z)); got != g.grass {
			t.Fatalf("column (%d,%d): surface block %d, want grass", x, z, got)
		}
		if h+1 < chunk.Size {
			if got := d.Get(chunk.Index(x, h+1, z)); got != g.air {
				t.Fatalf("column (%d,%d): block above surface is %d", x, z, got)
			}
		}
	}
}

func TestUnknownBlockNameFails(t *testing.T) {
	cat := &catalogs.BlockCatalog{
		Palette: []string{"AIR"},
		Defs:    map[string]catalogs.BlockDef{"AIR": {ID: "AIR"}},
	}
	if _, err := NewGenerator(1, tuning.Defaults().Terrain, block.NewRegistry(cat)); err == nil {
		t.Fatal("NewGenerator accepted a palette without terrain blocks")
	}
}
