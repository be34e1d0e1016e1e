// Package terrain generates chunk voxel data from layered simplex
// noise. Generation is pure: the same seed and chunk position always
// produce identical data, so chunks can be dropped and regenerated
// freely.
package terrain

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"voxelstream.dev/internal/sim/block"
	"voxelstream.dev/internal/sim/chunk"
	"voxelstream.dev/internal/sim/tuning"
)

const (
	baseFreq  = 0.0254
	heightAmp = 20

	caveFreq      = 0.08
	caveThreshold = 0.75
	// Caves never carve below this depth, which keeps the deep-chunk
	// shortcut exact.
	caveFloorY = -40

	grassDepth = 1
	dirtDepth  = 5
)

type Generator struct {
	noise opensimplex.Noise32
	cfg   tuning.Terrain

	air, grass, dirt, stone chunk.BlockID
}

func NewGenerator(seed int64, cfg tuning.Terrain, reg *block.Registry) (*Generator, error) {
	g := &Generator{
		noise: opensimplex.New32(seed),
		cfg:   cfg,
	}
	var err error
	if g.air, err = reg.ByName("AIR"); err != nil {
		return nil, err
	}
	if g.grass, err = reg.ByName("GRASS"); err != nil {
		return nil, err
	}
	if g.dirt, err = reg.ByName("DIRT"); err != nil {
		return nil, err
	}
	if g.stone, err = reg.ByName("STONE"); err != nil {
		return nil, err
	}
	return g, nil
}

// Generate produces the voxel data for one chunk. Chunks entirely
// above the sky limit or below the deep limit skip the noise field and
// come back homogeneous.
func (g *Generator) Generate(pos chunk.Position) *chunk.Data {
	wx0, wy0, wz0 := pos.WorldOrigin()

	if wy0 > g.cfg.SkyLimitY {
		return chunk.NewHomogeneous(g.air)
	}
	if wy0+chunk.Size-1 < g.cfg.DeepLimitY {
		return chunk.NewHomogeneous(g.stone)
	}

	voxels := make([]chunk.BlockID, chunk.Size3)
	for z := 0; z < chunk.Size; z++ {
		wz := wz0 + z
		for y := 0; y < chunk.Size; y++ {
			wy := wy0 + y
			for x := 0; x < chunk.Size; x++ {
				wx := wx0 + x
				voxels[chunk.Index(x, y, z)] = g.blockAt(wx, wy, wz)
			}
		}
	}
	return chunk.FromVoxels(voxels)
}

func (g *Generator) blockAt(wx, wy, wz int) chunk.BlockID {
	h := g.height(wx, wz)
	if wy > h {
		return g.air
	}
	if wy >= caveFloorY && wy <= h-dirtDepth && g.caveAt(wx, wy, wz) {
		return g.air
	}
	switch depth := h - wy; {
	case depth < grassDepth:
		return g.grass
	case depth < dirtDepth:
		return g.dirt
	default:
		return g.stone
	}
}

// height is the terrain surface at a world column.
func (g *Generator) height(wx, wz int) int {
	v := g.noise.Eval2(float32(wx)*baseFreq, float32(wz)*baseFreq)
	return int(v * heightAmp)
}

func (g *Generator) caveAt(wx, wy, wz int) bool {
	v := g.noise.Eval3(float32(wx)*caveFreq, float32(wy)*caveFreq, float32(wz)*caveFreq)
	return v > caveThreshold
}
