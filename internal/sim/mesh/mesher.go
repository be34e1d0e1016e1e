package mesh

import (
	"math/bits"
	"sort"

	"voxelstream.dev/internal/sim/block"
	"voxelstream.dev/internal/sim/chunk"
	"voxelstream.dev/internal/sim/world"
)

// QuadBatch holds all quads of one chunk that share a block id. The
// quad encoding has no room for the block, so the renderer binds per
// batch.
type QuadBatch struct {
	Block chunk.BlockID
	Quads []Quad
}

// ChunkMesh is the surface extraction result for one chunk.
type ChunkMesh struct {
	Pos     chunk.Position
	Batches []QuadBatch
}

func (m *ChunkMesh) QuadCount() int {
	n := 0
	for _, b := range m.Batches {
		n += len(b.Quads)
	}
	return n
}

// Mesher extracts greedy-merged surface quads from chunk
// neighborhoods. Safe for concurrent use; all state is per-call.
type Mesher struct {
	reg *block.Registry
}

func NewMesher(reg *block.Registry) *Mesher {
	return &Mesher{reg: reg}
}

const sizeP = chunk.SizePadded

// Build extracts the mesh for the neighborhood's center chunk.
// Returns nil when no faces survive culling, including the fast path
// where all 27 chunks are uniform with the same block.
func (m *Mesher) Build(n *world.Neighborhood) *ChunkMesh {
	if n.AllUniform() {
		return nil
	}

	// One solidity bitmask column per axis: axis 0 stores y runs at
	// [z][x], axis 1 stores x runs at [y][z], axis 2 stores z runs at
	// [y][x]. Padded by one voxel on each side from the neighbors so
	// border faces cull correctly.
	var axisCols [3][sizeP][sizeP]uint64

	set := func(x, y, z int, id chunk.BlockID) {
		if m.reg.Solid(id) {
			axisCols[0][z][x] |= 1 << uint(y)
			axisCols[1][y][z] |= 1 << uint(x)
			axisCols[2][y][x] |= 1 << uint(z)
		}
	}

	for z := 0; z < chunk.Size; z++ {
		for y := 0; y < chunk.Size; y++ {
			for x := 0; x < chunk.Size; x++ {
				set(x+1, y+1, z+1, n.CenterBlock(x, y, z))
			}
		}
	}

	// Border shells, sampled through the neighbors.
	for _, z := range [2]int{0, sizeP - 1} {
		for y := 0; y < sizeP; y++ {
			for x := 0; x < sizeP; x++ {
				set(x, y, z, n.Block(x-1, y-1, z-1))
			}
		}
	}
	for z := 0; z < sizeP; z++ {
		for _, y := range [2]int{0, sizeP - 1} {
			for x := 0; x < sizeP; x++ {
				set(x, y, z, n.Block(x-1, y-1, z-1))
			}
		}
	}
	for z := 0; z < sizeP; z++ {
		for y := 0; y < sizeP; y++ {
			for _, x := range [2]int{0, sizeP - 1} {
				set(x, y, z, n.Block(x-1, y-1, z-1))
			}
		}
	}

	planes := m.binFaces(n, &axisCols)

	byBlock := map[chunk.BlockID][]Quad{}
	for dir := FaceDown; dir <= FaceBack; dir++ {
		emitDirection(planes[dir], dir, byBlock)
	}
	if len(byBlock) == 0 {
		return nil
	}

	out := &ChunkMesh{Pos: n.Center}
	ids := make([]chunk.BlockID, 0, len(byBlock))
	for id := range byBlock {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		out.Batches = append(out.Batches, QuadBatch{Block: id, Quads: byBlock[id]})
	}
	return out
}

// mergeKey groups faces that may greedy-merge: the block id and the
// full 9-bit occlusion sample mask must both match, so shading never
// bleeds across a merged rectangle.
type mergeKey uint32

func makeMergeKey(aoMask uint32, id chunk.BlockID) mergeKey {
	return mergeKey(aoMask | uint32(id)<<9)
}

func (k mergeKey) aoMask() uint32       { return uint32(k) & 0x1ff }
func (k mergeKey) block() chunk.BlockID { return chunk.BlockID(k >> 9) }

// binFaces culls faces against the padded columns and bins the
// survivors into binary planes keyed by direction, merge key and the
// position along the face normal.
func (m *Mesher) binFaces(
	n *world.Neighborhood,
	axisCols *[3][sizeP][sizeP]uint64,
) [6]map[mergeKey]map[int]*[chunk.Size]uint32 {
	// A face exists where a solid run meets air: descending faces at
	// col & ^(col<<1), ascending at col & ^(col>>1).
	var faceMasks [6][sizeP][sizeP]uint64
	for axis := 0; axis < 3; axis++ {
		for a := 0; a < sizeP; a++ {
			for b := 0; b < sizeP; b++ {
				col := axisCols[axis][a][b]
				faceMasks[2*axis][a][b] = col &^ (col << 1)
				faceMasks[2*axis+1][a][b] = col &^ (col >> 1)
			}
		}
	}

	var planes [6]map[mergeKey]map[int]*[chunk.Size]uint32
	for dir := FaceDown; dir <= FaceBack; dir++ {
		planes[dir] = map[mergeKey]map[int]*[chunk.Size]uint32{}

		for a := 0; a < chunk.Size; a++ {
			for b := 0; b < chunk.Size; b++ {
				col := faceMasks[dir][a+1][b+1]
				// The padding bits carry neighbor faces; strip them.
				col >>= 1
				col &^= 1 << chunk.Size

				for col != 0 {
					axis := bits.TrailingZeros64(col)
					col &= col - 1

					// Recover voxel coordinates from the column
					// layout of this direction's source axis.
					var vx, vy, vz int
					switch dir {
					case FaceDown, FaceUp:
						vx, vy, vz = b, axis, a
					case FaceLeft, FaceRight:
						vx, vy, vz = axis, a, b
					default:
						vx, vy, vz = b, a, axis
					}

					var aoMask uint32
					for i, probe := range aoProbeDirs {
						ox, oy, oz := dir.aoSampleOffset(probe[0], probe[1])
						if m.reg.Solid(n.Block(vx+ox, vy+oy, vz+oz)) {
							aoMask |= 1 << uint(i)
						}
					}

					id := n.CenterBlock(vx, vy, vz)
					key := makeMergeKey(aoMask, id)

					// Plane rows run along b, bits along a.
					byAxis := planes[dir][key]
					if byAxis == nil {
						byAxis = map[int]*[chunk.Size]uint32{}
						planes[dir][key] = byAxis
					}
					plane := byAxis[axis]
					if plane == nil {
						plane = new([chunk.Size]uint32)
						byAxis[axis] = plane
					}
					plane[b] |= 1 << uint(a)
				}
			}
		}
	}
	return planes
}

// emitDirection greedy-merges every binned plane of one face
// direction and packs the results, grouped by block id. Keys are
// walked in sorted order so output is deterministic.
func emitDirection(
	byKey map[mergeKey]map[int]*[chunk.Size]uint32,
	dir FaceDir,
	out map[chunk.BlockID][]Quad,
) {
	keys := make([]mergeKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		byAxis := byKey[key]
		axes := make([]int, 0, len(byAxis))
		for axis := range byAxis {
			axes = append(axes, axis)
		}
		sort.Ints(axes)

		ao := aoCount(key.aoMask())
		id := key.block()
		for _, axis := range axes {
			for _, gq := range greedyMeshBinaryPlane(byAxis[axis]) {
				x, y, z := dir.samplePos(axis, gq.x, gq.y)
				out[id] = append(out[id], PackQuad(x, y, z, dir.NormalIndex(), ao, gq.w, gq.h))
			}
		}
	}
}
