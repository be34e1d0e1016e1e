package world

import "voxelstream.dev/internal/sim/chunk"

// centerSlot is the index of the middle chunk in the 3x3x3 slot cube.
const centerSlot = 13

// Neighborhood is a read-only view of a chunk and its 26 neighbors,
// slot order x fastest, then y, then z. It pins the chunk data it was
// built from, so a mesh worker keeps a consistent snapshot even if the
// map evicts or replaces chunks mid-build.
type Neighborhood struct {
	slots  [27]*chunk.Data
	Center chunk.Position
}

// SlotIndex maps a slot offset in {0,1,2}^3 to its index in the cube.
func SlotIndex(x, y, z int) int {
	return x + y*3 + z*9
}

// NewNeighborhood captures the 27 chunks centered on pos. It returns
// false if any of them is not resident; the caller retries later.
func NewNeighborhood(m *Map, pos chunk.Position) (*Neighborhood, bool) {
	n := &Neighborhood{Center: pos}
	i := 0
	for z := -1; z <= 1; z++ {
		for y := -1; y <= 1; y++ {
			for x := -1; x <= 1; x++ {
				d, ok := m.Get(pos.Add(chunk.Position{X: x, Y: y, Z: z}))
				if !ok {
					return nil, false
				}
				n.slots[i] = d
				i++
			}
		}
	}
	return n, true
}

// Block reads a voxel by coordinates relative to the center chunk.
// Coordinates may reach one full chunk beyond the center on every
// axis, i.e. each must lie in [-32, 64).
func (n *Neighborhood) Block(x, y, z int) chunk.BlockID {
	// Shift into [0, 96) so slot and local offset fall out of one
	// div/mod per axis.
	px := x + chunk.Size
	py := y + chunk.Size
	pz := z + chunk.Size
	slot := SlotIndex(px/chunk.Size, py/chunk.Size, pz/chunk.Size)
	return n.slots[slot].Get(chunk.Index(px%chunk.Size, py%chunk.Size, pz%chunk.Size))
}

// CenterBlock reads a voxel of the center chunk only. Panics if the
// coordinates leave the center chunk.
func (n *Neighborhood) CenterBlock(x, y, z int) chunk.BlockID {
	return n.slots[centerSlot].Get(chunk.Index(x, y, z))
}

// AllUniform reports whether all 27 chunks are homogeneous with the
// same block, in which case no surface can exist anywhere in the
// center chunk and meshing can be skipped outright.
func (n *Neighborhood) AllUniform() bool {
	u, ok := n.slots[0].Uniform()
	if !ok {
		return false
	}
	for _, d := range n.slots[1:] {
		v, ok := d.Uniform()
		if !ok || v != u {
			return false
		}
	}
	return true
}
