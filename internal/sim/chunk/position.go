package chunk

import "voxelstream.dev/internal/sim/mathx"

// Position is a chunk coordinate in chunk units (world position / Size).
type Position struct {
	X, Y, Z int
}

func (p Position) Add(o Position) Position {
	return Position{p.X + o.X, p.Y + o.Y, p.Z + o.Z}
}

func (p Position) Sub(o Position) Position {
	return Position{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

// DistSq is the squared euclidean distance in chunk units. Distance
// ordering never needs the square root.
func (p Position) DistSq(o Position) int {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// WorldOrigin is the world-space block coordinate of the chunk's
// (0,0,0) voxel.
func (p Position) WorldOrigin() (int, int, int) {
	return p.X * Size, p.Y * Size, p.Z * Size
}

// PositionAt maps a world-space block coordinate to the chunk that
// contains it.
func PositionAt(wx, wy, wz int) Position {
	return Position{
		X: mathx.FloorDiv(wx, Size),
		Y: mathx.FloorDiv(wy, Size),
		Z: mathx.FloorDiv(wz, Size),
	}
}
