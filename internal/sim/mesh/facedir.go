package mesh

// FaceDir identifies which side of a voxel a quad covers. The order
// matches the column-mask layout: each axis contributes a descending
// face (even) and an ascending face (odd).
type FaceDir int

const (
	FaceDown FaceDir = iota
	FaceUp
	FaceLeft
	FaceRight
	FaceForward
	FaceBack
)

// NormalIndex is the 3-bit normal id stored in packed quads.
func (f FaceDir) NormalIndex() uint32 {
	switch f {
	case FaceLeft:
		return 0
	case FaceRight:
		return 1
	case FaceDown:
		return 2
	case FaceUp:
		return 3
	case FaceForward:
		return 4
	default:
		return 5
	}
}

func (f FaceDir) String() string {
	switch f {
	case FaceDown:
		return "down"
	case FaceUp:
		return "up"
	case FaceLeft:
		return "left"
	case FaceRight:
		return "right"
	case FaceForward:
		return "forward"
	default:
		return "back"
	}
}

// samplePos maps a merged quad back to the voxel coordinates of its
// anchor. axis is the coordinate along the face normal, a/b are the
// in-plane row and bit positions of the binary plane for this
// direction.
func (f FaceDir) samplePos(axis, a, b int) (x, y, z int) {
	switch f {
	case FaceDown, FaceUp:
		return a, axis, b
	case FaceLeft, FaceRight:
		return axis, b, a
	default: // forward, back
		return a, b, axis
	}
}

// aoSampleOffset maps a 2D occlusion probe offset (u,v) to the 3D
// offset one step beyond the face.
func (f FaceDir) aoSampleOffset(u, v int) (x, y, z int) {
	switch f {
	case FaceDown:
		return u, -1, v
	case FaceUp:
		return u, 1, v
	case FaceLeft:
		return -1, v, u
	case FaceRight:
		return 1, v, u
	case FaceForward:
		return u, v, -1
	default:
		return u, v, 1
	}
}

// aoProbeDirs are the 2D offsets of the nine occlusion samples taken
// in the plane one voxel beyond each face, center included.
var aoProbeDirs = [9][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 0}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}
