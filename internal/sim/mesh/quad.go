package mesh

import "math/bits"

// Quad is one merged face packed into 32 bits, LSB first:
//
//	bits  0-4   x        anchor voxel x, 0..31
//	bits  5-9   y        anchor voxel y, 0..31
//	bits 10-14  z        anchor voxel z, 0..31
//	bits 15-17  normal   face normal id, see FaceDir.NormalIndex
//	bits 18-21  ao       occluder count, 0..8
//	bits 22-26  w        extent minus one along the first in-plane axis
//	bits 27-31  h        extent minus one along the second in-plane axis
//
// The anchor is the minimum-corner voxel the face belongs to; faces on
// the positive side of a voxel (up, right, back) sit on the +1 plane
// of the anchor along the normal axis. Extents are stored minus one so
// a full 32-voxel run fits the 5-bit field. The in-plane axes per
// normal are: down/up w=x h=z, left/right w=z h=y, forward/back
// w=x h=y.
type Quad uint32

const (
	quadYShift      = 5
	quadZShift      = 10
	quadNormalShift = 15
	quadAOShift     = 18
	quadWShift      = 22
	quadHShift      = 27
)

// PackQuad builds a Quad from anchor coordinates, a normal id, an
// occluder count and the actual (not stored) extents w and h in
// 1..32.
func PackQuad(x, y, z int, normal, ao uint32, w, h int) Quad {
	return Quad(uint32(x) |
		uint32(y)<<quadYShift |
		uint32(z)<<quadZShift |
		normal<<quadNormalShift |
		ao<<quadAOShift |
		uint32(w-1)<<quadWShift |
		uint32(h-1)<<quadHShift)
}

func (q Quad) X() int { return int(q & 31) }
func (q Quad) Y() int { return int(q>>quadYShift) & 31 }
func (q Quad) Z() int { return int(q>>quadZShift) & 31 }

func (q Quad) Normal() uint32 { return uint32(q>>quadNormalShift) & 7 }
func (q Quad) AO() uint32     { return uint32(q>>quadAOShift) & 15 }

// W and H return the actual extents, 1..32.
func (q Quad) W() int { return int(q>>quadWShift)&31 + 1 }
func (q Quad) H() int { return int(q>>quadHShift)&31 + 1 }

// aoCenterBit is the center probe in the 9-bit occlusion sample mask.
const aoCenterBit = 1 << 4

// aoCount folds an occlusion sample mask down to the occluder count
// stored in the quad: the eight ring samples, center excluded. A
// visible face never has a solid center sample, but the mask keys
// merging with all nine bits, so the count masks it off explicitly.
func aoCount(mask uint32) uint32 {
	return uint32(bits.OnesCount32(mask &^ aoCenterBit))
}
