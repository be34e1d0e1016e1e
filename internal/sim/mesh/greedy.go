package mesh

import (
	"math/bits"

	"voxelstream.dev/internal/sim/chunk"
)

// greedyQuad is a merged rectangle in a binary plane: rows [x, x+w),
// bits [y, y+h).
type greedyQuad struct {
	x, y, w, h int
}

// greedyMeshBinaryPlane merges the set bits of a 32x32 binary plane
// into maximal rectangles. Rectangles grow along the bit axis first,
// then across rows; consumed bits are cleared so every set bit is
// covered exactly once. The plane is mutated.
func greedyMeshBinaryPlane(data *[chunk.Size]uint32) []greedyQuad {
	var quads []greedyQuad
	for row := 0; row < chunk.Size; row++ {
		y := 0
		for y < chunk.Size {
			y += bits.TrailingZeros32(data[row] >> y)
			if y >= chunk.Size {
				break
			}
			h := bits.TrailingZeros32(^(data[row] >> y))
			// h ones as a mask: 1 -> 0b1, 2 -> 0b11 ...
			var hMask uint32
			if h >= 32 {
				hMask = ^uint32(0)
			} else {
				hMask = 1<<h - 1
			}
			mask := hMask << y

			w := 1
			for row+w < chunk.Size {
				next := (data[row+w] >> y) & hMask
				if next != hMask {
					break
				}
				data[row+w] &^= mask
				w++
			}
			quads = append(quads, greedyQuad{x: row, y: y, w: w, h: h})
			y += h
		}
	}
	return quads
}
