package chunk

import "fmt"

const (
	// Size is the chunk edge length in voxels.
	Size = 32
	// SizePadded is the edge length plus a one-voxel border on each
	// side, used by neighborhood sampling.
	SizePadded = Size + 2

	Size2 = Size * Size
	Size3 = Size * Size * Size
)

// BlockID indexes the block palette. 0 is always air.
type BlockID uint16

const Air BlockID = 0

// Index maps local voxel coordinates to a flat array offset,
// x fastest, then y, then z. Panics on out-of-range input.
func Index(x, y, z int) int {
	if x < 0 || x >= Size || y < 0 || y >= Size || z < 0 || z >= Size {
		panic(fmt.Sprintf("chunk: voxel coordinate out of range: (%d,%d,%d)", x, y, z))
	}
	return x + y*Size + z*Size2
}

// Coords is the inverse of Index.
func Coords(i int) (x, y, z int) {
	if i < 0 || i >= Size3 {
		panic(fmt.Sprintf("chunk: voxel index out of range: %d", i))
	}
	return i % Size, (i / Size) % Size, i / Size2
}

// An Edit assigns a block to one voxel of a chunk.
type Edit struct {
	Index int
	Block BlockID
}

// Data holds the voxels of one chunk. A chunk whose voxels are all the
// same block stores only that block id; it expands to a full voxel
// array on the first differing write and collapses back when writes
// leave it uniform again.
//
// Data values published to the shared world map are treated as
// immutable; mutation goes through Clone first.
type Data struct {
	uniform BlockID
	voxels  []BlockID // nil when homogeneous
}

// NewHomogeneous returns a chunk filled with a single block.
func NewHomogeneous(b BlockID) *Data {
	return &Data{uniform: b}
}

// FromVoxels builds a chunk from a full voxel array, collapsing to the
// homogeneous form when every entry matches. The slice is retained.
func FromVoxels(voxels []BlockID) *Data {
	if len(voxels) != Size3 {
		panic(fmt.Sprintf("chunk: voxel array has length %d, want %d", len(voxels), Size3))
	}
	u := voxels[0]
	for _, v := range voxels[1:] {
		if v != u {
			return &Data{voxels: voxels}
		}
	}
	return &Data{uniform: u}
}

// Homogeneous reports whether the chunk is stored as a single block id.
func (d *Data) Homogeneous() bool {
	return d.voxels == nil
}

// Uniform returns the single block id when the chunk is homogeneous.
func (d *Data) Uniform() (BlockID, bool) {
	if d.voxels == nil {
		return d.uniform, true
	}
	return 0, false
}

func (d *Data) Get(i int) BlockID {
	if d.voxels == nil {
		if i < 0 || i >= Size3 {
			panic(fmt.Sprintf("chunk: voxel index out of range: %d", i))
		}
		return d.uniform
	}
	return d.voxels[i]
}

// Set writes one voxel. A write that differs from a homogeneous
// chunk's block expands it; a write that leaves a heterogeneous chunk
// uniform collapses it.
func (d *Data) Set(i int, b BlockID) {
	if d.voxels == nil {
		if i < 0 || i >= Size3 {
			panic(fmt.Sprintf("chunk: voxel index out of range: %d", i))
		}
		if b == d.uniform {
			return
		}
		d.expand()
	}
	d.voxels[i] = b
	d.tryCollapse()
}

// Apply performs a batch of edits with a single homogeneity rescan at
// the end.
func (d *Data) Apply(edits []Edit) {
	if len(edits) == 0 {
		return
	}
	if d.voxels == nil {
		changed := false
		for _, e := range edits {
			if e.Index < 0 || e.Index >= Size3 {
				panic(fmt.Sprintf("chunk: voxel index out of range: %d", e.Index))
			}
			if e.Block != d.uniform {
				changed = true
			}
		}
		if !changed {
			return
		}
		d.expand()
	}
	for _, e := range edits {
		d.voxels[e.Index] = e.Block
	}
	d.tryCollapse()
}

// Clone returns an independent copy. Used for copy-on-write updates of
// chunks already published to the world map.
func (d *Data) Clone() *Data {
	if d.voxels == nil {
		return &Data{uniform: d.uniform}
	}
	v := make([]BlockID, Size3)
	copy(v, d.voxels)
	return &Data{voxels: v}
}

func (d *Data) expand() {
	v := make([]BlockID, Size3)
	if d.uniform != 0 {
		for i := range v {
			v[i] = d.uniform
		}
	}
	d.voxels = v
	d.uniform = 0
}

func (d *Data) tryCollapse() {
	u := d.voxels[0]
	for _, v := range d.voxels[1:] {
		if v != u {
			return
		}
	}
	d.uniform = u
	d.voxels = nil
}
