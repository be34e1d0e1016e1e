package chunk

import "testing"

func TestIndexCoordsRoundTrip(t *testing.T) {
	for i := 0; i < Size3; i++ {
		x, y, z := Coords(i)
		if j := Index(x, y, z); j != i {
			t.Fatalf("Index(Coords(%d)) = %d", i, j)
		}
	}
	if got := Index(1, 0, 0); got != 1 {
		t.Fatalf("x stride: got %d, want 1", got)
	}
	if got := Index(0, 1, 0); got != Size {
		t.Fatalf("y stride: got %d, want %d", got, Size)
	}
	if got := Index(0, 0, 1); got != Size2 {
		t.Fatalf("z stride: got %d, want %d", got, Size2)
	}
}

func TestIndexPanicsOutOfRange(t *testing.T) {
	cases := [][3]int{{-1, 0, 0}, {Size, 0, 0}, {0, -1, 0}, {0, Size, 0}, {0, 0, -1}, {0, 0, Size}}
	for _, c := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("Index(%v) did not panic", c)
				}
			}()
			Index(c[0], c[1], c[2])
		}()
	}
}

func TestHomogeneousStaysCompactOnSameWrite(t *testing.T) {
	d := NewHomogeneous(3)
	d.Set(Index(5, 6, 7), 3)
	if !d.Homogeneous() {
		t.Fatal("same-block write expanded the chunk")
	}
	if got := d.Get(Index(5, 6, 7)); got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}

func TestExpandAndCollapse(t *testing.T) {
	d := NewHomogeneous(0)
	i := Index(1, 2, 3)
	d.Set(i, 9)
	if d.Homogeneous() {
		t.Fatal("differing write did not expand")
	}
	if got := d.Get(i); got != 9 {
		t.Fatalf("got %d, want 9", got)
	}
	if got := d.Get(Index(0, 0, 0)); got != 0 {
		t.Fatalf("untouched voxel: got %d, want 0", got)
	}
	d.Set(i, 0)
	if !d.Homogeneous() {
		t.Fatal("reverting write did not collapse")
	}
	if u, ok := d.Uniform(); !ok || u != 0 {
		t.Fatalf("Uniform() = %d,%v", u, ok)
	}
}

func TestApplyBatchCollapsesOnce(t *testing.T) {
	d := NewHomogeneous(2)
	edits := []Edit{
		{Index(0, 0, 0), 7},
		{Index(1, 0, 0), 7},
		{Index(0, 0, 0), 2},
		{Index(1, 0, 0), 2},
	}
	d.Apply(edits)
	if !d.Homogeneous() {
		t.Fatal("batch ending uniform did not collapse")
	}

	d.Apply([]Edit{{Index(3, 3, 3), 5}})
	if d.Homogeneous() {
		t.Fatal("differing batch write did not expand")
	}
	if got := d.Get(Index(3, 3, 3)); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestApplyAllSameBlockNoExpand(t *testing.T) {
	d := NewHomogeneous(4)
	d.Apply([]Edit{{0, 4}, {100, 4}, {Size3 - 1, 4}})
	if !d.Homogeneous() {
		t.Fatal("no-op batch expanded the chunk")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	d := NewHomogeneous(0)
	d.Set(0, 1)
	c := d.Clone()
	c.Set(0, 2)
	if got := d.Get(0); got != 1 {
		t.Fatalf("clone write leaked into original: got %d", got)
	}
}

func TestFromVoxelsCollapsesUniform(t *testing.T) {
	v := make([]BlockID, Size3)
	for i := range v {
		v[i] = 6
	}
	d := FromVoxels(v)
	if !d.Homogeneous() {
		t.Fatal("uniform array did not collapse")
	}
	v2 := make([]BlockID, Size3)
	v2[17] = 1
	if FromVoxels(v2).Homogeneous() {
		t.Fatal("mixed array collapsed")
	}
}

func TestPositionAt(t *testing.T) {
	if got := PositionAt(0, 0, 0); got != (Position{0, 0, 0}) {
		t.Fatalf("got %+v", got)
	}
	if got := PositionAt(-1, 31, 32); got != (Position{-1, 0, 1}) {
		t.Fatalf("got %+v", got)
	}
	if got := PositionAt(-32, -33, 63); got != (Position{-1, -2, 1}) {
		t.Fatalf("got %+v", got)
	}
}
