// Package world holds the resident chunk set and the 27-chunk
// neighborhood views the mesher samples through.
package world

import "voxelstream.dev/internal/sim/chunk"

// Map is the set of resident chunks. Accessed only from the engine
// loop goroutine; chunk data handed out from here is immutable, so
// worker goroutines may read it concurrently.
type Map struct {
	chunks map[chunk.Position]*chunk.Data
}

func NewMap() *Map {
	return &Map{chunks: map[chunk.Position]*chunk.Data{}}
}

func (m *Map) Get(pos chunk.Position) (*chunk.Data, bool) {
	d, ok := m.chunks[pos]
	return d, ok
}

func (m *Map) Contains(pos chunk.Position) bool {
	_, ok := m.chunks[pos]
	return ok
}

// Put publishes a chunk, replacing any previous data at pos.
func (m *Map) Put(pos chunk.Position, d *chunk.Data) {
	m.chunks[pos] = d
}

func (m *Map) Remove(pos chunk.Position) {
	delete(m.chunks, pos)
}

func (m *Map) Len() int {
	return len(m.chunks)
}
