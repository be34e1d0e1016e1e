// Package block maps palette ids to the block properties the mesher
// and terrain generator care about.
package block

import (
	"fmt"

	"voxelstream.dev/internal/sim/catalogs"
	"voxelstream.dev/internal/sim/chunk"
)

type Block struct {
	ID          chunk.BlockID
	Name        string
	Solid       bool
	Transparent bool
	Color       [3]float32
}

// Registry is an immutable palette-ordered view of the block catalog.
// Lookups on the mesher hot path index a slice, not a map.
type Registry struct {
	byID   []Block
	byName map[string]chunk.BlockID
}

func NewRegistry(cat *catalogs.BlockCatalog) *Registry {
	r := &Registry{
		byID:   make([]Block, len(cat.Palette)),
		byName: make(map[string]chunk.BlockID, len(cat.Palette)),
	}
	for i, name := range cat.Palette {
		def := cat.Defs[name]
		r.byID[i] = Block{
			ID:          chunk.BlockID(i),
			Name:        name,
			Solid:       def.Solid,
			Transparent: def.Transparent,
			Color:       def.Color,
		}
		r.byName[name] = chunk.BlockID(i)
	}
	return r
}

func (r *Registry) Len() int { return len(r.byID) }

func (r *Registry) Get(id chunk.BlockID) Block {
	return r.byID[id]
}

// Solid reports whether the block occludes and emits faces. Unknown
// ids are treated as air so stale chunks never wedge the mesher.
func (r *Registry) Solid(id chunk.BlockID) bool {
	if int(id) >= len(r.byID) {
		return false
	}
	return r.byID[id].Solid
}

func (r *Registry) ByName(name string) (chunk.BlockID, error) {
	id, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("block: unknown block %q", name)
	}
	return id, nil
}

// MustByName is for wiring well-known blocks at startup.
func (r *Registry) MustByName(name string) chunk.BlockID {
	id, err := r.ByName(name)
	if err != nil {
		panic(err)
	}
	return id
}
