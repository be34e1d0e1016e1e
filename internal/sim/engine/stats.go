package engine

import (
	"time"

	"voxelstream.dev/internal/sim/chunk"
)

// TickStats is a snapshot of the scheduler taken at the end of a tick.
type TickStats struct {
	Tick        uint64         `json:"tick"`
	ViewerChunk chunk.Position `json:"viewer_chunk"`

	LoadDataQueue   int `json:"load_data_queue"`
	UnloadDataQueue int `json:"unload_data_queue"`
	LoadMeshQueue   int `json:"load_mesh_queue"`
	UnloadMeshQueue int `json:"unload_mesh_queue"`
	DataTasks       int `json:"data_tasks"`
	MeshTasks       int `json:"mesh_tasks"`

	Resident int `json:"resident"`
	Meshed   int `json:"meshed"`
}

// MeshRecord describes one completed mesh build.
type MeshRecord struct {
	Pos     chunk.Position
	Quads   int
	Batches int
	Build   time.Duration
	Tick    uint64
}
