package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	SessionID       string       `json:"session_id"`
	WorldParams     WorldParams  `json:"world_params"`
	BlockPalette    BlockPalette `json:"block_palette"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	ChunkSize  int   `json:"chunk_size"`
	MeshRadius int   `json:"mesh_radius"`
	DataRadius int   `json:"data_radius"`
	Seed       int64 `json:"seed"`
}

type BlockPalette struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// MOVE (client -> server): viewer position in world units.
type MoveMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Pos             [3]float32 `json:"pos"`
}

// MESH (server -> client): the full current mesh of one chunk. Sent
// zstd-compressed as a binary frame; an id of an already streamed
// chunk replaces its previous mesh.
type MeshMsg struct {
	Type    string      `json:"type"`
	Pos     [3]int      `json:"pos"`
	Tick    uint64      `json:"tick"`
	Batches []QuadBatch `json:"batches"`
}

// QuadBatch carries the packed quads sharing one block id.
type QuadBatch struct {
	Block uint16   `json:"block"`
	Quads []uint32 `json:"quads"`
}

// UNMESH (server -> client): retract a previously streamed chunk.
type UnmeshMsg struct {
	Type string `json:"type"`
	Pos  [3]int `json:"pos"`
}

// STATS (server -> client): periodic scheduler snapshot.
type StatsMsg struct {
	Type string `json:"type"`
	Tick uint64 `json:"tick"`

	LoadDataQueue int `json:"load_data_queue"`
	LoadMeshQueue int `json:"load_mesh_queue"`
	DataTasks     int `json:"data_tasks"`
	MeshTasks     int `json:"mesh_tasks"`
	Resident      int `json:"resident"`
	Meshed        int `json:"meshed"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
