package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz"`

	// MeshRadius is the spherical radius, in chunks, inside which
	// chunks are meshed. Chunk data is kept one chunk further out so
	// every meshable chunk has a full neighborhood.
	MeshRadius int `yaml:"mesh_radius"`

	// In-flight generation and meshing task caps.
	MaxDataTasks int `yaml:"max_data_tasks"`
	MaxMeshTasks int `yaml:"max_mesh_tasks"`

	Seed int64 `yaml:"seed"`

	Terrain Terrain `yaml:"terrain"`
}

type Terrain struct {
	// Chunks entirely above SkyLimitY are pure air, entirely below
	// DeepLimitY pure stone; generation skips the noise field there.
	SkyLimitY  int `yaml:"sky_limit_y"`
	DeepLimitY int `yaml:"deep_limit_y"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      20,
		MeshRadius:      6,
		MaxDataTasks:    64,
		MaxMeshTasks:    32,
		Seed:            1337,
		Terrain: Terrain{
			SkyLimitY:  21,
			DeepLimitY: -53,
		},
	}
}

// DataRadius is the chunk-data radius implied by the mesh radius.
func (t Tuning) DataRadius() int {
	return t.MeshRadius + 1
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", t.TickRateHz)
	}
	if t.MeshRadius <= 0 {
		return fmt.Errorf("mesh_radius must be positive, got %d", t.MeshRadius)
	}
	if t.MaxDataTasks <= 0 {
		return fmt.Errorf("max_data_tasks must be positive, got %d", t.MaxDataTasks)
	}
	if t.MaxMeshTasks <= 0 {
		return fmt.Errorf("max_mesh_tasks must be positive, got %d", t.MaxMeshTasks)
	}
	if t.Terrain.SkyLimitY <= t.Terrain.DeepLimitY {
		return fmt.Errorf("terrain sky_limit_y must be above deep_limit_y")
	}
	return nil
}
