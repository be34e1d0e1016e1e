package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 10\nmesh_radius: 3\nseed: 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TickRateHz != 10 || cfg.MeshRadius != 3 || cfg.Seed != 42 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Unset fields keep defaults.
	if cfg.MaxDataTasks != 64 || cfg.MaxMeshTasks != 32 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.DataRadius() != 4 {
		t.Fatalf("DataRadius = %d, want 4", cfg.DataRadius())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Tuning){
		func(c *Tuning) { c.TickRateHz = 0 },
		func(c *Tuning) { c.MeshRadius = -1 },
		func(c *Tuning) { c.MaxDataTasks = 0 },
		func(c *Tuning) { c.MaxMeshTasks = 0 },
		func(c *Tuning) { c.Terrain.SkyLimitY = -100 },
	}
	for i, mut := range cases {
		cfg := Defaults()
		mut(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: Validate accepted %+v", i, cfg)
		}
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
