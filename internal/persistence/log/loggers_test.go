package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"voxelstream.dev/internal/sim/chunk"
	"voxelstream.dev/internal/sim/engine"
)

func readEntries(t *testing.T, dir string) [][]byte {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("glob %s: %v (%d files)", dir, err, len(matches))
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var lines [][]byte
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestTickLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	for i := 1; i <= 3; i++ {
		if err := l.WriteTick(engine.TickStats{Tick: uint64(i), Resident: i * 10}); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readEntries(t, filepath.Join(dir, "ticks"))
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	var st engine.TickStats
	if err := json.Unmarshal(lines[2], &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Tick != 3 || st.Resident != 30 {
		t.Fatalf("entry = %+v", st)
	}
}

func TestMeshLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewMeshLogger(dir)
	err := l.WriteMesh(engine.MeshRecord{
		Pos:     chunk.Position{X: 1, Y: 2, Z: 3},
		Quads:   42,
		Batches: 2,
		Tick:    9,
	})
	if err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readEntries(t, filepath.Join(dir, "meshes"))
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	var e meshEntry
	if err := json.Unmarshal(lines[0], &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Pos != [3]int{1, 2, 3} || e.Quads != 42 || e.Tick != 9 {
		t.Fatalf("entry = %+v", e)
	}
}
