// Command replay reads the compressed tick logs a server wrote and
// prints a per-run summary, optionally dumping individual ticks.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"voxelstream.dev/internal/sim/engine"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory")
		fromTick = flag.Uint64("from_tick", 0, "start at tick (inclusive, optional)")
		toTick   = flag.Uint64("to_tick", 0, "stop at tick (inclusive, 0 = no limit)")
		dump     = flag.Bool("dump", false, "print every tick instead of the summary only")
	)
	flag.Parse()

	dir := filepath.Join(*dataDir, "ticks")
	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil || len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no tick logs under %s\n", dir)
		os.Exit(1)
	}
	sort.Strings(files)

	var (
		count                  int
		firstTick, lastTick    uint64
		maxLoadData, maxLoad   int
		maxResident, maxMeshed int
		sumResident            int64
	)
	for _, path := range files {
		if err := eachEntry(path, func(st engine.TickStats) {
			if st.Tick < *fromTick {
				return
			}
			if *toTick != 0 && st.Tick > *toTick {
				return
			}
			if count == 0 {
				firstTick = st.Tick
			}
			lastTick = st.Tick
			count++
			if st.LoadDataQueue > maxLoadData {
				maxLoadData = st.LoadDataQueue
			}
			if st.LoadMeshQueue > maxLoad {
				maxLoad = st.LoadMeshQueue
			}
			if st.Resident > maxResident {
				maxResident = st.Resident
			}
			if st.Meshed > maxMeshed {
				maxMeshed = st.Meshed
			}
			sumResident += int64(st.Resident)
			if *dump {
				fmt.Printf("tick=%d viewer=%v load_data=%d load_mesh=%d data_tasks=%d mesh_tasks=%d resident=%d meshed=%d\n",
					st.Tick, st.ViewerChunk, st.LoadDataQueue, st.LoadMeshQueue, st.DataTasks, st.MeshTasks, st.Resident, st.Meshed)
			}
		}); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
	}

	if count == 0 {
		fmt.Println("no ticks in range")
		return
	}
	fmt.Printf("ticks=%d range=[%d,%d] max_load_data=%d max_load_mesh=%d max_resident=%d max_meshed=%d avg_resident=%.1f\n",
		count, firstTick, lastTick, maxLoadData, maxLoad, maxResident, maxMeshed, float64(sumResident)/float64(count))
}

func eachEntry(path string, fn func(engine.TickStats)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		var st engine.TickStats
		if err := json.Unmarshal(sc.Bytes(), &st); err != nil {
			return err
		}
		fn(st)
	}
	return sc.Err()
}
