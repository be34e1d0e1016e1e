// Command admin queries the telemetry index db of a running or
// finished server.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	_ "modernc.org/sqlite"
)

func main() {
	var (
		dbPath = flag.String("db", "./data/index/telemetry.sqlite", "path to telemetry.sqlite")
		n      = flag.Int("n", 20, "row limit")
	)
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		fmt.Fprintln(os.Stderr, "usage: admin [-db path] [-n rows] ticks|meshes|catalogs")
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch cmd {
	case "ticks":
		err = printTicks(db, *n)
	case "meshes":
		err = printMeshes(db, *n)
	case "catalogs":
		err = printCatalogs(db)
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", cmd)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printTicks(db *sql.DB, n int) error {
	rows, err := db.Query(`SELECT tick, viewer_cx, viewer_cy, viewer_cz, load_data_queue, load_mesh_queue, data_tasks, mesh_tasks, resident, meshed
		FROM ticks ORDER BY tick DESC LIMIT ?`, n)
	if err != nil {
		return err
	}
	defer rows.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "tick\tviewer\tload_data\tload_mesh\tdata_tasks\tmesh_tasks\tresident\tmeshed")
	for rows.Next() {
		var tick int64
		var cx, cy, cz, ldq, lmq, dt, mt, res, mesh int
		if err := rows.Scan(&tick, &cx, &cy, &cz, &ldq, &lmq, &dt, &mt, &res, &mesh); err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t(%d,%d,%d)\t%d\t%d\t%d\t%d\t%d\t%d\n", tick, cx, cy, cz, ldq, lmq, dt, mt, res, mesh)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return tw.Flush()
}

func printMeshes(db *sql.DB, n int) error {
	rows, err := db.Query(`SELECT cx, cy, cz, quads, batches, build_us, tick
		FROM meshes ORDER BY quads DESC LIMIT ?`, n)
	if err != nil {
		return err
	}
	defer rows.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "chunk\tquads\tbatches\tbuild_us\ttick")
	for rows.Next() {
		var cx, cy, cz, quads, batches int
		var buildUS, tick int64
		if err := rows.Scan(&cx, &cy, &cz, &quads, &batches, &buildUS, &tick); err != nil {
			return err
		}
		fmt.Fprintf(tw, "(%d,%d,%d)\t%d\t%d\t%d\t%d\n", cx, cy, cz, quads, batches, buildUS, tick)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return tw.Flush()
}

func printCatalogs(db *sql.DB) error {
	rows, err := db.Query(`SELECT name, digest, updated_at FROM catalogs ORDER BY name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "name\tdigest\tupdated_at")
	for rows.Next() {
		var name, digest, updated string
		if err := rows.Scan(&name, &digest, &updated); err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, digest, updated)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return tw.Flush()
}
