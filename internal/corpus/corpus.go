// Package corpus reads trajectory corpora from disk. The on-disk shape is
// the Porto taxi format: CSV with a "polyline" column whose value is a JSON
// array of [lng, lat] pairs in decimal degrees.
package corpus

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/trajectory.report/internal/geo"
)

// Load reads up to limit trajectories from the CSV file at path. A limit of
// 0 or less reads everything. Rows whose polyline has fewer than two points
// carry no edges and are skipped with a summary log line; malformed rows
// are hard errors.
func Load(path string, limit int) ([][]geo.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	ts, skipped, err := read(f, limit)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	if skipped > 0 {
		log.Printf("corpus %s: skipped %d trajectories shorter than 2 points", path, skipped)
	}
	return ts, nil
}

func read(r io.Reader, limit int) ([][]geo.Point, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	polylineCol := -1
	for i, name := range header {
		if name == "polyline" {
			polylineCol = i
			break
		}
	}
	if polylineCol < 0 {
		return nil, 0, fmt.Errorf("no polyline column in header %v", header)
	}

	var ts [][]geo.Point
	skipped := 0
	for limit <= 0 || len(ts) < limit {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row %d: %w", len(ts)+skipped+1, err)
		}
		if polylineCol >= len(record) {
			return nil, 0, fmt.Errorf("row %d has no polyline field", len(ts)+skipped+1)
		}

		t, err := parsePolyline(record[polylineCol])
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", len(ts)+skipped+1, err)
		}
		if len(t) < 2 {
			skipped++
			continue
		}
		ts = append(ts, t)
	}
	return ts, skipped, nil
}

// parsePolyline decodes a JSON array of [lng, lat] degree pairs into points.
func parsePolyline(s string) ([]geo.Point, error) {
	var pairs [][2]float64
	if err := json.Unmarshal([]byte(s), &pairs); err != nil {
		return nil, fmt.Errorf("parse polyline: %w", err)
	}
	t := make([]geo.Point, len(pairs))
	for i, pair := range pairs {
		t[i] = geo.NewPoint(pair[1], pair[0])
	}
	return t, nil
}
