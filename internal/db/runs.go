package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/rtgs.sim/internal/simulate"
	"github.com/banshee-data/rtgs.sim/internal/sweep"
)

// timeLayout is a fixed-width UTC timestamp so that text order is time
// order. RFC3339Nano parses it back.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// Run is one persisted simulation run.
type Run struct {
	RunID          string
	SweepID        string // empty for standalone runs
	StartedAt      time.Time
	Frames         int
	NumPEs         int
	Stride         int
	GroupSize      int
	TileWidth      int
	TileHeight     int
	SchedulePolicy string
	OccupiedPixels int
	InputGaussians int64
	SumAllGaussian int64
	MakespanCycles int64
	AreaMM2        float64
	LatencyS       float64
	EnergyPJ       float64
	ConfigJSON     string
}

// PowerW is run energy over run latency.
func (r *Run) PowerW() float64 {
	if r.LatencyS <= 0 {
		return 0
	}
	return r.EnergyPJ * 1e-12 / r.LatencyS
}

// RunFromResult flattens a simulation result into a Run row. The final
// frame supplies the grid and schedule figures.
func RunFromResult(res *simulate.Result, sweepID string) (Run, error) {
	cfgJSON, err := json.Marshal(res.Config)
	if err != nil {
		return Run{}, fmt.Errorf("failed to encode config: %w", err)
	}
	c := res.Config
	r := Run{
		RunID:          res.RunID,
		SweepID:        sweepID,
		StartedAt:      res.StartedAt,
		Frames:         len(res.Frames),
		NumPEs:         c.NumPEs,
		Stride:         c.Tiling.DownsampleStride,
		GroupSize:      c.Tiling.GroupSize,
		TileWidth:      c.Tiling.TileWidth,
		TileHeight:     c.Tiling.TileHeight,
		SchedulePolicy: c.SchedulePolicy,
		OccupiedPixels: res.OccupiedPixels,
		InputGaussians: res.InputGaussians,
		AreaMM2:        res.Totals.AreaMM2,
		LatencyS:       res.Totals.LatencyS,
		EnergyPJ:       res.Totals.EnergyPJ,
		ConfigJSON:     string(cfgJSON),
	}
	if f := res.Last(); f != nil {
		r.SumAllGaussian = f.Grid.SumAllGaussian
		r.MakespanCycles = f.Makespan
	}
	return r, nil
}

// SaveRun inserts a run.
func (db *DB) SaveRun(r Run) error {
	var sweepID interface{}
	if r.SweepID != "" {
		sweepID = r.SweepID
	}
	_, err := db.Exec(
		`INSERT INTO runs (
			run_id, sweep_id, started_at, frames, num_pes, downsample_stride, group_size,
			tile_width, tile_height, schedule_policy, occupied_pixels, input_gaussians,
			sum_all_gaussian, makespan_cycles, area_mm2, latency_s, energy_pj, config_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, sweepID, formatTime(r.StartedAt), r.Frames, r.NumPEs, r.Stride, r.GroupSize,
		r.TileWidth, r.TileHeight, r.SchedulePolicy, r.OccupiedPixels, r.InputGaussians,
		r.SumAllGaussian, r.MakespanCycles, r.AreaMM2, r.LatencyS, r.EnergyPJ, r.ConfigJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.RunID, err)
	}
	return nil
}

// SaveResult persists a simulation result.
func (db *DB) SaveResult(res *simulate.Result, sweepID string) error {
	r, err := RunFromResult(res, sweepID)
	if err != nil {
		return err
	}
	return db.SaveRun(r)
}

// Sweep is one persisted sweep header.
type Sweep struct {
	SweepID    string
	StartedAt  time.Time
	Points     int
	ParamsJSON string
}

// StartSweep records a sweep before its runs are saved.
func (db *DB) StartSweep(id string, startedAt time.Time, params sweep.Params, points int) error {
	p, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode sweep params: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO sweeps (sweep_id, started_at, points, params_json) VALUES (?, ?, ?, ?)`,
		id, formatTime(startedAt), points, string(p),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sweep %s: %w", id, err)
	}
	return nil
}

// Sweeps lists sweeps, newest first.
func (db *DB) Sweeps() ([]Sweep, error) {
	rows, err := db.Query(`SELECT sweep_id, started_at, points, params_json FROM sweeps ORDER BY started_at DESC, sweep_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sweep
	for rows.Next() {
		var s Sweep
		var started string
		if err := rows.Scan(&s.SweepID, &started, &s.Points, &s.ParamsJSON); err != nil {
			return nil, err
		}
		if s.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("sweep %s: bad started_at %q: %w", s.SweepID, started, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	SweepID string
	// Limit caps the number of rows; zero means no limit.
	Limit int
}

// ListRuns returns runs, newest first. Runs of a sweep are returned in the
// order they were saved.
func (db *DB) ListRuns(f RunFilter) ([]Run, error) {
	var (
		where []string
		args  []interface{}
	)
	order := "started_at DESC, rowid DESC"
	if f.SweepID != "" {
		where = append(where, "sweep_id = ?")
		args = append(args, f.SweepID)
		order = "rowid ASC"
	}

	q := `SELECT run_id, COALESCE(sweep_id, ''), started_at, frames, num_pes, downsample_stride, group_size,
		tile_width, tile_height, schedule_policy, occupied_pixels, input_gaussians,
		sum_all_gaussian, makespan_cycles, area_mm2, latency_s, energy_pj, config_json
		FROM runs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + order
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns a run by ID, or sql.ErrNoRows.
func (db *DB) GetRun(id string) (Run, error) {
	row := db.QueryRow(`SELECT run_id, COALESCE(sweep_id, ''), started_at, frames, num_pes, downsample_stride, group_size,
		tile_width, tile_height, schedule_policy, occupied_pixels, input_gaussians,
		sum_all_gaussian, makespan_cycles, area_mm2, latency_s, energy_pj, config_json
		FROM runs WHERE run_id = ?`, id)
	return scanRun(row)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var started string
	err := s.Scan(&r.RunID, &r.SweepID, &started, &r.Frames, &r.NumPEs, &r.Stride, &r.GroupSize,
		&r.TileWidth, &r.TileHeight, &r.SchedulePolicy, &r.OccupiedPixels, &r.InputGaussians,
		&r.SumAllGaussian, &r.MakespanCycles, &r.AreaMM2, &r.LatencyS, &r.EnergyPJ, &r.ConfigJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("run %s: bad started_at %q: %w", r.RunID, started, err)
	}
	return r, nil
}
