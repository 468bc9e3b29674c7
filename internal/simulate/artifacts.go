package simulate

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/banshee-data/rtgs.sim/internal/fsutil"
	"github.com/banshee-data/rtgs.sim/internal/monitoring"
	"github.com/banshee-data/rtgs.sim/internal/splat"
)

// Default names of the diagnostic logs.
const (
	DefaultAssignLog    = "assign.txt"
	DefaultImbalanceLog = "imbalance.txt"
)

// Diagnostics names the best-effort text logs written after a run. Empty
// paths are skipped.
type Diagnostics struct {
	AssignLog    string
	ImbalanceLog string
}

// WriteDiagnostics writes the PE assignment and tile imbalance logs of the
// final frame. Failures are logged and reported in the returned count; they
// never fail the run.
func WriteDiagnostics(fsys fsutil.FileSystem, res *Result, d Diagnostics) (failures int) {
	last := res.Last()
	if last == nil {
		return 0
	}
	if d.AssignLog != "" {
		if err := writeWith(fsys, d.AssignLog, func(w io.Writer) error {
			return splat.WriteAssignments(w, last.Schedule)
		}); err != nil {
			monitoring.Logf("warning: assignment log %s not written: %v", d.AssignLog, err)
			failures++
		}
	}
	if d.ImbalanceLog != "" {
		if err := writeWith(fsys, d.ImbalanceLog, func(w io.Writer) error {
			return splat.WriteImbalance(w, last.Tiles)
		}); err != nil {
			monitoring.Logf("warning: imbalance log %s not written: %v", d.ImbalanceLog, err)
			failures++
		}
	}
	return failures
}

func writeWith(fsys fsutil.FileSystem, path string, fn func(io.Writer) error) error {
	if err := fsutil.EnsureDir(fsys, path); err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON writes the run result as an indented JSON artifact.
func WriteJSON(fsys fsutil.FileSystem, path string, res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := fsutil.EnsureDir(fsys, path); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if err := fsys.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
