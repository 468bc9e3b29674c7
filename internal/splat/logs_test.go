package splat

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/rtgs.sim/internal/config"
)

func TestWriteAssignments(t *testing.T) {
	s, err := Distribute([]int64{12, 0, 7}, 2, config.PolicyRaster)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteAssignments(&buf, s); err != nil {
		t.Fatalf("WriteAssignments failed: %v", err)
	}
	want := "PE 00 assigned 12 cycles, total load: 12 cycles\n" +
		"PE 01 assigned 0 cycles, total load: 0 cycles\n" +
		"PE 01 assigned 7 cycles, total load: 7 cycles\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("assign log mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteImbalance(t *testing.T) {
	ts := &TileSet{Tiles: []TileStats{
		{Row: 0, Col: 0, RawMax: 3, AvgMax: 2, GroupMax: 2, Sum: 24},
		{Row: 0, Col: 1},
	}}
	var buf bytes.Buffer
	if err := WriteImbalance(&buf, ts); err != nil {
		t.Fatalf("WriteImbalance failed: %v", err)
	}
	want := "tile 0_0 raw_max 3 avg_max 2 group_max 2 sum 24\n" +
		"tile 0_1 raw_max 0 avg_max 0 group_max 0 sum 0\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("imbalance log mismatch (-want +got):\n%s", diff)
	}
}
