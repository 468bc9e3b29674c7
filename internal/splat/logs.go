package splat

import (
	"bufio"
	"fmt"
	"io"
)

// WriteAssignments writes one line per scheduling decision in the order the
// decisions were made.
func WriteAssignments(w io.Writer, s *Schedule) error {
	bw := bufio.NewWriter(w)
	for _, a := range s.Assignments {
		if _, err := fmt.Fprintf(bw, "PE %02d assigned %d cycles, total load: %d cycles\n", a.PE, a.Cycles, a.Load); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteImbalance writes one line per tile with its workload statistics.
func WriteImbalance(w io.Writer, ts *TileSet) error {
	bw := bufio.NewWriter(w)
	for _, t := range ts.Tiles {
		if _, err := fmt.Fprintf(bw, "tile %d_%d raw_max %d avg_max %d group_max %d sum %d\n",
			t.Row, t.Col, t.RawMax, t.AvgMax, t.GroupMax, t.Sum); err != nil {
			return err
		}
	}
	return bw.Flush()
}
