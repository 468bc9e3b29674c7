package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtgs.sim/internal/config"
	"github.com/banshee-data/rtgs.sim/internal/monitoring"
	"github.com/banshee-data/rtgs.sim/internal/simulate"
	"github.com/banshee-data/rtgs.sim/internal/splat"
)

func runFixture(t *testing.T) *simulate.Result {
	t.Helper()
	monitoring.SetLogger(nil)

	cfg := config.DefaultArchConfig()
	cfg.Frame.Width = 64
	cfg.Frame.Height = 32
	cfg.NumPEs = 4
	pixels := splat.PixelBucket{
		{U: 0, V: 0}:   {0, 1, 2},
		{U: 1, V: 0}:   {8, 9}, // between stride points
		{U: 20, V: 4}:  {3},
		{U: 48, V: 16}: {4, 5, 6, 7},
	}
	res, err := simulate.Run(context.Background(), pixels, simulate.Options{Config: cfg})
	require.NoError(t, err)
	return res
}

func TestWriteSummary(t *testing.T) {
	res := &simulate.Result{Totals: simulate.Totals{AreaMM2: 28.402742416000002, LatencyS: 2e-4, EnergyPJ: 1e9}}
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, res))

	want := "Total area: 28.4027424160 mm²\n" +
		"Latency: 0.0002000000 s\n" +
		"Energy: 0.0010000000 J\n" +
		"Power: 5.00 W\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteDetails(t *testing.T) {
	res := runFixture(t)
	var buf bytes.Buffer
	require.NoError(t, WriteDetails(&buf, res))

	out := buf.String()
	for _, want := range []string{"tiles", "4x2", "sum_all_gaussian", "makespan", "raster", res.RunID} {
		assert.True(t, strings.Contains(out, want), "missing %q in:\n%s", want, out)
	}
	assert.Regexp(t, `unsampled gaussians\s+2 of 10\n`, out)

	buf.Reset()
	require.NoError(t, WriteDetails(&buf, &simulate.Result{}))
	assert.Empty(t, buf.String())
}

func TestWritePELoadPlot(t *testing.T) {
	res := runFixture(t)
	var buf bytes.Buffer
	require.NoError(t, WritePELoadPlot(&buf, res.Last().Schedule))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "output is not a PNG")

	assert.Error(t, WritePELoadPlot(&buf, &splat.Schedule{}))
}

func TestWriteTileChart(t *testing.T) {
	res := runFixture(t)
	var buf bytes.Buffer
	require.NoError(t, WriteTileChart(&buf, res))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "group_max")
	assert.Contains(t, html, "raw_max")
	assert.Contains(t, html, "PE load")

	assert.Error(t, WriteTileChart(&buf, &simulate.Result{}))
}
