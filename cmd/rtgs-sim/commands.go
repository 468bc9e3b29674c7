package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/banshee-data/rtgs.sim/internal/config"
	"github.com/banshee-data/rtgs.sim/internal/db"
	"github.com/banshee-data/rtgs.sim/internal/fsutil"
	"github.com/banshee-data/rtgs.sim/internal/monitoring"
	"github.com/banshee-data/rtgs.sim/internal/report"
	"github.com/banshee-data/rtgs.sim/internal/simulate"
	"github.com/banshee-data/rtgs.sim/internal/splat"
	"github.com/banshee-data/rtgs.sim/internal/sweep"
	"github.com/banshee-data/rtgs.sim/internal/timeutil"
	"github.com/banshee-data/rtgs.sim/internal/version"
)

const (
	defaultPixelsPath = "transformed_data.json"
	defaultDBPath     = "rtgs.db"
)

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.err)
	return fs
}

// loadConfig returns the built-in defaults, or the file at path overlaid on
// them.
func loadConfig(path string) (config.ArchConfig, error) {
	if path == "" {
		return config.DefaultArchConfig(), nil
	}
	return config.LoadArchConfig(path)
}

func (a *app) cmdTransform(args []string) error {
	defaults := config.DefaultArchConfig().Frame
	fs := a.flagSet("transform")
	configPath := fs.String("config", "", "Architecture config file (JSON)")
	width := fs.Int("width", 0, fmt.Sprintf("Frame width in pixels (default %d, or from --config)", defaults.Width))
	height := fs.Int("height", 0, fmt.Sprintf("Frame height in pixels (default %d, or from --config)", defaults.Height))
	fov := fs.Float64("fov", 0, fmt.Sprintf("Horizontal field of view in degrees (default %g)", defaults.FOVDegrees))
	distance := fs.Float64("camera-distance", 0, fmt.Sprintf("Camera distance added to z (default %g)", defaults.CameraDistance))
	rounding := fs.String("rounding", "", "Pixel rounding: nearest or truncate")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 1 || len(positional) > 2 {
		fmt.Fprintln(a.err, "Usage: rtgs-sim transform <point_cloud.json> [output.json] [options]")
		fs.PrintDefaults()
		return errUsage
	}
	output := defaultPixelsPath
	if len(positional) == 2 {
		output = positional[1]
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	f := cfg.Frame
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "width":
			f.Width = *width
		case "height":
			f.Height = *height
		case "fov":
			f.FOVDegrees = *fov
		case "camera-distance":
			f.CameraDistance = *distance
		case "rounding":
			f.Rounding = *rounding
		}
	})
	cfg.Frame = f
	if err := cfg.Validate(); err != nil {
		return err
	}

	stats, err := simulate.Transform(a.fs, positional[0], output, splat.ProjectionParamsFromConfig(f))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s: %d points, %d pixels with Gaussians, %d Gaussians\n",
		output, stats.Points, stats.OccupiedPixels, stats.Gaussians)
	return nil
}

// runInputs are the options shared by simulate and sweep.
type runInputs struct {
	configPath *string
	pixelsPath *string
	iterations *int
	workers    *int
	policy     *string
	debug      *bool
}

func (a *app) registerRunInputs(fs *flag.FlagSet) runInputs {
	return runInputs{
		configPath: fs.String("config", "", "Architecture config file (JSON)"),
		pixelsPath: fs.String("pixels", "", "Simulator input file; written from the point cloud when both are given"),
		iterations: fs.Int("iterations", 1, "Number of frames to simulate"),
		workers:    fs.Int("workers", 0, "Concurrent tile rows (0 = GOMAXPROCS)"),
		policy:     fs.String("policy", "", "Scheduling policy: raster or lpt"),
		debug:      fs.Bool("debug", false, "Enable debug logging"),
	}
}

// load resolves the configuration and the pixel map. A point cloud is
// projected in memory, or written to --pixels first when that is also set.
// Without a point cloud, --pixels (default transformed_data.json) is read;
// a missing file is an empty map.
func (in runInputs) load(a *app, positional []string) (config.ArchConfig, splat.PixelBucket, error) {
	monitoring.SetDebug(*in.debug)

	cfg, err := loadConfig(*in.configPath)
	if err != nil {
		return config.ArchConfig{}, nil, err
	}
	if *in.policy != "" {
		cfg.SchedulePolicy = *in.policy
	}
	if err := cfg.Validate(); err != nil {
		return config.ArchConfig{}, nil, err
	}

	params := splat.ProjectionParamsFromConfig(cfg.Frame)
	switch {
	case len(positional) > 0 && *in.pixelsPath == "":
		pixels, err := simulate.ProjectFile(a.fs, positional[0], params)
		return cfg, pixels, err
	case len(positional) > 0:
		if _, err := simulate.Transform(a.fs, positional[0], *in.pixelsPath, params); err != nil {
			return config.ArchConfig{}, nil, err
		}
	}
	path := *in.pixelsPath
	if path == "" {
		path = defaultPixelsPath
	}
	pixels, err := splat.LoadPixels(a.fs, path)
	return cfg, pixels, err
}

func (a *app) cmdSimulate(ctx context.Context, args []string) error {
	fs := a.flagSet("simulate")
	in := a.registerRunInputs(fs)
	assignLog := fs.String("assign-log", simulate.DefaultAssignLog, "PE assignment log (empty to skip)")
	imbalanceLog := fs.String("imbalance-log", simulate.DefaultImbalanceLog, "Tile imbalance log (empty to skip)")
	jsonPath := fs.String("json", "", "Write the run result as JSON")
	plotPath := fs.String("plot", "", "Write a PE load bar chart (PNG)")
	chartPath := fs.String("chart", "", "Write tile heatmaps (HTML)")
	dbPath := fs.String("db", "", "Store the run in this SQLite database")
	details := fs.Bool("details", false, "Print the per-frame breakdown")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		fmt.Fprintln(a.err, "Usage: rtgs-sim simulate [point_cloud.json] [options]")
		fs.PrintDefaults()
		return errUsage
	}

	cfg, pixels, err := in.load(a, positional)
	if err != nil {
		return err
	}
	res, err := simulate.Run(ctx, pixels, simulate.Options{Config: cfg, Frames: *in.iterations, Workers: *in.workers, Clock: a.clock})
	if err != nil {
		return err
	}

	simulate.WriteDiagnostics(a.fs, res, simulate.Diagnostics{AssignLog: *assignLog, ImbalanceLog: *imbalanceLog})
	if *jsonPath != "" {
		if err := simulate.WriteJSON(a.fs, *jsonPath, res); err != nil {
			monitoring.Logf("warning: %v", err)
		}
	}
	if *plotPath != "" {
		a.writeArtifact(*plotPath, "PE load plot", func(w io.Writer) error {
			return report.WritePELoadPlot(w, res.Last().Schedule)
		})
	}
	if *chartPath != "" {
		a.writeArtifact(*chartPath, "tile chart", func(w io.Writer) error {
			return report.WriteTileChart(w, res)
		})
	}
	if *dbPath != "" {
		a.saveRun(*dbPath, res)
	}

	if err := report.WriteSummary(a.out, res); err != nil {
		return err
	}
	if *details {
		return report.WriteDetails(a.out, res)
	}
	return nil
}

// writeArtifact writes an optional output file; failures are logged only.
func (a *app) writeArtifact(path, what string, fn func(io.Writer) error) {
	if err := fsutil.EnsureDir(a.fs, path); err != nil {
		monitoring.Logf("warning: %s %s not written: %v", what, path, err)
		return
	}
	f, err := a.fs.Create(path)
	if err != nil {
		monitoring.Logf("warning: %s %s not written: %v", what, path, err)
		return
	}
	if err := fn(f); err != nil {
		f.Close()
		monitoring.Logf("warning: %s %s not written: %v", what, path, err)
		return
	}
	if err := f.Close(); err != nil {
		monitoring.Logf("warning: %s %s not written: %v", what, path, err)
	}
}

func (a *app) saveRun(path string, res *simulate.Result) {
	database, err := db.NewDB(path)
	if err != nil {
		monitoring.Logf("warning: run %s not stored: %v", res.RunID, err)
		return
	}
	defer database.Close()
	if err := database.SaveResult(res, ""); err != nil {
		monitoring.Logf("warning: run %s not stored: %v", res.RunID, err)
	}
}

func (a *app) cmdSweep(ctx context.Context, args []string) error {
	fs := a.flagSet("sweep")
	in := a.registerRunInputs(fs)
	pes := fs.String("pes", "", "PE counts: list (8,16) or range (min:max:step)")
	strides := fs.String("stride", "", "Downsample strides: list or range")
	groups := fs.String("group", "", "Pairing group sizes: list or range")
	tiles := fs.String("tile", "", "Square tile sizes: list or range")
	csvPath := fs.String("csv", "", "Write one CSV row per design point")
	dbPath := fs.String("db", "", "Store the sweep and its runs in this SQLite database")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		fmt.Fprintln(a.err, "Usage: rtgs-sim sweep [point_cloud.json] [options]")
		fs.PrintDefaults()
		return errUsage
	}

	var params sweep.Params
	for _, p := range []struct {
		name string
		arg  string
		dst  *[]int
	}{
		{"pes", *pes, &params.PEs},
		{"stride", *strides, &params.Strides},
		{"group", *groups, &params.Groups},
		{"tile", *tiles, &params.Tiles},
	} {
		values, err := sweep.ParseValues(p.arg)
		if err != nil {
			return fmt.Errorf("--%s: %w", p.name, err)
		}
		*p.dst = values
	}

	cfg, pixels, err := in.load(a, positional)
	if err != nil {
		return err
	}
	points, err := sweep.Expand(cfg, params)
	if err != nil {
		return err
	}

	opts := sweep.Options{Frames: *in.iterations, Workers: *in.workers, Clock: a.clock}
	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			monitoring.Logf("warning: sweep not stored: %v", err)
		} else {
			defer database.Close()
			opts.SweepID = uuid.New().String()
			if err := database.StartSweep(opts.SweepID, timeutil.OrReal(a.clock).Now(), params, len(points)); err != nil {
				monitoring.Logf("warning: sweep not stored: %v", err)
			} else {
				sweepID := opts.SweepID
				opts.OnRun = func(_ sweep.Point, res *simulate.Result) {
					if err := database.SaveResult(res, sweepID); err != nil {
						monitoring.Logf("warning: run %s not stored: %v", res.RunID, err)
					}
				}
			}
		}
	}

	res, err := sweep.Run(ctx, pixels, cfg, points, opts)
	if err != nil {
		return err
	}
	if *csvPath != "" {
		a.writeArtifact(*csvPath, "sweep CSV", func(w io.Writer) error {
			return sweep.WriteCSV(w, res.Outcomes)
		})
	}
	return sweep.WriteSummary(a.out, res)
}

func (a *app) cmdRuns(args []string) error {
	fs := a.flagSet("runs")
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	limit := fs.Int("limit", 20, "Maximum number of runs (0 for all)")
	sweepID := fs.String("sweep", "", "Only runs of this sweep")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(db.RunFilter{SweepID: *sweepID, Limit: *limit})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tPES\tSTRIDE\tGROUP\tTILE\tFRAMES\tMAKESPAN\tLATENCY_S\tENERGY_J\tPOWER_W")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%dx%d\t%d\t%d\t%.10f\t%.10f\t%.2f\n",
			r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), r.NumPEs, r.Stride, r.GroupSize,
			r.TileWidth, r.TileHeight, r.Frames, r.MakespanCycles, r.LatencyS, r.EnergyPJ*1e-12, r.PowerW())
	}
	return tw.Flush()
}

func (a *app) cmdMigrate(args []string) error {
	fs := a.flagSet("migrate")
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		fmt.Fprintln(a.err, "Usage: rtgs-sim migrate up|down|version [--db path]")
		return errUsage
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	migrations := db.MigrationsFS()

	switch positional[0] {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
	case "version":
	default:
		fmt.Fprintf(a.err, "Unknown migrate action: %s\n", positional[0])
		return errUsage
	}

	v, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Schema version: %d (dirty: %t)\n", v, dirty)
	return nil
}

func (a *app) cmdVersion() error {
	_, err := fmt.Fprintln(a.out, version.String())
	return err
}
