package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/rtgs.sim/internal/fsutil"
	"github.com/banshee-data/rtgs.sim/internal/timeutil"
)

// errUsage is returned when a command is invoked with bad arguments; the
// usage text has already been printed.
var errUsage = errors.New("usage error")

// app carries the process boundary so commands can be exercised in tests.
type app struct {
	fs    fsutil.FileSystem
	clock timeutil.Clock
	out   io.Writer
	err   io.Writer
}

func main() {
	flag.Usage = func() { printUsage(os.Stdout) }
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{fs: fsutil.OSFileSystem{}, clock: timeutil.RealClock{}, out: os.Stdout, err: os.Stderr}
	command := flag.Arg(0)
	if err := a.run(ctx, command, flag.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatalf("%s: %v", command, err)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "transform":
		return a.cmdTransform(args)
	case "simulate":
		return a.cmdSimulate(ctx, args)
	case "sweep":
		return a.cmdSweep(ctx, args)
	case "runs":
		return a.cmdRuns(args)
	case "migrate":
		return a.cmdMigrate(args)
	case "version":
		return a.cmdVersion()
	case "help":
		printUsage(a.out)
		return nil
	default:
		fmt.Fprintf(a.err, "Unknown command: %s\n\n", command)
		printUsage(a.err)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `rtgs-sim - workload simulator for a Gaussian splatting accelerator

Usage: rtgs-sim <command> [options]

Commands:
  transform  Project a point cloud into the simulator input format
  simulate   Simulate frames and report area, latency, energy and power
  sweep      Simulate a grid of PE count, stride, group and tile sizes
  runs       List runs stored in the run database
  migrate    Manage the run database schema (up, down, version)
  version    Show rtgs-sim version
  help       Show this help message

Examples:
  # Project a point cloud and simulate it
  rtgs-sim transform point_cloud.json transformed_data.json
  rtgs-sim simulate --pixels transformed_data.json

  # Simulate directly from a point cloud, three frames, with charts
  rtgs-sim simulate point_cloud.json --iterations 3 --plot pe_load.png --chart tiles.html

  # Sweep PE counts and group sizes, store every run
  rtgs-sim sweep point_cloud.json --pes 4:32:4 --group 2,4,8 --csv sweep.csv --db rtgs.db

Run 'rtgs-sim <command> -h' for command options.`)
}

// parseInterspersed parses flags that may appear before or after
// positional arguments and returns the positionals in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
