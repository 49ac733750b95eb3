package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/signalsfoundry/propagation-tool/core"
	"github.com/signalsfoundry/propagation-tool/internal/config"
	"github.com/signalsfoundry/propagation-tool/internal/export"
	"github.com/signalsfoundry/propagation-tool/internal/logging"
	"github.com/signalsfoundry/propagation-tool/internal/store"
	"github.com/signalsfoundry/propagation-tool/kb"
	"github.com/signalsfoundry/propagation-tool/model"
)

// flagKeys binds CLI flags to config keys so flags override file and env.
var flagKeys = map[string]string{
	"freq":         "link.frequencyMHz",
	"power":        "link.txPowerW",
	"conductivity": "link.conductivity",
	"permittivity": "link.permittivity",
	"roughness":    "link.roughnessM",
	"antenna":      "link.antenna",
	"polarization": "link.polarization",
	"k":            "link.k",
	"ground":       "link.ground",
	"grounds":      "grounds",
	"workers":      "sweep.workers",
	"archive":      "store.enabled",
	"db":           "store.path",
	"log-level":    "log.level",
}

type options struct {
	configPath string
	request    core.CalculationRequest
	csvDir     string
	showRun    string
	listRuns   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "propagation: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(opts *options, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("propagation", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "JSON or YAML config file")
	fs.Float64("freq", 100, "carrier frequency (MHz)")
	fs.Float64("power", 10, "transmit power (W)")
	fs.Float64("conductivity", 0.01, "ground conductivity (S/m)")
	fs.Float64("permittivity", 15, "ground relative permittivity")
	fs.Float64("roughness", 0.1, "rms surface roughness (m)")
	fs.String("antenna", "isotropic", "antenna type: half-wave-dipole, quarter-wave-monopole, isotropic")
	fs.String("polarization", "horizontal", "polarization: horizontal or vertical")
	fs.Float64("k", 1.3333, "effective earth radius factor")
	fs.String("ground", "", "ground preset name, overrides conductivity and permittivity")
	fs.String("grounds", "", "JSON file with extra ground presets")
	fs.Int("workers", 0, "parallel point evaluations per sweep (0 or 1 is sequential)")
	fs.Bool("archive", false, "archive the run in the SQLite store")
	fs.String("db", "propagation-runs.db", "SQLite run archive path")
	fs.String("log-level", "info", "log level: debug, info, warn, error")

	fs.Float64Var(&opts.request.TxHeight, "ht", 10, "transmitter height (m)")
	fs.Float64Var(&opts.request.RxHeight, "hr", 10, "receiver height (m)")
	fs.Float64Var(&opts.request.DistanceStart, "d-start", 0, "first distance (m); 0 starts at one step")
	fs.Float64Var(&opts.request.DistanceEnd, "d-end", 40000, "last distance (m)")
	fs.Float64Var(&opts.request.DistanceStep, "d-step", 1000, "distance step (m)")
	fs.Float64Var(&opts.request.HeightStart, "h-start", 0, "first swept height (m); 0 means 1 m")
	fs.Float64Var(&opts.request.HeightEnd, "h-end", 0, "last swept height (m); 0 means twice the nominal height")
	fs.Float64Var(&opts.request.HeightStep, "h-step", 1, "height step (m)")
	fs.BoolVar(&opts.request.VaryTx, "vary-tx", false, "sweep the transmitter height instead of the receiver")

	fs.StringVar(&opts.csvDir, "csv-dir", "", "write distance.csv and height.csv to this directory")
	fs.StringVar(&opts.showRun, "show-run", "", "print an archived run instead of calculating")
	fs.BoolVar(&opts.listRuns, "list-runs", false, "list archived runs")
	return fs
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := newFlagSet(&opts, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath, config.WithFlags(fs, flagKeys))
	if err != nil {
		return err
	}
	cfg.Log.Output = stderr
	log := logging.New(cfg.Log)

	if opts.showRun != "" || opts.listRuns {
		runs, err := store.Open(cfg.Store.Path, log)
		if err != nil {
			return err
		}
		defer runs.Close()
		if opts.listRuns {
			return listRuns(ctx, runs, stdout)
		}
		rec, err := runs.GetRun(ctx, opts.showRun)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "run %s (%s)\n", rec.ID, rec.CreatedAt.Format(time.RFC3339))
		return printCalculation(stdout, rec.Calculation)
	}

	link, err := linkConfig(ctx, cfg, log)
	if err != nil {
		return err
	}
	p, err := model.NewLinkParameters(link)
	if err != nil {
		return err
	}

	req := opts.request
	if req.DistanceStart == 0 {
		req.DistanceStart = req.DistanceStep
	}

	ctx, runLog, runID := logging.WithRunLogger(ctx, log)
	calc, err := core.Calculate(ctx, p, req, core.SweepOptions{Workers: cfg.Sweep.Workers})
	if err != nil {
		return err
	}
	runLog.Info(ctx, "calculation complete",
		logging.Float("horizon_m", calc.State.Horizon),
		logging.Int("distance_emitted", len(calc.Distance.Samples)),
		logging.Int("distance_dropped", calc.Distance.Dropped),
		logging.Int("height_emitted", len(calc.Height.Samples)),
		logging.Int("height_dropped", calc.Height.Dropped),
	)

	if err := printCalculation(stdout, calc); err != nil {
		return err
	}
	if opts.csvDir != "" {
		if err := writeCSVs(opts.csvDir, calc, time.Now()); err != nil {
			return err
		}
		runLog.Info(ctx, "csv written", logging.String("dir", opts.csvDir))
	}
	if cfg.Store.Enabled {
		runs, err := store.Open(cfg.Store.Path, log)
		if err != nil {
			return err
		}
		defer runs.Close()
		id, err := runs.SaveRun(ctx, runID, calc)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\narchived run %s\n", id)
	}
	return nil
}

// linkConfig applies an optional ground preset on top of the configured link.
func linkConfig(ctx context.Context, cfg config.Config, log logging.Logger) (model.LinkConfig, error) {
	link, err := cfg.Link.LinkConfig()
	if err != nil {
		return model.LinkConfig{}, err
	}
	if cfg.Link.Ground == "" {
		return link, nil
	}

	catalog := kb.NewDefaultCatalog()
	if cfg.Grounds != "" {
		f, err := os.Open(cfg.Grounds)
		if err != nil {
			return model.LinkConfig{}, fmt.Errorf("open ground catalog: %w", err)
		}
		defer f.Close()
		n, err := catalog.Load(f)
		if err != nil {
			return model.LinkConfig{}, err
		}
		log.Debug(ctx, "loaded ground types", logging.String("path", cfg.Grounds), logging.Int("count", n))
	}
	g, err := catalog.Lookup(cfg.Link.Ground)
	if err != nil {
		return model.LinkConfig{}, err
	}
	g.Apply(&link)
	return link, nil
}

func printCalculation(w io.Writer, calc core.Calculation) error {
	for _, line := range export.Metadata(calc) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\ndistance sweep: %d points, %d beyond horizon\n", len(calc.Distance.Samples), calc.Distance.Dropped)
	if err := export.WriteText(w, export.DistanceTable(calc)); err != nil {
		return err
	}
	if !calc.State.HasSamples {
		fmt.Fprintln(w, "\nheight sweep skipped: no distance inside the horizon")
		return nil
	}
	fmt.Fprintf(w, "\nheight sweep at %.1f km: %d points, %d beyond horizon\n",
		calc.Height.Distance/1000, len(calc.Height.Samples), calc.Height.Dropped)
	return export.WriteText(w, export.HeightTable(calc))
}

func writeCSVs(dir string, calc core.Calculation, now time.Time) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	write := func(name string, fn func(io.Writer, core.Calculation, time.Time) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := fn(f, calc, now); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	if err := write("distance.csv", export.WriteDistanceCSV); err != nil {
		return err
	}
	return write("height.csv", export.WriteHeightCSV)
}

func listRuns(ctx context.Context, runs *store.Store, w io.Writer) error {
	sums, err := runs.ListRuns(ctx, 0)
	if err != nil {
		return err
	}
	tbl := export.Table{Headers: []string{"run", "created", "f (MHz)", "ht (m)", "hr (m)", "Rad hor (km)", "points"}}
	for _, s := range sums {
		tbl.Rows = append(tbl.Rows, []string{
			s.ID,
			s.CreatedAt.Format(time.RFC3339),
			fmt.Sprintf("%.2f", s.FrequencyHz/1e6),
			fmt.Sprintf("%.1f", s.TxHeight),
			fmt.Sprintf("%.1f", s.RxHeight),
			fmt.Sprintf("%.1f", s.Horizon/1000),
			fmt.Sprintf("%d/%d", s.DistanceSamples, s.HeightSamples),
		})
	}
	return export.WriteText(w, tbl)
}
