// Command phsen computes seawater pH for a batch of PHSEN records, stores the
// run and optionally exports JSON and CSV artifacts. The runs subcommand
// lists, shows and deletes stored runs and their artifacts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pterm/pterm"

	"phsen/internal/adapters/export"
	"phsen/internal/blob"
	"phsen/internal/config"
	"phsen/internal/core"
	"phsen/pkg/phwater"
)

const (
	exitOK          = 0
	exitRuntime     = 1
	exitUsage       = 2
	exitPartialFail = 3

	exportTimeout = 2 * time.Minute
)

var exitFunc = os.Exit

// batchFile is the JSON input document. Salinity is either a number applied
// to every record or an array with one value per record.
type batchFile struct {
	Label    string           `json:"label"`
	Salinity json.RawMessage  `json:"salinity,omitempty"`
	Records  []phwater.Record `json:"records"`
}

type options struct {
	input      string
	configPath string
	salinity   float64
	workers    int
	exports    string
	quiet      bool
	obs        obsFlags
	set        map[string]bool
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "runs" {
		return runsCLI(args[1:], stdout, stderr)
	}
	fs := flag.NewFlagSet("phsen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.input, "input", "", "path to the JSON batch file")
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.Float64Var(&opts.salinity, "salinity", phwater.DefaultSalinity, "practical salinity applied to every record")
	fs.IntVar(&opts.workers, "workers", 0, "number of concurrent record workers")
	fs.StringVar(&opts.exports, "export", "", "comma separated artifact formats to export (json,csv)")
	fs.BoolVar(&opts.quiet, "quiet", false, "suppress the result table")
	opts.obs.register(fs)
	fs.Usage = func() {
		_, _ = fmt.Fprintln(fs.Output(), "usage: phsen -input batch.json [flags]\n       phsen runs [flags] list | get <id> | delete <id> | artifact <key>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	opts.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	if opts.input == "" {
		_, _ = fmt.Fprintln(stderr, "phsen: -input is required")
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "phsen: config: %v\n", err)
		return exitUsage
	}
	if opts.set["workers"] {
		if opts.workers <= 0 {
			_, _ = fmt.Fprintf(stderr, "phsen: -workers must be positive, got %d\n", opts.workers)
			return exitUsage
		}
		cfg.Processing.Workers = opts.workers
	}
	if opts.set["salinity"] {
		cfg.Processing.Salinity = opts.salinity
	}
	formats, err := parseFormats(opts.exports)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "phsen: %v\n", err)
		return exitUsage
	}

	a, code, err := newApp(cfg, opts.obs, stdout, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "phsen: %v\n", err)
		return code
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code, err = run(ctx, a, opts, formats, stdout)
	return a.finish(code, err, stderr)
}

func run(ctx context.Context, a *app, opts options, formats []export.Format, stdout io.Writer) (int, error) {
	batch, sal, err := readBatch(opts.input, a.cfg.Processing.Salinity, opts.set["salinity"])
	if err != nil {
		return exitRuntime, err
	}
	result, err := a.svc.ProcessBatch(ctx, core.BatchInput{Label: batch.Label, Records: batch.Records, Salinity: sal})
	if err != nil {
		return exitRuntime, err
	}
	if !opts.quiet {
		if err := renderRun(stdout, result); err != nil {
			return exitRuntime, err
		}
	}

	if len(formats) > 0 {
		if err := exportRun(ctx, a, result.ID, formats, stdout); err != nil {
			return exitRuntime, err
		}
	}

	if _, failed := result.Counts(); failed > 0 {
		return exitPartialFail, nil
	}
	return exitOK, nil
}

// obsFlags selects where traces and metrics are written.
type obsFlags struct {
	trace      string
	metricsOut string
}

func (o *obsFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&o.trace, "trace", "", "write JSON-lines trace spans to this file (- for stdout)")
	fs.StringVar(&o.metricsOut, "metrics-out", "", "write collected metrics to this file on exit")
}

// app bundles the service and the resources opened for one invocation.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	svc        *core.Service
	metrics    core.MetricsRecorder
	registry   *prometheus.Registry
	metricsOut string
	closers    []func() error
}

func newApp(cfg config.Config, obs obsFlags, stdout, stderr io.Writer) (*app, int, error) {
	logger, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		return nil, exitUsage, fmt.Errorf("config: %w", err)
	}
	reg := prometheus.NewRegistry()
	metrics, err := core.NewMetricsRecorder(cfg.Metrics, reg)
	if err != nil {
		return nil, exitUsage, err
	}
	if obs.metricsOut != "" && cfg.Metrics == config.MetricsNone {
		return nil, exitUsage, errors.New("-metrics-out needs the expvar or prometheus metrics backend")
	}
	a := &app{cfg: cfg, logger: logger, metrics: metrics, registry: reg, metricsOut: obs.metricsOut}

	svcOpts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithWorkers(cfg.Processing.Workers),
	}
	if obs.trace != "" {
		w := stdout
		if obs.trace != "-" {
			f, err := os.Create(obs.trace) // #nosec G304: operator supplied output path
			if err != nil {
				return nil, exitRuntime, fmt.Errorf("open trace file: %w", err)
			}
			a.closers = append(a.closers, f.Close)
			w = f
		}
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(w)))
	}

	store, err := core.OpenPersistentStore(cfg.Storage)
	if err != nil {
		a.close()
		return nil, exitRuntime, fmt.Errorf("open run store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	a.svc = core.NewService(store, svcOpts...)
	return a, exitOK, nil
}

// finish writes the metrics file, releases resources and reports err.
func (a *app) finish(code int, err error, stderr io.Writer) int {
	if a.metricsOut != "" {
		if merr := core.WriteMetricsFile(a.metricsOut, a.metrics, a.registry); merr != nil && err == nil {
			code, err = exitRuntime, merr
		}
	}
	a.close()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "phsen: %v\n", err)
	}
	return code
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}

func readBatch(path string, fallback float64, override bool) (batchFile, phwater.Salinity, error) {
	var batch batchFile
	f, err := os.Open(path) // #nosec G304: operator supplied input path
	if err != nil {
		return batch, phwater.Salinity{}, fmt.Errorf("read batch: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := json.NewDecoder(f).Decode(&batch); err != nil {
		return batch, phwater.Salinity{}, fmt.Errorf("decode batch: %w", err)
	}
	if override || len(batch.Salinity) == 0 {
		return batch, phwater.ScalarSalinity(fallback), nil
	}
	var scalar float64
	if err := json.Unmarshal(batch.Salinity, &scalar); err == nil {
		return batch, phwater.ScalarSalinity(scalar), nil
	}
	var vector []float64
	if err := json.Unmarshal(batch.Salinity, &vector); err != nil {
		return batch, phwater.Salinity{}, errors.New("decode batch: salinity must be a number or an array of numbers")
	}
	return batch, phwater.SalinityVector(vector), nil
}

func parseFormats(list string) ([]export.Format, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var formats []export.Format
	for _, part := range strings.Split(list, ",") {
		f, err := export.ParseFormat(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

func newLogger(cfg config.Logging, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
}

func renderRun(w io.Writer, result core.Run) error {
	data := pterm.TableData{{"Record", "Temperature (°C)", "Window", "R²", "pH"}}
	for _, rec := range result.Records {
		if !rec.Succeeded() {
			data = append(data, []string{strconv.Itoa(rec.Index), "-", "-", "-", "error: " + rec.Error})
			continue
		}
		data = append(data, []string{
			strconv.Itoa(rec.Index),
			strconv.FormatFloat(rec.Temperature, 'f', 3, 64),
			strconv.Itoa(rec.WindowStart),
			strconv.FormatFloat(rec.R2, 'f', 4, 64),
			strconv.FormatFloat(rec.PH, 'f', 4, 64),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	succeeded, failed := result.Counts()
	if _, err := fmt.Fprintf(w, "%s\nrun %s: %d succeeded, %d failed\n", table, result.ID, succeeded, failed); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func exportRun(ctx context.Context, a *app, runID string, formats []export.Format, w io.Writer) error {
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	worker := export.NewWorker(a.svc, store, a.logger)
	worker.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := worker.Stop(stopCtx); err != nil {
			a.logger.Warn("stop export worker", "error", err)
		}
	}()

	queued, err := worker.EnqueueExport(ctx, export.Input{RunID: runID, Formats: formats, RequestedBy: "phsen"})
	if err != nil {
		return fmt.Errorf("enqueue export: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()
	rec, err := worker.Wait(waitCtx, queued.ID)
	if err != nil {
		return fmt.Errorf("wait for export: %w", err)
	}
	if rec.Status != export.StatusSucceeded {
		return fmt.Errorf("export %s failed: %s", rec.ID, rec.Error)
	}
	for _, art := range rec.Artifacts {
		location := art.Key
		if art.URL != "" {
			location = art.URL
		}
		if _, err := fmt.Fprintf(w, "exported %s (%d bytes): %s\n", art.Format, art.SizeBytes, location); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
