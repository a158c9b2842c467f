package core

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"phsen/internal/config"
	"phsen/internal/infra/persistence/memory"
)

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) count(op string, success bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			n++
		}
	}
	return n
}

type captureTracer struct {
	mu    sync.Mutex
	ended map[string][]error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	if s.tracer.ended == nil {
		s.tracer.ended = make(map[string][]error)
	}
	s.tracer.ended[s.op] = append(s.tracer.ended[s.op], err)
}

type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *recordingLogger) Error(string, ...any) {}

func TestServiceEmitsObservability(t *testing.T) {
	ctx := context.Background()
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &recordingLogger{}
	svc := NewService(memory.NewStore(), WithMetricsRecorder(metrics), WithTracer(tracer), WithLogger(logger))

	run, err := svc.ProcessBatch(ctx, BatchInput{Records: loadBatch(t).Records})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := svc.GetRun(ctx, "missing"); err == nil {
		t.Fatalf("expected missing run error")
	}
	if _, err := svc.ListRuns(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := svc.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if metrics.count(OpComputeRecord, true) != 3 || metrics.count(OpComputeRecord, false) != 1 {
		t.Fatalf("unexpected compute_record observations %+v", metrics.calls)
	}
	failedSpans := 0
	for _, err := range tracer.ended[OpComputeRecord] {
		if err != nil {
			failedSpans++
		}
	}
	if len(tracer.ended[OpComputeRecord]) != 4 || failedSpans != 1 {
		t.Fatalf("expected four compute_record spans with one failure, got %v", tracer.ended[OpComputeRecord])
	}
	for _, op := range []string{OpProcessBatch, OpListRuns, OpDeleteRun} {
		if metrics.count(op, true) != 1 {
			t.Fatalf("expected one successful %s observation", op)
		}
		if errs := tracer.ended[op]; len(errs) != 1 || errs[0] != nil {
			t.Fatalf("expected one successful %s span, got %v", op, errs)
		}
	}
	if metrics.count(OpGetRun, false) != 1 || len(tracer.ended[OpGetRun]) != 1 || tracer.ended[OpGetRun][0] == nil {
		t.Fatalf("expected failed get_run to be observed and traced")
	}
	if len(logger.warns) != 1 || logger.warns[0] != "record failed" {
		t.Fatalf("expected one record failure warning, got %v", logger.warns)
	}
	if len(logger.infos) < 2 {
		t.Fatalf("expected batch start/finish info logs, got %v", logger.infos)
	}
}

func TestDefaultServiceOptions(t *testing.T) {
	opts := defaultServiceOptions()
	if opts.clock == nil || opts.logger == nil || opts.metrics == nil || opts.tracer == nil || opts.newID == nil {
		t.Fatalf("expected defaults populated")
	}
	if opts.workers < 1 {
		t.Fatalf("expected positive default workers, got %d", opts.workers)
	}
	if opts.newID() == opts.newID() {
		t.Fatalf("expected unique run ids")
	}
	opts.logger.Debug("d", "k", 1)
	opts.metrics.Observe(context.Background(), "noop", true, 0)
	_, span := opts.tracer.Start(context.Background(), "noop")
	span.End(nil)

	for _, opt := range []ServiceOption{WithLogger(nil), WithClock(nil), WithMetricsRecorder(nil), WithTracer(nil), WithWorkers(0), WithIDGenerator(nil)} {
		opt(&opts)
	}
	if opts.logger == nil || opts.clock == nil || opts.workers < 1 || opts.newID == nil {
		t.Fatalf("nil options must keep defaults")
	}
}

func TestClockFunc(t *testing.T) {
	if ClockFunc(nil).Now().IsZero() {
		t.Fatal("expected non-zero time from nil ClockFunc")
	}
	want := time.Date(2023, 2, 3, 4, 5, 6, 0, time.UTC)
	if got := ClockFunc(func() time.Time { return want }).Now(); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	recorder.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "test_op", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Second)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["test_op"] != 15 {
		t.Fatalf("expected 15ms total, snapshot=%+v", snapshot)
	}
	if snapshot.Results["test_op"][statusSuccess] != 1 || snapshot.Results["test_op"][statusError] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}
	if len(snapshot.Results) != 1 {
		t.Fatalf("empty operation names must be ignored: %+v", snapshot.Results)
	}
	v := expvar.Get(recorder.Name())
	if v == nil || !strings.Contains(v.String(), "test_op") {
		t.Fatalf("expected expvar export containing operation, got %v", v)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	recorder.Observe(ctx, OpComputeRecord, true, 2*time.Millisecond)
	recorder.Observe(ctx, OpComputeRecord, true, 3*time.Millisecond)
	recorder.Observe(ctx, OpComputeRecord, false, time.Millisecond)

	if got := testutil.ToFloat64(recorder.operations.WithLabelValues(OpComputeRecord, statusSuccess)); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.operations.WithLabelValues(OpComputeRecord, statusError)); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(recorder.latency, "phsen_operation_duration_seconds"); n != 1 {
		t.Fatalf("expected one latency series, got %d", n)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestNewMetricsRecorder(t *testing.T) {
	if rec, err := NewMetricsRecorder(config.MetricsExpvar, nil); err != nil {
		t.Fatalf("expvar: %v", err)
	} else if _, ok := rec.(*ExpvarMetricsRecorder); !ok {
		t.Fatalf("expected expvar recorder, got %T", rec)
	}
	if rec, err := NewMetricsRecorder(config.MetricsPrometheus, prometheus.NewRegistry()); err != nil {
		t.Fatalf("prometheus: %v", err)
	} else if _, ok := rec.(*PrometheusMetricsRecorder); !ok {
		t.Fatalf("expected prometheus recorder, got %T", rec)
	}
	if rec, err := NewMetricsRecorder(config.MetricsNone, nil); err != nil {
		t.Fatalf("none: %v", err)
	} else if _, ok := rec.(noopMetrics); !ok {
		t.Fatalf("expected noop recorder, got %T", rec)
	}
	if _, err := NewMetricsRecorder("statsd", nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "trace_op")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "trace_fail")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two span entries, got %d", len(entries))
	}
	if entries[0].Operation != "trace_op" || entries[0].Status != statusSuccess {
		t.Fatalf("unexpected span entry: %+v", entries[0])
	}
	if entries[1].Status != statusError || entries[1].Error != "boom" {
		t.Fatalf("unexpected failed span entry: %+v", entries[1])
	}
	if !strings.Contains(buf.String(), `"operation":"trace_op"`) {
		t.Fatalf("expected JSON output to contain operation: %q", buf.String())
	}
	silent := NewJSONTracer(nil)
	_, span = silent.Start(context.Background(), "quiet")
	span.End(nil)
	if len(silent.Entries()) != 1 {
		t.Fatalf("nil writer tracer should still retain spans")
	}
}

func TestWriteMetricsFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	prom, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	prom.Observe(ctx, OpProcessBatch, true, time.Millisecond)
	promPath := filepath.Join(dir, "phsen.prom")
	if err := WriteMetricsFile(promPath, prom, reg); err != nil {
		t.Fatalf("write prometheus: %v", err)
	}
	body, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("read prometheus file: %v", err)
	}
	if !strings.Contains(string(body), `phsen_operations_total{operation="process_batch",status="success"} 1`) {
		t.Fatalf("unexpected textfile:\n%s", body)
	}

	ev := NewExpvarMetricsRecorder("")
	ev.Observe(ctx, OpListRuns, false, time.Millisecond)
	evPath := filepath.Join(dir, "phsen.json")
	if err := WriteMetricsFile(evPath, ev, nil); err != nil {
		t.Fatalf("write expvar: %v", err)
	}
	body, err = os.ReadFile(evPath)
	if err != nil {
		t.Fatalf("read expvar file: %v", err)
	}
	if !strings.Contains(string(body), `"list_runs"`) || !strings.Contains(string(body), `"results_total"`) {
		t.Fatalf("unexpected snapshot:\n%s", body)
	}

	if err := WriteMetricsFile(filepath.Join(dir, "none"), noopMetrics{}, nil); !errors.Is(err, ErrNoMetrics) {
		t.Fatalf("expected ErrNoMetrics, got %v", err)
	}
}
