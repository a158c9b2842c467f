// Package export renders stored runs into JSON and CSV artifacts on a blob
// store using a background worker.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"phsen/internal/blob"
	"phsen/internal/core"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Format is an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var contentTypes = map[Format]string{
	FormatJSON: "application/json",
	FormatCSV:  "text/csv",
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("unsupported export format %q", s)
	}
	return f, nil
}

const (
	queueSize     = 32
	presignExpiry = time.Hour
)

// Artifact is one stored rendering of a run.
type Artifact struct {
	Format      Format    `json:"format"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks an export request and its artifacts.
type Record struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	Formats     []Format   `json:"formats"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Done reports whether the export reached a terminal status.
func (r Record) Done() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

func (r Record) copy() Record {
	cp := r
	cp.Formats = append([]Format(nil), r.Formats...)
	cp.Artifacts = append([]Artifact(nil), r.Artifacts...)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}

// Input is an enqueue request. Empty Formats exports every format.
type Input struct {
	RunID       string
	Formats     []Format
	RequestedBy string
}

// RunSource resolves runs by identifier; *core.Service satisfies it.
type RunSource interface {
	GetRun(ctx context.Context, id string) (core.Run, error)
}

// ErrQueueFull is returned when the worker cannot accept more jobs.
var ErrQueueFull = errors.New("export queue full")

// Worker executes run exports asynchronously.
type Worker struct {
	runs   RunSource
	store  blob.Store
	logger core.Logger

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type job struct {
	record Record
	done   chan struct{}
}

// NewWorker constructs an export worker. A nil logger discards output.
func NewWorker(runs RunSource, store blob.Store, logger core.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = core.NoopLogger{}
	}
	return &Worker{
		runs:   runs,
		store:  store,
		logger: logger,
		queue:  make(chan string, queueSize),
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the loop to exit.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// EnqueueExport validates the request and schedules it. The run must exist
// at enqueue time.
func (w *Worker) EnqueueExport(ctx context.Context, in Input) (Record, error) {
	if in.RunID == "" {
		return Record{}, errors.New("run id required")
	}
	if _, err := w.runs.GetRun(ctx, in.RunID); err != nil {
		return Record{}, err
	}
	formats := in.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{}, len(formats))
	for _, f := range formats {
		if _, ok := contentTypes[f]; !ok {
			return Record{}, fmt.Errorf("unsupported export format %q", f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		uniq = append(uniq, f)
	}

	now := time.Now().UTC()
	j := &job{
		record: Record{
			ID:          uuid.NewString(),
			RunID:       in.RunID,
			Formats:     uniq,
			Status:      StatusQueued,
			RequestedBy: in.RequestedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		done: make(chan struct{}),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.queue <- j.record.ID:
	default:
		return Record{}, ErrQueueFull
	}
	w.jobs[j.record.ID] = j
	w.logger.Info("export queued", "export", j.record.ID, "run", in.RunID, "formats", uniq)
	return j.record.copy(), nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	j, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return j.record.copy(), true
}

// Wait blocks until the export finishes or ctx is done.
func (w *Worker) Wait(ctx context.Context, id string) (Record, error) {
	w.mu.RLock()
	j, ok := w.jobs[id]
	w.mu.RUnlock()
	if !ok {
		return Record{}, fmt.Errorf("export %s not found", id)
	}
	select {
	case <-j.done:
		rec, _ := w.GetExport(id)
		return rec, nil
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
}

func (w *Worker) process(id string) {
	w.mu.Lock()
	j, ok := w.jobs[id]
	if ok {
		j.record.Status = StatusRunning
		j.record.UpdatedAt = time.Now().UTC()
	}
	w.mu.Unlock()
	if !ok {
		return
	}
	rec, _ := w.GetExport(id)

	run, err := w.runs.GetRun(w.ctx, rec.RunID)
	if err != nil {
		w.finish(j, nil, fmt.Errorf("load run: %w", err))
		return
	}
	artifacts := make([]Artifact, 0, len(rec.Formats))
	for _, format := range rec.Formats {
		art, err := w.write(run, rec.ID, format)
		if err != nil {
			w.finish(j, nil, err)
			return
		}
		artifacts = append(artifacts, art)
	}
	w.finish(j, artifacts, nil)
}

func (w *Worker) write(run core.Run, exportID string, format Format) (Artifact, error) {
	payload, err := Render(run, format)
	if err != nil {
		return Artifact{}, err
	}
	key := ArtifactKey(run.ID, exportID, format)
	info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentTypes[format],
		Metadata:    map[string]string{"run_id": run.ID, "export_id": exportID},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("store %s artifact: %w", format, err)
	}
	art := Artifact{
		Format:      format,
		Key:         info.Key,
		ContentType: contentTypes[format],
		SizeBytes:   info.Size,
		CreatedAt:   info.LastModified,
	}
	url, err := w.store.PresignURL(w.ctx, key, presignExpiry)
	switch {
	case err == nil:
		art.URL = url
	case !errors.Is(err, blob.ErrUnsupported):
		w.logger.Warn("presign artifact failed", "key", key, "error", err)
	}
	return art, nil
}

func (w *Worker) finish(j *job, artifacts []Artifact, err error) {
	now := time.Now().UTC()
	w.mu.Lock()
	j.record.UpdatedAt = now
	j.record.CompletedAt = &now
	if err != nil {
		j.record.Status = StatusFailed
		j.record.Error = err.Error()
	} else {
		j.record.Status = StatusSucceeded
		j.record.Artifacts = artifacts
	}
	close(j.done)
	w.mu.Unlock()
	if err != nil {
		w.logger.Error("export failed", "export", j.record.ID, "error", err)
		return
	}
	w.logger.Info("export succeeded", "export", j.record.ID, "artifacts", len(artifacts))
}

// ArtifactPrefix is the blob key prefix shared by every artifact of a run.
func ArtifactPrefix(runID string) string {
	return "runs/" + runID + "/"
}

// ArtifactKey is the blob key of a run rendering.
func ArtifactKey(runID, exportID string, format Format) string {
	return fmt.Sprintf("%s%s.%s", ArtifactPrefix(runID), exportID, format)
}

// csvHeader lists the columns of the CSV rendering.
var csvHeader = []string{"run_id", "index", "status", "ph", "temperature_c", "salinity", "window_start", "r2", "error"}

// Render encodes a run in the given format.
func Render(run core.Run, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("render json: %w", err)
		}
		return append(b, '\n'), nil
	case FormatCSV:
		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		_ = cw.Write(csvHeader)
		for _, rec := range run.Records {
			row := []string{run.ID, strconv.Itoa(rec.Index), string(rec.Status), "", "", formatFloat(rec.Salinity), "", "", rec.Error}
			if rec.Succeeded() {
				row[3] = formatFloat(rec.PH)
				row[4] = formatFloat(rec.Temperature)
				row[6] = strconv.Itoa(rec.WindowStart)
				row[7] = formatFloat(rec.R2)
			}
			_ = cw.Write(row)
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
