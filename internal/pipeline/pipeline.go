// Package pipeline implements the batch upload orchestrator: a strictly
// sequential store → analyze → record pipeline over an ordered list of files,
// with per-item failure isolation and a fixed cooldown between items.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vavebg/ops-console/internal/models"
)

var (
	// ErrNoFiles is returned when a batch is started with an empty selection
	ErrNoFiles = errors.New("no files selected")
	// ErrBatchInFlight is returned when a batch is started while another run
	// is still active. The orchestrator is not re-entrant.
	ErrBatchInFlight = errors.New("batch already in flight")
)

// ItemState is the per-item pipeline state
type ItemState string

const (
	ItemPending   ItemState = "pending"
	ItemStoring   ItemState = "storing"
	ItemAnalyzing ItemState = "analyzing"
	ItemRecording ItemState = "recording"
	ItemDone      ItemState = "done"
	ItemFailed    ItemState = "failed"
)

// File is one selected file: an opaque binary payload plus its name
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ObjectStore submits a file to the external object store
type ObjectStore interface {
	Upload(ctx context.Context, file File) (*models.StoredAsset, error)
}

// Analyzer submits a stored image URL to the external AI collaborator
type Analyzer interface {
	Analyze(ctx context.Context, imageURL string) (*models.AnalysisResult, error)
}

// Recorder submits the analysis result to the external database collaborator.
// The recorder may enqueue a deferred announcement; that side effect never
// blocks or fails the record result.
type Recorder interface {
	Record(ctx context.Context, req models.RecordRequest) error
}

// ItemResult is the observable outcome of one item's pipeline
type ItemResult struct {
	Index    int       `json:"index"`
	FileName string    `json:"file_name"`
	State    ItemState `json:"state"`
	AssetID  string    `json:"asset_id,omitempty"`
	Title    string    `json:"title,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Status is a point-in-time view of the orchestrator
type Status struct {
	Running bool         `json:"running"`
	Logs    []string     `json:"logs"`
	Items   []ItemResult `json:"items"`
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRecordedHook registers a callback invoked after each successful record
func WithRecordedHook(hook func(ctx context.Context)) Option {
	return func(o *Orchestrator) {
		o.onRecorded = hook
	}
}

// WithSleep overrides the inter-item wait, for tests
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// Orchestrator drives batch runs. At most one run is active at a time; items
// within a run are processed one at a time, in order, never concurrently.
type Orchestrator struct {
	store      ObjectStore
	analyzer   Analyzer
	recorder   Recorder
	cooldown   time.Duration
	logger     *zap.Logger
	onRecorded func(ctx context.Context)
	sleep      func(ctx context.Context, d time.Duration)

	runLog *RunLog

	mu      sync.Mutex
	running bool
	items   []ItemResult
}

// New creates an orchestrator. The cooldown is the flat delay inserted
// between consecutive items to respect the AI collaborator's request-rate
// ceiling; it is the pipeline's only throttling defense.
func New(store ObjectStore, analyzer Analyzer, recorder Recorder, cooldown time.Duration, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		store:    store,
		analyzer: analyzer,
		recorder: recorder,
		cooldown: cooldown,
		logger:   logger,
		runLog:   NewRunLog(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start begins an asynchronous batch run over files. Guard failures are
// reported synchronously and leave the run log untouched. Once started, the
// run is not abortable; it continues on a background context until every
// item has resolved.
func (o *Orchestrator) Start(files []File) error {
	if err := o.begin(files); err != nil {
		return err
	}
	go o.process(context.Background(), files)
	return nil
}

// Run executes a batch synchronously. Same guards as Start.
func (o *Orchestrator) Run(ctx context.Context, files []File) error {
	if err := o.begin(files); err != nil {
		return err
	}
	o.process(ctx, files)
	return nil
}

// begin validates the request and reserves the single run slot
func (o *Orchestrator) begin(files []File) error {
	if len(files) == 0 {
		return ErrNoFiles
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrBatchInFlight
	}
	o.running = true

	o.items = make([]ItemResult, len(files))
	for i, f := range files {
		o.items[i] = ItemResult{Index: i, FileName: f.Name, State: ItemPending}
	}
	o.runLog.Reset()
	return nil
}

// process walks the batch. Each item's pipeline runs to completion (or
// failure) before the next item's store call is issued.
func (o *Orchestrator) process(ctx context.Context, files []File) {
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	total := len(files)
	o.runLog.Append("INITIALIZING BATCH SEQUENCE (%d FILES)...", total)
	o.logger.Info("batch_started", zap.Int("files", total))

	for i, file := range files {
		o.processOne(ctx, file, i, total)

		if i < total-1 {
			o.runLog.Append("COOLING DOWN (%s)...", o.cooldown)
			o.sleep(ctx, o.cooldown)
		}
	}

	o.runLog.Append("ALL TASKS COMPLETED. SYSTEM STANDBY.")
	o.logger.Info("batch_completed", zap.Int("files", total))
}

// processOne runs the three-stage pipeline for a single item. Any stage error
// is caught here: it terminates this item only, never the batch.
func (o *Orchestrator) processOne(ctx context.Context, file File, index, total int) {
	prefix := fmt.Sprintf("[ %d/%d ]", index+1, total)

	err := func() error {
		o.setItemState(index, ItemStoring)
		o.runLog.Append("%s UPLOADING: %s...", prefix, file.Name)

		asset, err := o.store.Upload(ctx, file)
		if err != nil {
			return fmt.Errorf("cloud upload failed: %w", err)
		}
		o.setItemAsset(index, asset.AssetID)
		o.runLog.Append("%s CLOUD SECURED.", prefix)

		o.setItemState(index, ItemAnalyzing)
		result, err := o.analyzer.Analyze(ctx, asset.URL)
		if err != nil {
			// The collaborator's explanation (content-safety rejection, quota
			// exhaustion) is surfaced verbatim.
			return err
		}
		o.setItemTitle(index, result.Title)
		o.runLog.Append("%s AI TITLE: %q", prefix, result.Title)

		o.setItemState(index, ItemRecording)
		req := models.RecordRequest{
			AnalysisResult: *result,
			ImageURL:       asset.URL,
			AssetID:        asset.AssetID,
		}
		if err := o.recorder.Record(ctx, req); err != nil {
			return fmt.Errorf("record write failed: %w", err)
		}
		return nil
	}()

	if err != nil {
		o.setItemFailed(index, err)
		o.runLog.Append("%s ERROR: %s", prefix, err.Error())
		o.logger.Warn("batch_item_failed",
			zap.Int("index", index),
			zap.String("file", file.Name),
			zap.Error(err),
		)
		return
	}

	o.setItemState(index, ItemDone)
	o.runLog.Append("%s SYNC COMPLETE.", prefix)
	if o.onRecorded != nil {
		o.onRecorded(ctx)
	}
}

// Status returns a snapshot of the current (or last) run
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	items := make([]ItemResult, len(o.items))
	copy(items, o.items)
	running := o.running
	o.mu.Unlock()

	return Status{
		Running: running,
		Logs:    o.runLog.Snapshot(),
		Items:   items,
	}
}

// Running reports whether a batch run is in flight
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) setItemState(index int, state ItemState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[index].State = state
}

func (o *Orchestrator) setItemAsset(index int, assetID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[index].AssetID = assetID
}

func (o *Orchestrator) setItemTitle(index int, title string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[index].Title = title
}

func (o *Orchestrator) setItemFailed(index int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[index].State = ItemFailed
	o.items[index].Error = err.Error()
}

// sleepContext waits for d or until the context is done
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
