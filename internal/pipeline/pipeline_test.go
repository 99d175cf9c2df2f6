package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vavebg/ops-console/internal/models"
)

// callRecorder tracks collaborator invocations in order
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

type fakeStore struct {
	rec     *callRecorder
	failOn  map[string]error
	counter int
}

func (s *fakeStore) Upload(ctx context.Context, file File) (*models.StoredAsset, error) {
	s.rec.record("store:" + file.Name)
	if err, ok := s.failOn[file.Name]; ok {
		return nil, err
	}
	s.counter++
	return &models.StoredAsset{
		URL:     "https://cdn.example.com/" + file.Name,
		AssetID: fmt.Sprintf("asset-%d", s.counter),
	}, nil
}

type fakeAnalyzer struct {
	rec    *callRecorder
	failOn map[string]error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, imageURL string) (*models.AnalysisResult, error) {
	name := imageURL[strings.LastIndex(imageURL, "/")+1:]
	a.rec.record("analyze:" + name)
	if err, ok := a.failOn[name]; ok {
		return nil, err
	}
	return &models.AnalysisResult{
		Title:       "Title of " + name,
		Description: "desc",
		Prompt:      "prompt",
		Tag1:        "tag1", Tag2: "tag2", Tag3: "tag3",
	}, nil
}

type fakeRecorder struct {
	rec    *callRecorder
	failOn map[string]error
}

func (r *fakeRecorder) Record(ctx context.Context, req models.RecordRequest) error {
	name := req.ImageURL[strings.LastIndex(req.ImageURL, "/")+1:]
	r.rec.record("record:" + name)
	if err, ok := r.failOn[name]; ok {
		return err
	}
	return nil
}

func noSleep(ctx context.Context, d time.Duration) {}

type harness struct {
	orch     *Orchestrator
	rec      *callRecorder
	store    *fakeStore
	analyzer *fakeAnalyzer
	recorder *fakeRecorder
	recorded int
}

func newHarness(opts ...Option) *harness {
	h := &harness{rec: &callRecorder{}}
	h.store = &fakeStore{rec: h.rec, failOn: map[string]error{}}
	h.analyzer = &fakeAnalyzer{rec: h.rec, failOn: map[string]error{}}
	h.recorder = &fakeRecorder{rec: h.rec, failOn: map[string]error{}}

	allOpts := append([]Option{
		WithSleep(noSleep),
		WithRecordedHook(func(ctx context.Context) { h.recorded++ }),
	}, opts...)
	h.orch = New(h.store, h.analyzer, h.recorder, 4*time.Second, nil, allOpts...)
	return h
}

func files(names ...string) []File {
	out := make([]File, len(names))
	for i, name := range names {
		out[i] = File{Name: name, ContentType: "image/jpeg", Data: []byte("data")}
	}
	return out
}

func TestOrchestrator_EmptyBatchIsNoOp(t *testing.T) {
	t.Parallel()

	h := newHarness()
	err := h.orch.Run(context.Background(), nil)
	if !errors.Is(err, ErrNoFiles) {
		t.Fatalf("Expected ErrNoFiles, got %v", err)
	}
	if got := h.orch.Status().Logs; len(got) != 0 {
		t.Errorf("Expected no log mutation, got %v", got)
	}
	if got := h.rec.snapshot(); len(got) != 0 {
		t.Errorf("Expected no collaborator calls, got %v", got)
	}
}

func TestOrchestrator_SuccessfulBatch(t *testing.T) {
	t.Parallel()

	h := newHarness()
	if err := h.orch.Run(context.Background(), files("a.jpg", "b.jpg")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wantCalls := []string{
		"store:a.jpg", "analyze:a.jpg", "record:a.jpg",
		"store:b.jpg", "analyze:b.jpg", "record:b.jpg",
	}
	got := h.rec.snapshot()
	if len(got) != len(wantCalls) {
		t.Fatalf("Expected calls %v, got %v", wantCalls, got)
	}
	for i := range wantCalls {
		if got[i] != wantCalls[i] {
			t.Errorf("Call %d: expected %q, got %q", i, wantCalls[i], got[i])
		}
	}

	status := h.orch.Status()
	if status.Running {
		t.Error("Expected run to be finished")
	}
	for _, item := range status.Items {
		if item.State != ItemDone {
			t.Errorf("Item %d: expected done, got %s", item.Index, item.State)
		}
	}
	if h.recorded != 2 {
		t.Errorf("Expected recorded hook to fire twice, got %d", h.recorded)
	}

	logs := status.Logs
	if len(logs) == 0 || logs[len(logs)-1] != "ALL TASKS COMPLETED. SYSTEM STANDBY." {
		t.Errorf("Expected terminal completed line, got %v", logs)
	}
}

func TestOrchestrator_FailureIsolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		failStore map[string]error
		failAI    map[string]error
		failRec   map[string]error
		wantState map[string]ItemState
		wantErr   map[string]string
	}{
		{
			name:      "store failure skips analyze and record",
			failStore: map[string]error{"b.jpg": errors.New("http 500")},
			wantState: map[string]ItemState{"a.jpg": ItemDone, "b.jpg": ItemFailed, "c.jpg": ItemDone},
			wantErr:   map[string]string{"b.jpg": "cloud upload failed: http 500"},
		},
		{
			name:      "analysis failure surfaced verbatim",
			failAI:    map[string]error{"a.jpg": errors.New("blocked by content policy")},
			wantState: map[string]ItemState{"a.jpg": ItemFailed, "b.jpg": ItemDone, "c.jpg": ItemDone},
			wantErr:   map[string]string{"a.jpg": "blocked by content policy"},
		},
		{
			name:      "record failure fails item only",
			failRec:   map[string]error{"c.jpg": errors.New("http 400")},
			wantState: map[string]ItemState{"a.jpg": ItemDone, "b.jpg": ItemDone, "c.jpg": ItemFailed},
			wantErr:   map[string]string{"c.jpg": "record write failed: http 400"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness()
			for k, v := range tt.failStore {
				h.store.failOn[k] = v
			}
			for k, v := range tt.failAI {
				h.analyzer.failOn[k] = v
			}
			for k, v := range tt.failRec {
				h.recorder.failOn[k] = v
			}

			if err := h.orch.Run(context.Background(), files("a.jpg", "b.jpg", "c.jpg")); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			status := h.orch.Status()
			for _, item := range status.Items {
				want := tt.wantState[item.FileName]
				if item.State != want {
					t.Errorf("Item %s: expected state %s, got %s", item.FileName, want, item.State)
				}
				if wantErr, ok := tt.wantErr[item.FileName]; ok && item.Error != wantErr {
					t.Errorf("Item %s: expected error %q, got %q", item.FileName, wantErr, item.Error)
				}
			}

			// One terminal line per item plus the completed line, in file order
			var terminals []string
			for _, line := range status.Logs {
				if strings.Contains(line, "SYNC COMPLETE") || strings.Contains(line, "ERROR:") {
					terminals = append(terminals, line)
				}
			}
			if len(terminals) != 3 {
				t.Fatalf("Expected 3 item terminal lines, got %v", terminals)
			}
			for i, line := range terminals {
				wantPrefix := fmt.Sprintf("[ %d/3 ]", i+1)
				if !strings.HasPrefix(line, wantPrefix) {
					t.Errorf("Terminal line %d: expected prefix %q, got %q", i, wantPrefix, line)
				}
			}
			if last := status.Logs[len(status.Logs)-1]; last != "ALL TASKS COMPLETED. SYSTEM STANDBY." {
				t.Errorf("Expected terminal completed line, got %q", last)
			}
		})
	}
}

func TestOrchestrator_ErrorLineFormat(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.analyzer.failOn["a.jpg"] = errors.New("quota exceeded")

	if err := h.orch.Run(context.Background(), files("a.jpg")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	found := false
	for _, line := range h.orch.Status().Logs {
		if line == "[ 1/1 ] ERROR: quota exceeded" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected exact error line, got %v", h.orch.Status().Logs)
	}
}

func TestOrchestrator_StrictSequencing(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.analyzer.failOn["a.jpg"] = errors.New("boom")

	if err := h.orch.Run(context.Background(), files("a.jpg", "b.jpg")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	calls := h.rec.snapshot()
	storeB := -1
	lastA := -1
	for i, call := range calls {
		if strings.HasSuffix(call, ":a.jpg") {
			lastA = i
		}
		if call == "store:b.jpg" {
			storeB = i
		}
	}
	if storeB == -1 {
		t.Fatal("Expected store call for b.jpg")
	}
	if lastA > storeB {
		t.Errorf("Expected item a to fully resolve before b's store call, calls: %v", calls)
	}
}

func TestOrchestrator_CooldownBetweenItemsOnly(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	h := newHarness(WithSleep(func(ctx context.Context, d time.Duration) {
		sleeps = append(sleeps, d)
	}))

	if err := h.orch.Run(context.Background(), files("a.jpg", "b.jpg", "c.jpg")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// N-1 cooldowns: between items, never after the last
	if len(sleeps) != 2 {
		t.Fatalf("Expected 2 cooldowns for 3 files, got %d", len(sleeps))
	}
	for _, d := range sleeps {
		if d != 4*time.Second {
			t.Errorf("Expected 4s cooldown, got %v", d)
		}
	}
}

func TestOrchestrator_NotReentrant(t *testing.T) {
	t.Parallel()

	blocker := make(chan struct{})
	released := make(chan struct{})
	h := newHarness()
	h.orch.analyzer = analyzerFunc(func(ctx context.Context, url string) (*models.AnalysisResult, error) {
		close(released)
		<-blocker
		return &models.AnalysisResult{Title: "t"}, nil
	})

	if err := h.orch.Start(files("a.jpg")); err != nil {
		t.Fatalf("Unexpected error starting batch: %v", err)
	}
	<-released

	if err := h.orch.Start(files("b.jpg")); !errors.Is(err, ErrBatchInFlight) {
		t.Errorf("Expected ErrBatchInFlight, got %v", err)
	}

	close(blocker)
	waitForIdle(t, h.orch)

	// A finished run releases the slot
	if err := h.orch.Run(context.Background(), files("c.jpg")); err != nil {
		t.Errorf("Expected new run after completion, got %v", err)
	}
}

type analyzerFunc func(ctx context.Context, imageURL string) (*models.AnalysisResult, error)

func (f analyzerFunc) Analyze(ctx context.Context, imageURL string) (*models.AnalysisResult, error) {
	return f(ctx, imageURL)
}

func waitForIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !o.Running() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for batch to finish")
}

func TestOrchestrator_LogClearedPerRun(t *testing.T) {
	t.Parallel()

	h := newHarness()
	if err := h.orch.Run(context.Background(), files("a.jpg", "b.jpg")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	firstLen := len(h.orch.Status().Logs)

	if err := h.orch.Run(context.Background(), files("c.jpg")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	logs := h.orch.Status().Logs
	if len(logs) >= firstLen {
		t.Errorf("Expected log to reset between runs, got %d lines (first run had %d)", len(logs), firstLen)
	}
	for _, line := range logs {
		if strings.Contains(line, "a.jpg") || strings.Contains(line, "b.jpg") {
			t.Errorf("Expected no lines from previous run, got %q", line)
		}
	}
}

func TestOrchestrator_RecordedHookOnlyOnSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.recorder.failOn["a.jpg"] = errors.New("boom")

	if err := h.orch.Run(context.Background(), files("a.jpg", "b.jpg")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if h.recorded != 1 {
		t.Errorf("Expected recorded hook to fire once, got %d", h.recorded)
	}
}
