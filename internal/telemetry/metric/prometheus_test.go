package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Fatal("registry field is nil")
	}
	body := scrape(t, r.Handler())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
	if Handler() == nil {
		t.Error("Handler() returned nil")
	}
}

func TestRecordCheckpoint(t *testing.T) {
	r := NewRegistry()

	r.RecordCheckpoint("differential", ResultSuccess, 20*time.Millisecond)
	r.RecordCheckpoint("full", ResultFailure, time.Second)
	r.RecordCheckpoint("full", ResultFailure, time.Second)
	r.RecordCheckpoint("differential", ResultSkipped, 0)

	if got := testutil.ToFloat64(r.CheckpointsTotal.WithLabelValues("full", ResultFailure)); got != 2 {
		t.Errorf("full failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ConsecutiveFailures); got != 2 {
		t.Errorf("consecutive failures = %v, want 2", got)
	}
	if testutil.ToFloat64(r.LastCheckpointTime) == 0 {
		t.Error("last checkpoint time not set")
	}

	r.RecordCheckpoint("full", ResultSuccess, time.Millisecond)
	if got := testutil.ToFloat64(r.ConsecutiveFailures); got != 0 {
		t.Errorf("consecutive failures after success = %v", got)
	}

	body := scrape(t, r.Handler())
	for _, want := range []string{
		`statekeep_checkpoints_total{kind="differential",result="skipped"} 1`,
		`statekeep_checkpoint_duration_seconds_count{kind="full"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}

func TestRecordCheckpoint_TooLarge(t *testing.T) {
	r := NewRegistry()

	r.RecordCheckpoint("full", ResultTooLarge, time.Second)

	if got := testutil.ToFloat64(r.CheckpointsTotal.WithLabelValues("full", ResultTooLarge)); got != 1 {
		t.Errorf("too large = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.CheckpointsTotal.WithLabelValues("full", ResultFailure)); got != 0 {
		t.Errorf("plain failures = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.ConsecutiveFailures); got != 1 {
		t.Errorf("consecutive failures = %v, want 1", got)
	}
}

func TestSaveAndRecoveryMetrics(t *testing.T) {
	r := NewRegistry()
	r.AddSaveStats(3, 5, 1)
	r.AddSaveStats(1, 7, 0)
	r.AddCommitOperations(12)
	r.RecordRecovery(ResultSuccess, 9)
	r.RecordRecovery(ResultFailure, 0)

	checks := map[string]float64{
		"saved":     testutil.ToFloat64(r.EntitiesSaved),
		"skipped":   testutil.ToFloat64(r.EntitiesSkipped),
		"deleted":   testutil.ToFloat64(r.EntitiesDeleted),
		"ops":       testutil.ToFloat64(r.CommitOperations),
		"recovered": testutil.ToFloat64(r.RecoveredEntities),
	}
	want := map[string]float64{"saved": 4, "skipped": 12, "deleted": 1, "ops": 12, "recovered": 9}
	for k, v := range want {
		if checks[k] != v {
			t.Errorf("%s = %v, want %v", k, checks[k], v)
		}
	}
}

type fakeSpace struct {
	n     int
	dirty bool
}

func (f *fakeSpace) Len() int        { return f.n }
func (f *fakeSpace) NeedsSave() bool { return f.dirty }

func TestCollector(t *testing.T) {
	r := NewRegistry()
	src := &fakeSpace{n: 4, dirty: true}
	if err := r.WatchSpace(src); err != nil {
		t.Fatal(err)
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, "statekeep_space_entities 4") {
		t.Error("expected statekeep_space_entities 4")
	}
	if !strings.Contains(body, "statekeep_space_needs_save 1") {
		t.Error("expected statekeep_space_needs_save 1")
	}

	src.n, src.dirty = 0, false
	body = scrape(t, r.Handler())
	if !strings.Contains(body, "statekeep_space_needs_save 0") {
		t.Error("collector did not resample on scrape")
	}

	if err := r.WatchSpace(src); err == nil {
		t.Error("registering a second space collector should fail")
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.RecordCheckpoint("differential", ResultSuccess, time.Microsecond)
				r.AddSaveStats(1, 0, 0)
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(r.EntitiesSaved); got != 1000 {
		t.Errorf("saved = %v, want 1000", got)
	}
}
