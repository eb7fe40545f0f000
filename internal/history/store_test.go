package history_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lofi/internal/history"
	"lofi/internal/testsupport"
)

func newRecord(id string) *history.Record {
	return &history.Record{
		ID:           id,
		SourceKind:   "remote",
		Source:       "https://example.com/watch?v=abc",
		Mode:         "streamed",
		MediaKind:    "aac",
		Acceleration: "auto",
		AudioOnly:    true,
	}
}

func TestBeginCompleteRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.Begin(ctx, newRecord("job-1")); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	rec, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec == nil || rec.Status != history.StatusRunning {
		t.Fatalf("expected running record, got %#v", rec)
	}
	if !rec.AudioOnly || rec.Downscale {
		t.Fatalf("flags not persisted: %#v", rec)
	}

	if err := store.Complete(ctx, "job-1", 4096, 1500*time.Millisecond); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	rec, err = store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Status != history.StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if rec.OutputBytes != 4096 || rec.Duration() != 1500*time.Millisecond {
		t.Fatalf("unexpected totals: bytes=%d duration=%s", rec.OutputBytes, rec.Duration())
	}
	if rec.FinishedAt == nil {
		t.Fatal("expected finished_at to be set")
	}
}

func TestFailRecordsStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.Begin(ctx, newRecord("job-2")); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Fail(ctx, "job-2", "fetch", "Failed to download YouTube video.", time.Second); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	rec, err := store.Get(ctx, "job-2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Status != history.StatusFailed || rec.FailureStage != "fetch" {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.ErrorMessage != "Failed to download YouTube video." {
		t.Fatalf("unexpected message %q", rec.ErrorMessage)
	}

	if err := store.Complete(ctx, "job-2", 1, time.Second); !errors.Is(err, history.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning finishing a failed job, got %v", err)
	}
	if err := store.Fail(ctx, "missing", "fetch", "x", 0); !errors.Is(err, history.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning for unknown job, got %v", err)
	}
}

func TestBeginRejectsDuplicateAndEmptyID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.Begin(ctx, newRecord("")); err == nil {
		t.Fatal("expected error for empty id")
	}
	if err := store.Begin(ctx, newRecord("dup")); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Begin(ctx, newRecord("dup")); err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	rec, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %#v", rec)
	}
}

func TestListOrderingFilterAndLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		rec := newRecord(fmt.Sprintf("job-%d", i))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Begin(ctx, rec); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
	}
	if err := store.Complete(ctx, "job-1", 10, time.Second); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := store.Fail(ctx, "job-3", "transcode", "boom", time.Second); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 || all[0].ID != "job-3" || all[3].ID != "job-0" {
		t.Fatalf("expected newest first, got %v", ids(all))
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 records, got %d", len(limited))
	}

	finished, err := store.List(ctx, 0, history.StatusCompleted, history.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(finished) != 2 || finished[0].ID != "job-3" || finished[1].ID != "job-1" {
		t.Fatalf("unexpected filtered list %v", ids(finished))
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Total != 4 || summary.Running != 2 || summary.Completed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
}

func TestMarkInterruptedAndPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Begin(ctx, newRecord(id)); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
	}
	if err := store.Complete(ctx, "a", 1, time.Second); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	marked, err := store.MarkInterrupted(ctx)
	if err != nil {
		t.Fatalf("MarkInterrupted failed: %v", err)
	}
	if marked != 2 {
		t.Fatalf("expected 2 interrupted, got %d", marked)
	}
	rec, _ := store.Get(ctx, "b")
	if rec == nil || rec.Status != history.StatusInterrupted {
		t.Fatalf("expected b interrupted, got %#v", rec)
	}

	if err := store.Begin(ctx, newRecord("d")); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	pruned, err := store.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 0 {
		t.Fatalf("expected nothing older than an hour, pruned %d", pruned)
	}

	pruned, err = store.Prune(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 3 {
		t.Fatalf("expected 3 finished records pruned, got %d", pruned)
	}
	rec, _ = store.Get(ctx, "d")
	if rec == nil {
		t.Fatal("running record must survive prune")
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Begin(context.Background(), newRecord("persist")); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenHistory(t, cfg)
	rec, err := reopened.Get(context.Background(), "persist")
	if err != nil || rec == nil {
		t.Fatalf("expected record after reopen, got %#v err=%v", rec, err)
	}
	if reopened.Path() != cfg.HistoryPath() {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := history.ParseStatus("failed"); !ok || status != history.StatusFailed {
		t.Fatalf("unexpected parse result %q %v", status, ok)
	}
	if _, ok := history.ParseStatus("pending"); ok {
		t.Fatal("pending is not a history status")
	}
	if history.StatusRunning.IsTerminal() || !history.StatusInterrupted.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}

func ids(records []*history.Record) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.ID)
	}
	return out
}
