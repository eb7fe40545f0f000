package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lofi/internal/history"
	"lofi/internal/testsupport"
)

func seedHistory(t *testing.T, env *cliTestEnv) {
	t.Helper()
	store := testsupport.MustOpenHistory(t, env.cfg)
	ctx := t.Context()
	for _, rec := range []*history.Record{
		{ID: "job-ok", SourceKind: "upload", Source: "clip.mov", Mode: "direct", MediaKind: "video", Acceleration: "auto", Downscale: true},
		{ID: "job-bad", SourceKind: "remote", Source: "https://www.youtube.com/watch?v=gone", Mode: "staged", MediaKind: "mp3", Acceleration: "auto", AudioOnly: true, CompactAudio: true},
		{ID: "job-live", SourceKind: "remote", Source: "https://example.com/live", Mode: "streamed", MediaKind: "audio", Acceleration: "auto"},
	} {
		if err := store.Begin(ctx, rec); err != nil {
			t.Fatalf("begin %s: %v", rec.ID, err)
		}
	}
	if err := store.Complete(ctx, "job-ok", 3*1024*1024, 4*time.Second); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := store.Fail(ctx, "job-bad", "fetch", "Failed to download YouTube video.", time.Second); err != nil {
		t.Fatalf("fail: %v", err)
	}
}

func TestHistoryTable(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubBehaviour{})
	seedHistory(t, env)

	stdout, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	requireContains(t, stdout, "job-ok")
	requireContains(t, stdout, "Completed")
	requireContains(t, stdout, "Failed (Fetch)")
	requireContains(t, stdout, "Running")
	requireContains(t, stdout, "3.0 MiB")
	requireContains(t, stdout, "3 jobs")
}

func TestHistoryFilterJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubBehaviour{})
	seedHistory(t, env)

	stdout, _, err := runCLI(t, []string{"history", "--status", "failed,completed", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var records []history.Record
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if len(records) != 2 {
		t.Fatalf("expected two finished jobs, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Status == history.StatusRunning {
			t.Fatalf("running job leaked through filter: %+v", rec)
		}
	}

	if _, _, err := runCLI(t, []string{"history", "--status", "bogus"}, env.configPath); err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

func TestHistoryDetail(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubBehaviour{})
	seedHistory(t, env)

	stdout, _, err := runCLI(t, []string{"history", "job-bad"}, env.configPath)
	if err != nil {
		t.Fatalf("history detail failed: %v", err)
	}
	requireContains(t, stdout, "Failed at:")
	requireContains(t, stdout, "Fetch")
	requireContains(t, stdout, "audio, mp3")
	requireContains(t, stdout, "Failed to download YouTube video.")

	if _, _, err := runCLI(t, []string{"history", "missing"}, env.configPath); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHistoryRecordsCLIConversions(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubBehaviour{})

	if _, _, err := runCLI(t, []string{"convert", "--url", "https://example.com/v", "--audio", "-o", env.workDir}, env.configPath); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if _, _, err := runCLI(t, []string{"convert", "--url", "https://example.com/v", "--no-history", "-o", filepath.Join(env.workDir, "second.mp4")}, env.configPath); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var records []history.Record
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Status != history.StatusCompleted || !records[0].AudioOnly {
		t.Fatalf("unexpected history %+v", records)
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubBehaviour{})

	stdout, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	requireContains(t, stdout, "No jobs recorded")
}
