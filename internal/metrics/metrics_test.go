package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lofi/internal/artifacts"
	"lofi/internal/history"
	"lofi/internal/metrics"
)

func scrape(t *testing.T, c *metrics.Collector) string {
	t.Helper()
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCollectorRecordsJobLifecycle(t *testing.T) {
	c := metrics.New(false)

	c.JobRejected()
	c.JobStarted("streamed")
	c.JobStarted("staged")
	c.JobFinished("streamed", "completed", 2*time.Second)
	c.ArtifactsReleased(artifacts.Report{Removed: 2, Missing: 1})

	body := scrape(t, c)
	for _, want := range []string{
		`lofi_jobs_rejected_total 1`,
		`lofi_jobs_started_total{mode="streamed"} 1`,
		`lofi_jobs_started_total{mode="staged"} 1`,
		`lofi_jobs_finished_total{mode="streamed",outcome="completed"} 1`,
		`lofi_jobs_in_flight 1`,
		`lofi_job_duration_seconds_count{mode="streamed"} 1`,
		`lofi_artifact_cleanup_files_total{result="removed"} 2`,
		`lofi_artifact_cleanup_files_total{result="missing"} 1`,
		`lofi_artifact_cleanup_files_total{result="failed"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
	if strings.Contains(body, "go_goroutines") {
		t.Fatal("runtime collectors should be off")
	}
}

func TestObserveHistory(t *testing.T) {
	c := metrics.New(false)
	c.ObserveHistory(history.Summary{Total: 6, Running: 1, Completed: 3, Failed: 2})

	body := scrape(t, c)
	for _, want := range []string{
		`lofi_history_jobs{status="running"} 1`,
		`lofi_history_jobs{status="completed"} 3`,
		`lofi_history_jobs{status="failed"} 2`,
		`lofi_history_jobs{status="interrupted"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := metrics.New(true)
	b := metrics.New(true)
	a.JobRejected()

	if !strings.Contains(scrape(t, a), "lofi_jobs_rejected_total 1") {
		t.Fatal("expected counter on first collector")
	}
	if !strings.Contains(scrape(t, b), "lofi_jobs_rejected_total 0") {
		t.Fatal("second collector must not share state")
	}
}
