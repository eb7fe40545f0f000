package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"lofi/internal/config"
	"lofi/internal/history"
	"lofi/internal/job"
	"lofi/internal/logging"
	"lofi/internal/metrics"
	"lofi/internal/server"
	"lofi/internal/testsupport"
)

type harness struct {
	cfg     *config.Config
	store   *history.Store
	server  *server.Server
	http    *httptest.Server
	metrics *metrics.Collector
}

func newHarness(t *testing.T, behaviour testsupport.StubBehaviour, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithStubTools(behaviour)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenHistory(t, cfg)
	collector := metrics.New(false)

	driver, err := job.NewFromConfig(cfg, logging.NewNop(), job.WithRecorder(store), job.WithObserver(collector))
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	srv, err := server.New(cfg, driver, logging.NewNop(), server.WithHistory(store), server.WithMetrics(collector))
	if err != nil {
		t.Fatalf("server.New failed: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{cfg: cfg, store: store, server: srv, http: ts, metrics: collector}
}

type formField struct {
	name, value string
}

type formFile struct {
	name, filename string
	content        []byte
}

func multipartBody(t *testing.T, fields []formField, files []formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.name, f.filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (h *harness) post(t *testing.T, path string, fields []formField, files []formFile) (*http.Response, []byte) {
	t.Helper()
	body, contentType := multipartBody(t, fields, files)
	resp, err := h.http.Client().Post(h.http.URL+path, contentType, body)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (h *harness) get(t *testing.T, path, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.http.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.http.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

// waitForEmptyDirs polls because artifacts are released after the response
// body has been handed to the client.
func (h *harness) waitForEmptyDirs(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		uploads, _ := os.ReadDir(h.cfg.Paths.UploadDir)
		converted, _ := os.ReadDir(h.cfg.Paths.ConvertedDir)
		if len(uploads) == 0 && len(converted) == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("working directories not cleaned: uploads=%d converted=%d", len(uploads), len(converted))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestIndexRendersForm(t *testing.T) {
	h := newHarness(t, testsupport.StubBehaviour{})
	resp, body := h.get(t, "/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	page := string(body)
	for _, want := range []string{"Low quality Video inator", `name="youtube_url"`, `name="use_mp3"`, "toggleDarkMode", "Acceleration: auto"} {
		if !strings.Contains(page, want) {
			t.Fatalf("expected %q in page", want)
		}
	}
}

func TestUploadReturnsAttachmentAndCleansUp(t *testing.T) {
	h := newHarness(t, testsupport.StubBehaviour{})
	resp, body := h.post(t, "/",
		[]formField{{"downscale", "on"}},
		[]formFile{{"video", "holiday.mkv", []byte("uploaded-video")}},
	)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	if string(body) != "uploaded-video" {
		t.Fatalf("unexpected body %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "video/mp4" {
		t.Fatalf("unexpected content type %q", ct)
	}
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil || params["filename"] != "holiday-lofi.mp4" {
		t.Fatalf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}
	h.waitForEmptyDirs(t)

	calls := testsupport.Invocations(t, h.cfg)
	if len(calls) != 1 || !strings.Contains(calls[0], "-vf scale=144:-2") {
		t.Fatalf("expected downscaled transcode, got %v", calls)
	}
}

func TestRemoteAudioStreamsThroughConvertRoute(t *testing.T) {
	h := newHarness(t, testsupport.StubBehaviour{})
	resp, body := h.post(t, "/convert", []formField{
		{"youtube", "on"},
		{"youtube_url", "https://www.youtube.com/watch?v=abc"},
		{"audio", "on"},
		{"use_mp3", "on"},
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	if string(body) != testsupport.StubPayload {
		t.Fatalf("unexpected body %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("unexpected content type %q", ct)
	}
	h.waitForEmptyDirs(t)
}

func TestValidationErrors(t *testing.T) {
	h := newHarness(t, testsupport.StubBehaviour{})
	cases := []struct {
		name   string
		fields []formField
		want   string
	}{
		{"missing url", []formField{{"youtube", "on"}}, "YouTube URL is required."},
		{"no file part", []formField{{"audio", "on"}}, "No file part"},
		{"empty file chooser", []formField{{"video", ""}}, "No selected file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := h.post(t, "/", tc.fields, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if string(body) != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, body)
			}
		})
	}
	if calls := testsupport.Invocations(t, h.cfg); len(calls) != 0 {
		t.Fatalf("validation failures must not spawn processes, got %v", calls)
	}
}

func TestFetchFailureReturns500WithDiagnostics(t *testing.T) {
	h := newHarness(t, testsupport.StubBehaviour{FetchFail: true})
	resp, body := h.post(t, "/", []formField{
		{"youtube", "on"},
		{"youtube_url", "https://www.youtube.com/watch?v=gone"},
		{"downscale", "on"},
	}, nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	text := string(body)
	if !strings.Contains(text, "An error occurred during YouTube download") || !strings.Contains(text, "video unavailable") {
		t.Fatalf("unexpected body %q", text)
	}
	h.waitForEmptyDirs(t)
}

func TestOversizedUploadRejected(t *testing.T) {
	h := newHarness(t, testsupport.StubBehaviour{}, testsupport.WithMaxUploadMB(1))

	big := bytes.Repeat([]byte("x"), 1536*1024)
	resp, body := h.post(t, "/", nil, []formFile{{"video", "big.mp4", big}})
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.StatusCode, body)
	}
	h.waitForEmptyDirs(t)
}

func TestAPIRequiresToken(t *testing.T) {
	h := newHarness(t, testsupport.StubBehaviour{}, testsupport.WithAPIToken("secret"))

	if resp, _ := h.get(t, "/api/status", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp, _ := h.get(t, "/api/status", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.StatusCode)
	}
	resp, body := h.get(t, "/api/status", "secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status server.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Ready || status.Acceleration != "auto" || len(status.Dependencies) != 2 {
		t.Fatalf("unexpected status %#v", status)
	}
	if resp, _ := h.get(t, "/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz must not require auth, got %d", resp.StatusCode)
	}
}

func TestJobsAPI(t *testing.T) {
	h := newHarness(t, testsupport.StubBehaviour{})
	if resp, body := h.post(t, "/", nil, []formFile{{"video", "a.mp4", []byte("a")}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("conversion failed: %d %s", resp.StatusCode, body)
	}
	if resp, _ := h.post(t, "/", []formField{{"youtube", "on"}}, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected validation failure, got %d", resp.StatusCode)
	}

	resp, body := h.get(t, "/api/jobs", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var list server.JobListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].Status != history.StatusCompleted {
		t.Fatalf("expected one completed job, got %#v", list.Jobs)
	}

	resp, body = h.get(t, "/api/jobs/"+list.Jobs[0].ID, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), list.Jobs[0].ID) {
		t.Fatalf("unexpected job response %d %s", resp.StatusCode, body)
	}
	if resp, _ := h.get(t, "/api/jobs/does-not-exist", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp, _ := h.get(t, "/api/jobs?status=pending", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}
	resp, body = h.get(t, "/api/jobs?status=failed", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"jobs":[]`) {
		t.Fatalf("expected empty failed list, got %d %s", resp.StatusCode, body)
	}

	resp, body = h.get(t, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected metrics status %d", resp.StatusCode)
	}
	for _, want := range []string{
		`lofi_jobs_finished_total{mode="direct",outcome="completed"} 1`,
		`lofi_jobs_rejected_total 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics", want)
		}
	}
}

func TestStartLocksAndMarksInterrupted(t *testing.T) {
	h := newHarness(t, testsupport.StubBehaviour{})
	ctx := context.Background()

	if err := h.store.Begin(ctx, &history.Record{ID: "stale", SourceKind: "remote", Mode: "streamed", MediaKind: "video", Acceleration: "auto"}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := h.server.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.server.Stop()

	rec, err := h.store.Get(ctx, "stale")
	if err != nil || rec == nil || rec.Status != history.StatusInterrupted {
		t.Fatalf("expected stale job interrupted, got %#v err=%v", rec, err)
	}

	resp, err := http.Get("http://" + h.server.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status %d", resp.StatusCode)
	}

	driver, err := job.NewFromConfig(h.cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	second, err := server.New(h.cfg, driver, logging.NewNop())
	if err != nil {
		t.Fatalf("server.New failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second server to fail on the lock")
	}
}

func TestStopCancelsRunningJobsAndReleasesFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubTools(testsupport.StubBehaviour{FetchHang: true}))
	store := testsupport.MustOpenHistory(t, cfg)
	driver, err := job.NewFromConfig(cfg, logging.NewNop(), job.WithRecorder(store))
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	srv, err := server.New(cfg, driver, logging.NewNop(),
		server.WithHistory(store),
		server.WithShutdownTimeout(200*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("server.New failed: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	body, contentType := multipartBody(t, []formField{
		{"youtube", "on"},
		{"youtube_url", "https://www.youtube.com/watch?v=endless"},
		{"audio", "on"},
	}, nil)
	done := make(chan int, 1)
	go func() {
		resp, err := http.Post("http://"+srv.Addr()+"/convert", contentType, body)
		if err != nil {
			done <- 0
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	deadline := time.Now().Add(3 * time.Second)
	for {
		if entries, _ := os.ReadDir(cfg.Paths.ConvertedDir); len(entries) > 0 {
			break
		}
		if time.Now().After(deadline) {
			srv.Stop()
			t.Fatal("job never started writing its output")
		}
		time.Sleep(20 * time.Millisecond)
	}

	srv.Stop()

	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.ConvertedDir} {
		if entries, _ := os.ReadDir(dir); len(entries) != 0 {
			t.Fatalf("files left in %s after Stop: %d", dir, len(entries))
		}
	}
	select {
	case status := <-done:
		if status == http.StatusOK {
			t.Fatal("cancelled job must not be delivered")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("client request did not finish after Stop")
	}

	records, err := store.List(context.Background(), 10)
	if err != nil || len(records) != 1 || records[0].Status != history.StatusFailed {
		t.Fatalf("expected the cancelled job recorded as failed, got %+v err=%v", records, err)
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	body, contentType = multipartBody(t, []formField{{"youtube", "on"}, {"youtube_url", "https://example.com/v"}}, nil)
	resp, err := ts.Client().Post(ts.URL+"/convert", contentType, body)
	if err != nil {
		t.Fatalf("POST after Stop: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after Stop, got %d", resp.StatusCode)
	}
}
