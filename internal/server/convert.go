package server

import (
	"embed"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"os"
	"strings"

	"lofi/internal/fileutil"
	"lofi/internal/job"
	"lofi/internal/logging"
	"lofi/internal/services"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const (
	messageInternal     = "An internal error occurred."
	messageBadForm      = "Could not read the submitted form."
	messageBodyTooBig   = "Uploaded file is too large."
	messageShuttingDown = "Server is shutting down."
)

type indexData struct {
	Acceleration string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{Acceleration: s.cfg.Transcode.Acceleration}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		logging.WithContext(r.Context(), s.logger).Error("render index failed", logging.Error(err))
	}
}

// handleConvert runs one job for the submitted form and streams the result.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context(), s.logger)

	if limit := s.cfg.MaxUploadBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+formMemory)
	}
	req, cleanup, err := parseConvertForm(r)
	defer cleanup()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeText(w, http.StatusRequestEntityTooLarge, messageBodyTooBig)
			return
		}
		logger.Info("form parse failed", logging.Error(err))
		writeText(w, http.StatusBadRequest, messageBadForm)
		return
	}

	if !s.beginJob() {
		writeText(w, http.StatusServiceUnavailable, messageShuttingDown)
		return
	}
	defer s.jobs.Done()

	// The job outlives a disconnecting client so its files are always
	// released by the driver or by the deferred Release below.
	ctx, cancel := s.jobContext(r)
	defer cancel()

	res, err := s.driver.Run(ctx, req)
	if err != nil {
		status, message := failureResponse(err)
		writeText(w, status, message)
		return
	}
	defer res.Release()

	f, err := os.Open(res.OutputPath)
	if err != nil {
		logging.ErrorWithContext(logger, "open converted output failed", "delivery", logging.Error(err))
		writeText(w, http.StatusInternalServerError, messageInternal)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		logging.ErrorWithContext(logger, "stat converted output failed", "delivery", logging.Error(err))
		writeText(w, http.StatusInternalServerError, messageInternal)
		return
	}

	w.Header().Set("Content-Type", res.Kind.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.DownloadName}))
	http.ServeContent(w, r, res.DownloadName, info.ModTime(), f)
}

// parseConvertForm maps the form fields onto a job request. The returned
// cleanup closes the upload and removes multipart temp files; it must always
// be called.
func parseConvertForm(r *http.Request) (job.Request, func(), error) {
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	err := r.ParseMultipartForm(formMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return job.Request{}, cleanup, err
	}
	if form := r.MultipartForm; form != nil {
		closers = append(closers, func() { _ = form.RemoveAll() })
	}

	req := job.Request{
		UseRemote:    formFlag(r, "youtube"),
		RemoteURL:    strings.TrimSpace(r.FormValue("youtube_url")),
		Downscale:    formFlag(r, "downscale"),
		FastPreset:   formFlag(r, "faster"),
		CompactAudio: formFlag(r, "use_mp3"),
		AudioOnly:    formFlag(r, "audio"),
	}
	if req.UseRemote {
		return req, cleanup, nil
	}

	file, header, err := r.FormFile("video")
	switch {
	case err == nil:
		// Close before RemoveAll so the temp file is released first.
		closers = append([]func(){func() { _ = file.Close() }}, closers...)
		req.Upload = &job.Upload{Body: file, Filename: header.Filename}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// A part without a filename is an empty file chooser; multipart
		// parsing files it under Value.
		if r.MultipartForm != nil {
			if _, ok := r.MultipartForm.Value["video"]; ok {
				req.Upload = &job.Upload{Body: strings.NewReader("")}
			}
		}
	default:
		return job.Request{}, cleanup, err
	}
	return req, cleanup, nil
}

// formFlag treats any non-empty value as set, as browsers send "on" for
// checked boxes and omit unchecked ones.
func formFlag(r *http.Request, name string) bool {
	return r.FormValue(name) != ""
}

func failureResponse(err error) (int, string) {
	var failure *services.Failure
	if !errors.As(err, &failure) {
		return http.StatusInternalServerError, messageInternal
	}
	switch {
	case errors.Is(err, fileutil.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, failure.UserMessage()
	case failure.Stage == services.StageValidation:
		return http.StatusBadRequest, failure.UserMessage()
	default:
		return http.StatusInternalServerError, failure.UserMessage()
	}
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
