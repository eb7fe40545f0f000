package testsupport

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"text/template"
)

// StubBehaviour scripts how the stub tools respond.
type StubBehaviour struct {
	// FetchFail exits 1 after printing an error.
	FetchFail bool
	// FetchEmpty exits 0 without writing a staged file.
	FetchEmpty bool
	// FetchMulti writes two staged files sharing the job prefix.
	FetchMulti bool
	// FetchHang keeps streaming fetches alive after writing their payload.
	FetchHang bool
	// TranscodeFail exits 1 without reading input.
	TranscodeFail bool
}

// Tools locates installed stub executables.
type Tools struct {
	Dir       string
	Fetch     string
	Transcode string
	Log       string
}

// StubPayload is the media body the stub fetcher produces.
const StubPayload = "stub-media-bytes"

const invocationLog = "invocations.log"

var fetchScript = template.Must(template.New("fetch").Parse(`#!/bin/sh
if [ "$1" = "--version" ]; then echo "2025.01.01-stub"; exit 0; fi
echo "fetch $*" >> "{{.Log}}"
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    -f) shift 2 ;;
    *) shift ;;
  esac
done
echo "[download] starting" >&2
{{- if .FetchFail}}
echo "ERROR: video unavailable" >&2
exit 1
{{- end}}
if [ "$out" = "-" ]; then
  printf '%s' "{{.Payload}}"
{{- if .FetchHang}}
  sleep 30
{{- end}}
  exit 0
fi
{{- if .FetchEmpty}}
exit 0
{{- end}}
base=$(printf '%s' "$out" | sed 's/%(ext)s$//')
printf '%s' "{{.Payload}}" > "${base}webm"
{{- if .FetchMulti}}
printf '%s' "{{.Payload}}" > "${base}m4a"
{{- end}}
exit 0
`))

var transcodeScript = template.Must(template.New("transcode").Parse(`#!/bin/sh
if [ "$1" = "-version" ]; then echo "ffmpeg version stub"; exit 0; fi
echo "transcode $*" >> "{{.Log}}"
input=""
prev=""
out=""
for arg in "$@"; do
  if [ "$prev" = "-i" ]; then input="$arg"; fi
  prev="$arg"
  out="$arg"
done
{{- if .TranscodeFail}}
echo "Conversion failed!" >&2
exit 1
{{- end}}
if [ "$input" = "-" ]; then
  cat > "$out"
else
  cat "$input" > "$out" || exit 1
fi
echo "video:1kB audio:1kB muxing overhead: 0%" >&2
exit 0
`))

// StubTools writes yt-dlp and ffmpeg stand-ins into dir. Each call is
// appended to an invocation log in the same directory.
func StubTools(t testing.TB, dir string, behaviour StubBehaviour) Tools {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	tools := Tools{
		Dir:       dir,
		Fetch:     filepath.Join(dir, "yt-dlp"),
		Transcode: filepath.Join(dir, "ffmpeg"),
		Log:       filepath.Join(dir, invocationLog),
	}
	data := struct {
		StubBehaviour
		Log     string
		Payload string
	}{behaviour, tools.Log, StubPayload}

	for path, tmpl := range map[string]*template.Template{tools.Fetch: fetchScript, tools.Transcode: transcodeScript} {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			t.Fatalf("render %s: %v", filepath.Base(path), err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", path, err)
		}
	}
	return tools
}

// ReadInvocations returns the recorded stub calls in dir.
func ReadInvocations(t testing.TB, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, invocationLog))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatalf("read invocation log: %v", err)
	}
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Invocations returns the recorded calls for these tools.
func (tl Tools) Invocations(t testing.TB) []string {
	t.Helper()
	return ReadInvocations(t, tl.Dir)
}
