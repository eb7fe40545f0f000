package history

import "time"

// Status describes where a job is in its lifecycle.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Statuses lists every known status in display order.
func Statuses() []Status {
	return []Status{StatusRunning, StatusCompleted, StatusFailed, StatusInterrupted}
}

// ParseStatus maps a user supplied value onto a Status.
func ParseStatus(value string) (Status, bool) {
	for _, status := range Statuses() {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether the job has finished one way or another.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

// Record is one persisted conversion job.
type Record struct {
	ID           string     `json:"id"`
	SourceKind   string     `json:"source_kind"`
	Source       string     `json:"source,omitempty"`
	Mode         string     `json:"mode"`
	MediaKind    string     `json:"media_kind"`
	Acceleration string     `json:"acceleration"`
	Downscale    bool       `json:"downscale"`
	FastPreset   bool       `json:"fast_preset"`
	AudioOnly    bool       `json:"audio_only"`
	CompactAudio bool       `json:"compact_audio"`
	Status       Status     `json:"status"`
	FailureStage string     `json:"failure_stage,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	OutputBytes  int64      `json:"output_bytes"`
	DurationMS   int64      `json:"duration_ms"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Duration returns the recorded wall time of the job.
func (r *Record) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// Summary aggregates job counts by status.
type Summary struct {
	Total       int `json:"total"`
	Running     int `json:"running"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	Interrupted int `json:"interrupted"`
}
