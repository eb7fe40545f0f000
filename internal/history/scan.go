package history

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "id, source_kind, source, mode, media_kind, acceleration, downscale, fast_preset, audio_only, compact_audio, status, failure_stage, error_message, output_bytes, duration_ms, created_at, updated_at, finished_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec          Record
		source       sql.NullString
		downscale    int64
		fastPreset   int64
		audioOnly    int64
		compactAudio int64
		statusStr    string
		failureStage sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.SourceKind,
		&source,
		&rec.Mode,
		&rec.MediaKind,
		&rec.Acceleration,
		&downscale,
		&fastPreset,
		&audioOnly,
		&compactAudio,
		&statusStr,
		&failureStage,
		&errorMessage,
		&rec.OutputBytes,
		&rec.DurationMS,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	rec.Source = source.String
	rec.Downscale = downscale != 0
	rec.FastPreset = fastPreset != 0
	rec.AudioOnly = audioOnly != 0
	rec.CompactAudio = compactAudio != 0
	rec.Status = Status(statusStr)
	rec.FailureStage = failureStage.String
	rec.ErrorMessage = errorMessage.String

	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			rec.FinishedAt = &finished
		}
	}
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// formatTime uses a fixed-width layout so stored timestamps sort lexically.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
