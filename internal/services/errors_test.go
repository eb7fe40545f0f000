package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"lofi/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConfiguration, "config", "load", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"config", "load", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureCarriesStageMarker(t *testing.T) {
	cause := errors.New("exit status 1")
	err := error(services.NewFailure(services.StageTranscode, "An error occurred during conversion", "Conversion failed!", cause))

	if !errors.Is(err, services.ErrTranscode) {
		t.Fatalf("expected transcode marker, got %v", err)
	}
	if errors.Is(err, services.ErrFetch) {
		t.Fatalf("did not expect fetch marker on %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable, got %v", err)
	}
	stage, ok := services.StageOf(fmt.Errorf("outer: %w", err))
	if !ok || stage != services.StageTranscode {
		t.Fatalf("StageOf = %q %v", stage, ok)
	}

	var classifier services.ErrorClassifier
	if !errors.As(err, &classifier) || classifier.ErrorKind() != "transcode" {
		t.Fatalf("expected transcode classifier, got %v", classifier)
	}
}

func TestFailureUserMessage(t *testing.T) {
	failure := services.NewFailure(services.StageFetch, "An error occurred during YouTube download: exit status 1", "ERROR: unavailable", errors.New("exit status 1"))
	got := failure.UserMessage()
	want := "An error occurred during YouTube download: exit status 1\n\nERROR: unavailable"
	if got != want {
		t.Fatalf("UserMessage = %q, want %q", got, want)
	}

	validation := services.Validation("YouTube URL is required.")
	if validation.UserMessage() != "YouTube URL is required." {
		t.Fatalf("unexpected validation message %q", validation.UserMessage())
	}
	if !errors.Is(validation, services.ErrValidation) {
		t.Fatal("expected validation marker")
	}
}

func TestStageOfPlainErrors(t *testing.T) {
	if _, ok := services.StageOf(errors.New("plain")); ok {
		t.Fatal("plain error should not carry a stage")
	}
	wrapped := services.Wrap(services.ErrFetch, "fetch", "start", "missing binary", nil)
	if stage, ok := services.StageOf(wrapped); !ok || stage != services.StageFetch {
		t.Fatalf("StageOf(wrapped) = %q %v", stage, ok)
	}
}
