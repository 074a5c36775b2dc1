package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"vidpipe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTranscode, "compress", "ffmpeg", "exit status 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTranscode) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"compress", "ffmpeg", "exit status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestCategory(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrInput, "", "options", "no operation enabled", nil), "input"},
		{services.Wrap(services.ErrTranscode, "convert", "", "", services.ErrTimeout), "timeout"},
		{services.Wrap(services.ErrTranscode, "poster", "", "", nil), "transcode"},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrPersistence, "", "", "", nil)), "persistence"},
		{errors.New("plain"), "unknown"},
	}
	for _, tc := range cases {
		if got := services.Category(tc.err); got != tc.want {
			t.Fatalf("Category(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFailureMessageSingleLine(t *testing.T) {
	err := errors.New("line one\nline two\t tail")
	if got := services.FailureMessage(err); got != "line one line two tail" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := services.FailureMessage(nil); got == "" {
		t.Fatal("expected fallback message")
	}
}
