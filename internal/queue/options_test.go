package queue_test

import (
	"errors"
	"reflect"
	"testing"

	"vidpipe/internal/queue"
	"vidpipe/internal/services"
)

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		name string
		opts queue.Options
		ok   bool
	}{
		{"nothing enabled", queue.Options{}, false},
		{"remove audio only", queue.Options{RemoveAudio: true}, true},
		{"preset", queue.Options{Compress: true, Resolution: "720P"}, true},
		{"missing resolution", queue.Options{Compress: true}, false},
		{"unknown resolution", queue.Options{Compress: true, Resolution: "4k"}, false},
		{"custom with width", queue.Options{Compress: true, Resolution: "custom", Width: 640}, true},
		{"custom negative width", queue.Options{Compress: true, Resolution: "custom", Width: -2}, false},
		{"convert without formats", queue.Options{Convert: true, Formats: []string{" ", ""}}, false},
		{"convert path traversal", queue.Options{Convert: true, Formats: []string{"../x"}}, false},
		{"convert formats", queue.Options{Convert: true, Formats: []string{"webm", ".MOV"}}, true},
		{"poster defaults", queue.Options{GeneratePoster: true}, true},
		{"poster bad format", queue.Options{GeneratePoster: true, PosterFormat: "p/ng"}, false},
	}
	for _, tc := range cases {
		err := tc.opts.Normalize().Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
			if !errors.Is(err, services.ErrInput) {
				t.Fatalf("%s: expected input marker, got %v", tc.name, err)
			}
		}
	}
}

func TestOptionsNormalize(t *testing.T) {
	opts := queue.Options{
		Convert:        true,
		Formats:        []string{"WebM", ".mov", "webm"},
		GeneratePoster: true,
		PosterFormat:   "JPEG",
	}.Normalize()
	if !reflect.DeepEqual(opts.Formats, []string{"webm", "mov"}) {
		t.Fatalf("unexpected formats %v", opts.Formats)
	}
	if opts.PosterFormat != "jpg" || opts.PosterTime != queue.DefaultPosterTime {
		t.Fatalf("unexpected poster settings %q %v", opts.PosterFormat, opts.PosterTime)
	}
}

func TestEnabledStepsFollowPipelineOrder(t *testing.T) {
	opts := queue.Options{GeneratePoster: true, Convert: true, RemoveAudio: true}
	got := opts.EnabledSteps()
	want := []queue.StepKind{queue.KindAudioRemoved, queue.KindConverted, queue.KindPoster}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("EnabledSteps = %v, want %v", got, want)
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[[2]queue.Status]bool{
		{queue.StatusPending, queue.StatusProcessing}:   true,
		{queue.StatusPending, queue.StatusCompleted}:    true,
		{queue.StatusPending, queue.StatusFailed}:       true,
		{queue.StatusProcessing, queue.StatusCompleted}: true,
		{queue.StatusProcessing, queue.StatusFailed}:    true,
	}
	for _, from := range queue.AllStatuses() {
		for _, to := range queue.AllStatuses() {
			if got := from.CanTransition(to); got != allowed[[2]queue.Status{from, to}] {
				t.Fatalf("CanTransition(%s -> %s) = %v", from, to, got)
			}
		}
	}
}

func TestPathLayout(t *testing.T) {
	if got := queue.StagedInputPath("/scratch", "abc", "mp4"); got != "/scratch/abc/abc.mp4" {
		t.Fatalf("unexpected staged path %q", got)
	}
	names := map[string]string{
		queue.CompressedName("abc", "mp4"):         "abc.mp4",
		queue.AudioRemovedName("abc", ".mp4"):      "abc-noaudio.mp4",
		queue.ConvertedName("abc", "1700", "webm"): "abc-1700.webm",
		queue.PosterName("abc", "jpg"):             "abc-poster.jpg",
	}
	for got, want := range names {
		if got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
	if !queue.OwnedBy("abc-poster.jpg", "abc") || queue.OwnedBy("abcd.mp4", "abc") {
		t.Fatal("unexpected ownership result")
	}
}

func TestOwnerCandidatesLongestFirst(t *testing.T) {
	got := queue.OwnerCandidates("abc-def-poster.png")
	want := []string{"abc-def-poster", "abc-def", "abc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got := queue.OwnerCandidates("plain"); len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}
