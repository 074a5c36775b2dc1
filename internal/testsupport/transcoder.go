package testsupport

import (
	"context"
	"errors"
	"sync"

	"vidpipe/internal/transcoder"
)

// FakeTranscoder records every operation and writes an output file of
// OutputSize bytes so downstream size checks see a real artifact.
type FakeTranscoder struct {
	mu    sync.Mutex
	calls []transcoder.Operation

	OutputSize int64
	Aspect     float64
	AspectErr  error
	// FailKind makes every operation of that kind return Err.
	FailKind transcoder.Kind
	Err      error
	// Hang blocks operations of FailKind until the context ends.
	Hang bool
	// OnRun, when set, runs before the output is written.
	OnRun func(op transcoder.Operation)
}

func (f *FakeTranscoder) Run(ctx context.Context, op transcoder.Operation) (transcoder.Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	hook := f.OnRun
	f.mu.Unlock()

	if hook != nil {
		hook(op)
	}
	if f.FailKind != "" && op.Kind == f.FailKind {
		if f.Hang {
			<-ctx.Done()
			return transcoder.Output{}, ctx.Err()
		}
		err := f.Err
		if err == nil {
			err = errors.New("engine failure")
		}
		return transcoder.Output{}, err
	}

	size := f.OutputSize
	if size <= 0 {
		size = 4096
	}
	if err := writeSized(op.Output, size); err != nil {
		return transcoder.Output{}, err
	}
	return transcoder.Output{Path: op.Output, Size: size}, nil
}

func (f *FakeTranscoder) AspectRatio(context.Context, string) (float64, error) {
	if f.AspectErr != nil {
		return 0, f.AspectErr
	}
	if f.Aspect <= 0 {
		return 16.0 / 9.0, nil
	}
	return f.Aspect, nil
}

// Calls returns a copy of the recorded operations.
func (f *FakeTranscoder) Calls() []transcoder.Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transcoder.Operation, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsOf filters recorded operations by kind.
func (f *FakeTranscoder) CallsOf(kind transcoder.Kind) []transcoder.Operation {
	var out []transcoder.Operation
	for _, op := range f.Calls() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}
