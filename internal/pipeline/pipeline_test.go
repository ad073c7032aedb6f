package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/nao1215/htmlcs/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, file *model.File) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, file *model.File) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, file)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})

	t.Run("applies WithLogger option", func(t *testing.T) {
		t.Parallel()

		logger := slog.New(slog.DiscardHandler)
		p := New(WithLogger(logger))

		if p.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	if p.StepCount() != 3 {
		t.Errorf("expected 3 steps, got %d", p.StepCount())
	}
	names := p.StepNames()
	if names[0] != "first" || names[1] != "second" || names[2] != "third" {
		t.Errorf("wrong step order: %v", names)
	}
	if len(New().StepNames()) != 0 {
		t.Error("expected no names for empty pipeline")
	}
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		executionOrder := make([]string, 0)

		p := New()
		p.AddStep(&mockStep{
			name: "step-1",
			doFunc: func(_ context.Context, _ *model.File) error {
				executionOrder = append(executionOrder, "step-1")
				return nil
			},
		})
		p.AddStep(&mockStep{
			name: "step-2",
			doFunc: func(_ context.Context, _ *model.File) error {
				executionOrder = append(executionOrder, "step-2")
				return nil
			},
		})

		file := model.NewFile("index.html")
		if err := p.Execute(context.Background(), file); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(executionOrder) != 2 {
			t.Fatalf("expected 2 executions, got %d", len(executionOrder))
		}
		if executionOrder[0] != "step-1" || executionOrder[1] != "step-2" {
			t.Errorf("wrong execution order: %v", executionOrder)
		}
		if len(file.PerformedSteps) != 2 {
			t.Errorf("expected 2 performed steps, got %v", file.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		second := &mockStep{name: "should-not-run"}

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *model.File) error {
				return expectedErr
			},
		})
		p.AddStep(second)

		file := model.NewFile("index.html")
		err := p.Execute(context.Background(), file)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if second.callCount != 0 {
			t.Error("second step should not have been called")
		}
		if file.Error == nil || file.ErrorMessage != expectedErr.Error() {
			t.Errorf("expected error to be recorded on the file, got %q", file.ErrorMessage)
		}
	})

	t.Run("continues on error when configured and keeps the first error", func(t *testing.T) {
		t.Parallel()

		first := errors.New("first failure")
		third := &mockStep{name: "should-run"}

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{
			name:   "failing-step",
			doFunc: func(_ context.Context, _ *model.File) error { return first },
		})
		p.AddStep(&mockStep{
			name:   "failing-again",
			doFunc: func(_ context.Context, _ *model.File) error { return errors.New("second failure") },
		})
		p.AddStep(third)

		file := model.NewFile("index.html")
		if err := p.Execute(context.Background(), file); err != nil {
			t.Errorf("expected nil error with continueOnError, got %v", err)
		}
		if third.callCount != 1 {
			t.Error("third step should have been called")
		}
		if !errors.Is(file.Error, first) {
			t.Errorf("expected first error to be kept, got %v", file.Error)
		}
		if len(file.PerformedSteps) != 3 {
			t.Errorf("expected 3 performed steps, got %v", file.PerformedSteps)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "should-not-run"}
		p := New()
		p.AddStep(step)

		err := p.Execute(ctx, model.NewFile("index.html"))

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not have been called")
		}
	})
}

// TestMockStep tests the test helper itself.
func TestMockStep(t *testing.T) {
	t.Parallel()

	step := &mockStep{name: "test"}
	for range 3 {
		if err := step.Do(context.Background(), model.NewFile("a.html")); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	}
	if step.callCount != 3 {
		t.Errorf("expected call count 3, got %d", step.callCount)
	}
	if step.Name() != "test" {
		t.Errorf("expected name 'test', got %q", step.Name())
	}
}
