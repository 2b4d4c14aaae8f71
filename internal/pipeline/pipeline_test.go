package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nao1215/oabscraper/internal/model"
)

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, job *model.RecordJob) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, job *model.RecordJob) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, job)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newJob() *model.RecordJob {
	return model.NewRecordJob(1, model.RecordRef{Label: "ANA", URL: "https://example.com/1"})
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

	t.Run("applies WithLogger option", func(t *testing.T) {
		t.Parallel()

		logger := discardLogger()
		p := New(WithLogger(logger))
		if p.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "test-step"})
		if p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "first"}, &mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		names := p.StepNames()
		expected := []string{"first", "second", "third"}
		if len(names) != len(expected) {
			t.Fatalf("expected %d names, got %d", len(expected), len(names))
		}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order on the same job", func(t *testing.T) {
		t.Parallel()

		order := make([]string, 0)
		p := New(WithLogger(discardLogger()))
		p.AddStep(&mockStep{
			name: "fill",
			doFunc: func(_ context.Context, job *model.RecordJob) error {
				order = append(order, "fill")
				job.Fields = model.FieldVector{"1"}
				return nil
			},
		})
		p.AddStep(&mockStep{
			name: "check",
			doFunc: func(_ context.Context, job *model.RecordJob) error {
				order = append(order, "check")
				if len(job.Fields) != 1 {
					t.Error("expected fields from the previous step")
				}
				return nil
			},
		})

		if err := p.Execute(context.Background(), newJob()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 2 || order[0] != "fill" || order[1] != "check" {
			t.Errorf("unexpected execution order: %v", order)
		}
	})

	t.Run("stops at the first failure and names the step", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &mockStep{
			name:   "failing",
			doFunc: func(context.Context, *model.RecordJob) error { return boom },
		}
		after := &mockStep{name: "after"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(&mockStep{name: "before"}, failing, after)

		err := p.Execute(context.Background(), newJob())
		if !errors.Is(err, boom) {
			t.Fatalf("expected step error, got %v", err)
		}
		var stepErr *StepError
		if !errors.As(err, &stepErr) || stepErr.Step != "failing" {
			t.Errorf("expected StepError for 'failing', got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later steps to be skipped")
		}
	})

	t.Run("canceled context stops before the next step", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockStep{
			name: "first",
			doFunc: func(context.Context, *model.RecordJob) error {
				cancel()
				return nil
			},
		}
		second := &mockStep{name: "second"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(first, second)

		err := p.Execute(ctx, newJob())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if model.KindOf(err) != model.KindCanceled {
			t.Errorf("expected canceled kind, got %v", model.KindOf(err))
		}
		if second.callCount != 0 {
			t.Error("expected second step to be skipped")
		}
	})
}
