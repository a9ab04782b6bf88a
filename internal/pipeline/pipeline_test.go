package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nao1215/pseudokit/internal/config"
	"github.com/nao1215/pseudokit/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, st *State) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, st *State) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, st)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newTestState() *State {
	job := config.NewJob()
	job.Name = "test"
	return NewState(job, model.NewRun(job.Name, model.ModePseudonymize))
}

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
			t.Error("expected a default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "step-1"}, &mockStep{name: "step-2"}, &mockStep{name: "step-3"})

		if p.StepCount() != 3 {
			t.Errorf("expected 3 steps, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddStep(&mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		names := p.StepNames()

		expected := []string{"first", "second", "third"}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order on the shared state", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{
			name: "step-1",
			doFunc: func(_ context.Context, st *State) error {
				st.Text = "one"
				return nil
			},
		})
		p.AddStep(&mockStep{
			name: "step-2",
			doFunc: func(_ context.Context, st *State) error {
				st.Text += ",two"
				return nil
			},
		})

		st := newTestState()
		if err := p.Execute(context.Background(), st); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if st.Text != "one,two" {
			t.Errorf("wrong execution order: %q", st.Text)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		second := &mockStep{name: "should-not-run"}

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *State) error {
				return expectedErr
			},
		})
		p.AddStep(second)

		err := p.Execute(context.Background(), newTestState())

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if second.callCount != 0 {
			t.Error("second step should not have been called")
		}
	})

	t.Run("continues on error and records a warning", func(t *testing.T) {
		t.Parallel()

		second := &mockStep{name: "should-run"}

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *State) error {
				return errors.New("step failed")
			},
		})
		p.AddStep(second)

		st := newTestState()
		if err := p.Execute(context.Background(), st); err != nil {
			t.Errorf("expected nil error with continueOnError, got %v", err)
		}
		if second.callCount != 1 {
			t.Error("second step should have been called")
		}
		if len(st.Run.Warnings) != 1 || st.Run.Warnings[0] != "failing-step: step failed" {
			t.Errorf("unexpected warnings: %v", st.Run.Warnings)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "should-not-run"}
		p := New()
		p.AddStep(step)

		err := p.Execute(ctx, newTestState())

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not have been called")
		}
	})
}

func TestPipelineExecuteLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).With("job", "test")
	p := New(WithLogger(logger), WithContinueOnError(true))
	p.AddSteps(
		&mockStep{name: "ok"},
		&mockStep{name: "bad", doFunc: func(context.Context, *State) error { return errors.New("boom") }},
	)

	if err := p.Execute(context.Background(), newTestState()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d:\n%s", len(lines), buf.String())
	}
	for _, line := range lines {
		if n := strings.Count(line, "job=test"); n != 1 {
			t.Errorf("expected the job attribute once, got %d in %q", n, line)
		}
	}
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New()
	if names := p.StepNames(); len(names) != 0 {
		t.Errorf("expected empty slice, got %v", names)
	}
}

func TestForJob(t *testing.T) {
	t.Parallel()

	env := Env{}
	tests := []struct {
		name  string
		setup func(j *config.Job)
		want  []string
	}{
		{
			name:  "pseudonymize",
			setup: func(j *config.Job) { j.InputFile = "in.csv" },
			want:  []string{"load", "pseudonymize", "write"},
		},
		{
			name:  "text",
			setup: func(j *config.Job) { j.InputFile = "in.txt" },
			want:  []string{"load", "text", "write"},
		},
		{
			name: "revert",
			setup: func(j *config.Job) {
				j.InputFile = "in.csv"
				j.Method = config.MethodRevert
			},
			want: []string{"load", "revert", "write"},
		},
		{
			name: "decrypt",
			setup: func(j *config.Job) {
				j.InputFile = "in.txt"
				j.Method = config.MethodDecrypt
			},
			want: []string{"load", "decrypt", "write"},
		},
		{
			name: "aggregate",
			setup: func(j *config.Job) {
				j.InputFile = "in.csv"
				j.AggColumns = config.StringList{"age"}
			},
			want: []string{"load", "aggregate", "write"},
		},
		{
			name: "k-anonymize with aggregation",
			setup: func(j *config.Job) {
				j.InputFile = "in.csv"
				j.K = 2
				j.AggColumns = config.StringList{"age"}
			},
			want: []string{"load", "aggregate", "k-anonymize", "write"},
		},
		{
			name: "verify",
			setup: func(j *config.Job) {
				j.InputFile = "in.csv"
				j.K = 2
				j.VerifyOnly = true
			},
			want: []string{"load", "verify"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := config.NewJob()
			tt.setup(job)
			got := ForJob(job, env).StepNames()

			if len(got) != len(tt.want) {
				t.Fatalf("got steps %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("step %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecryptedOutputFile(t *testing.T) {
	t.Parallel()

	if got := DecryptedOutputFile([]string{"Index_name", "Index_city"}); got != "decrypted_output_Index_name_Index_city.csv" {
		t.Errorf("unexpected name %q", got)
	}
}
