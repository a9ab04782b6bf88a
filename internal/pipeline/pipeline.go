package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/pseudokit/internal/config"
	"github.com/nao1215/pseudokit/internal/model"
	"github.com/nao1215/pseudokit/internal/table"
)

// State is the data steps read and modify.
type State struct {
	Job *config.Job
	Run *model.Run

	// Table holds structured input; Text holds free-text input.
	Table *table.Table
	Text  string
}

// NewState returns the initial state of job.
func NewState(job *config.Job, run *model.Run) *State {
	return &State{Job: job, Run: run}
}

// Step is one stage of a pipeline.
type Step interface {
	// Do runs the step. Non-fatal observations go to st.Run as warnings.
	Do(ctx context.Context, st *State) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing after a failed step. The failure is
// recorded as a warning of the run.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence. Cancellation is checked before each
// step. It returns the first step error unless continueOnError is set.
func (p *Pipeline) Execute(ctx context.Context, st *State) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			return err
		}

		p.logger.Info("executing step", "step", step.Name())
		if err := step.Do(ctx, st); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "error", err)
			if !p.continueOnError {
				return err
			}
			st.Run.AddWarning(step.Name() + ": " + err.Error())
			continue
		}
		p.logger.Debug("step completed", "step", step.Name())
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
