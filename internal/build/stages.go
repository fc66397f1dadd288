package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuild/internal/logfields"
	"git.home.luguber.info/inful/sitebuild/internal/metrics"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName identifies a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StagePrepare StageName = "prepare"
	StageCSS     StageName = "css"
	StageJS      StageName = "js"
	StageImages  StageName = "images"
	StageRender  StageName = "render"
	StageVerify  StageName = "verify"
	StagePromote StageName = "promote"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the failing stage and cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageDef pairs a stage name with its function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 8)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Build returns a copy of the stage definitions.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// runStages executes stages in order, recording timings and results and
// stopping at the first fatal or canceled stage. Warning stage errors are
// recorded and the run continues.
func runStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	rec := bs.recorder
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			se := newCanceledStageError(st.Name, err)
			bs.Report.recordStage(st.Name, 0, se)
			rec.IncStageResult(string(st.Name), metrics.ResultCanceled)
			return se
		}

		slog.Debug("Stage started", logfields.Stage(string(st.Name)), logfields.BuildID(bs.Report.BuildID))
		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)
		se := classifyStageError(ctx, st.Name, err)
		bs.Report.recordStage(st.Name, dur, se)
		rec.ObserveStageDuration(string(st.Name), dur)
		rec.IncStageResult(string(st.Name), resultLabel(se))

		attrs := []any{logfields.Stage(string(st.Name)), logfields.DurationMS(float64(dur.Milliseconds()))}
		if se == nil {
			slog.Info("Stage completed", attrs...)
			continue
		}
		if se.Kind == StageErrorWarning {
			slog.Warn("Stage completed with warnings", append(attrs, logfields.Error(se.Err))...)
			continue
		}
		return se
	}
	return nil
}

// classifyStageError wraps a stage's error. Stages may return a
// *StageError themselves to pick the kind; anything else is fatal unless
// the context was canceled.
func classifyStageError(ctx context.Context, stage StageName, err error) *StageError {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	if ferrors.HasSeverity(err, ferrors.SeverityWarning) {
		return newWarnStageError(stage, err)
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return newCanceledStageError(stage, err)
	}
	return newFatalStageError(stage, err)
}

func resultLabel(se *StageError) metrics.ResultLabel {
	if se == nil {
		return metrics.ResultSuccess
	}
	switch se.Kind {
	case StageErrorWarning:
		return metrics.ResultWarning
	case StageErrorCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}
