package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuild/internal/metrics"
)

const reportSchemaVersion = 1

// BuildReport captures what a build did and how it ended.
type BuildReport struct {
	BuildID  string
	Project  string
	Mode     string
	Revision string // source HEAD commit, empty outside a git checkout
	Start    time.Time
	End      time.Time

	Errors   []error // fatal errors causing build abortion (at most one)
	Warnings []error // non-fatal issues (broken references)

	StageDurations  map[StageName]time.Duration
	StageErrorKinds map[StageName]StageErrorKind

	Pages       map[string]int // target kind -> rendered pages
	Derivatives int            // derivative files written
	Capped      int            // derivatives encoded below their nominal width
	ImagesCopy  int            // images copied verbatim instead
	Scripts     int
	CSS         bool
	StaticFiles int

	Outcome metrics.BuildOutcomeLabel
}

func newBuildReport(project, mode string) *BuildReport {
	return &BuildReport{
		BuildID:         uuid.NewString(),
		Project:         project,
		Mode:            mode,
		Start:           time.Now(),
		StageDurations:  make(map[StageName]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		Pages:           make(map[string]int),
	}
}

func (r *BuildReport) recordStage(stage StageName, d time.Duration, se *StageError) {
	r.StageDurations[stage] = d
	if se == nil {
		return
	}
	r.StageErrorKinds[stage] = se.Kind
	if se.Kind == StageErrorWarning {
		r.Warnings = append(r.Warnings, se)
		return
	}
	r.Errors = append(r.Errors, se)
}

func (r *BuildReport) finish() {
	r.End = time.Now()
	r.deriveOutcome()
}

// deriveOutcome sets Outcome from the recorded errors and warnings.
func (r *BuildReport) deriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			if se, ok := e.(*StageError); ok && se.Kind == StageErrorCanceled {
				r.Outcome = metrics.OutcomeCanceled
				return
			}
		}
		r.Outcome = metrics.OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = metrics.OutcomeWarning
		return
	}
	r.Outcome = metrics.OutcomeSuccess
}

// Duration is the wall time of the build.
func (r *BuildReport) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	targets := make([]string, 0, len(r.Pages))
	for name, n := range r.Pages {
		targets = append(targets, fmt.Sprintf("%s:%d", name, n))
	}
	sort.Strings(targets)
	return fmt.Sprintf("build=%s project=%s mode=%s pages=[%s] derivatives=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.BuildID, r.Project, r.Mode, strings.Join(targets, " "), r.Derivatives,
		r.Duration().Truncate(time.Millisecond), len(r.Errors), len(r.Warnings), r.Outcome)
}

// Persist writes the report as JSON to path, replacing any previous report
// atomically. Errors do not change the build outcome.
func (r *BuildReport) Persist(path string) error {
	if r.End.IsZero() {
		r.finish()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	jb, err := json.MarshalIndent(r.serializable(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(jb, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	return nil
}

// BuildReportSerializable is the JSON form of BuildReport.
type BuildReportSerializable struct {
	SchemaVersion   int                `json:"schema_version"`
	BuildID         string             `json:"build_id"`
	Project         string             `json:"project"`
	Mode            string             `json:"mode"`
	Revision        string             `json:"revision,omitempty"`
	Start           time.Time          `json:"start"`
	End             time.Time          `json:"end"`
	DurationMS      int64              `json:"duration_ms"`
	Errors          []string           `json:"errors"`
	Warnings        []string           `json:"warnings"`
	StageDurations  map[string]float64 `json:"stage_durations_ms"`
	StageErrorKinds map[string]string  `json:"stage_error_kinds"`
	Pages           map[string]int     `json:"pages"`
	Derivatives     int                `json:"derivatives"`
	Capped          int                `json:"capped_derivatives"`
	ImagesCopied    int                `json:"images_copied"`
	Scripts         int                `json:"scripts"`
	CSS             bool               `json:"css"`
	StaticFiles     int                `json:"static_files"`
	Outcome         string             `json:"outcome"`
}

func (r *BuildReport) serializable() *BuildReportSerializable {
	s := &BuildReportSerializable{
		SchemaVersion:   reportSchemaVersion,
		BuildID:         r.BuildID,
		Project:         r.Project,
		Mode:            r.Mode,
		Revision:        r.Revision,
		Start:           r.Start,
		End:             r.End,
		DurationMS:      r.Duration().Milliseconds(),
		Errors:          make([]string, len(r.Errors)),
		Warnings:        make([]string, len(r.Warnings)),
		StageDurations:  make(map[string]float64, len(r.StageDurations)),
		StageErrorKinds: make(map[string]string, len(r.StageErrorKinds)),
		Pages:           r.Pages,
		Derivatives:     r.Derivatives,
		Capped:          r.Capped,
		ImagesCopied:    r.ImagesCopy,
		Scripts:         r.Scripts,
		CSS:             r.CSS,
		StaticFiles:     r.StaticFiles,
		Outcome:         string(r.Outcome),
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	for k, v := range r.StageDurations {
		s.StageDurations[string(k)] = float64(v.Microseconds()) / 1000
	}
	for k, v := range r.StageErrorKinds {
		s.StageErrorKinds[string(k)] = string(v)
	}
	return s
}
