package workspace

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/sitebuild/internal/logfields"
)

// Staging is a sibling directory of a final output tree. Writing into the
// sibling keeps the final rename on one filesystem.
type Staging struct {
	final string
	dir   string
}

// BeginStaging creates an empty "<final>_stage" directory, removing leftovers
// from an earlier aborted run.
func BeginStaging(final string) (*Staging, error) {
	dir := final + "_stage"
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("remove stale staging directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	slog.Debug("Initialized staging directory", "staging", dir, "final", final)
	return &Staging{final: final, dir: dir}, nil
}

// Dir is where the target is written.
func (s *Staging) Dir() string { return s.dir }

// Final is the output directory Promote replaces.
func (s *Staging) Final() string { return s.final }

// Promote replaces the final directory with the staging directory:
//  1. move the existing output aside to "<final>.prev",
//  2. rename staging to final,
//  3. remove the backup.
//
// If step 2 fails the backup is moved back.
func (s *Staging) Promote() error {
	return PromoteAll(s)
}

// PromoteAll promotes every staging directory or none of them. Backups are
// kept until all renames succeeded; a failure moves each already promoted
// output back into its staging directory and restores its backup.
func PromoteAll(stages ...*Staging) error {
	hadOutput := make([]bool, 0, len(stages))
	for _, s := range stages {
		had, err := s.swap()
		if err != nil {
			for i := len(hadOutput) - 1; i >= 0; i-- {
				stages[i].rollback(hadOutput[i])
			}
			return err
		}
		hadOutput = append(hadOutput, had)
	}
	for i, s := range stages {
		s.commit(hadOutput[i])
	}
	return nil
}

func (s *Staging) swap() (bool, error) {
	if s.dir == "" {
		return false, fmt.Errorf("no staging directory initialized")
	}
	if _, err := os.Stat(s.dir); err != nil {
		return false, fmt.Errorf("staging directory missing: %w", err)
	}

	prev := s.final + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		return false, fmt.Errorf("remove previous backup: %w", err)
	}
	hadOutput := false
	if _, err := os.Stat(s.final); err == nil {
		if err := os.Rename(s.final, prev); err != nil {
			return false, fmt.Errorf("backup existing output: %w", err)
		}
		hadOutput = true
	}
	if err := os.Rename(s.dir, s.final); err != nil {
		if hadOutput {
			_ = os.Rename(prev, s.final)
		}
		return false, fmt.Errorf("promote staging: %w", err)
	}
	return hadOutput, nil
}

func (s *Staging) rollback(hadOutput bool) {
	if err := os.Rename(s.final, s.dir); err != nil {
		slog.Warn("Failed to withdraw promoted output", logfields.Path(s.final), logfields.Error(err))
		return
	}
	if hadOutput {
		if err := os.Rename(s.final+".prev", s.final); err != nil {
			slog.Warn("Failed to restore previous output", logfields.Path(s.final), logfields.Error(err))
		}
	}
	slog.Debug("Rolled back promotion", "output", s.final)
}

func (s *Staging) commit(hadOutput bool) {
	s.dir = ""
	if hadOutput {
		prev := s.final + ".prev"
		if err := os.RemoveAll(prev); err != nil {
			slog.Warn("Failed to remove previous output", logfields.Path(prev), logfields.Error(err))
		}
	}
	slog.Debug("Promoted staging directory", "output", s.final)
}

// Abort removes the staging directory and leaves the final output untouched.
// It is safe to call after Promote.
func (s *Staging) Abort() {
	if s.dir == "" {
		return
	}
	dir := s.dir
	s.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("Failed to remove staging directory after abort", "staging", dir, logfields.Error(err))
	}
}
