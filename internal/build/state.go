package build

import (
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/sitebuild/internal/config"
	"git.home.luguber.info/inful/sitebuild/internal/logfields"
	"git.home.luguber.info/inful/sitebuild/internal/metrics"
	"git.home.luguber.info/inful/sitebuild/internal/target"
	"git.home.luguber.info/inful/sitebuild/internal/workspace"
)

// BuildState carries mutable state across stages.
type BuildState struct {
	Config  *config.Config
	Report  *BuildReport
	Targets []target.Target

	// Workspace holds SharedDir, the asset tree produced once and copied
	// into every target.
	Workspace *workspace.Manager
	SharedDir string

	opts     Options
	recorder metrics.Recorder

	mu      sync.Mutex
	staging map[target.Kind]*workspace.Staging
}

func newBuildState(cfg *config.Config, targets []target.Target, report *BuildReport, opts Options) *BuildState {
	return &BuildState{
		Config:   cfg,
		Report:   report,
		Targets:  targets,
		opts:     opts,
		recorder: opts.Recorder,
		staging:  make(map[target.Kind]*workspace.Staging, len(targets)),
	}
}

func (bs *BuildState) setStaging(kind target.Kind, s *workspace.Staging) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.staging[kind] = s
}

// stagingFor returns the staging directory of a target, nil before the render stage.
func (bs *BuildState) stagingFor(kind target.Kind) *workspace.Staging {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.staging[kind]
}

func (bs *BuildState) addPages(t target.Target, n int) {
	bs.mu.Lock()
	bs.Report.Pages[string(t.Kind)] = n
	bs.mu.Unlock()
	bs.recorder.AddPages(string(t.Kind), n)
}

func (bs *BuildState) setStaticFiles(n int) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.Report.StaticFiles = n
}

// cleanup removes the workspace and any staging directory that was not promoted.
func (bs *BuildState) cleanup() {
	bs.mu.Lock()
	pending := bs.staging
	bs.staging = map[target.Kind]*workspace.Staging{}
	bs.mu.Unlock()
	for _, s := range pending {
		if s != nil {
			s.Abort()
		}
	}
	if bs.Workspace != nil {
		if err := bs.Workspace.Cleanup(); err != nil {
			slog.Warn("Failed to remove workspace", logfields.Path(bs.Workspace.Path()), logfields.Error(err))
		}
	}
}
