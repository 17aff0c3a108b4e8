// Package engine wires the desktop host, display/window indexes, registry,
// store, snapshotter, and launcher into the single facade cmd/workspacesvc
// and cmd/workspacectl both talk to.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/workspace-engine/workspace-engine/internal/clock"
	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/display"
	"github.com/workspace-engine/workspace-engine/internal/launch"
	"github.com/workspace-engine/workspace-engine/internal/match"
	"github.com/workspace-engine/workspace-engine/internal/registry"
	"github.com/workspace-engine/workspace-engine/internal/snapshot"
	"github.com/workspace-engine/workspace-engine/internal/store"
	"github.com/workspace-engine/workspace-engine/internal/windowindex"
	"github.com/workspace-engine/workspace-engine/internal/wserr"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// Config aggregates every component's configuration.
type Config struct {
	Store    store.Config
	Snapshot snapshot.Config
	Launch   launch.Config
}

func DefaultConfig() Config {
	return Config{
		Store:    store.DefaultConfig(),
		Snapshot: snapshot.DefaultConfig(),
		Launch:   launch.DefaultConfig(),
	}
}

// Engine is the facade over every internal component.
type Engine struct {
	Host     desktop.Host
	Displays *display.Index
	Windows  *windowindex.Index
	Registry *registry.Registry
	Store    *store.Store
	Snapshot *snapshot.Snapshotter
	Launcher *launch.Launcher

	clock  clock.Clock
	logger *zap.Logger
}

// New builds an Engine around host, a fully swappable desktop capability
// (the real WindowsHost in production, desktop.NewFake() in tests).
func New(host desktop.Host, cfg Config, clk clock.Clock, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}

	displays := display.New(host, logger)
	displays.Start()

	windows := windowindex.New(host, logger)
	reg := registry.New(host)
	st := store.New(cfg.Store, logger)
	snapper := snapshot.New(host, windows, displays, reg, cfg.Snapshot, clk, logger)
	matcher := match.NewMatcher(cfg.Snapshot.ExcludedClassNames)
	launcher := launch.New(host, windows, displays, reg, matcher, cfg.Launch, clk, logger)

	return &Engine{
		Host:     host,
		Displays: displays,
		Windows:  windows,
		Registry: reg,
		Store:    st,
		Snapshot: snapper,
		Launcher: launcher,
		clock:    clk,
		logger:   logger,
	}
}

// Close stops every background loop the engine started.
func (e *Engine) Close() {
	e.Displays.Stop()
	e.Windows.Close()
}

// CaptureWorkspace snapshots the current desktop and persists it under
// name, replacing any prior definition of the same name.
func (e *Engine) CaptureWorkspace(name string) (model.WorkspaceDefinition, error) {
	if name == "" {
		return model.WorkspaceDefinition{}, wserr.New(wserr.InvalidArgument, "workspace name is required")
	}
	def := e.Snapshot.Capture(name)
	if err := e.Store.Save(def, ""); err != nil {
		return model.WorkspaceDefinition{}, err
	}
	return def, nil
}

// LaunchWorkspace loads the named workspace and runs the launch pipeline
// against it, then records the launch time.
func (e *Engine) LaunchWorkspace(ctx context.Context, name string, opts launch.Options) (launch.Result, error) {
	def, err := e.Store.Get(name)
	if err != nil {
		return launch.Result{}, err
	}

	result := e.Launcher.Launch(ctx, def, opts)

	_, version, loadErr := e.Store.Load()
	if loadErr == nil {
		updated := def.Clone()
		updated.LastLaunchedTime = e.clock.Now().UnixMilli()
		if err := e.Store.Save(updated, version); err != nil {
			e.logger.Warn("failed to record last-launched time", zap.String("workspace", name), zap.Error(err))
		}
	}

	if len(result.Failed) > 0 {
		e.logger.Warn("workspace launch completed with failures",
			zap.String("workspace", name), zap.Int("failed", len(result.Failed)))
	}

	return result, nil
}

// ListWorkspaces returns the name of every known workspace.
func (e *Engine) ListWorkspaces() ([]string, error) {
	return e.Store.ListNames()
}

// DeleteWorkspace removes a workspace and releases any registry bindings
// held on its behalf.
func (e *Engine) DeleteWorkspace(name string) error {
	def, err := e.Store.Get(name)
	if err != nil {
		return err
	}
	if err := e.Store.Delete(name); err != nil {
		return err
	}
	e.Registry.ClearWorkspace(def.Name)
	return nil
}

// Stats reports a point-in-time summary of registry bindings, for the HTTP
// surface's health/status endpoint.
func (e *Engine) Stats() registry.RegistryStats {
	return e.Registry.Stats()
}
