// Package launch implements the three-phase pipeline that turns a
// WorkspaceDefinition into a live desktop layout: assign already-running
// windows first, launch whatever is still missing, reconcile every bound
// window's position and state, then minimize whatever else is left in the
// way. The first phase fans out across applications concurrently and joins
// before moving to the next stage; launching missing applications is
// strictly sequential to avoid claim races between same-process spawns.
package launch

import (
	"context"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/workspace-engine/workspace-engine/internal/clock"
	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/display"
	"github.com/workspace-engine/workspace-engine/internal/match"
	"github.com/workspace-engine/workspace-engine/internal/registry"
	"github.com/workspace-engine/workspace-engine/internal/windowindex"
	"github.com/workspace-engine/workspace-engine/internal/wserr"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// Config tunes the pipeline's timing and tolerance knobs.
type Config struct {
	// LaunchSettleTimeout/LaunchPollInterval bound the wait for any matching
	// top-level window to appear after activation.
	LaunchSettleTimeout time.Duration
	LaunchPollInterval  time.Duration

	// SettleWindowTimeout/SettleWindowPollInterval bound the narrower poll
	// that follows: picking the best of possibly several freshly-appeared
	// candidates.
	SettleWindowTimeout      time.Duration
	SettleWindowPollInterval time.Duration

	InputIdleTimeout time.Duration

	// VisibilityTimeout/VisibilityPollInterval bound the wait for a window
	// to report visible after a show-normal call.
	VisibilityTimeout      time.Duration
	VisibilityPollInterval time.Duration

	PositionRetries     int
	PositionRetryDelay  time.Duration
	PositionToleranceXY int

	// ArrangeLoopTimeout/ArrangeLoopPollInterval bound the convergence loop
	// that requires ArrangeLoopConsecutive consecutive in-tolerance
	// observations before it's satisfied.
	ArrangeLoopTimeout      time.Duration
	ArrangeLoopPollInterval time.Duration
	ArrangeLoopConsecutive  int

	// PostSettleTimeout/PostSettlePollInterval bound the loop that
	// reasserts placement on a freshly-launched window if it drifts.
	PostSettleTimeout      time.Duration
	PostSettlePollInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		LaunchSettleTimeout:      10 * time.Second,
		LaunchPollInterval:       200 * time.Millisecond,
		SettleWindowTimeout:      2 * time.Second,
		SettleWindowPollInterval: 150 * time.Millisecond,
		InputIdleTimeout:         5 * time.Second,
		VisibilityTimeout:        5 * time.Second,
		VisibilityPollInterval:   50 * time.Millisecond,
		PositionRetries:          30,
		PositionRetryDelay:       150 * time.Millisecond,
		PositionToleranceXY:      8,
		ArrangeLoopTimeout:       6 * time.Second,
		ArrangeLoopPollInterval:  300 * time.Millisecond,
		ArrangeLoopConsecutive:   2,
		PostSettleTimeout:        5 * time.Second,
		PostSettlePollInterval:   400 * time.Millisecond,
	}
}

// Options controls a single Launch call's optional behavior.
type Options struct {
	// MinimizeSiblings minimizes every other top-level window belonging to
	// the same process as a bound target, so launching one window of a
	// multi-window app (a splash screen, a secondary panel) doesn't leave
	// clutter behind. The same minimize also runs unconditionally whenever
	// the application's own target state is minimized.
	MinimizeSiblings bool
}

// FailedApp records one application that could not be placed.
type FailedApp struct {
	AppID string
	Name  string
	Err   error
}

// Result summarizes one Launch call.
type Result struct {
	AssignedExisting int
	Launched         int
	Failed           []FailedApp
}

// Launcher drives a WorkspaceDefinition to a live desktop layout.
type Launcher struct {
	host     desktop.Host
	windows  *windowindex.Index
	displays *display.Index
	registry *registry.Registry
	matcher  *match.Matcher
	clock    clock.Clock
	cfg      Config
	logger   *zap.Logger
}

func New(host desktop.Host, windows *windowindex.Index, displays *display.Index, reg *registry.Registry, matcher *match.Matcher, cfg Config, clk clock.Clock, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if matcher == nil {
		matcher = match.NewMatcher(nil)
	}
	return &Launcher{host: host, windows: windows, displays: displays, registry: reg, matcher: matcher, cfg: cfg, clock: clk, logger: logger}
}

// Launch places every application in ws onto the desktop: existing windows
// are claimed first, missing ones are started, every claimed window is
// moved/resized/shown to match its definition, and finally (when
// ws.MoveExistingWindows) anything left cluttering the desktop is minimized.
func (l *Launcher) Launch(ctx context.Context, ws model.WorkspaceDefinition, opts Options) Result {
	var result Result

	ws = ws.Clone()
	for i := range ws.Applications {
		if ws.Applications[i].ID == "" {
			ws.Applications[i].ID = model.NewApplicationID()
		}
	}

	pending := l.assignExisting(ws, &result)
	launchedNew := l.launchMissing(ctx, ws.Name, pending, &result)
	l.reconcileAll(ctx, ws, opts, launchedNew)

	if ws.MoveExistingWindows {
		l.minimizeExtraneous(ws)
	}

	return result
}

// assignExisting is Phase 1 Pass 1: every application definition is matched
// against the live window index concurrently (order doesn't matter, each
// match is independent), and returns the definitions that found no
// unambiguous match.
func (l *Launcher) assignExisting(ws model.WorkspaceDefinition, result *Result) []model.ApplicationDefinition {
	if !ws.MoveExistingWindows {
		return ws.Applications
	}

	var mu sync.Mutex
	var pending []model.ApplicationDefinition

	g := &errgroup.Group{}
	for _, app := range ws.Applications {
		app := app
		g.Go(func() error {
			if l.tryAssign(app, ws.Name) {
				mu.Lock()
				result.AssignedExisting++
				mu.Unlock()
			} else {
				mu.Lock()
				pending = append(pending, app)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // every goroutine above is infallible; the group only buys the join.

	return pending
}

// rankedCandidate is one live window scored against an application
// definition, plus the external tiebreakers the matcher itself stays
// ignorant of.
type rankedCandidate struct {
	window   model.WindowInfo
	tier     match.Tier
	score    int
	distance int64
	area     int
}

// tryAssign reuses an already-bound handle when it's still a live match,
// otherwise ranks every eligible candidate and claims the best one. A
// title-only top match tied with another candidate on both score and
// distance is ambiguous: rather than guess, the app is left pending for
// Phase 1 Pass 2.
func (l *Launcher) tryAssign(app model.ApplicationDefinition, workspace string) bool {
	if handle, ok := l.registry.BoundWindow(app.ID); ok {
		if info, ok := l.windows.Get(handle); ok {
			if m := l.matcher.FindBestMatch(app, []model.WindowInfo{info}); m != nil && m.Score > 0 &&
				l.host.IsOnCurrentVirtualDesktop(handle) != desktop.No {
				return true
			}
		}
	}

	candidates := l.rankCandidates(app)
	if len(candidates) == 0 {
		return false
	}

	top := candidates[0]
	if top.tier == match.TierTitleOnly {
		tied := 0
		for _, c := range candidates {
			if c.score == top.score && c.distance == top.distance {
				tied++
			}
		}
		if tied >= 2 {
			l.logger.Warn("ambiguous title-only window match, deferring", zap.String("application", app.Name))
			return false
		}
	}

	for _, c := range candidates {
		if l.registry.TryBind(app.ID, workspace, c.window.Handle) {
			return true
		}
	}
	return false
}

// rankCandidates gathers every live window still eligible for app (not
// bound to a different app, not cloaked unless app targets
// minimized, on the current virtual desktop, scoring above zero) and sorts
// them by descending score, ascending placement distance, descending area,
// descending handle.
func (l *Launcher) rankCandidates(app model.ApplicationDefinition) []rankedCandidate {
	all := l.windows.Find(nil, 0)
	out := make([]rankedCandidate, 0, len(all))
	for _, w := range all {
		if owner, ok := l.registry.BoundApp(w.Handle); ok && owner != app.ID {
			continue
		}
		if l.host.IsCloaked(w.Handle) == desktop.CloakHidden && !app.Minimized {
			continue
		}
		if l.host.IsOnCurrentVirtualDesktop(w.Handle) == desktop.No {
			continue
		}
		m := l.matcher.FindBestMatch(app, []model.WindowInfo{w})
		if m == nil || m.Score <= 0 {
			continue
		}
		out = append(out, rankedCandidate{
			window:   w,
			tier:     m.Tier,
			score:    m.Score,
			distance: placementDistance(app, w),
			area:     w.Bounds.Area(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].distance != out[j].distance {
			return out[i].distance < out[j].distance
		}
		if out[i].area != out[j].area {
			return out[i].area > out[j].area
		}
		return out[i].window.Handle > out[j].window.Handle
	})
	return out
}

// placementDistance is the squared Euclidean distance between the app's
// target position and the window's current bounds, both reduced to their
// center point; when either rect is empty there's no geometry to compare,
// so candidates on the app's declared monitor rank closer than those that
// aren't.
func placementDistance(app model.ApplicationDefinition, w model.WindowInfo) int64 {
	if app.Position.IsEmpty() || w.Bounds.IsEmpty() {
		if app.MonitorOrdinal == w.MonitorOrdinal {
			return 0
		}
		return math.MaxInt64 / 2
	}
	tx, ty := app.Position.Center()
	cx, cy := w.Bounds.Center()
	dx, dy := int64(tx-cx), int64(ty-cy)
	return dx*dx + dy*dy
}

// launchMissing is Phase 1 Pass 2: start each still-unmatched application in
// turn, in definition order, waiting for its window to appear before moving
// on to the next one. Returns which app IDs actually started a new process
// (as opposed to claiming a late arrival), since Phase 2's convergence loops
// only run against freshly-launched windows.
func (l *Launcher) launchMissing(ctx context.Context, workspace string, pending []model.ApplicationDefinition, result *Result) map[string]bool {
	launchedNew := make(map[string]bool, len(pending))
	for _, app := range pending {
		handle, isNew, err := l.launchAndWait(ctx, app, workspace)
		if err != nil {
			result.Failed = append(result.Failed, FailedApp{AppID: app.ID, Name: app.Name, Err: err})
			continue
		}
		_ = handle
		launchedNew[app.ID] = isNew
		result.Launched++
	}
	return launchedNew
}

// launchAndWait skips straight to claiming a late-arriving window if one
// already matches app on the current virtual desktop; otherwise it
// activates app and waits for (then settles on) the window it opened.
func (l *Launcher) launchAndWait(ctx context.Context, app model.ApplicationDefinition, workspace string) (handle model.Handle, launchedNew bool, err error) {
	if h, ok := l.lateArrival(app); ok {
		if !l.registry.TryBind(app.ID, workspace, h) {
			return 0, false, wserr.New(wserr.Conflict, "late-arriving window already claimed by another application")
		}
		return h, false, nil
	}

	pid, err := l.activate(app)
	if err != nil {
		return 0, true, wserr.Wrap(wserr.Activation, "activate "+app.Name, err)
	}

	if pid != 0 {
		l.host.WaitForInputIdle(pid, l.cfg.InputIdleTimeout)
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.LaunchSettleTimeout)
	defer cancel()

	pred := func(w model.WindowInfo) bool {
		if pid != 0 && w.ProcessID != pid {
			return false
		}
		m := l.matcher.FindBestMatch(app, []model.WindowInfo{w})
		return m != nil && m.Score > 0
	}
	if found := l.windows.WaitForWindows(waitCtx, pred, pid, l.cfg.LaunchPollInterval); len(found) == 0 {
		return 0, true, wserr.New(wserr.Timeout, "timed out waiting for "+app.Name+" to open a window")
	}

	best := l.settleOnBestWindow(waitCtx, app, pid, pred)
	if best == 0 {
		return 0, true, wserr.New(wserr.Timeout, "no window settled for "+app.Name)
	}

	if !l.registry.TryBind(app.ID, workspace, best) {
		return 0, true, wserr.New(wserr.Conflict, "launched window already claimed by another application")
	}
	return best, true, nil
}

// lateArrival reports an unbound, current-virtual-desktop window that
// already matches app, for the case where the desired window showed up
// between Phase 1 Pass 1 and this app's turn in Pass 2.
func (l *Launcher) lateArrival(app model.ApplicationDefinition) (model.Handle, bool) {
	for _, w := range l.windows.Find(nil, 0) {
		if owner, ok := l.registry.BoundApp(w.Handle); ok && owner != app.ID {
			continue
		}
		if l.host.IsOnCurrentVirtualDesktop(w.Handle) == desktop.No {
			continue
		}
		if m := l.matcher.FindBestMatch(app, []model.WindowInfo{w}); m != nil && m.Score > 0 {
			return w.Handle, true
		}
	}
	return 0, false
}

// settleOnBestWindow polls for the settle window, favoring the
// highest-scoring, largest-area, non-tool, non-cloaked, current-desktop
// candidate among everything matching pred.
func (l *Launcher) settleOnBestWindow(ctx context.Context, app model.ApplicationDefinition, pid uint32, pred windowindex.Predicate) model.Handle {
	deadline := l.clock.Now().Add(l.cfg.SettleWindowTimeout)
	var best model.WindowInfo
	bestScore := -1
	found := false

	for {
		for _, w := range l.windows.Find(pred, pid) {
			if l.host.HasToolWindowStyle(w.Handle) ||
				l.host.IsCloaked(w.Handle) == desktop.CloakHidden ||
				l.host.IsOnCurrentVirtualDesktop(w.Handle) == desktop.No {
				continue
			}
			m := l.matcher.FindBestMatch(app, []model.WindowInfo{w})
			if m == nil {
				continue
			}
			if !found || m.Score > bestScore || (m.Score == bestScore && w.Bounds.Area() > best.Bounds.Area()) {
				best, bestScore, found = w, m.Score, true
			}
		}
		if l.clock.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			if found {
				return best.Handle
			}
			return 0
		case <-l.clock.After(l.cfg.SettleWindowPollInterval):
		}
	}
	if !found {
		return 0
	}
	return best.Handle
}

// activate starts app following the spec priority order: AUMID, then
// package full name, then a plain path launch — except that a path paired
// with command-line arguments always goes straight to a process start,
// since the shell activation APIs can't forward arguments. The OS
// application-frame-host binary is never started directly: its windows
// belong to other processes, so starting it by path achieves nothing.
func (l *Launcher) activate(app model.ApplicationDefinition) (pid uint32, err error) {
	if isApplicationFrameHostPath(app.Path) && app.AppUserModelID == "" && app.PackageFullName == "" {
		return 0, wserr.New(wserr.Activation, "refusing to start the application frame host directly")
	}

	if app.Path != "" && app.CommandLineArguments != "" && !isApplicationFrameHostPath(app.Path) {
		return l.startProcess(app)
	}

	switch {
	case app.AppUserModelID != "":
		return l.host.ActivateByAUMID(app.AppUserModelID, app.CommandLineArguments)
	case app.PackageFullName != "":
		if _, err := l.host.LaunchPackage(app.PackageFullName); err != nil {
			return 0, err
		}
		return 0, nil
	default:
		return l.startProcess(app)
	}
}

func (l *Launcher) startProcess(app model.ApplicationDefinition) (uint32, error) {
	return l.host.StartProcess(desktop.StartProcessOptions{
		Path:             app.Path,
		Args:             app.CommandLineArguments,
		WorkingDirectory: app.WorkingDirectory,
		ShellExecute:     strings.HasPrefix(app.Path, "shell:"),
		Runas:            app.IsElevated && app.CanLaunchElevated,
	})
}

func isApplicationFrameHostPath(path string) bool {
	return baseNameNoExt(path) == "applicationframehost"
}

func baseNameNoExt(path string) string {
	name := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '\\' || path[i] == '/' {
			name = path[i+1:]
			break
		}
	}
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

// reconcileAll is Phase 2: every bound application is moved, resized, and
// shown per its definition, in parallel across apps.
func (l *Launcher) reconcileAll(ctx context.Context, ws model.WorkspaceDefinition, opts Options, launchedNew map[string]bool) {
	g := &errgroup.Group{}
	for _, app := range ws.Applications {
		app := app
		handle, ok := l.registry.BoundWindow(app.ID)
		if !ok {
			continue
		}
		g.Go(func() error {
			l.reconcile(ctx, ws, app, handle, opts, launchedNew[app.ID])
			return nil
		})
	}
	_ = g.Wait()
}

func (l *Launcher) reconcile(ctx context.Context, ws model.WorkspaceDefinition, app model.ApplicationDefinition, handle model.Handle, opts Options, launchedNew bool) {
	target := l.targetPlacement(ws, app)

	l.setPlacement(handle, target, app, launchedNew)

	if !target.IsEmpty() {
		switch {
		case launchedNew:
			l.arrangeLoop(ctx, handle, target)
			l.postSettleLoop(ctx, handle, target)
		case app.Minimized || app.Maximized:
			l.arrangeLoop(ctx, handle, target)
		}
	}

	if app.Minimized || opts.MinimizeSiblings {
		l.minimizeSiblings(handle)
	}
}

// targetPlacement computes Phase 2's target placement: the app's captured
// position, rescaled from its declared monitor's rect to whatever monitor
// that declaration now resolves to (by id, then instance id, then ordinal,
// then the first available monitor), only when that resolution actually
// lands on a different monitor than the one captured.
func (l *Launcher) targetPlacement(ws model.WorkspaceDefinition, app model.ApplicationDefinition) model.Rect {
	target := app.Position

	declared, ok := declaredMonitor(ws.Monitors, app.MonitorOrdinal)
	if !ok {
		return target
	}
	dest, ok := l.resolveDestinationMonitor(declared)
	if !ok || dest.ID == declared.ID {
		return target
	}
	return rescale(target, declared.DPIAwareRect, dest.DPIAwareRect)
}

func declaredMonitor(monitors []model.MonitorInfo, ordinal int) (model.MonitorInfo, bool) {
	for _, m := range monitors {
		if m.Ordinal == ordinal {
			return m, true
		}
	}
	return model.MonitorInfo{}, false
}

// resolveDestinationMonitor maps a workspace-declared monitor onto the
// current layout: by stable id, then by instance id, then by ordinal,
// falling back to the first live monitor so a vanished monitor never
// strands a window off-screen.
func (l *Launcher) resolveDestinationMonitor(declared model.MonitorInfo) (model.MonitorInfo, bool) {
	if declared.ID != "" {
		if m, ok := l.displays.ByID(declared.ID); ok {
			return m, true
		}
	}
	if declared.InstanceID != "" {
		for _, m := range l.displays.Monitors() {
			if m.InstanceID == declared.InstanceID {
				return m, true
			}
		}
	}
	if m, ok := l.displays.ByOrdinal(declared.Ordinal); ok {
		return m, true
	}
	if monitors := l.displays.Monitors(); len(monitors) > 0 {
		return monitors[0], true
	}
	return model.MonitorInfo{}, false
}

// rescale linearly maps base from src's rect to dst's rect with independent
// X/Y scale factors, rounding to the nearest integer. Kept standalone and
// pure so the geometry can be table-tested without a live window.
func rescale(base, src, dst model.Rect) model.Rect {
	if src.IsEmpty() || dst.IsEmpty() {
		return base
	}
	scaleX := float64(dst.Width) / float64(src.Width)
	scaleY := float64(dst.Height) / float64(src.Height)
	return model.Rect{
		Left:   dst.Left + int(math.Round(float64(base.Left-src.Left)*scaleX)),
		Top:    dst.Top + int(math.Round(float64(base.Top-src.Top)*scaleY)),
		Width:  int(math.Round(float64(base.Width) * scaleX)),
		Height: int(math.Round(float64(base.Height) * scaleY)),
	}
}

// setPlacement is the set-placement primitive: gate on input-idle for a
// freshly launched process, ensure visibility, set position, apply the
// show-state, then (for a concrete normal-state target) verify with retry.
func (l *Launcher) setPlacement(handle model.Handle, target model.Rect, app model.ApplicationDefinition, waitForInputIdle bool) {
	if waitForInputIdle {
		if info, err := l.host.QueryWindow(handle); err == nil && info.ProcessID != 0 {
			l.host.WaitForInputIdle(info.ProcessID, l.cfg.InputIdleTimeout)
		}
	}

	l.waitForVisible(handle)

	if !target.IsEmpty() {
		l.host.SetPosition(handle, target, true, true)
	}

	switch {
	case app.Minimized:
		l.host.Show(handle, model.ShowMinimized)
	case app.Maximized:
		l.host.Show(handle, model.ShowMaximized)
	default:
		if placement, ok := l.host.GetPlacement(handle); ok && (placement.IsMinimized || placement.IsMaximized) {
			l.host.Show(handle, model.ShowNormal)
		}
	}

	if !app.Minimized && !app.Maximized && !target.IsEmpty() {
		l.verifyPosition(handle, target)
	}
}

// waitForVisible shows the window normal and polls until it reports
// visible, up to VisibilityTimeout.
func (l *Launcher) waitForVisible(handle model.Handle) {
	l.host.Show(handle, model.ShowNormal)
	deadline := l.clock.Now().Add(l.cfg.VisibilityTimeout)
	for {
		if info, err := l.host.QueryWindow(handle); err == nil && info.IsVisible {
			return
		}
		if l.clock.Now().After(deadline) {
			return
		}
		l.clock.Sleep(l.cfg.VisibilityPollInterval)
	}
}

// verifyPosition re-issues set-window-position until bounds settle within
// tolerance or PositionRetries is exhausted.
func (l *Launcher) verifyPosition(handle model.Handle, target model.Rect) {
	for attempt := 0; attempt < l.cfg.PositionRetries; attempt++ {
		info, err := l.host.QueryWindow(handle)
		if err == nil && withinTolerance(info.Bounds, target, l.cfg.PositionToleranceXY) {
			return
		}
		l.host.SetPosition(handle, target, true, true)
		if attempt < l.cfg.PositionRetries-1 {
			l.clock.Sleep(l.cfg.PositionRetryDelay)
		}
	}
}

// arrangeLoop requires two consecutive in-tolerance observations before
// returning, re-issuing set-position whenever an observation falls short.
func (l *Launcher) arrangeLoop(ctx context.Context, handle model.Handle, target model.Rect) {
	deadline := l.clock.Now().Add(l.cfg.ArrangeLoopTimeout)
	consecutive := 0
	for {
		info, err := l.host.QueryWindow(handle)
		if err == nil && withinTolerance(info.Bounds, target, l.cfg.PositionToleranceXY) {
			consecutive++
			if consecutive >= l.cfg.ArrangeLoopConsecutive {
				return
			}
		} else {
			consecutive = 0
			l.host.SetPosition(handle, target, true, true)
		}
		if l.clock.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-l.clock.After(l.cfg.ArrangeLoopPollInterval):
		}
	}
}

// postSettleLoop reasserts placement if a freshly-launched window drifts,
// exiting immediately once it leaves the current virtual desktop or
// becomes cloaked (nothing further to reconcile).
func (l *Launcher) postSettleLoop(ctx context.Context, handle model.Handle, target model.Rect) {
	deadline := l.clock.Now().Add(l.cfg.PostSettleTimeout)
	for {
		if l.host.IsOnCurrentVirtualDesktop(handle) == desktop.No || l.host.IsCloaked(handle) == desktop.CloakHidden {
			return
		}
		info, err := l.host.QueryWindow(handle)
		if err != nil {
			return
		}
		if !withinTolerance(info.Bounds, target, l.cfg.PositionToleranceXY) {
			l.host.SetPosition(handle, target, true, true)
		}
		if l.clock.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-l.clock.After(l.cfg.PostSettlePollInterval):
		}
	}
}

// minimizeSiblings hides every other top-level window of the same process
// as handle that isn't bound to a tracked application, is currently
// visible, not cloaked, not on another virtual desktop, and supports the
// minimize-box style.
func (l *Launcher) minimizeSiblings(handle model.Handle) {
	info, err := l.host.QueryWindow(handle)
	if err != nil {
		return
	}
	siblings, err := l.host.SiblingWindows(info.ProcessID)
	if err != nil {
		return
	}
	for _, sib := range siblings {
		if sib == handle {
			continue
		}
		if _, bound := l.registry.BoundApp(sib); bound {
			continue
		}
		sibInfo, err := l.host.QueryWindow(sib)
		if err != nil || !sibInfo.IsVisible {
			continue
		}
		if l.host.IsCloaked(sib) != desktop.CloakVisible {
			continue
		}
		if l.host.IsOnCurrentVirtualDesktop(sib) == desktop.No {
			continue
		}
		if !l.host.CanMinimize(sib) {
			continue
		}
		l.host.Show(sib, model.ShowMinimized)
	}
}

// minimizeExtraneous is Phase 3: every window outside the workspace's own
// handles and process ids, not owned by this process, confirmed not
// cloaked and on the current virtual desktop, and supporting the
// minimize-box style, gets minimized out of the way.
func (l *Launcher) minimizeExtraneous(ws model.WorkspaceDefinition) {
	handles := make(map[model.Handle]struct{})
	pids := make(map[uint32]struct{})
	for _, h := range l.registry.WorkspaceWindows(ws.Name) {
		handles[h] = struct{}{}
		if info, err := l.host.QueryWindow(h); err == nil {
			pids[info.ProcessID] = struct{}{}
		}
	}

	ownPID := uint32(os.Getpid())
	for _, w := range l.windows.Snapshot() {
		if _, ok := handles[w.Handle]; ok {
			continue
		}
		if _, ok := pids[w.ProcessID]; ok {
			continue
		}
		if w.ProcessID == ownPID {
			continue
		}
		if l.host.IsCloaked(w.Handle) != desktop.CloakVisible {
			continue
		}
		if l.host.IsOnCurrentVirtualDesktop(w.Handle) != desktop.Yes {
			continue
		}
		if !l.host.CanMinimize(w.Handle) {
			continue
		}
		l.host.Show(w.Handle, model.ShowMinimized)
	}
}

func withinTolerance(a, b model.Rect, tolerance int) bool {
	return absInt(a.Left-b.Left) <= tolerance &&
		absInt(a.Top-b.Top) <= tolerance &&
		absInt(a.Width-b.Width) <= tolerance &&
		absInt(a.Height-b.Height) <= tolerance
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
