// Package match scores how well a live window corresponds to an
// ApplicationDefinition, returning the single best candidate or nil,
// through a five-tier signal table where exact identity beats process
// identity beats a bare title match. The matcher stays a pure function of
// its inputs: placement distance and window area are external tiebreakers
// the Launcher layers on top, not something baked into the score here.
package match

import (
	"sort"
	"strings"

	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// Tier identifies which rule produced a match, highest confidence first.
// Exported so callers (the Launcher's tie-break logging) can explain a
// decision without re-deriving it.
type Tier int

const (
	// TierNone means the candidate didn't satisfy any rule at all.
	TierNone Tier = iota
	// TierTitleOnly is a last-resort exact case-insensitive title match,
	// flagged ambiguous unless some other signal disambiguates it.
	TierTitleOnly
	// TierProcessName matches the process name with ".exe" stripped.
	TierProcessName
	// TierProcessFileName matches the process's base file name.
	TierProcessFileName
	// TierProcessPath matches the fully-expanded process path.
	TierProcessPath
	// TierAUMID matches on AppUserModelID, the strongest identity signal.
	TierAUMID
)

// tierScore is the fixed score each tier contributes; the matcher never
// adds anything on top (no title-similarity bonus), so equal-tier
// candidates score identically and tie-breaking happens one layer up.
var tierScore = map[Tier]int{
	TierNone:            0,
	TierTitleOnly:       30,
	TierProcessName:     55,
	TierProcessFileName: 70,
	TierProcessPath:     90,
	TierAUMID:           100,
}

// Match is one scored candidate.
type Match struct {
	Window model.WindowInfo
	Tier   Tier
	Score  int
}

// Matcher is a pure function of its inputs, with no dependency on the live
// desktop, so it can be exhaustively unit tested.
type Matcher struct {
	// ExcludedClassNames are window classes that can never be a match
	// target (tool tips, shell tray icons, etc.), mirrored from the
	// snapshot filter so the two stay consistent.
	ExcludedClassNames map[string]struct{}
}

func NewMatcher(excludedClassNames []string) *Matcher {
	set := make(map[string]struct{}, len(excludedClassNames))
	for _, c := range excludedClassNames {
		set[strings.ToLower(c)] = struct{}{}
	}
	return &Matcher{ExcludedClassNames: set}
}

// FindBestMatch scores every candidate against def and returns the highest
// scoring one, or nil if none clears TierNone. Ties are broken by lowest
// window handle, for determinism across repeated runs against the same
// process set.
func (m *Matcher) FindBestMatch(def model.ApplicationDefinition, candidates []model.WindowInfo) *Match {
	var best *Match
	for _, w := range candidates {
		if m.excluded(w) {
			continue
		}
		candidate := m.score(def, w)
		if candidate.Tier == TierNone {
			continue
		}
		if best == nil || candidate.Score > best.Score ||
			(candidate.Score == best.Score && w.Handle < best.Window.Handle) {
			c := candidate
			best = &c
		}
	}
	return best
}

func (m *Matcher) excluded(w model.WindowInfo) bool {
	_, ok := m.ExcludedClassNames[strings.ToLower(w.ClassName)]
	return ok
}

// Rank scores every candidate and returns the ones that cleared TierNone,
// sorted by descending score (ties broken by ascending handle), so a caller
// can see whether the top score is shared, not just the winner.
func (m *Matcher) Rank(def model.ApplicationDefinition, candidates []model.WindowInfo) []Match {
	var ranked []Match
	for _, w := range candidates {
		if m.excluded(w) {
			continue
		}
		s := m.score(def, w)
		if s.Tier == TierNone {
			continue
		}
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Window.Handle < ranked[j].Window.Handle
	})
	return ranked
}

// score applies the five tiers in descending confidence order, plus two
// aliasing rules: when the definition's path is the OS
// application-frame-host binary (the UWP host process), the three
// process-based tiers are skipped and only the AUMID and title-only tiers
// apply, since that process identity belongs to the host, not the packaged
// app; and a browser window whose AppUserModelID contains the definition's
// pwa_app_id counts as an AUMID match, since a PWA's AUMID is host-assigned
// and doesn't equal the captured one verbatim.
func (m *Matcher) score(def model.ApplicationDefinition, w model.WindowInfo) Match {
	if aumidMatch(def, w) {
		return Match{Window: w, Tier: TierAUMID, Score: tierScore[TierAUMID]}
	}

	if !isApplicationFrameHost(def.Path) {
		switch {
		case def.Path != "" && w.ProcessPath != "" && strings.EqualFold(def.Path, w.ProcessPath):
			return Match{Window: w, Tier: TierProcessPath, Score: tierScore[TierProcessPath]}

		case def.Path != "" && w.ProcessFileName != "" &&
			strings.EqualFold(baseFileName(def.Path), w.ProcessFileName):
			return Match{Window: w, Tier: TierProcessFileName, Score: tierScore[TierProcessFileName]}

		case def.Path != "" && w.ProcessName != "" &&
			strings.EqualFold(baseNameNoExt(def.Path), w.ProcessName):
			return Match{Window: w, Tier: TierProcessName, Score: tierScore[TierProcessName]}
		}
	}

	if def.Title != "" && w.Title != "" && strings.EqualFold(strings.TrimSpace(def.Title), strings.TrimSpace(w.Title)) {
		return Match{Window: w, Tier: TierTitleOnly, Score: tierScore[TierTitleOnly]}
	}

	return Match{Tier: TierNone}
}

// aumidMatch reports a direct AUMID match, or the PWA alias: def's
// pwa_app_id appearing inside a known browser window's AUMID.
func aumidMatch(def model.ApplicationDefinition, w model.WindowInfo) bool {
	if def.AppUserModelID != "" && w.AppUserModelID != "" &&
		strings.EqualFold(def.AppUserModelID, w.AppUserModelID) {
		return true
	}
	if def.PWAAppID != "" && w.AppUserModelID != "" && isKnownBrowser(w.ProcessName) &&
		strings.Contains(strings.ToLower(w.AppUserModelID), strings.ToLower(def.PWAAppID)) {
		return true
	}
	return false
}

var knownBrowserProcessNames = map[string]struct{}{
	"chrome":  {},
	"msedge":  {},
	"brave":   {},
	"vivaldi": {},
	"opera":   {},
}

func isKnownBrowser(processName string) bool {
	_, ok := knownBrowserProcessNames[strings.ToLower(strings.TrimSuffix(processName, ".exe"))]
	return ok
}

func isApplicationFrameHost(path string) bool {
	return baseNameNoExt(path) == "applicationframehost"
}

func baseFileName(path string) string {
	name := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '\\' || path[i] == '/' {
			name = path[i+1:]
			break
		}
	}
	return name
}

func baseNameNoExt(path string) string {
	return strings.TrimSuffix(strings.ToLower(baseFileName(path)), ".exe")
}
