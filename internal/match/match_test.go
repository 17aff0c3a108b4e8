package match_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workspace-engine/workspace-engine/internal/match"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

func TestFindBestMatch_PrefersAUMIDOverTitle(t *testing.T) {
	m := match.NewMatcher(nil)
	def := model.ApplicationDefinition{
		Title:          "Calculator",
		AppUserModelID: "Microsoft.WindowsCalculator_8wekyb3d8bbwe!App",
	}
	candidates := []model.WindowInfo{
		{Handle: 1, Title: "Something else entirely", AppUserModelID: "Microsoft.WindowsCalculator_8wekyb3d8bbwe!App"},
		{Handle: 2, Title: "Calculator"},
	}

	got := m.FindBestMatch(def, candidates)
	require.NotNil(t, got)
	require.Equal(t, model.Handle(1), got.Window.Handle)
	require.Equal(t, match.TierAUMID, got.Tier)
}

func TestFindBestMatch_ExactPathBeatsTitleOnly(t *testing.T) {
	m := match.NewMatcher(nil)
	def := model.ApplicationDefinition{Title: "Untitled - Notepad", Path: `C:\Windows\System32\notepad.exe`}
	candidates := []model.WindowInfo{
		{Handle: 1, Title: "readme.txt - Notepad", ProcessPath: `C:\Windows\System32\notepad.exe`, ProcessName: "notepad"},
		{Handle: 2, Title: "Untitled - Notepad"},
	}

	got := m.FindBestMatch(def, candidates)
	require.NotNil(t, got)
	require.Equal(t, model.Handle(1), got.Window.Handle)
	require.Equal(t, match.TierProcessPath, got.Tier)
}

func TestFindBestMatch_NoCandidatesClearThreshold(t *testing.T) {
	m := match.NewMatcher(nil)
	def := model.ApplicationDefinition{Title: "Some Specific App"}
	candidates := []model.WindowInfo{
		{Handle: 1, Title: "Totally unrelated window"},
	}

	got := m.FindBestMatch(def, candidates)
	require.Nil(t, got)
}

func TestFindBestMatch_ExcludesConfiguredClassNames(t *testing.T) {
	m := match.NewMatcher([]string{"Shell_TrayWnd"})
	def := model.ApplicationDefinition{Title: "Taskbar"}
	candidates := []model.WindowInfo{
		{Handle: 1, Title: "Taskbar", ClassName: "Shell_TrayWnd"},
	}

	got := m.FindBestMatch(def, candidates)
	require.Nil(t, got)
}

func TestFindBestMatch_TieBreaksOnLowestHandle(t *testing.T) {
	m := match.NewMatcher(nil)
	def := model.ApplicationDefinition{
		AppUserModelID: "Contoso.App_abc!App",
		Title:          "Contoso",
	}
	candidates := []model.WindowInfo{
		{Handle: 9, Title: "Contoso", AppUserModelID: "Contoso.App_abc!App"},
		{Handle: 3, Title: "Contoso", AppUserModelID: "Contoso.App_abc!App"},
	}

	got := m.FindBestMatch(def, candidates)
	require.NotNil(t, got)
	require.Equal(t, model.Handle(3), got.Window.Handle)
}

func TestRank_DetectsAmbiguousTopScore(t *testing.T) {
	m := match.NewMatcher(nil)
	def := model.ApplicationDefinition{Title: "Explorer"}
	candidates := []model.WindowInfo{
		{Handle: 1, Title: "Explorer"},
		{Handle: 2, Title: "Explorer"},
	}

	ranked := m.Rank(def, candidates)
	require.Len(t, ranked, 2)
	require.Equal(t, ranked[0].Score, ranked[1].Score, "identical titles should tie at the top score")
}
