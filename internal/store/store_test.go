package store_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/workspace-engine/workspace-engine/internal/store"
	"github.com/workspace-engine/workspace-engine/internal/wserr"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	return store.New(store.Config{Dir: dir, FileName: "workspaces.json"}, nil)
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)

	def := model.WorkspaceDefinition{ID: model.NewWorkspaceID(), Name: "dev"}
	require.NoError(t, s.Save(def, ""))

	got, err := s.Get("dev")
	require.NoError(t, err)
	require.Equal(t, "dev", got.Name)
}

// TestSaveAndGet_RoundTripPreservesApplications confirms a definition with
// a full set of application fields survives a JSON round trip unchanged,
// field for field.
func TestSaveAndGet_RoundTripPreservesApplications(t *testing.T) {
	s := newTestStore(t)

	def := model.WorkspaceDefinition{
		ID:                  model.NewWorkspaceID(),
		Name:                "dev",
		MoveExistingWindows: true,
		Monitors: []model.MonitorInfo{
			{ID: "A", Ordinal: 0, DPI: 144, DPIAwareRect: model.Rect{Left: 0, Top: 0, Width: 2560, Height: 1440}},
		},
		Applications: []model.ApplicationDefinition{
			{
				ID:              model.NewApplicationID(),
				Name:            "editor",
				Title:           "Editor",
				Path:            `C:\apps\editor.exe`,
				PackageFullName: "Contoso.Editor_1.0.0.0_x64__8wekyb3d8bbwe",
				AppUserModelID:  "Contoso.Editor_8wekyb3d8bbwe!App",
				MonitorOrdinal:  0,
				CapturedDPI:     144,
				Position:        model.Rect{Left: 100, Top: 200, Width: 800, Height: 600},
				Maximized:       true,
			},
		},
	}
	require.NoError(t, s.Save(def, ""))

	got, err := s.Get("dev")
	require.NoError(t, err)

	if diff := cmp.Diff(def.Applications, got.Applications); diff != "" {
		t.Fatalf("application definitions changed across a save/get round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(def.Monitors, got.Monitors); diff != "" {
		t.Fatalf("monitors changed across a save/get round trip (-want +got):\n%s", diff)
	}
}

func TestGet_MissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("missing")
	require.Error(t, err)
	require.Equal(t, wserr.NotFound, wserr.Of(err))
}

func TestSave_VersionMismatchRejected(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(model.WorkspaceDefinition{Name: "dev"}, ""))
	_, version, err := s.Load()
	require.NoError(t, err)

	// A concurrent writer updates the document first.
	require.NoError(t, s.Save(model.WorkspaceDefinition{Name: "dev", IsShortcutNeeded: true}, version))

	// Our stale version should now be rejected.
	err = s.Save(model.WorkspaceDefinition{Name: "dev", IsShortcutNeeded: false}, version)
	require.Error(t, err)
	require.Equal(t, wserr.VersionMismatch, wserr.Of(err))
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(model.WorkspaceDefinition{Name: "dev"}, ""))

	require.NoError(t, s.Delete("dev"))
	_, err := s.Get("dev")
	require.Equal(t, wserr.NotFound, wserr.Of(err))

	err = s.Delete("dev")
	require.Equal(t, wserr.NotFound, wserr.Of(err))
}

func TestListNames(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(model.WorkspaceDefinition{Name: "a"}, ""))
	require.NoError(t, s.Save(model.WorkspaceDefinition{Name: "b"}, ""))

	names, err := s.ListNames()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, names)
}

// legacyPayload mirrors the peer provider-config file's nested
// data.workspaces shape that MigrateLegacy reads from.
type legacyPayload struct {
	Data struct {
		Workspaces []model.WorkspaceDefinition `json:"workspaces"`
	} `json:"data"`
}

func writeLegacyFile(t *testing.T, path string, workspaces []model.WorkspaceDefinition) {
	t.Helper()
	var legacy legacyPayload
	legacy.Data.Workspaces = workspaces
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestMigrateLegacy_SkipsExistingNames(t *testing.T) {
	dir := t.TempDir()
	s := store.New(store.Config{Dir: dir, FileName: "workspaces.json"}, nil)

	require.NoError(t, s.Save(model.WorkspaceDefinition{Name: "dev"}, ""))

	legacyPath := filepath.Join(dir, "legacy.json")
	writeLegacyFile(t, legacyPath, []model.WorkspaceDefinition{
		{Name: "dev", Applications: []model.ApplicationDefinition{{Name: "should-not-overwrite"}}},
		{Name: "archive", Applications: []model.ApplicationDefinition{{Name: "notepad"}}},
	})

	require.NoError(t, s.MigrateLegacy(legacyPath))

	names, err := s.ListNames()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"dev", "archive"}, names)

	dev, err := s.Get("dev")
	require.NoError(t, err)
	require.Empty(t, dev.Applications, "existing workspace must not be overwritten by migration")

	legacyData, err := os.ReadFile(legacyPath)
	require.NoError(t, err)
	var cleared legacyPayload
	require.NoError(t, json.Unmarshal(legacyData, &cleared))
	require.Empty(t, cleared.Data.Workspaces, "legacy payload must be cleared after import")
}

func TestMigrateLegacy_MissingPathIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.MigrateLegacy(""))
	require.NoError(t, s.MigrateLegacy("/does/not/exist.json"))
}

func TestLoad_AutoMigratesLegacyOnFirstRead(t *testing.T) {
	dir := t.TempDir()
	legacyPath := filepath.Join(dir, "legacy.json")
	writeLegacyFile(t, legacyPath, []model.WorkspaceDefinition{
		{Name: "archive", Applications: []model.ApplicationDefinition{{Name: "notepad"}}},
	})

	s := store.New(store.Config{Dir: dir, FileName: "workspaces.json", LegacyPath: legacyPath}, nil)

	doc, _, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc.Workspaces, 1)
	require.Equal(t, "archive", doc.Workspaces[0].Name)

	// A second Load, now that the primary document exists, must not
	// re-trigger migration (the legacy payload was already cleared).
	doc, _, err = s.Load()
	require.NoError(t, err)
	require.Len(t, doc.Workspaces, 1)
}

func TestWatch_FiresOnExternalWrite(t *testing.T) {
	s := newTestStore(t)

	changes := make(chan struct{}, 4)
	stop, err := s.Watch(func() { changes <- struct{}{} })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, s.Save(model.WorkspaceDefinition{Name: "dev"}, ""))

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification after Save")
	}
}
