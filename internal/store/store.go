// Package store persists WorkspaceDefinitions to a single JSON document on
// disk, guarded by an advisory lock file so two processes (the CLI and the
// service) never interleave writes, using a temp-file-then-rename write and
// retry-with-backoff around both the lock and the write itself.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	homedir "github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/workspace-engine/workspace-engine/internal/wserr"
	"github.com/workspace-engine/workspace-engine/pkg/model"
)

// Config configures where the Store keeps its document.
type Config struct {
	// Dir is the directory the workspace document (and its lock file) live
	// in. Created on first write if missing.
	Dir string
	// FileName is the document's file name within Dir.
	FileName string
	// LegacyPath, if set, is an old-format document MigrateLegacy can import
	// from. Load also imports it automatically, but only while the primary
	// document does not exist yet; otherwise a caller invokes MigrateLegacy
	// explicitly.
	LegacyPath string
}

const defaultFileName = "workspaces.json"

// DefaultConfig resolves the per-user config directory via
// mitchellh/go-homedir so it also works when $HOME isn't set but the
// Windows user profile env vars are.
func DefaultConfig() Config {
	dir, err := homedir.Dir()
	if err != nil {
		dir = "."
	}
	return Config{
		Dir:      filepath.Join(dir, ".workspace-engine"),
		FileName: defaultFileName,
	}
}

const (
	lockRetries     = 100
	lockRetryDelay  = 50 * time.Millisecond
	writeRetries    = 6
	writeRetryDelay = 60 * time.Millisecond
)

// Store persists workspace definitions to disk with file locking and
// optimistic-concurrency versioning.
type Store struct {
	cfg    Config
	logger *zap.Logger

	mu sync.Mutex
}

func New(cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FileName == "" {
		cfg.FileName = defaultFileName
	}
	return &Store{cfg: cfg, logger: logger}
}

func (s *Store) docPath() string  { return filepath.Join(s.cfg.Dir, s.cfg.FileName) }
func (s *Store) lockPath() string { return s.docPath() + ".lck" }

// acquireLock creates an advisory lock file exclusively, retrying on
// contention up to lockRetries times. It never blocks indefinitely: a
// crashed process holding the lock file would otherwise wedge every future
// writer.
func (s *Store) acquireLock() (release func(), err error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, wserr.Wrap(wserr.IO, "create config directory", err)
	}
	path := s.lockPath()
	for attempt := 0; attempt < lockRetries; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, wserr.Wrap(wserr.IO, "create lock file", err)
		}
		time.Sleep(lockRetryDelay)
	}
	return nil, wserr.New(wserr.Timeout, "timed out waiting for workspace store lock")
}

// readDocumentLocked reads the document and its version token (the file's
// last-write-time, formatted so it's both a stable comparison key and
// human-readable in logs). A missing file is a valid, empty document.
func (s *Store) readDocumentLocked() (model.WorkspaceDocument, string, error) {
	info, err := os.Stat(s.docPath())
	if os.IsNotExist(err) {
		return model.WorkspaceDocument{}, "", nil
	}
	if err != nil {
		return model.WorkspaceDocument{}, "", wserr.Wrap(wserr.IO, "stat workspace document", err)
	}

	data, err := os.ReadFile(s.docPath())
	if err != nil {
		return model.WorkspaceDocument{}, "", wserr.Wrap(wserr.IO, "read workspace document", err)
	}

	var doc model.WorkspaceDocument
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return model.WorkspaceDocument{}, "", wserr.Wrap(wserr.IO, "parse workspace document", err)
		}
	}
	return doc, versionToken(info), nil
}

func versionToken(info os.FileInfo) string {
	return info.ModTime().UTC().Format(time.RFC3339Nano)
}

// Load returns the full document along with its current version token. On
// the very first read of a document that doesn't exist yet, if a legacy
// path is configured, it migrates from it before returning.
func (s *Store) Load() (model.WorkspaceDocument, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, version, err := s.readDocumentLocked()
	if err != nil {
		return model.WorkspaceDocument{}, "", err
	}
	if version != "" || s.cfg.LegacyPath == "" {
		return doc, version, nil
	}

	if err := s.migrateLegacyLocked(s.cfg.LegacyPath); err != nil {
		return model.WorkspaceDocument{}, "", err
	}
	return s.readDocumentLocked()
}

// List returns every workspace definition.
func (s *Store) List() ([]model.WorkspaceDefinition, error) {
	doc, _, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Workspaces, nil
}

// ListNames returns every workspace name, the read the CLI's list command
// and the HTTP surface's index endpoint both use. It still loads and parses
// the full document.
func (s *Store) ListNames() ([]string, error) {
	doc, _, err := s.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Workspaces))
	for _, w := range doc.Workspaces {
		names = append(names, w.Name)
	}
	return names, nil
}

// Get returns the named workspace definition.
func (s *Store) Get(name string) (model.WorkspaceDefinition, error) {
	doc, _, err := s.Load()
	if err != nil {
		return model.WorkspaceDefinition{}, err
	}
	for _, w := range doc.Workspaces {
		if w.Name == name {
			return w, nil
		}
	}
	return model.WorkspaceDefinition{}, wserr.New(wserr.NotFound, fmt.Sprintf("workspace %q not found", name))
}

// Save upserts def (matched by ID or case-insensitive Name), enforcing optimistic concurrency: if
// expectedVersion is non-empty it must match the document's current
// version token, otherwise Save fails with wserr.VersionMismatch rather
// than silently clobbering a concurrent writer's change. Pass "" to bypass
// the check (first save of a brand new workspace).
func (s *Store) Save(def model.WorkspaceDefinition, expectedVersion string) error {
	var lastErr error
	for attempt := 0; attempt < writeRetries; attempt++ {
		if err := s.trySave(def, expectedVersion); err != nil {
			lastErr = err
			if wserr.Of(err) == wserr.VersionMismatch {
				return err
			}
			time.Sleep(writeRetryDelay)
			continue
		}
		return nil
	}
	return lastErr
}

func (s *Store) trySave(def model.WorkspaceDefinition, expectedVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	doc, version, err := s.readDocumentLocked()
	if err != nil {
		return err
	}
	if expectedVersion != "" && version != expectedVersion {
		return wserr.New(wserr.VersionMismatch, "workspace document changed since it was loaded")
	}

	// The most recently saved workspace moves to the front: remove whatever
	// already carries this id or this name (case-insensitively, so two
	// near-duplicate names never both survive), then insert def at
	// position 0.
	doc.Workspaces = removeByIDOrName(doc.Workspaces, def.ID, def.Name)
	doc.Workspaces = append([]model.WorkspaceDefinition{def}, doc.Workspaces...)

	return s.writeDocumentLocked(doc)
}

func removeByIDOrName(workspaces []model.WorkspaceDefinition, id, name string) []model.WorkspaceDefinition {
	out := workspaces[:0:0]
	for _, w := range workspaces {
		if (id != "" && w.ID == id) || strings.EqualFold(w.Name, name) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Delete removes the named workspace.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	doc, _, err := s.readDocumentLocked()
	if err != nil {
		return err
	}

	idx := -1
	for i, w := range doc.Workspaces {
		if w.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return wserr.New(wserr.NotFound, fmt.Sprintf("workspace %q not found", name))
	}
	doc.Workspaces = append(doc.Workspaces[:idx], doc.Workspaces[idx+1:]...)
	return s.writeDocumentLocked(doc)
}

// writeDocumentLocked writes doc atomically: marshal to a temp file in the
// same directory, then rename over the real path so a reader never
// observes a partially written document.
func (s *Store) writeDocumentLocked(doc model.WorkspaceDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return wserr.Wrap(wserr.IO, "marshal workspace document", err)
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return wserr.Wrap(wserr.IO, "create config directory", err)
	}

	tmp, err := os.CreateTemp(s.cfg.Dir, "."+s.cfg.FileName+".tmp-*")
	if err != nil {
		return wserr.Wrap(wserr.IO, "create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return wserr.Wrap(wserr.IO, "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return wserr.Wrap(wserr.IO, "close temp file", err)
	}
	if err := os.Rename(tmpPath, s.docPath()); err != nil {
		os.Remove(tmpPath)
		return wserr.Wrap(wserr.IO, "replace workspace document", err)
	}
	return nil
}

// legacyDocument mirrors the peer provider-config file's shape: workspaces
// live under data.workspaces, same as a WorkspaceDocument but nested one
// level deeper inside that provider's own config root.
type legacyDocument struct {
	Data struct {
		Workspaces []model.WorkspaceDefinition `json:"workspaces"`
	} `json:"data"`
}

// MigrateLegacy imports cfg.LegacyPath (or path, if non-empty) into the
// current document, skipping any workspace whose id or name (case
// insensitively) already exists, then clears the legacy file's
// data.workspaces so a later run doesn't re-import what's already been
// claimed. It is idempotent and safe to call on every startup.
func (s *Store) MigrateLegacy(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == "" {
		path = s.cfg.LegacyPath
	}
	return s.migrateLegacyLocked(path)
}

// migrateLegacyLocked assumes s.mu is already held by the caller.
func (s *Store) migrateLegacyLocked(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return wserr.Wrap(wserr.IO, "read legacy document", err)
	}

	var legacy legacyDocument
	if err := json.Unmarshal(data, &legacy); err != nil {
		return wserr.Wrap(wserr.IO, "parse legacy document", err)
	}
	if len(legacy.Data.Workspaces) == 0 {
		return nil
	}

	release, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	doc, _, err := s.readDocumentLocked()
	if err != nil {
		return err
	}

	existing := make(map[string]struct{}, len(doc.Workspaces))
	existingIDs := make(map[string]struct{}, len(doc.Workspaces))
	for _, w := range doc.Workspaces {
		existing[strings.ToLower(w.Name)] = struct{}{}
		if w.ID != "" {
			existingIDs[w.ID] = struct{}{}
		}
	}

	imported := 0
	for _, w := range legacy.Data.Workspaces {
		if _, ok := existing[strings.ToLower(w.Name)]; ok {
			continue
		}
		if w.ID != "" {
			if _, ok := existingIDs[w.ID]; ok {
				continue
			}
		} else {
			w.ID = model.NewWorkspaceID()
		}
		doc.Workspaces = append(doc.Workspaces, w)
		imported++
	}

	if imported > 0 {
		if err := s.writeDocumentLocked(doc); err != nil {
			return err
		}
		s.logger.Info("migrated legacy workspaces", zap.Int("count", imported), zap.String("source", path))
	}

	legacy.Data.Workspaces = nil
	return writeLegacyDocument(path, legacy)
}

// writeLegacyDocument clears the legacy provider's payload with the same
// temp-file-then-rename atomicity as the primary document, so a crash
// mid-write never leaves a half-truncated legacy file behind.
func writeLegacyDocument(path string, doc legacyDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return wserr.Wrap(wserr.IO, "marshal legacy document", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".legacy.tmp-*")
	if err != nil {
		return wserr.Wrap(wserr.IO, "create legacy temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return wserr.Wrap(wserr.IO, "write legacy temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return wserr.Wrap(wserr.IO, "close legacy temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return wserr.Wrap(wserr.IO, "replace legacy document", err)
	}
	return nil
}

// Watch notifies onChange whenever the document file is created, written,
// or renamed into place, whether by this process or another, via fsnotify the same way the
// pack's chat-storage component watches its JSON log for external edits.
// The returned function stops the watch.
func (s *Store) Watch(onChange func()) (stop func() error, err error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, wserr.Wrap(wserr.IO, "create config directory", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, wserr.Wrap(wserr.IO, "create file watcher", err)
	}
	if err := watcher.Add(s.cfg.Dir); err != nil {
		watcher.Close()
		return nil, wserr.Wrap(wserr.IO, "watch config directory", err)
	}

	docPath := s.docPath()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != docPath {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("workspace document watch error", zap.Error(err))
			case <-done:
				return
			}
		}
	}()

	return func() error {
		close(done)
		return watcher.Close()
	}, nil
}
