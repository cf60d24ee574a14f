// Package notify synthesizes repository-change events from local
// filesystem activity.
package notify

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/GerritCodeReview/plugins-gitgroups/internal/groups"
)

// Watcher observes each repository's refs/ tree and packed-refs file under a
// base directory and reports updated refs to the RefIndex. Events are
// debounced: a burst of writes to one ref flushes as a single update.
//
// This is a best-effort notifier for deployments where the daemon shares a
// filesystem with the repositories it serves. Hosts that push explicit
// ref-updated events do not need it.
type Watcher struct {
	base     string
	index    *groups.RefIndex
	debounce time.Duration
	log      zerolog.Logger

	fsw      *fsnotify.Watcher
	repoDirs []string // relative repo roots, longest first
	done     chan struct{}
}

// NewWatcher creates a watcher rooted at base. Start must be called before
// events flow.
func NewWatcher(base string, index *groups.RefIndex, debounce time.Duration, log zerolog.Logger) *Watcher {
	return &Watcher{
		base:     filepath.Clean(base),
		index:    index,
		debounce: debounce,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start scans the base directory for repositories, registers filesystem
// watches on their ref storage and launches the event loop.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start ref watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.scanRepositories(); err != nil {
		fsw.Close()
		return err
	}

	go w.run()
	return nil
}

// Stop tears the watcher down. Pending debounced events are dropped.
func (w *Watcher) Stop() {
	close(w.done)
	if w.fsw != nil {
		w.fsw.Close()
	}
}

func (w *Watcher) scanRepositories() error {
	err := filepath.WalkDir(w.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == w.base {
			return nil
		}
		if _, statErr := os.Stat(filepath.Join(path, "HEAD")); statErr != nil {
			return nil
		}

		rel, relErr := filepath.Rel(w.base, path)
		if relErr != nil {
			return relErr
		}
		w.repoDirs = append(w.repoDirs, filepath.ToSlash(rel))
		w.watchRepo(path)
		return filepath.SkipDir
	})
	if err != nil {
		return fmt.Errorf("scan repositories: %w", err)
	}

	// Longest-first so nested repository paths resolve to the deepest repo.
	sort.Slice(w.repoDirs, func(i, j int) bool {
		return len(w.repoDirs[i]) > len(w.repoDirs[j])
	})
	return nil
}

// watchRepo registers the repository root (for packed-refs) and every
// directory under refs/.
func (w *Watcher) watchRepo(root string) {
	w.addWatch(root)
	_ = filepath.WalkDir(filepath.Join(root, "refs"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			w.addWatch(path)
		}
		return nil
	})
}

func (w *Watcher) addWatch(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		w.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch directory")
	}
}

func (w *Watcher) run() {
	// pending accumulates project → updated ref set between flushes.
	pending := make(map[string]map[string]struct{})
	var flush <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("ref watcher error")

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					w.addWatch(ev.Name)
				}
			}
			project, refs := w.classify(ev.Name)
			if project == "" || len(refs) == 0 {
				continue
			}
			set, ok := pending[project]
			if !ok {
				set = make(map[string]struct{})
				pending[project] = set
			}
			for _, ref := range refs {
				set[ref] = struct{}{}
			}
			if flush == nil {
				flush = time.After(w.debounce)
			}

		case <-flush:
			flush = nil
			for project, set := range pending {
				refs := make([]string, 0, len(set))
				for ref := range set {
					refs = append(refs, ref)
				}
				sort.Strings(refs)
				w.log.Debug().Str("project", project).Strs("refs", refs).Msg("local refs updated")
				w.index.OnRefsUpdated(project, refs)
			}
			pending = make(map[string]map[string]struct{})
		}
	}
}

// classify maps a filesystem event path to a project name and the refs it
// touches. A write under refs/ names one ref; a packed-refs write stands for
// every ref of the project the index currently tracks.
func (w *Watcher) classify(path string) (string, []string) {
	rel, err := filepath.Rel(w.base, path)
	if err != nil {
		return "", nil
	}
	rel = filepath.ToSlash(rel)

	for _, repo := range w.repoDirs {
		if rel != repo && !strings.HasPrefix(rel, repo+"/") {
			continue
		}
		project := strings.TrimSuffix(repo, ".git")
		if rel == repo {
			return project, nil
		}

		sub := rel[len(repo)+1:]
		switch {
		case sub == "packed-refs":
			return project, w.index.TrackedRefs(project)
		case strings.HasPrefix(sub, "refs/"):
			// Ref updates land via "<ref>.lock" then rename; either spelling
			// names the same ref.
			return project, []string{strings.TrimSuffix(sub, ".lock")}
		default:
			return project, nil
		}
	}
	return "", nil
}
