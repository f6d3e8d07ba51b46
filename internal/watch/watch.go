// Package watch reports repository changes made outside the program.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/thiagokokada/gitlanes/internal/debounce"
)

const DefaultDebounce = 350 * time.Millisecond

// DefaultIgnore skips lock and IPC files git writes while it works.
var DefaultIgnore = []string{"*.lock", "*.ipc"}

type Options struct {
	Debounce time.Duration
	// Ignore holds gitignore-style patterns relative to the git directory.
	Ignore []string
}

// Watcher calls onChange, debounced, after git metadata changes. fsnotify
// is not recursive, so the git directory and its ref directories are
// watched individually.
type Watcher struct {
	fs       *fsnotify.Watcher
	gitDir   string
	ignore   *ignore.GitIgnore
	debounce *debounce.Debouncer

	closeOnce sync.Once
	done      chan struct{}
}

func Start(root string, opts Options, onChange func()) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Ignore == nil {
		opts.Ignore = DefaultIgnore
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{
		fs:       fs,
		gitDir:   GitDir(root),
		ignore:   ignore.CompileIgnoreLines(opts.Ignore...),
		debounce: debounce.New(opts.Debounce, onChange),
		done:     make(chan struct{}),
	}
	for _, path := range Paths(root) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fs.Add(path); err != nil {
			err := errors.Join(err, fs.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.debounce.Stop()
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.Ignored(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			if ev.Op&fsnotify.Create != 0 {
				w.follow(ev.Name)
			}
			w.debounce.Trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// follow starts watching a ref directory created after Start, such as
// refs/remotes/<name> after a remote is added.
func (w *Watcher) follow(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if rel, err := filepath.Rel(w.gitDir, path); err != nil || !isRefPath(rel) {
		return
	}
	if err := w.fs.Add(path); err != nil {
		slog.Warn("watch new directory", slog.String("path", path), slog.Any("error", err))
	}
}

// Ignored reports whether a change to path should not trigger a reload.
func (w *Watcher) Ignored(path string) bool {
	rel, err := filepath.Rel(w.gitDir, path)
	if err != nil {
		rel = path
	}
	return w.ignore.MatchesPath(filepath.ToSlash(rel))
}

func isRefPath(rel string) bool {
	rel = filepath.ToSlash(rel)
	return rel == "refs" || len(rel) > 5 && rel[:5] == "refs/"
}

// GitDir returns root/.git when it is a directory, else root.
func GitDir(root string) string {
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		return gitDir
	}
	return root
}

// Paths lists the directories to watch for root: the git directory and
// every directory below refs/.
func Paths(root string) []string {
	if root == "" {
		return nil
	}
	gitDir := GitDir(root)
	paths := []string{gitDir}
	refs := filepath.Join(gitDir, "refs")
	_ = filepath.WalkDir(refs, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	slices.Sort(paths)
	return paths
}
