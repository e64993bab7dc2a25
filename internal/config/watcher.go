package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultProfileDebounce is how long the profiles file must stay quiet before it is reloaded.
const DefaultProfileDebounce = 300 * time.Millisecond

// ProfileWatcher reloads a ProfileStore when its YAML file changes.
// Bursts of events are coalesced into one reload once the file settles.
// Invalid or empty files are logged and the previous profiles stay active.
type ProfileWatcher struct {
	path     string
	store    *ProfileStore
	watcher  *fsnotify.Watcher
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	once     sync.Once
}

// NewProfileWatcher watches the directory containing path, since editors
// often replace files rather than write them in place.
func NewProfileWatcher(path string, store *ProfileStore) (*ProfileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create profile watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("resolve profiles path '%s': %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch '%s': %w", filepath.Dir(abs), err)
	}
	return &ProfileWatcher{
		path:     abs,
		store:    store,
		watcher:  watcher,
		debounce: DefaultProfileDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start runs the event loop until ctx is done or Stop is called.
func (pw *ProfileWatcher) Start(ctx context.Context) {
	pw.started = true
	go pw.run(ctx)
}

// Stop ends the event loop and waits for it.
func (pw *ProfileWatcher) Stop() {
	pw.once.Do(func() {
		close(pw.stopCh)
		if pw.started {
			<-pw.doneCh
		}
		if err := pw.watcher.Close(); err != nil {
			utils.WithComponent("profile_watcher").Warn("Error closing watcher", zap.Error(err))
		}
	})
}

func (pw *ProfileWatcher) run(ctx context.Context) {
	defer close(pw.doneCh)
	log := utils.WithComponent("profile_watcher")

	tick := pw.debounce / 4
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	// lastEvent is zero when no reload is pending.
	var lastEvent time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-pw.stopCh:
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			lastEvent = time.Now()
		case <-ticker.C:
			if lastEvent.IsZero() || time.Since(lastEvent) < pw.debounce {
				continue
			}
			lastEvent = time.Time{}
			pw.reload(log)
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("Profile watcher error", zap.Error(err))
		}
	}
}

func (pw *ProfileWatcher) reload(log *zap.Logger) {
	profiles, err := LoadProfiles(pw.path)
	if err != nil {
		log.Warn("Ignoring invalid profiles file",
			zap.String(utils.FieldPath, pw.path),
			zap.Error(err))
		return
	}
	pw.store.Set(profiles)
	log.Info("Profiles reloaded",
		zap.String(utils.FieldPath, pw.path),
		zap.Int("version", pw.store.Version()))
}
