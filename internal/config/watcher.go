package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// TemplateWatcher monitors the pledge template PDF on disk and invokes a
// callback when it changes, so a replaced template takes effect without a
// restart.
type TemplateWatcher struct {
	templatePath string
	watcher      *fsnotify.Watcher
	stopChan     chan struct{}
	lastModTime  time.Time
	mu           sync.Mutex
	onChange     func()
}

// NewTemplateWatcher creates a watcher for the given template path.
func NewTemplateWatcher(templatePath string, onChange func()) (*TemplateWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	tw := &TemplateWatcher{
		templatePath: filepath.Clean(templatePath),
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		onChange:     onChange,
	}
	if stat, err := os.Stat(tw.templatePath); err == nil {
		tw.lastModTime = stat.ModTime()
	}
	return tw, nil
}

// Start begins watching the template directory. Watching the directory
// rather than the file survives editors that replace the file on save.
func (tw *TemplateWatcher) Start() error {
	dir := filepath.Dir(tw.templatePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := tw.watcher.Add(dir); err != nil {
		return err
	}

	go tw.loop()
	log.Debug().Str("path", tw.templatePath).Msg("Template watcher started")
	return nil
}

// Stop halts the watcher.
func (tw *TemplateWatcher) Stop() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	select {
	case <-tw.stopChan:
	default:
		close(tw.stopChan)
	}
	_ = tw.watcher.Close()
}

func (tw *TemplateWatcher) loop() {
	// Debounce: editors fire several events per save.
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != tw.templatePath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, tw.fireIfModified)

		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Template watcher error")

		case <-tw.stopChan:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

func (tw *TemplateWatcher) fireIfModified() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	stat, err := os.Stat(tw.templatePath)
	if err != nil {
		return
	}
	if !stat.ModTime().After(tw.lastModTime) {
		return
	}
	tw.lastModTime = stat.ModTime()

	log.Info().Str("path", tw.templatePath).Msg("Pledge template changed, reloading")
	if tw.onChange != nil {
		tw.onChange()
	}
}
