package storage

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates in-process store caches when the index files change on
// disk outside this process. The indices are plain JSON and humans (or a
// second tool) do edit them. Single-writer semantics are unchanged: the
// watcher only forces a reload on next access, it does not merge.
type Watcher struct {
	fw     *fsnotify.Watcher
	onDirt func(store string)
	done   chan struct{}
}

// Watch begins watching the layout's index directory. onDirt is called with
// the store name (file basename without extension) for every write, create,
// or rename event.
func Watch(layout Layout, onDirt func(store string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(layout.IndexDir()); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{fw: fw, onDirt: onDirt, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			w.onDirt(strings.TrimSuffix(name, ".json"))
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("storage watch: %v", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
