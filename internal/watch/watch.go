// Package watch implements the "-rebuild-on-change" development
// convenience: watch the input file and every -I include directory,
// and invoke a callback debounced to one rebuild per
// burst of edits. This is pure developer-experience sugar around the
// core's normal one-shot invocation; nothing in specification §1-§8
// depends on it, but a standing assembler that reruns itself after
// every save is a natural front for a tool shaped like this one.
//
// Grounded directly on the teacher's per-platform FileWatcher trio
// (filewatcher_unix.go's inotify watcher, filewatcher_darwin.go's
// kqueue watcher, filewatcher_other.go/filewatcher_windows.go's
// polling fallback), generalised from "recompile this program" to
// "reassemble this source", using golang.org/x/sys/unix the same way
// the teacher does.
package watch

import (
	"sync"
	"time"
)

// Watcher watches a set of files and calls OnChange, debounced, when
// any of them is modified.
type Watcher interface {
	AddFile(path string) error
	Watch()
	Close() error
}

const debounce = 300 * time.Millisecond

// debouncer is embedded by every platform implementation to share the
// per-path debounce-timer bookkeeping, matching the duplicated-but-
// identical debouncedCallback method across the teacher's platform
// files.
type debouncer struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	onChange func(string)
}

func newDebouncer(onChange func(string)) debouncer {
	return debouncer{timers: make(map[string]*time.Timer), onChange: onChange}
}

func (d *debouncer) fire(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[path]; ok {
		t.Stop()
	}
	d.timers[path] = time.AfterFunc(debounce, func() {
		d.onChange(path)
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
	})
}
