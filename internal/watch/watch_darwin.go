//go:build darwin

package watch

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

type kqueueWatcher struct {
	debouncer
	kq       int
	watchMap map[int]string
}

// New returns the platform-appropriate Watcher. On Darwin it is backed
// by kqueue.
func New(onChange func(string)) (Watcher, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("watch: kqueue: %w", err)
	}
	return &kqueueWatcher{
		debouncer: newDebouncer(onChange),
		kq:        kq,
		watchMap:  make(map[int]string),
	}, nil
}

func (w *kqueueWatcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fd, err := unix.Open(abs, unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("watch: open %s: %w", abs, err)
	}
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_VNODE,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
		Fflags: unix.NOTE_WRITE | unix.NOTE_ATTRIB,
	}
	if _, err := unix.Kevent(w.kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		unix.Close(fd)
		return fmt.Errorf("watch: kevent %s: %w", abs, err)
	}
	w.mu.Lock()
	w.watchMap[fd] = abs
	w.mu.Unlock()
	return nil
}

func (w *kqueueWatcher) Watch() {
	events := make([]unix.Kevent_t, 16)
	for {
		n, err := unix.Kevent(w.kq, nil, events, nil)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Ident)
			w.mu.Lock()
			path := w.watchMap[fd]
			w.mu.Unlock()
			if path != "" {
				w.fire(path)
			}
		}
	}
}

func (w *kqueueWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for fd := range w.watchMap {
		unix.Close(fd)
	}
	return unix.Close(w.kq)
}
