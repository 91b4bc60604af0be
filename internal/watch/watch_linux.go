//go:build linux

package watch

import (
	"fmt"
	"path/filepath"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

type inotifyWatcher struct {
	debouncer
	fd       int
	watchMap map[int]string
}

// New returns the platform-appropriate Watcher. On Linux it is backed
// by inotify.
func New(onChange func(string)) (Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("watch: inotify_init: %w", err)
	}
	return &inotifyWatcher{
		debouncer: newDebouncer(onChange),
		fd:        fd,
		watchMap:  make(map[int]string),
	}, nil
}

func (w *inotifyWatcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	wd, err := unix.InotifyAddWatch(w.fd, abs, unix.IN_MODIFY|unix.IN_CLOSE_WRITE)
	if err != nil {
		return fmt.Errorf("watch: add %s: %w", abs, err)
	}
	w.mu.Lock()
	w.watchMap[wd] = abs
	w.mu.Unlock()
	return nil
}

func (w *inotifyWatcher) Watch() {
	buf := make([]byte, unix.SizeofInotifyEvent*16)
	for {
		n, err := unix.Read(w.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return
		}
		offset := 0
		for offset < n {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)
			if event.Mask&(unix.IN_MODIFY|unix.IN_CLOSE_WRITE) == 0 {
				continue
			}
			w.mu.Lock()
			path := w.watchMap[int(event.Wd)]
			w.mu.Unlock()
			if path != "" {
				w.fire(path)
			}
		}
	}
}

func (w *inotifyWatcher) Close() error {
	return unix.Close(w.fd)
}
