package musac

import (
	"errors"
	"sync"
)

// ErrSystemNotInitialized is returned by system-level helpers called
// before Init or after Done.
var ErrSystemNotInitialized = errors.New("musac: system not initialized")

var system struct {
	mu      sync.Mutex
	backend Backend
}

// Init records backend as the process-wide default for code that
// doesn't want to thread a Backend through every call site. It is
// re-initializable: a later Init after Done (or even without one)
// simply replaces the recorded backend, matching the teacher's
// lazy-reinit discipline for package-level state (see internal/uofile
// file.go's stateNew/stateReady/stateClosed lifecycle, adapted here to
// a single swappable slot instead of a per-file state machine).
func Init(backend Backend) error {
	if err := backend.Init(); err != nil {
		return err
	}
	system.mu.Lock()
	system.backend = backend
	system.mu.Unlock()
	return nil
}

// Done shuts down and forgets the process-wide backend.
func Done() error {
	system.mu.Lock()
	backend := system.backend
	system.backend = nil
	system.mu.Unlock()
	if backend == nil {
		return nil
	}
	return backend.Shutdown()
}

// DefaultBackend returns the backend recorded by Init, or nil if none
// has been set.
func DefaultBackend() Backend {
	system.mu.Lock()
	defer system.mu.Unlock()
	return system.backend
}

// OpenDefaultDevice opens the default playback device on the
// process-wide backend recorded by Init.
func OpenDefaultDevice(desired AudioSpec) (*Device, error) {
	backend := DefaultBackend()
	if backend == nil {
		return nil, ErrSystemNotInitialized
	}
	return OpenDevice(backend, "", desired)
}
