package media

import (
	"os"
	"sync"
)

// TransientUpload is a short-lived local copy of an uploaded image. It is
// owned by the request that produced it and must not outlive it: the
// binder discards it once the remote copy is confirmed, and the request
// boundary discards it on every error path before that point.
type TransientUpload struct {
	Path string

	mu      sync.Mutex
	removed bool
}

func NewTransientUpload(path string) *TransientUpload {
	return &TransientUpload{Path: path}
}

// Discard removes the local file. It is idempotent and treats an already
// missing file as success.
func (u *TransientUpload) Discard() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.removed {
		return nil
	}
	if err := os.Remove(u.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	u.removed = true
	return nil
}
