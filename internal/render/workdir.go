package render

import (
	"fmt"
	"os"
	"sync"
)

// Workdir is the ephemeral directory holding one session's clips,
// orchestra and score. Close removes it with everything inside.
type Workdir struct {
	Path string

	once sync.Once
	err  error
}

// NewWorkdir creates a fresh directory under base (the OS temp dir when
// base is empty).
func NewWorkdir(base string) (*Workdir, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("creating work dir parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(base, "ransom-*")
	if err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	return &Workdir{Path: dir}, nil
}

// Close removes the directory recursively. Only the first call does
// anything; later calls return the same result.
func (w *Workdir) Close() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.Path); err != nil {
			w.err = fmt.Errorf("removing work dir: %w", err)
		}
	})
	return w.err
}
