package static

import (
	"errors"
	"fmt"
	"io/fs"
)

// ResourceNotFoundError reports a payload that does not exist.
type ResourceNotFoundError struct {
	Name string
	Err  error
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("static: resource %q not found", e.Name)
}

func (e *ResourceNotFoundError) Unwrap() error { return e.Err }

// Resources serves payloads from a filesystem. Without reload, payloads are
// read once and never change.
type Resources struct {
	fsys   fs.FS
	reload bool
	cache  map[string][]byte
}

// LoadResources reads every named payload. Any missing payload fails the load.
func LoadResources(fsys fs.FS, names []string, reload bool) (*Resources, error) {
	r := &Resources{fsys: fsys, reload: reload, cache: make(map[string][]byte, len(names))}
	for _, name := range names {
		body, err := r.read(name)
		if err != nil {
			return nil, err
		}
		if !reload {
			r.cache[name] = body
		}
	}
	return r, nil
}

// Get returns the payload for name.
func (r *Resources) Get(name string) ([]byte, error) {
	if r.reload {
		return r.read(name)
	}
	body, ok := r.cache[name]
	if !ok {
		return nil, &ResourceNotFoundError{Name: name, Err: fs.ErrNotExist}
	}
	return body, nil
}

func (r *Resources) read(name string) ([]byte, error) {
	body, err := fs.ReadFile(r.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ResourceNotFoundError{Name: name, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("static: read resource %q: %w", name, err)
	}
	return body, nil
}
