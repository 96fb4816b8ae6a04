package assets

import "errors"

// Resolver combines an optional override loader with the embedded assets.
// Lookups try the override first and fall back to embedded only when the
// asset is missing there; validation and I/O errors are returned as is.
type Resolver struct {
	custom   Loader // nil if no override directory configured
	embedded Loader
}

// NewResolver creates a Resolver. An empty customBasePath uses embedded
// assets only.
func NewResolver(customBasePath string) (*Resolver, error) {
	r := &Resolver{embedded: NewEmbeddedLoader()}
	if customBasePath != "" {
		fsLoader, err := NewFilesystemLoader(customBasePath)
		if err != nil {
			return nil, err
		}
		r.custom = fsLoader
	}
	return r, nil
}

// LoadScript loads a script, preferring the override directory.
func (r *Resolver) LoadScript(name string) (string, error) {
	return r.loadWithFallback(func(l Loader) (string, error) { return l.LoadScript(name) })
}

// LoadStyle loads a style, preferring the override directory.
func (r *Resolver) LoadStyle(name string) (string, error) {
	return r.loadWithFallback(func(l Loader) (string, error) { return l.LoadStyle(name) })
}

// HasCustomLoader reports whether an override directory is configured.
func (r *Resolver) HasCustomLoader() bool {
	return r.custom != nil
}

func (r *Resolver) loadWithFallback(load func(Loader) (string, error)) (string, error) {
	if r.custom == nil {
		return load(r.embedded)
	}
	content, err := load(r.custom)
	if err == nil {
		return content, nil
	}
	if !isNotFoundError(err) {
		return "", err
	}
	return load(r.embedded)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrScriptNotFound) || errors.Is(err, ErrStyleNotFound)
}

// Compile-time interface check.
var _ Loader = (*Resolver)(nil)
