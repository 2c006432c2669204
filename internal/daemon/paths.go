package daemon

import (
	"fmt"
	"path/filepath"
)

// resolvePath maps a destination received from the server to a local path.
// Relative destinations are joined under workingDir and must stay inside
// it; absolute destinations are used as given.
func resolvePath(workingDir, destination string) (string, error) {
	if destination == "" {
		return "", fmt.Errorf("%w: empty destination", ErrPathEscapes)
	}

	native := filepath.FromSlash(destination)
	if filepath.IsAbs(native) {
		return filepath.Clean(native), nil
	}

	if !filepath.IsLocal(native) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapes, destination)
	}

	return filepath.Join(workingDir, native), nil
}
