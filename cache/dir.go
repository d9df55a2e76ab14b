package cache

import (
	"os"
	"path"

	"github.com/adrg/xdg"
	"golang.org/x/sys/unix"
)

// Dir returns the directory where rcraidctl temporary files should be stored.
// The system-wide location is preferred because the tool normally runs as
// root, but a per-user cache is used when it is not writable.
func Dir() string {
	system := "/var/cache/rcraidctl"
	if unix.Access(path.Dir(system), unix.W_OK) == nil {
		return system
	}
	if _, err := os.Stat(system); err == nil && unix.Access(system, unix.W_OK) == nil {
		return system
	}
	return path.Join(xdg.CacheHome, "rcraidctl")
}
