package module

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	log "github.com/sirupsen/logrus"
)

// trees are the candidate install locations under a kernel's module
// directory, in probe order. The first existing match wins.
var trees = []string{"extra", "updates/dkms", "weak-updates"}

// Location describes where an installed module artifact was found. When the
// match is a symlink (the weak-modules mechanism), the resolution target is
// reported separately so callers can tell "installed for this exact kernel"
// from "compatible via ABI symlink".
type Location struct {
	// Path is the matched artifact, possibly a symlink.
	Path string
	// ResolvedPath is the symlink resolution target; equals Path for a
	// regular file.
	ResolvedPath string
	// Tree is the candidate subtree the match was found in.
	Tree string
	// KernelRelease is the kernel directory Path lives under.
	KernelRelease string
	// ResolvedKernelRelease is the kernel directory ResolvedPath lives under.
	ResolvedKernelRelease string
}

// Exact reports whether the artifact was installed for the kernel it was
// found under, as opposed to being weak-linked from another kernel's tree.
func (l *Location) Exact() bool {
	return l.KernelRelease == l.ResolvedKernelRelease
}

// Inspector performs read-only queries about one named driver module.
type Inspector struct {
	// Name is the module name, e.g. "rcraid".
	Name string
	// Root is prepended to probed paths, "" for the real root.
	Root string
}

// FindInstalled probes the candidate install trees for the given kernel in
// order and returns the first match, or nil when the module is not installed
// for that kernel.
func (i Inspector) FindInstalled(kernelRelease string) *Location {
	for _, tree := range trees {
		dir := filepath.Join(i.Root, "/lib/modules", kernelRelease, tree)
		matches, err := doublestar.Glob(os.DirFS(dir), i.Name+".ko*")
		if err != nil || len(matches) == 0 {
			continue
		}

		loc := &Location{
			Path:          filepath.Join(dir, matches[0]),
			Tree:          tree,
			KernelRelease: kernelRelease,
		}
		loc.ResolvedPath = loc.Path
		loc.ResolvedKernelRelease = kernelRelease

		if info, err := os.Lstat(loc.Path); err == nil && info.Mode()&os.ModeSymlink != 0 {
			if resolved, err := filepath.EvalSymlinks(loc.Path); err == nil {
				loc.ResolvedPath = resolved
				if kver := i.kernelFromPath(resolved); kver != "" {
					loc.ResolvedKernelRelease = kver
				}
			}
		}

		log.Debugf("found %s at %s (tree %s, exact %t)", i.Name, loc.Path, loc.Tree, loc.Exact())
		return loc
	}

	return nil
}

// kernelFromPath extracts the kernel release component from a path under the
// modules directory, empty when the path is not under it.
func (i Inspector) kernelFromPath(path string) string {
	prefix := filepath.Join(i.Root, "/lib/modules") + string(filepath.Separator)
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, prefix)
	kver, _, _ := strings.Cut(rest, string(filepath.Separator))
	return kver
}

// Loaded reports whether the module is currently in the running kernel,
// derived from /proc/modules.
func (i Inspector) Loaded() bool {
	content, err := os.ReadFile(filepath.Join(i.Root, "/proc/modules"))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(content), "\n") {
		name, _, _ := strings.Cut(line, " ")
		if name == i.Name {
			return true
		}
	}
	return false
}
