package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	kverA = "6.12.0-55.9.1.el10_0.x86_64"
	kverB = "6.12.0-55.el10.x86_64"
)

func modDir(t *testing.T, root, kver, tree string) string {
	t.Helper()
	dir := filepath.Join(root, "lib/modules", kver, tree)
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}

func TestFindInstalledExtra(t *testing.T) {
	root := t.TempDir()
	dir := modDir(t, root, kverA, "extra")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rcraid.ko.xz"), []byte("mod"), 0644))

	loc := Inspector{Name: "rcraid", Root: root}.FindInstalled(kverA)
	require.NotNil(t, loc)
	require.Equal(t, "extra", loc.Tree)
	require.Equal(t, kverA, loc.KernelRelease)
	require.True(t, loc.Exact())
}

func TestFindInstalledPrefersExtraOverDKMS(t *testing.T) {
	root := t.TempDir()
	extra := modDir(t, root, kverA, "extra")
	dkms := modDir(t, root, kverA, "updates/dkms")
	require.NoError(t, os.WriteFile(filepath.Join(extra, "rcraid.ko"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dkms, "rcraid.ko"), []byte("b"), 0644))

	loc := Inspector{Name: "rcraid", Root: root}.FindInstalled(kverA)
	require.NotNil(t, loc)
	require.Equal(t, "extra", loc.Tree)
}

func TestFindInstalledWeakLink(t *testing.T) {
	root := t.TempDir()

	// real artifact lives under kernel B, kernel A only has the ABI symlink
	realDir := modDir(t, root, kverB, "extra")
	realPath := filepath.Join(realDir, "rcraid.ko.xz")
	require.NoError(t, os.WriteFile(realPath, []byte("mod"), 0644))

	weakDir := modDir(t, root, kverA, "weak-updates")
	require.NoError(t, os.Symlink(realPath, filepath.Join(weakDir, "rcraid.ko.xz")))

	loc := Inspector{Name: "rcraid", Root: root}.FindInstalled(kverA)
	require.NotNil(t, loc)
	require.Equal(t, "weak-updates", loc.Tree)
	require.Equal(t, kverA, loc.KernelRelease)
	require.Equal(t, kverB, loc.ResolvedKernelRelease)
	require.NotEqual(t, loc.Path, loc.ResolvedPath)
	require.False(t, loc.Exact(), "weak-linked module is compatible, not exact")
}

func TestFindInstalledNotFound(t *testing.T) {
	loc := Inspector{Name: "rcraid", Root: t.TempDir()}.FindInstalled(kverA)
	require.Nil(t, loc)
}

func TestLoaded(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "proc/modules"),
		[]byte("nvme 49152 0 - Live 0x0000000000000000\nrcraid 1048576 2 - Live 0x0000000000000000\n"), 0644))

	i := Inspector{Name: "rcraid", Root: root}
	require.True(t, i.Loaded())

	i.Name = "rcraid2"
	require.False(t, i.Loaded())
}
