package sysinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func stubUname(release string) func() (string, error) {
	return func() (string, error) { return release, nil }
}

func TestDetectRHEL9(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "etc/os-release"), `NAME="Red Hat Enterprise Linux"
ID="rhel"
ID_LIKE="fedora"
VERSION_ID="9.6"
`)

	env := Detector{Root: root, Uname: stubUname("5.14.0-570.12.1.el9_6.x86_64")}.Detect()
	require.Equal(t, FamilyRHEL, env.Family)
	require.Equal(t, 9, env.MajorVersion)
	require.Equal(t, "5.14.0-570.12.1.el9_6.x86_64", env.KernelRelease)
	require.Equal(t, "5.14", env.KernelSeries)
}

func TestDetectDerivative(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "etc/os-release"), `NAME="Rocky Linux"
ID="rocky"
ID_LIKE="rhel centos fedora"
VERSION_ID="10.0"
`)

	env := Detector{Root: root, Uname: stubUname("6.12.0-55.9.1.el10_0.x86_64")}.Detect()
	require.Equal(t, FamilyDerivative, env.Family)
	require.Equal(t, 10, env.MajorVersion)
	require.Equal(t, "6.12", env.KernelSeries)
}

func TestDetectRedhatReleaseFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "etc/redhat-release"), "Red Hat Enterprise Linux release 10.0 (Coughlan)\n")

	env := Detector{Root: root, Uname: stubUname("6.12.0-55.el10.x86_64")}.Detect()
	require.Equal(t, FamilyRHEL, env.Family)
	require.Equal(t, 10, env.MajorVersion)
}

func TestDetectDefaultsWhenMetadataMissing(t *testing.T) {
	env := Detector{Root: t.TempDir(), Uname: stubUname("6.1.0-generic")}.Detect()
	require.Equal(t, FamilyUnknown, env.Family)
	require.Equal(t, DefaultMajorVersion, env.MajorVersion)
}

func TestDetectDefaultsWhenVersionMalformed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "etc/os-release"), `ID="rhel"
VERSION_ID="rawhide"
`)

	env := Detector{Root: root, Uname: stubUname("6.12.0")}.Detect()
	require.Equal(t, FamilyRHEL, env.Family)
	require.Equal(t, DefaultMajorVersion, env.MajorVersion)
}

func TestDetectKernelSourceDir(t *testing.T) {
	root := t.TempDir()
	release := "5.14.0-570.el9.x86_64"
	kdir := filepath.Join(root, "usr/src/kernels", release)
	require.NoError(t, os.MkdirAll(kdir, 0755))

	env := Detector{Root: root, Uname: stubUname(release)}.Detect()
	require.Equal(t, kdir, env.KernelSourceDir)
}

func TestDetectKernelSourceDirDebianStyle(t *testing.T) {
	root := t.TempDir()
	release := "6.1.0-18-amd64"
	kdir := filepath.Join(root, "usr/src/linux-headers-"+release)
	require.NoError(t, os.MkdirAll(kdir, 0755))

	env := Detector{Root: root, Uname: stubUname(release)}.Detect()
	require.Equal(t, kdir, env.KernelSourceDir)
}

func TestKernelSeries(t *testing.T) {
	testCases := []struct {
		release  string
		expected string
	}{
		{"5.14.0-570.el9.x86_64", "5.14"},
		{"6.12.0-55.el10.x86_64", "6.12"},
		{"6.12", "6.12"},
		{"junk", "junk"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, kernelSeries(tc.release), tc.release)
	}
}

func TestKernelAtLeast(t *testing.T) {
	env := &Environment{KernelSeries: "6.12"}
	require.True(t, env.KernelAtLeast("4.18"))
	require.True(t, env.KernelAtLeast("6.12"))
	require.False(t, env.KernelAtLeast("6.13"))

	env = &Environment{KernelSeries: ""}
	require.False(t, env.KernelAtLeast("4.18"))
}
