package module

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const fakeElf = "\x7fELF fake module body "

func TestSignedPlain(t *testing.T) {
	dir := t.TempDir()

	unsigned := filepath.Join(dir, "rcraid.ko")
	require.NoError(t, os.WriteFile(unsigned, []byte(fakeElf), 0644))
	ok, err := Signed(unsigned)
	require.NoError(t, err)
	require.False(t, ok)

	signed := filepath.Join(dir, "rcraid-signed.ko")
	require.NoError(t, os.WriteFile(signed, []byte(fakeElf+"signature bytes~Module signature appended~\n"), 0644))
	ok, err = Signed(signed)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSignedXZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcraid.ko.xz")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := xz.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write([]byte(fakeElf + "~Module signature appended~\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	ok, err := Signed(path)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSignedGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcraid.ko.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(fakeElf))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	ok, err := Signed(path)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSignedMissingFile(t *testing.T) {
	_, err := Signed(filepath.Join(t.TempDir(), "nope.ko"))
	require.Error(t, err)
}
