// Package module inspects kernel module artifacts and their installation
// state. Every query is read-only and recomputed on demand; absence of
// evidence means "not done", never an error.
package module

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

// signatureMarker is the fixed trailer the kernel's sign-file tool appends
// to a signed module.
const signatureMarker = "~Module signature appended~"

// maxModuleSize caps how much of an artifact is decompressed into memory
// when scanning for the signature trailer.
const maxModuleSize = 64 << 20

// Signed reports whether the module artifact at path carries a signature
// trailer. Compressed artifacts (.xz, .gz) are decompressed transparently
// into memory; the file on disk is never modified.
func Signed(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	switch {
	case strings.HasSuffix(path, ".xz"):
		reader, err = xz.NewReader(f)
		if err != nil {
			return false, fmt.Errorf("decompress %s: %w", path, err)
		}
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return false, fmt.Errorf("decompress %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	content, err := io.ReadAll(io.LimitReader(reader, maxModuleSize))
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	return bytes.Contains(content, []byte(signatureMarker)), nil
}
