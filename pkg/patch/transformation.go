package patch

import (
	"bytes"
	"fmt"

	"github.com/rcraid-tools/rcraidctl/pkg/sysinfo"
)

// Hunk is a structural, content-anchored edit: a block of lines (including
// surrounding context) that must occur exactly once in the file and is
// replaced as a whole. Line numbers are never trusted; only content is.
type Hunk struct {
	Old string
	New string
}

// Substitution is the fallback strategy for content that has drifted from
// the expected baseline: a narrower anchor replaced wherever it occurs. It is
// scoped to the exact lines the transformation is about.
type Substitution struct {
	Anchor      string
	Replacement string
}

// Transformation is one named, idempotent, version-gated textual edit applied
// to a single target file.
type Transformation struct {
	// ID is the stable identifier reported to the operator.
	ID string
	// Description is a one-line summary for status output.
	Description string
	// File is the base name of the target this edit applies to.
	File string
	// Applies decides from the environment whether this edit is wanted at all.
	Applies func(env *sysinfo.Environment) bool
	// Applied inspects current content and reports whether the edit already
	// ran. Must hold on the output of a successful Apply.
	Applied func(content []byte) bool
	// Hunks is the preferred structural edit.
	Hunks []Hunk
	// Fallback is tried when the hunks no longer match the content.
	Fallback []Substitution
}

// Apply transforms the content, preferring the structural hunks and falling
// back to the targeted substitutions. Both strategies are all-or-nothing: on
// failure the input content is returned unchanged along with the error.
func (tr *Transformation) Apply(content []byte) ([]byte, error) {
	out, hunkErr := applyHunks(content, tr.Hunks)
	if hunkErr == nil {
		return out, nil
	}

	out, subErr := applySubstitutions(content, tr.Fallback)
	if subErr == nil {
		return out, nil
	}

	return content, fmt.Errorf("hunks did not match (%s) and fallback substitution did not match (%s)", hunkErr, subErr)
}

func applyHunks(content []byte, hunks []Hunk) ([]byte, error) {
	if len(hunks) == 0 {
		return nil, fmt.Errorf("no hunks defined")
	}

	out := content
	for i, h := range hunks {
		old := []byte(h.Old)
		switch n := bytes.Count(out, old); n {
		case 1:
			out = bytes.Replace(out, old, []byte(h.New), 1)
		case 0:
			return nil, fmt.Errorf("hunk %d: anchor block not found", i+1)
		default:
			return nil, fmt.Errorf("hunk %d: anchor block is ambiguous (%d occurrences)", i+1, n)
		}
	}
	return out, nil
}

func applySubstitutions(content []byte, subs []Substitution) ([]byte, error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("no fallback defined")
	}

	out := content
	for i, s := range subs {
		anchor := []byte(s.Anchor)
		if !bytes.Contains(out, anchor) {
			return nil, fmt.Errorf("substitution %d: anchor not found", i+1)
		}
		out = bytes.ReplaceAll(out, anchor, []byte(s.Replacement))
	}
	return out, nil
}
