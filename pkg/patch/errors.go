package patch

import "fmt"

// TargetMissingError is returned when an expected SDK source file is absent.
// It is fatal for that target only; other targets continue.
type TargetMissingError struct {
	Path string
}

func (e *TargetMissingError) Error() string {
	return fmt.Sprintf("target file %s does not exist", e.Path)
}

// TransformFailedError is returned when neither the structural hunks nor the
// fallback substitutions of a transformation matched the current content.
// The file is left untouched.
type TransformFailedError struct {
	ID   string
	Path string
	Err  error
}

func (e *TransformFailedError) Error() string {
	return fmt.Sprintf("transformation %s failed on %s: %s", e.ID, e.Path, e.Err)
}

func (e *TransformFailedError) Unwrap() error {
	return e.Err
}

// VerificationFailedError is returned when a transformation's detection
// predicate still reports unapplied after a nominally successful write. It
// signals a bug in the transformation definition or an unexpected upstream
// source change and must never be ignored.
type VerificationFailedError struct {
	ID   string
	Path string
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("transformation %s wrote %s but its detection still reports unapplied", e.ID, e.Path)
}
