package patch

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rcraid-tools/rcraidctl/pkg/sysinfo"
	log "github.com/sirupsen/logrus"
)

// TargetFiles is the fixed set of SDK files the engine knows how to patch.
var TargetFiles = []string{"rc_init.c", "rc_mem.c", "sign_driver.sh"}

// Outcome is the per-transformation result reported to the operator.
type Outcome string

const (
	// OutcomeApplied means the transformation modified the file in this run.
	OutcomeApplied Outcome = "applied"
	// OutcomeAlreadyApplied means detection held before applying.
	OutcomeAlreadyApplied Outcome = "already applied"
	// OutcomeFailed means the transformation could not be applied.
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome of one transformation on one target.
type Result struct {
	Transformation string
	Target         string
	Outcome        Outcome
	Err            error
}

// Report aggregates the per-transformation results of an engine run.
type Report struct {
	Results []Result
}

// Applied returns the number of transformations that modified a file.
func (r *Report) Applied() int {
	return r.count(OutcomeApplied)
}

// AlreadyApplied returns the number of transformations skipped as done.
func (r *Report) AlreadyApplied() int {
	return r.count(OutcomeAlreadyApplied)
}

// Failed returns the failed results.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err combines all failures into a single error, nil when everything
// succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

func (r *Report) count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Engine applies the transformation catalogue to the SDK source tree. It has
// no state of its own beyond the target backups on disk.
type Engine struct {
	targets         []Target
	transformations []Transformation
}

// NewEngine creates an engine for the SDK tree rooted at dir, using the
// built-in transformation catalogue and target set.
func NewEngine(dir string) *Engine {
	e := &Engine{transformations: Catalogue()}
	for _, name := range TargetFiles {
		e.targets = append(e.targets, Target{Path: filepath.Join(dir, name)})
	}
	return e
}

// Targets returns the engine's targets.
func (e *Engine) Targets() []Target {
	return e.targets
}

// Plan returns the transformations applicable in the given environment, in
// execution order: the version-gated set first, then the version-independent
// set. Order within a file matters because later detection predicates may
// scan for tokens introduced by earlier edits.
func (e *Engine) Plan(env *sysinfo.Environment) []Transformation {
	var plan []Transformation
	for _, tr := range e.transformations {
		if tr.Applies(env) {
			plan = append(plan, tr)
		}
	}
	return plan
}

// Apply runs every applicable transformation on every target. A failure
// aborts the remaining transformations of that target but other targets
// continue; already-successful edits are never rolled back here - the caller
// decides whether to Restore before retrying. The report carries the
// per-transformation outcomes, and report.Err() is non-nil when anything
// failed.
func (e *Engine) Apply(env *sysinfo.Environment) *Report {
	plan := e.Plan(env)
	report := &Report{}

	for _, t := range e.targets {
		e.applyTarget(t, plan, report)
	}

	return report
}

func (e *Engine) applyTarget(t Target, plan []Transformation, report *Report) {
	var relevant []Transformation
	for _, tr := range plan {
		if tr.File == t.Name() {
			relevant = append(relevant, tr)
		}
	}
	if len(relevant) == 0 {
		return
	}

	content, err := t.Read()
	if err != nil {
		log.Errorf("%s: %s", t.Name(), err)
		for _, tr := range relevant {
			report.Results = append(report.Results, Result{Transformation: tr.ID, Target: t.Path, Outcome: OutcomeFailed, Err: err})
		}
		return
	}

	// the backup candidate is the content as found on disk, not the
	// in-memory state after earlier transformations of this run
	original := content

	for i, tr := range relevant {
		if tr.Applied(content) {
			log.Debugf("%s: %s already applied", t.Name(), tr.ID)
			report.Results = append(report.Results, Result{Transformation: tr.ID, Target: t.Path, Outcome: OutcomeAlreadyApplied})
			continue
		}

		if err := t.EnsureBackup(original); err != nil {
			e.failRemaining(t, relevant[i:], err, report)
			return
		}

		updated, err := tr.Apply(content)
		if err != nil {
			terr := &TransformFailedError{ID: tr.ID, Path: t.Path, Err: err}
			log.Errorf("%s: %s", t.Name(), terr)
			e.failRemaining(t, relevant[i:], terr, report)
			return
		}

		if err := t.Write(updated); err != nil {
			e.failRemaining(t, relevant[i:], err, report)
			return
		}

		// detection is re-checked on what was written: a write that does
		// not satisfy its own detection is a transformation bug, not a
		// success
		if !tr.Applied(updated) {
			verr := &VerificationFailedError{ID: tr.ID, Path: t.Path}
			log.Errorf("%s: %s", t.Name(), verr)
			e.failRemaining(t, relevant[i:], verr, report)
			return
		}

		content = updated
		log.Infof("%s: applied %s", t.Name(), tr.ID)
		report.Results = append(report.Results, Result{Transformation: tr.ID, Target: t.Path, Outcome: OutcomeApplied})
	}
}

// failRemaining records the given error for the transformation at the head of
// rest and marks the remainder failed because their turn never came.
func (e *Engine) failRemaining(t Target, rest []Transformation, err error, report *Report) {
	for i, tr := range rest {
		resErr := err
		if i > 0 {
			resErr = fmt.Errorf("not attempted after %s failed", rest[0].ID)
		}
		report.Results = append(report.Results, Result{Transformation: tr.ID, Target: t.Path, Outcome: OutcomeFailed, Err: resErr})
	}
}

// AllApplied reports whether every applicable transformation's detection
// holds on the current content of every target. Unreadable targets count as
// not applied: absence of evidence means not done.
func (e *Engine) AllApplied(env *sysinfo.Environment) bool {
	return len(e.Pending(env)) == 0
}

// Pending returns the IDs of applicable transformations whose detection does
// not hold yet.
func (e *Engine) Pending(env *sysinfo.Environment) []string {
	var pending []string
	for _, t := range e.targets {
		content, err := t.Read()
		for _, tr := range e.Plan(env) {
			if tr.File != t.Name() {
				continue
			}
			if err != nil || !tr.Applied(content) {
				pending = append(pending, tr.ID)
			}
		}
	}
	return pending
}

// Restore copies every existing backup back over its target.
func (e *Engine) Restore() error {
	var errs []error
	for _, t := range e.targets {
		if err := t.Restore(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
