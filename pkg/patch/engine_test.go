package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcraid-tools/rcraidctl/pkg/sysinfo"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const rcInitBaseline = `#include <linux/version.h>
#include <linux/module.h>
#include <linux/blkdev.h>
#include <linux/genhd.h>
#include <scsi/scsi_host.h>

static int rc_slave_configure(struct scsi_device *sdev)
{
	scsi_change_queue_depth(sdev, 64);
	return 0;
}

static struct scsi_host_template driver_template = {
	.module			= THIS_MODULE,
	.name			= "rcraid",
	.slave_configure		= rc_slave_configure,
	.this_id			= -1,
};
`

const rcMemBaseline = `#include <linux/mm.h>

static int rc_mmap(struct file *fp, struct vm_area_struct *vma)
{
	vma->vm_ops = &rc_mmap_ops;
	vma->vm_flags |= VM_IO | VM_DONTEXPAND | VM_DONTDUMP;
	return 0;
}
`

const signBaseline = `#!/bin/bash
KVER=$(uname -r)
SIGN_FILE=/usr/src/kernels/$(uname -r)/scripts/sign-file
$SIGN_FILE sha256 "$KEY" "$CERT" rcraid.ko
gzip -f rcraid.ko
`

func sdkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rc_init.c"), []byte(rcInitBaseline), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rc_mem.c"), []byte(rcMemBaseline), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sign_driver.sh"), []byte(signBaseline), 0755))
	return dir
}

func readTarget(t *testing.T, dir, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(content)
}

func env9() *sysinfo.Environment {
	return &sysinfo.Environment{Family: sysinfo.FamilyRHEL, MajorVersion: 9, KernelRelease: "5.14.0-570.el9.x86_64", KernelSeries: "5.14"}
}

func env10() *sysinfo.Environment {
	return &sysinfo.Environment{Family: sysinfo.FamilyRHEL, MajorVersion: 10, KernelRelease: "6.12.0-55.el10.x86_64", KernelSeries: "6.12"}
}

func TestApplyRHEL9(t *testing.T) {
	dir := sdkDir(t)
	e := NewEngine(dir)

	report := e.Apply(env9())
	require.NoError(t, report.Err())
	require.Equal(t, 4, report.Applied())

	rcInit := readTarget(t, dir, "rc_init.c")
	require.Contains(t, rcInit, "RHEL_RELEASE_VERSION(9, 6)")
	require.Contains(t, rcInit, "#include <linux/genhd.h>")
	require.Contains(t, rcInit, "rc_slave_configure")
	require.NotContains(t, rcInit, "rc_sdev_configure")

	require.Contains(t, readTarget(t, dir, "rc_mem.c"), "vm_flags_set")
	require.Contains(t, readTarget(t, dir, "sign_driver.sh"), "xz -f rcraid.ko")

	require.True(t, e.AllApplied(env9()))
}

func TestApplyIsIdempotent(t *testing.T) {
	dir := sdkDir(t)
	e := NewEngine(dir)

	require.NoError(t, e.Apply(env9()).Err())
	first := readTarget(t, dir, "rc_init.c") + readTarget(t, dir, "rc_mem.c") + readTarget(t, dir, "sign_driver.sh")

	report := e.Apply(env9())
	require.NoError(t, report.Err())
	require.Zero(t, report.Applied())
	require.Equal(t, 4, report.AlreadyApplied())

	second := readTarget(t, dir, "rc_init.c") + readTarget(t, dir, "rc_mem.c") + readTarget(t, dir, "sign_driver.sh")
	require.Equal(t, first, second)
}

func TestApplyRHEL10(t *testing.T) {
	dir := sdkDir(t)
	e := NewEngine(dir)

	report := e.Apply(env10())
	require.NoError(t, report.Err())
	require.Equal(t, 5, report.Applied())

	rcInit := readTarget(t, dir, "rc_init.c")
	require.NotContains(t, rcInit, "genhd.h")
	require.Contains(t, rcInit, "rc_sdev_configure(struct scsi_device *sdev, struct queue_limits *lim)")
	require.Contains(t, rcInit, ".sdev_configure")
	require.NotContains(t, rcInit, "rc_slave_configure")
	require.NotContains(t, rcInit, ".slave_configure")

	require.Contains(t, readTarget(t, dir, "rc_mem.c"), "vm_flags_set")
	require.NotContains(t, readTarget(t, dir, "rc_mem.c"), "RHEL_RELEASE_CODE")
}

func TestVersionGating(t *testing.T) {
	e := NewEngine(t.TempDir())

	ids := func(env *sysinfo.Environment) []string {
		var out []string
		for _, tr := range e.Plan(env) {
			out = append(out, tr.ID)
		}
		return out
	}

	require.NotContains(t, ids(env9()), "sdev-configure-rename")
	require.NotContains(t, ids(env10()), "genhd-include-gate")
	require.Contains(t, ids(env9()), "sign-file-probe")
	require.Contains(t, ids(env10()), "sign-file-probe")

	// release metadata fell back to the default major version but the
	// running kernel is a 6.12 series: the kernel decides
	mixed := &sysinfo.Environment{Family: sysinfo.FamilyUnknown, MajorVersion: 9, KernelRelease: "6.12.0-55.el10.x86_64", KernelSeries: "6.12"}
	require.Contains(t, ids(mixed), "sdev-configure-rename")
	require.NotContains(t, ids(mixed), "genhd-include-gate")

	// a series-10 edit is not detected as applied on untouched series-9 content
	for _, tr := range Catalogue() {
		if tr.ID == "sdev-configure-rename" {
			require.False(t, tr.Applied([]byte(rcInitBaseline)))
		}
	}
}

func TestDetectionSoundness(t *testing.T) {
	baselines := map[string][]byte{
		"rc_init.c":      []byte(rcInitBaseline),
		"rc_mem.c":       []byte(rcMemBaseline),
		"sign_driver.sh": []byte(signBaseline),
	}

	for _, tr := range Catalogue() {
		tr := tr
		t.Run(tr.ID, func(t *testing.T) {
			out, err := tr.Apply(baselines[tr.File])
			require.NoError(t, err)
			require.True(t, tr.Applied(out), "detection must hold after apply")
		})
	}
}

func TestBackupInvariant(t *testing.T) {
	dir := sdkDir(t)
	e := NewEngine(dir)

	require.NoError(t, e.Apply(env9()).Err())
	require.NoError(t, e.Apply(env9()).Err())

	require.Equal(t, rcInitBaseline, readTarget(t, dir, "rc_init.c.orig"))
	require.Equal(t, rcMemBaseline, readTarget(t, dir, "rc_mem.c.orig"))
	require.Equal(t, signBaseline, readTarget(t, dir, "sign_driver.sh.orig"))
}

func TestBackupNeverOverwritten(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	dir := sdkDir(t)
	sentinel := "sentinel original content\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rc_init.c.orig"), []byte(sentinel), 0644))

	e := NewEngine(dir)
	require.NoError(t, e.Apply(env9()).Err())

	require.Equal(t, sentinel, readTarget(t, dir, "rc_init.c.orig"))

	// the divergent backup is surfaced to the operator
	warned := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.WarnLevel && strings.Contains(entry.Message, "already exists with different content") {
			warned = true
		}
	}
	require.True(t, warned, "a divergent pre-existing backup must be warned about")
}

func TestCleanRunDoesNotWarnAboutBackups(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	// both environments exercise targets with more than one transformation
	for _, env := range []*sysinfo.Environment{env9(), env10()} {
		dir := sdkDir(t)
		require.NoError(t, NewEngine(dir).Apply(env).Err())
	}

	for _, entry := range hook.AllEntries() {
		require.GreaterOrEqual(t, entry.Level, log.InfoLevel, "first run on pristine sources logged: %s", entry.Message)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	dir := sdkDir(t)
	e := NewEngine(dir)

	require.NoError(t, e.Apply(env10()).Err())
	patched := readTarget(t, dir, "rc_init.c")

	require.NoError(t, e.Restore())
	require.Equal(t, rcInitBaseline, readTarget(t, dir, "rc_init.c"))
	require.Equal(t, rcMemBaseline, readTarget(t, dir, "rc_mem.c"))

	require.NoError(t, e.Apply(env10()).Err())
	require.Equal(t, patched, readTarget(t, dir, "rc_init.c"))
}

func TestTransformFailedLeavesFileUntouched(t *testing.T) {
	dir := sdkDir(t)
	// simulate an SDK revision that dropped the substitution anchor entirely
	drifted := "#include <linux/mm.h>\n\nstatic int rc_mmap(struct file *fp, struct vm_area_struct *vma)\n{\n\treturn 0;\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rc_mem.c"), []byte(drifted), 0644))

	e := NewEngine(dir)
	report := e.Apply(env9())

	require.Error(t, report.Err())
	failed := report.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, "vm-flags-gate", failed[0].Transformation)

	var terr *TransformFailedError
	require.ErrorAs(t, failed[0].Err, &terr)
	require.Equal(t, "vm-flags-gate", terr.ID)

	require.Equal(t, drifted, readTarget(t, dir, "rc_mem.c"))
	// other targets were still processed
	require.Contains(t, readTarget(t, dir, "rc_init.c"), "RHEL_RELEASE_VERSION(9, 6)")
}

func TestTargetMissing(t *testing.T) {
	dir := sdkDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "sign_driver.sh")))

	e := NewEngine(dir)
	report := e.Apply(env9())

	require.Error(t, report.Err())
	require.Len(t, report.Failed(), 2)
	var merr *TargetMissingError
	require.ErrorAs(t, report.Failed()[0].Err, &merr)

	require.Contains(t, readTarget(t, dir, "rc_init.c"), "RHEL_RELEASE_VERSION(9, 6)")
}

func TestVerificationFailed(t *testing.T) {
	dir := sdkDir(t)
	bogus := Transformation{
		ID:      "bogus-marker",
		File:    "rc_init.c",
		Applies: always,
		// detection scans for a token the edit never introduces
		Applied:  contains("NEVER_WRITTEN"),
		Fallback: []Substitution{{Anchor: "THIS_MODULE", Replacement: "THIS_MODULE"}},
	}
	e := &Engine{
		targets:         []Target{{Path: filepath.Join(dir, "rc_init.c")}},
		transformations: []Transformation{bogus},
	}

	report := e.Apply(env9())
	require.Error(t, report.Err())
	var verr *VerificationFailedError
	require.ErrorAs(t, report.Failed()[0].Err, &verr)
	require.Equal(t, "bogus-marker", verr.ID)
}

func TestPending(t *testing.T) {
	dir := sdkDir(t)
	e := NewEngine(dir)

	require.Len(t, e.Pending(env9()), 4)
	require.NoError(t, e.Apply(env9()).Err())
	require.Empty(t, e.Pending(env9()))
}
