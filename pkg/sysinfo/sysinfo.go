// Package sysinfo inspects the running operating system and kernel and
// produces a normalized environment descriptor for the rest of the pipeline.
package sysinfo

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Family is a coarse distribution classification.
type Family string

const (
	// FamilyRHEL is Red Hat Enterprise Linux proper.
	FamilyRHEL Family = "rhel"
	// FamilyDerivative covers the enterprise linux rebuilds (Rocky, Alma, CentOS Stream, Oracle).
	FamilyDerivative Family = "derivative"
	// FamilyUnknown is anything else.
	FamilyUnknown Family = "unknown"
)

// DefaultMajorVersion is assumed when the release metadata is missing or
// malformed. The pipeline must always have a patch set to choose, and 9 is
// the conservative choice.
const DefaultMajorVersion = 9

// Environment describes the detected OS and kernel. It is computed once per
// run and never mutated.
type Environment struct {
	Family        Family
	MajorVersion  int
	KernelRelease string
	// KernelSeries is the leading major.minor of KernelRelease, e.g. "6.12".
	KernelSeries string
	// KernelSourceDir is the resolved kernel build tree, empty when no
	// candidate location exists.
	KernelSourceDir string
}

// String implements fmt.Stringer for log output.
func (e *Environment) String() string {
	return string(e.Family) + " " + strconv.Itoa(e.MajorVersion) + " (kernel " + e.KernelRelease + ")"
}

// KernelAtLeast reports whether the detected kernel series is at or above the
// given minimum, such as "4.18". Unparseable input counts as not reached.
func (e *Environment) KernelAtLeast(minimum string) bool {
	have, err := version.NewVersion(e.KernelSeries)
	if err != nil {
		return false
	}
	want, err := version.NewVersion(minimum)
	if err != nil {
		return false
	}
	return have.GreaterThanOrEqual(want)
}

// Detector performs the detection. The zero value probes the live system;
// tests point Root at a scratch tree and stub Uname.
type Detector struct {
	// Root is prepended to every probed path, "" for the real root.
	Root string
	// Uname returns the kernel release string. Defaults to uname(2).
	Uname func() (string, error)
}

// Detect builds the environment descriptor. It never fails: missing or
// malformed metadata falls back to conservative defaults with a logged
// warning.
func (d Detector) Detect() *Environment {
	env := &Environment{
		Family:       FamilyUnknown,
		MajorVersion: DefaultMajorVersion,
	}

	d.detectRelease(env)
	d.detectKernel(env)
	d.detectKernelSource(env)

	log.Debugf("detected environment: %s", env)
	return env
}

// detectRelease fills Family and MajorVersion from the release metadata,
// preferring os-release over the legacy redhat-release banner because it is
// the more specific source.
func (d Detector) detectRelease(env *Environment) {
	if fields, err := parseOSRelease(filepath.Join(d.Root, "/etc/os-release")); err == nil {
		env.Family = familyFromID(fields["ID"], fields["ID_LIKE"])
		if major, ok := leadingInt(fields["VERSION_ID"]); ok {
			env.MajorVersion = major
		} else {
			log.Warnf("could not parse VERSION_ID %q from os-release, assuming release %d", fields["VERSION_ID"], DefaultMajorVersion)
		}
		return
	}

	banner, err := os.ReadFile(filepath.Join(d.Root, "/etc/redhat-release"))
	if err != nil {
		log.Warnf("no usable os release metadata found, assuming enterprise linux %d", DefaultMajorVersion)
		return
	}

	text := string(banner)
	if strings.Contains(text, "Red Hat Enterprise Linux") {
		env.Family = FamilyRHEL
	} else {
		env.Family = FamilyDerivative
	}
	if idx := strings.Index(text, "release "); idx >= 0 {
		if major, ok := leadingInt(text[idx+len("release "):]); ok {
			env.MajorVersion = major
			return
		}
	}
	log.Warnf("could not parse release version from %q, assuming release %d", strings.TrimSpace(text), DefaultMajorVersion)
}

func (d Detector) detectKernel(env *Environment) {
	uname := d.Uname
	if uname == nil {
		uname = unameRelease
	}

	release, err := uname()
	if err != nil {
		log.Warnf("failed to read kernel release: %s", err)
		return
	}

	env.KernelRelease = release
	env.KernelSeries = kernelSeries(release)
}

// detectKernelSource probes the two kernel build tree naming conventions and
// records whichever exists. Both missing is not an error here; the build
// phase decides whether it can proceed.
func (d Detector) detectKernelSource(env *Environment) {
	if env.KernelRelease == "" {
		return
	}

	candidates := []string{
		filepath.Join(d.Root, "/usr/src/kernels", env.KernelRelease),
		filepath.Join(d.Root, "/usr/src/linux-headers-"+env.KernelRelease),
	}

	for _, dir := range candidates {
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			env.KernelSourceDir = dir
			return
		}
	}

	log.Debugf("no kernel source tree found for %s", env.KernelRelease)
}

func unameRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Release[:]), nil
}

// parseOSRelease reads the os-release KEY=VALUE format, unquoting values.
func parseOSRelease(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fields := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"'`)
		fields[key] = value
	}

	return fields, scanner.Err()
}

func familyFromID(id, idLike string) Family {
	if id == "rhel" {
		return FamilyRHEL
	}
	for _, like := range strings.Fields(idLike) {
		if like == "rhel" || like == "fedora" || like == "centos" {
			return FamilyDerivative
		}
	}
	switch id {
	case "rocky", "almalinux", "centos", "ol":
		return FamilyDerivative
	}
	return FamilyUnknown
}

// leadingInt extracts the integer prefix of a version-ish string ("9.6" -> 9).
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// kernelSeries returns the major.minor prefix of a kernel release string.
func kernelSeries(release string) string {
	parts := strings.SplitN(release, ".", 3)
	if len(parts) < 2 {
		return release
	}
	minor := parts[1]
	if idx := strings.IndexFunc(minor, func(r rune) bool { return r < '0' || r > '9' }); idx >= 0 {
		minor = minor[:idx]
	}
	return parts[0] + "." + minor
}
