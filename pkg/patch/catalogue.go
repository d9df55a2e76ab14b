package patch

import (
	"bytes"

	"github.com/rcraid-tools/rcraidctl/pkg/sysinfo"
)

const genhdInclude = "#include <linux/genhd.h>\n"

func contains(token string) func([]byte) bool {
	return func(content []byte) bool {
		return bytes.Contains(content, []byte(token))
	}
}

// rhel10 selects the 6.12-era patch set. The kernel series check catches
// machines whose release metadata was missing or unparseable and fell back
// to the default major version while actually running a RHEL 10 kernel.
func rhel10(env *sysinfo.Environment) bool {
	return env.MajorVersion >= 10 || env.KernelAtLeast("6.12")
}

func rhel9(env *sysinfo.Environment) bool { return !rhel10(env) }
func always(_ *sysinfo.Environment) bool  { return true }

// Catalogue returns the full ordered transformation set. Two mutually
// exclusive version-gated groups (the 5.14-era API surface of RHEL 9 vs the
// 6.12-era surface of RHEL 10) are followed by a version-independent group
// of build tooling fixes. Within rc_init.c the include fix is listed before
// the callback rename because both edit the same region of the file.
func Catalogue() []Transformation {
	var cat []Transformation
	cat = append(cat, rhel9Set()...)
	cat = append(cat, rhel10Set()...)
	cat = append(cat, commonSet()...)
	return cat
}

// rhel9Set targets the RHEL 9 kernels, which are nominally 5.14 but backport
// 6.x block and mm API changes behind RHEL_RELEASE_CODE.
func rhel9Set() []Transformation {
	return []Transformation{
		{
			ID:          "genhd-include-gate",
			Description: "guard the genhd.h include, removed in RHEL 9.6",
			File:        "rc_init.c",
			Applies:     rhel9,
			Applied:     contains("RHEL_RELEASE_VERSION(9, 6)"),
			Hunks: []Hunk{
				{
					Old: "#include <linux/blkdev.h>\n" +
						genhdInclude,
					New: "#include <linux/blkdev.h>\n" +
						"#if !defined(RHEL_RELEASE_CODE) || RHEL_RELEASE_CODE < RHEL_RELEASE_VERSION(9, 6)\n" +
						genhdInclude +
						"#endif\n",
				},
			},
			Fallback: []Substitution{
				{
					Anchor: genhdInclude,
					Replacement: "#if !defined(RHEL_RELEASE_CODE) || RHEL_RELEASE_CODE < RHEL_RELEASE_VERSION(9, 6)\n" +
						genhdInclude +
						"#endif\n",
				},
			},
		},
		{
			ID:          "vm-flags-gate",
			Description: "use vm_flags_set() on RHEL 9.4 and newer kernels",
			File:        "rc_mem.c",
			Applies:     rhel9,
			Applied:     contains("vm_flags_set"),
			Hunks: []Hunk{
				{
					Old: "\tvma->vm_ops = &rc_mmap_ops;\n" +
						"\tvma->vm_flags |= VM_IO | VM_DONTEXPAND | VM_DONTDUMP;\n",
					New: "\tvma->vm_ops = &rc_mmap_ops;\n" +
						"#if defined(RHEL_RELEASE_CODE) && RHEL_RELEASE_CODE >= RHEL_RELEASE_VERSION(9, 4)\n" +
						"\tvm_flags_set(vma, VM_IO | VM_DONTEXPAND | VM_DONTDUMP);\n" +
						"#else\n" +
						"\tvma->vm_flags |= VM_IO | VM_DONTEXPAND | VM_DONTDUMP;\n" +
						"#endif\n",
				},
			},
			Fallback: []Substitution{
				{
					Anchor: "\tvma->vm_flags |= VM_IO | VM_DONTEXPAND | VM_DONTDUMP;\n",
					Replacement: "#if defined(RHEL_RELEASE_CODE) && RHEL_RELEASE_CODE >= RHEL_RELEASE_VERSION(9, 4)\n" +
						"\tvm_flags_set(vma, VM_IO | VM_DONTEXPAND | VM_DONTDUMP);\n" +
						"#else\n" +
						"\tvma->vm_flags |= VM_IO | VM_DONTEXPAND | VM_DONTDUMP;\n" +
						"#endif\n",
				},
			},
		},
	}
}

// rhel10Set targets the RHEL 10 kernels (6.12 series): genhd.h is gone for
// good, the scsi host template callback was renamed and grew a queue_limits
// parameter, and vm_flags_set() is mandatory.
func rhel10Set() []Transformation {
	return []Transformation{
		{
			ID:          "genhd-include-drop",
			Description: "drop the genhd.h include, gone since kernel 5.18",
			File:        "rc_init.c",
			Applies:     rhel10,
			Applied: func(content []byte) bool {
				return !bytes.Contains(content, []byte(genhdInclude))
			},
			Hunks: []Hunk{
				{
					Old: "#include <linux/blkdev.h>\n" + genhdInclude,
					New: "#include <linux/blkdev.h>\n",
				},
			},
			Fallback: []Substitution{
				{Anchor: genhdInclude, Replacement: ""},
			},
		},
		{
			ID:          "sdev-configure-rename",
			Description: "rename slave_configure to sdev_configure with queue_limits",
			File:        "rc_init.c",
			Applies:     rhel10,
			Applied:     contains("rc_sdev_configure"),
			Hunks: []Hunk{
				{
					Old: "static int rc_slave_configure(struct scsi_device *sdev)\n{\n",
					New: "static int rc_sdev_configure(struct scsi_device *sdev, struct queue_limits *lim)\n{\n",
				},
				{
					Old: "\t.slave_configure\t\t= rc_slave_configure,\n",
					New: "\t.sdev_configure\t\t\t= rc_sdev_configure,\n",
				},
			},
			Fallback: []Substitution{
				{
					Anchor:      "rc_slave_configure(struct scsi_device *sdev)",
					Replacement: "rc_sdev_configure(struct scsi_device *sdev, struct queue_limits *lim)",
				},
				{
					Anchor:      ".slave_configure",
					Replacement: ".sdev_configure",
				},
				{
					Anchor:      "rc_slave_configure",
					Replacement: "rc_sdev_configure",
				},
			},
		},
		{
			ID:          "vm-flags-set",
			Description: "use vm_flags_set() for the mmap flags",
			File:        "rc_mem.c",
			Applies:     rhel10,
			Applied:     contains("vm_flags_set"),
			Hunks: []Hunk{
				{
					Old: "\tvma->vm_ops = &rc_mmap_ops;\n" +
						"\tvma->vm_flags |= VM_IO | VM_DONTEXPAND | VM_DONTDUMP;\n",
					New: "\tvma->vm_ops = &rc_mmap_ops;\n" +
						"\tvm_flags_set(vma, VM_IO | VM_DONTEXPAND | VM_DONTDUMP);\n",
				},
			},
			Fallback: []Substitution{
				{
					Anchor:      "vma->vm_flags |= VM_IO | VM_DONTEXPAND | VM_DONTDUMP;",
					Replacement: "vm_flags_set(vma, VM_IO | VM_DONTEXPAND | VM_DONTDUMP);",
				},
			},
		},
	}
}

// commonSet fixes the SDK's signing helper regardless of the distribution
// release: the sign-file binary moved between kernel packaging layouts, and
// kmod on enterprise linux expects xz-compressed modules.
func commonSet() []Transformation {
	return []Transformation{
		{
			ID:          "sign-file-probe",
			Description: "probe both sign-file locations instead of one hardcoded path",
			File:        "sign_driver.sh",
			Applies:     always,
			Applied:     contains("/usr/lib/modules/$(uname -r)/build/scripts/sign-file"),
			Hunks: []Hunk{
				{
					Old: "SIGN_FILE=/usr/src/kernels/$(uname -r)/scripts/sign-file\n",
					New: "SIGN_FILE=/usr/src/kernels/$(uname -r)/scripts/sign-file\n" +
						"if [ ! -x \"$SIGN_FILE\" ]; then\n" +
						"    SIGN_FILE=/usr/lib/modules/$(uname -r)/build/scripts/sign-file\n" +
						"fi\n",
				},
			},
			Fallback: []Substitution{
				{
					Anchor: "SIGN_FILE=/usr/src/kernels/$(uname -r)/scripts/sign-file",
					Replacement: "SIGN_FILE=/usr/src/kernels/$(uname -r)/scripts/sign-file\n" +
						"if [ ! -x \"$SIGN_FILE\" ]; then\n" +
						"    SIGN_FILE=/usr/lib/modules/$(uname -r)/build/scripts/sign-file\n" +
						"fi",
				},
			},
		},
		{
			ID:          "module-xz-output",
			Description: "compress the signed module with xz for kmod",
			File:        "sign_driver.sh",
			Applies:     always,
			Applied:     contains("xz -f rcraid.ko"),
			Hunks: []Hunk{
				{
					Old: "gzip -f rcraid.ko\n",
					New: "xz -f rcraid.ko\n",
				},
			},
			Fallback: []Substitution{
				{Anchor: "gzip -f rcraid.ko", Replacement: "xz -f rcraid.ko"},
			},
		},
	}
}
