package kronos

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfig is the configuration of the Kronos build.
var DefaultConfig = Config{
	Dirs: DirsConfig{
		Bin:        "bin",
		ISORoot:    "iso_root",
		Kernel:     "kernel",
		Bootloader: "limine",
		Firmware:   "ovmf",
		Resources:  "res",
	},
	Output: OutputConfig{
		KernelObject: "kernel",
		Linked:       "kronos.elf",
		Symbols:      "kronos.sym",
		Image:        "image.iso",
	},
	Tools: ToolsConfig{
		Compiler: []string{
			"-debug",
			"-collection:kernel=kernel",
			"-build-mode:obj",
			"-target:freestanding_amd64_sysv",
			"-no-crt",
			"-no-thread-local",
			"-no-entry-point",
			"-reloc-mode:pic",
			"-disable-red-zone",
			"-default-to-nil-allocator",
			"-vet",
			"-print-linker-flags",
			"-strict-style",
		},
		Assembler: []string{"-f", "elf64", "-g"},
		Linker: []string{
			"-m", "elf_x86_64",
			"-nostdlib",
			"-static",
			"-pie",
			"--no-dynamic-linker",
			"-z", "text",
			"-z", "max-page-size=0x1000",
		},
		Mastering: []string{
			"-as", "mkisofs",
			"-R", "-r", "-J",
			"-b", "boot/limine/limine-bios-cd.bin",
			"-no-emul-boot",
			"-boot-load-size", "4",
			"-boot-info-table",
			"-hfsplus",
			"-apm-block-size", "2048",
			"--efi-boot", "boot/limine/limine-uefi-cd.bin",
			"-efi-boot-part",
			"--efi-boot-image",
			"--protective-msdos-label",
		},
	},
	Kernel: KernelConfig{
		Tag:           "kronos",
		TestingDefine: "KRONOS_TESTING",
		RuntimeEnvVar: "ODIN_ROOT",
		RuntimeDir:    "odin-rt",
		LinkScript:    "link.ld",
		AssemblyModules: []string{
			"entry_point",
			"cpu/cpu",
			"serial/serial",
			"idt/idt",
			"paging/paging",
		},
	},
	Staging: StagingConfig{
		KernelPath: "boot/kronos",
		Dirs: []string{
			"boot/limine",
			"EFI/BOOT",
		},
		Copies: []FileCopy{
			{Source: "res/limine.conf", Destination: "boot/limine"},
			{Source: "limine/limine-bios.sys", Destination: "boot/limine"},
			{Source: "limine/limine-bios-cd.bin", Destination: "boot/limine"},
			{Source: "limine/limine-uefi-cd.bin", Destination: "boot/limine"},
			{Source: "limine/BOOTX64.EFI", Destination: "EFI/BOOT"},
			{Source: "limine/BOOTIA32.EFI", Destination: "EFI/BOOT"},
		},
	},
	Image: ImageConfig{
		Verify: true,
	},
	Firmware: FirmwareConfig{
		URL:  "https://github.com/osdev0/edk2-ovmf-nightly/releases/latest/download/ovmf-code-x86_64.fd",
		File: "ovmf-code-x86_64.fd",
	},
	Emulator: EmulatorConfig{
		Binary:  "qemu-system-x86_64",
		Machine: "q35",
		Memory:  "2G",
	},
}

// LoadConfig returns default config overridden by values from the YAML file.
// Missing file is not an error.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig
	config.Tools.Compiler = append([]string{}, DefaultConfig.Tools.Compiler...)
	config.Tools.Assembler = append([]string{}, DefaultConfig.Tools.Assembler...)
	config.Tools.Linker = append([]string{}, DefaultConfig.Tools.Linker...)
	config.Tools.Mastering = append([]string{}, DefaultConfig.Tools.Mastering...)
	config.Kernel.AssemblyModules = append([]string{}, DefaultConfig.Kernel.AssemblyModules...)
	config.Staging.Dirs = append([]string{}, DefaultConfig.Staging.Dirs...)
	config.Staging.Copies = append([]FileCopy{}, DefaultConfig.Staging.Copies...)

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		return config, nil
	default:
		return Config{}, errors.WithStack(err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config file %q failed", path)
	}
	return config, nil
}
