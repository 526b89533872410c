package kronos

// Config is the configuration of image builder.
type Config struct {
	Dirs     DirsConfig     `yaml:"dirs"`
	Output   OutputConfig   `yaml:"output"`
	Tools    ToolsConfig    `yaml:"tools"`
	Kernel   KernelConfig   `yaml:"kernel"`
	Staging  StagingConfig  `yaml:"staging"`
	Image    ImageConfig    `yaml:"image"`
	Firmware FirmwareConfig `yaml:"firmware"`
	Emulator EmulatorConfig `yaml:"emulator"`
}

// DirsConfig stores paths to directories used by the build.
type DirsConfig struct {
	Bin        string `yaml:"bin"`
	ISORoot    string `yaml:"isoRoot"`
	Kernel     string `yaml:"kernel"`
	Bootloader string `yaml:"bootloader"`
	Firmware   string `yaml:"firmware"`
	Resources  string `yaml:"resources"`
}

// OutputConfig stores names of produced artifacts.
type OutputConfig struct {
	// KernelObject is passed to the compiler which appends the object extension.
	KernelObject string `yaml:"kernelObject"`
	Linked       string `yaml:"linked"`
	Symbols      string `yaml:"symbols"`
	Image        string `yaml:"image"`
}

// ToolsConfig stores fixed argument lists of external tools.
type ToolsConfig struct {
	Compiler  []string `yaml:"compiler"`
	Assembler []string `yaml:"assembler"`
	Linker    []string `yaml:"linker"`
	Mastering []string `yaml:"mastering"`
}

// KernelConfig describes kernel sources.
type KernelConfig struct {
	// Tag prefixes names of assembled objects.
	Tag             string   `yaml:"tag"`
	TestingDefine   string   `yaml:"testingDefine"`
	RuntimeEnvVar   string   `yaml:"runtimeEnvVar"`
	RuntimeDir      string   `yaml:"runtimeDir"`
	LinkScript      string   `yaml:"linkScript"`
	AssemblyModules []string `yaml:"assemblyModules"`
}

// StagingConfig describes the layout of the image filesystem.
type StagingConfig struct {
	KernelPath string     `yaml:"kernelPath"`
	Dirs       []string   `yaml:"dirs"`
	Copies     []FileCopy `yaml:"copies"`
}

// FileCopy is an optional file copied into the staging tree.
type FileCopy struct {
	// Source is relative to the project root.
	Source string `yaml:"source"`

	// Destination is the directory inside the staging tree.
	Destination string `yaml:"destination"`
}

// ImageConfig configures verification of mastered image.
type ImageConfig struct {
	Verify bool `yaml:"verify"`
}

// FirmwareConfig describes UEFI firmware downloaded for the emulator.
type FirmwareConfig struct {
	URL  string `yaml:"url"`
	File string `yaml:"file"`

	// Hash is optional checksum in "sha256:<hex>" form.
	Hash string `yaml:"hash"`
}

// EmulatorConfig configures the emulator.
type EmulatorConfig struct {
	Binary  string `yaml:"binary"`
	Machine string `yaml:"machine"`
	Memory  string `yaml:"memory"`

	// UEFI boots the image using downloaded firmware.
	UEFI bool `yaml:"uefi"`
}

// Mode is the build mode selected at invocation.
type Mode struct {
	Testing bool
	Debug   bool
}
