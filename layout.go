package kronos

import (
	"path/filepath"
	"strings"
)

// AssemblyModule is the assembly source compiled into its own object.
type AssemblyModule struct {
	Source string
	Object string
}

// AssemblyModules returns source and object paths for all the assembly modules.
func (c Config) AssemblyModules() []AssemblyModule {
	modules := make([]AssemblyModule, 0, len(c.Kernel.AssemblyModules))
	for _, name := range c.Kernel.AssemblyModules {
		modules = append(modules, AssemblyModule{
			Source: filepath.Join(c.Dirs.Kernel, name+".asm"),
			Object: filepath.Join(c.Dirs.Bin, ObjectName(c.Kernel.Tag, name)),
		})
	}
	return modules
}

// ObjectName derives name of the object file from the name of assembly module.
// Path separators are replaced by hyphens, e.g. cpu/cpu becomes <tag>-cpu-cpu.asm.o.
func ObjectName(tag, module string) string {
	module = strings.ReplaceAll(filepath.ToSlash(module), "/", "-")
	return tag + "-" + module + ".asm.o"
}

// KernelObjectPath returns path of the object produced by the compiler.
func (c Config) KernelObjectPath() string {
	return filepath.Join(c.Dirs.Bin, c.Output.KernelObject)
}

// LinkedPath returns path of the linked kernel binary.
func (c Config) LinkedPath() string {
	return filepath.Join(c.Dirs.Bin, c.Output.Linked)
}

// SymbolsPath returns path of the symbol map.
func (c Config) SymbolsPath() string {
	return filepath.Join(c.Dirs.Bin, c.Output.Symbols)
}

// LinkScriptPath returns path of the linker script.
func (c Config) LinkScriptPath() string {
	return filepath.Join(c.Dirs.Kernel, c.Kernel.LinkScript)
}

// StagedKernelPath returns path of the kernel inside the staging tree.
func (c Config) StagedKernelPath() string {
	return filepath.Join(c.Dirs.ISORoot, c.Staging.KernelPath)
}

// FirmwarePath returns path of the cached firmware blob.
func (c Config) FirmwarePath() string {
	return filepath.Join(c.Dirs.Firmware, c.Firmware.File)
}
