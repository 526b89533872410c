package kronos

import (
	"context"
	"os"

	"github.com/outofforest/kronos/pkg/tool"
	"github.com/outofforest/logger"
)

func emulatorCommand(config Config, mode Mode) tool.Command {
	args := []string{
		"-M", config.Emulator.Machine,
		"-cdrom", config.Output.Image,
		"-boot", "d",
		"-m", config.Emulator.Memory,
	}

	if config.Emulator.UEFI {
		args = append(args, "-bios", config.FirmwarePath())
	}

	if mode.Debug {
		// Freeze CPU at startup and wait for gdb on tcp::1234.
		args = append(args, "-s", "-S")
	}

	if mode.Testing {
		args = append(args, "-nographic", "-serial", "mon:stdio")
	} else {
		args = append(args, "-serial", "stdio")
	}

	return tool.Command{
		Name:  config.Emulator.Binary,
		Args:  args,
		Stdin: os.Stdin,
	}
}

func runEmulator(ctx context.Context, executor tool.Executor, config Config, mode Mode) error {
	logger.Get(ctx).Info("==> Running emulator")
	return executor.Run(ctx, emulatorCommand(config, mode))
}
