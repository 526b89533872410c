package kronos

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmulatorCommand(t *testing.T) {
	base := []string{"-M", "q35", "-cdrom", "image.iso", "-boot", "d", "-m", "2G"}

	tests := []struct {
		name string
		mode Mode
		args []string
	}{
		{
			name: "interactive",
			args: append(append([]string{}, base...), "-serial", "stdio"),
		},
		{
			name: "testing",
			mode: Mode{Testing: true},
			args: append(append([]string{}, base...), "-nographic", "-serial", "mon:stdio"),
		},
		{
			name: "debug",
			mode: Mode{Debug: true},
			args: append(append([]string{}, base...), "-s", "-S", "-serial", "stdio"),
		},
		{
			name: "debugTesting",
			mode: Mode{Testing: true, Debug: true},
			args: append(append([]string{}, base...), "-s", "-S", "-nographic", "-serial", "mon:stdio"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			requireT := require.New(t)

			cmd := emulatorCommand(DefaultConfig, tc.mode)
			requireT.Equal("qemu-system-x86_64", cmd.Name)
			requireT.Equal(tc.args, cmd.Args)
			requireT.NotNil(cmd.Stdin)
		})
	}
}

func TestEmulatorCommandUEFI(t *testing.T) {
	config := DefaultConfig
	config.Emulator.UEFI = true

	cmd := emulatorCommand(config, Mode{})
	require.Equal(t, []string{
		"-M", "q35", "-cdrom", "image.iso", "-boot", "d", "-m", "2G",
		"-bios", "ovmf/ovmf-code-x86_64.fd",
		"-serial", "stdio",
	}, cmd.Args)
}
