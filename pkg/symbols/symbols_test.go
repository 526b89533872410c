package symbols

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/kronos/pkg/test"
	"github.com/outofforest/kronos/pkg/tool"
)

const nmOutput = `ffffffff80000000 T _start
ffffffff80000010 t cpu_init
ffffffff80000020 U external_symbol
ffffffff80000030 t .Ltmp0
ffffffff80001000 R rodata_global
ffffffff80001010 r rodata_local
ffffffff80002000 D data_global
ffffffff80002010 d data_local
ffffffff80003000 B bss_global
ffffffff80003010 b bss_local
`

func TestParseFilters(t *testing.T) {
	requireT := require.New(t)

	symbols, err := Parse(strings.NewReader(nmOutput))
	requireT.NoError(err)
	requireT.Equal([]Symbol{
		{Address: "ffffffff80000000", Name: "_start"},
		{Address: "ffffffff80000010", Name: "cpu_init"},
		{Address: "ffffffff80001000", Name: "rodata_global"},
		{Address: "ffffffff80001010", Name: "rodata_local"},
		{Address: "ffffffff80002000", Name: "data_global"},
		{Address: "ffffffff80002010", Name: "data_local"},
		{Address: "ffffffff80003000", Name: "bss_global"},
		{Address: "ffffffff80003010", Name: "bss_local"},
	}, symbols)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	requireT := require.New(t)

	symbols, err := Parse(strings.NewReader("ffffffff80000000 T _start\nffffffff80000008 T\n\nffffffff80000010 t next\n"))
	requireT.NoError(err)
	requireT.Equal([]Symbol{
		{Address: "ffffffff80000000", Name: "_start"},
		{Address: "ffffffff80000010", Name: "next"},
	}, symbols)
}

func TestWriteEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, nil))
	require.Equal(t, "\n", buf.String())
}

func TestWrite(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, []Symbol{
		{Address: "10", Name: "a"},
		{Address: "20", Name: "b"},
	}))
	require.Equal(t, "10 a\n20 b\n", buf.String())
}

func TestExtract(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	executor := test.NewExecutor()
	executor.Handle("nm", func(cmd tool.Command) error {
		_, err := cmd.Stdout.Write([]byte(nmOutput))
		return err
	})

	outPath := filepath.Join(t.TempDir(), "kronos.sym")
	requireT.NoError(Extract(ctx, executor, "bin/kronos.elf", outPath))

	commands := executor.Commands()
	requireT.Len(commands, 1)
	requireT.Equal([]string{"-n", "--defined-only", "bin/kronos.elf"}, commands[0].Args)

	content, err := os.ReadFile(outPath)
	requireT.NoError(err)
	requireT.Equal(`ffffffff80000000 _start
ffffffff80000010 cpu_init
ffffffff80001000 rodata_global
ffffffff80001010 rodata_local
ffffffff80002000 data_global
ffffffff80002010 data_local
ffffffff80003000 bss_global
ffffffff80003010 bss_local
`, string(content))
}

func TestExtractToolFailure(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	executor := test.NewExecutor()
	executor.Fail("nm", 1)

	outPath := filepath.Join(t.TempDir(), "kronos.sym")
	requireT.Error(Extract(ctx, executor, "bin/kronos.elf", outPath))
	requireT.NoFileExists(outPath)
}
