package symbols

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/kronos/pkg/tool"
	"github.com/outofforest/logger"
)

// keptTypes are nm type characters for code, data, read-only data and BSS, local and global.
const keptTypes = "tTdDbBrR"

// localPrefix marks local labels skipped in the map.
const localPrefix = "."

// Symbol is a named address.
type Symbol struct {
	Address string
	Name    string
}

// Extract dumps symbols of the binary using nm and stores the simplified map in outPath.
func Extract(ctx context.Context, executor tool.Executor, binaryPath, outPath string) error {
	buf := &bytes.Buffer{}
	if err := executor.Run(ctx, tool.Command{
		Name:   "nm",
		Args:   []string{"-n", "--defined-only", binaryPath},
		Stdout: buf,
		Silent: true,
	}); err != nil {
		return err
	}

	symbols, err := Parse(buf)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := Write(f, symbols); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.WithStack(err)
	}

	logger.Get(ctx).Info("Symbols generated", zap.String("path", outPath), zap.Int("count", len(symbols)))
	return nil
}

// Parse reads nm output and returns the symbols worth keeping, in input order.
// Lines with fewer than three fields are ignored.
func Parse(r io.Reader) ([]Symbol, error) {
	symbols := []Symbol{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}

		addr, symType, name := fields[0], fields[1], fields[2]
		if len(symType) != 1 || !strings.Contains(keptTypes, symType) || strings.HasPrefix(name, localPrefix) {
			continue
		}
		symbols = append(symbols, Symbol{Address: addr, Name: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return symbols, nil
}

// Write stores symbols as "address name" lines.
// Output always ends with a newline, so empty table is a single "\n".
func Write(w io.Writer, symbols []Symbol) error {
	lines := make([]string, 0, len(symbols))
	for _, s := range symbols {
		lines = append(lines, s.Address+" "+s.Name)
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return errors.WithStack(err)
}
