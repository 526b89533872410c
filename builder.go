package kronos

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/outofforest/kronos/pkg/image"
	"github.com/outofforest/kronos/pkg/symbols"
	"github.com/outofforest/kronos/pkg/tool"
	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
)

// NewBuilder creates image builder.
func NewBuilder(config Config, mode Mode, executor tool.Executor) *Builder {
	return &Builder{
		config:   config,
		mode:     mode,
		executor: executor,
	}
}

// Builder runs the build pipeline.
// Every step reruns its tools, nothing is cached except the firmware.
type Builder struct {
	config   Config
	mode     Mode
	executor tool.Executor
}

// Clean removes all the artifacts from output directory.
func (b *Builder) Clean(ctx context.Context) error {
	logger.Get(ctx).Info("==> Cleaning old kernel")

	if err := os.RemoveAll(b.config.Dirs.Bin); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.MkdirAll(b.config.Dirs.Bin, 0o700))
}

// BuildKernel compiles, assembles and links the kernel, then generates its symbol map.
// It returns path to the linked binary.
func (b *Builder) BuildKernel(ctx context.Context) (string, error) {
	env, err := b.setupEnvironment(ctx)
	if err != nil {
		return "", err
	}
	if err := b.compileKernel(ctx, env); err != nil {
		return "", err
	}
	if err := b.assembleModules(ctx); err != nil {
		return "", err
	}
	linkedPath, err := b.link(ctx)
	if err != nil {
		return "", err
	}
	if err := b.extractSymbols(ctx, linkedPath); err != nil {
		return "", err
	}
	return linkedPath, nil
}

// Build runs the full pipeline producing bootable image.
func (b *Builder) Build(ctx context.Context) error {
	linkedPath, err := b.BuildKernel(ctx)
	if err != nil {
		return err
	}
	if err := b.buildBootloader(ctx); err != nil {
		return err
	}
	stagingDir, err := b.assembleStagingTree(ctx, linkedPath)
	if err != nil {
		return err
	}
	imagePath, err := b.masterImage(ctx, stagingDir)
	if err != nil {
		return err
	}
	if err := b.verifyImage(ctx, imagePath); err != nil {
		return err
	}
	if err := fetchFirmware(ctx, b.config.Firmware, b.config.FirmwarePath()); err != nil {
		return err
	}

	logger.Get(ctx).Info("Build complete! Use 'run' action to start UEFI", zap.String("image", imagePath))
	return nil
}

// Run builds the image if it does not exist and boots it in the emulator.
func (b *Builder) Run(ctx context.Context) error {
	_, err := os.Stat(b.config.Output.Image)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		logger.Get(ctx).Info("No image found, building first", zap.String("image", b.config.Output.Image))
		if err := b.Clean(ctx); err != nil {
			return err
		}
		if err := b.Build(ctx); err != nil {
			return err
		}
	default:
		return errors.WithStack(err)
	}

	return runEmulator(ctx, b.executor, b.config, b.mode)
}

// setupEnvironment returns environment the compiler needs to find its runtime sources.
func (b *Builder) setupEnvironment(ctx context.Context) ([]string, error) {
	logger.Get(ctx).Info("==> Setting up environment")

	runtimeRoot, err := filepath.Abs(filepath.Join(b.config.Dirs.Kernel, b.config.Kernel.RuntimeDir))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	env := b.config.Kernel.RuntimeEnvVar + "=" + runtimeRoot
	logger.Get(ctx).Info("* export " + env)
	return []string{env}, nil
}

func (b *Builder) compileKernel(ctx context.Context, env []string) error {
	logger.Get(ctx).Info("==> Building kernel")

	return b.executor.Run(ctx, tool.Command{
		Name: "odin",
		Args: append([]string{
			"build", b.config.Dirs.Kernel,
			"-out:" + b.config.KernelObjectPath(),
			"-define:" + b.config.Kernel.TestingDefine + "=" + strconv.FormatBool(b.mode.Testing),
		}, b.config.Tools.Compiler...),
		Env: env,
	})
}

// assembleModules assembles modules concurrently, the first failure cancels the others.
func (b *Builder) assembleModules(ctx context.Context) error {
	logger.Get(ctx).Info("==> Building assembly files")

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for _, m := range b.config.AssemblyModules() {
			spawn(filepath.Base(m.Object), parallel.Continue, func(ctx context.Context) error {
				return b.executor.Run(ctx, tool.Command{
					Name: "nasm",
					Args: append([]string{m.Source, "-o", m.Object}, b.config.Tools.Assembler...),
				})
			})
		}
		return nil
	})
}

func (b *Builder) link(ctx context.Context) (string, error) {
	logger.Get(ctx).Info("==> Linking kernel")

	objects, err := objectFiles(b.config.Dirs.Bin)
	if err != nil {
		return "", err
	}
	if len(objects) == 0 {
		return "", errors.Errorf("no object files found in %q", b.config.Dirs.Bin)
	}

	linkedPath := b.config.LinkedPath()
	args := append(objects, "-o", linkedPath, "-T", b.config.LinkScriptPath())
	if err := b.executor.Run(ctx, tool.Command{
		Name: "ld",
		Args: append(args, b.config.Tools.Linker...),
	}); err != nil {
		return "", err
	}
	return linkedPath, nil
}

func (b *Builder) extractSymbols(ctx context.Context, linkedPath string) error {
	logger.Get(ctx).Info("==> Generating symbols")

	return symbols.Extract(ctx, b.executor, linkedPath, b.config.SymbolsPath())
}

func (b *Builder) buildBootloader(ctx context.Context) error {
	logger.Get(ctx).Info("==> Building bootloader")

	return b.executor.Run(ctx, tool.Command{
		Name: "make",
		Args: []string{"-C", b.config.Dirs.Bootloader},
	})
}

func (b *Builder) assembleStagingTree(ctx context.Context, linkedPath string) (string, error) {
	log := logger.Get(ctx)
	log.Info("==> Creating ISO root")

	stagingDir := b.config.Dirs.ISORoot
	if err := os.RemoveAll(stagingDir); err != nil {
		return "", errors.WithStack(err)
	}
	for _, dir := range b.config.Staging.Dirs {
		if err := os.MkdirAll(filepath.Join(stagingDir, dir), 0o700); err != nil {
			return "", errors.WithStack(err)
		}
	}

	if err := copyFile(linkedPath, b.config.StagedKernelPath()); err != nil {
		return "", err
	}

	for _, c := range b.config.Staging.Copies {
		copied, err := copyIfExists(c.Source, filepath.Join(stagingDir, c.Destination, filepath.Base(c.Source)))
		if err != nil {
			return "", err
		}
		if !copied {
			log.Debug("Optional file skipped", zap.String("path", c.Source))
		}
	}
	return stagingDir, nil
}

func (b *Builder) masterImage(ctx context.Context, stagingDir string) (string, error) {
	logger.Get(ctx).Info("==> Creating ISO")

	imagePath := b.config.Output.Image
	if err := b.executor.Run(ctx, tool.Command{
		Name: "xorriso",
		Args: append(append([]string{}, b.config.Tools.Mastering...), stagingDir, "-o", imagePath),
	}); err != nil {
		return "", err
	}
	return imagePath, nil
}

func (b *Builder) verifyImage(ctx context.Context, imagePath string) error {
	if !b.config.Image.Verify {
		return nil
	}

	logger.Get(ctx).Info("==> Verifying ISO")
	return image.Verify(imagePath, b.config.Staging.KernelPath)
}

// objectFiles lists object files in the directory, sorted by name.
func objectFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	objects := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".o") {
			return "", false
		}
		return filepath.Join(dir, e.Name()), true
	})
	sort.Strings(objects)
	return objects, nil
}

func copyIfExists(src, dst string) (bool, error) {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	return true, copyFile(src, dst)
}

func copyFile(src, dst string) error {
	srcF, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer srcF.Close()

	info, err := srcF.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return errors.WithStack(err)
	}
	dstF, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.WithStack(err)
	}
	defer dstF.Close()

	if _, err := io.Copy(dstF, srcF); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(dstF.Close())
}
