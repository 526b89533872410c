package kronos

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/outofforest/kronos/pkg/tool"
	"github.com/outofforest/logger"
	"github.com/outofforest/run"
)

// Actions supported by the command line.
const (
	ActionClean = "clean"
	ActionBuild = "build"
	ActionRun   = "run"
)

// Args are the parsed command line arguments.
type Args struct {
	Action     string
	Mode       Mode
	KernelOnly bool
	ConfigFile string
}

// ParseArgs parses command line arguments.
func ParseArgs(args []string) (Args, error) {
	var a Args
	flags := pflag.NewFlagSet("kronos", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Kronos OS build system\n\nUsage: kronos {%s,%s,%s} [flags]\n", ActionBuild, ActionClean,
			ActionRun)
		flags.PrintDefaults()
	}
	flags.BoolVar(&a.Mode.Testing, "test", false, "Enable testing mode")
	flags.BoolVar(&a.KernelOnly, "kernel-only", false, "Build only kernel components")
	flags.BoolVar(&a.Mode.Debug, "debug", false, "Run QEMU with debug flags (-s -S)")
	flags.StringVar(&a.ConfigFile, "config", "kronos.yaml", "Path to config file overriding defaults")

	if err := flags.Parse(args); err != nil {
		return Args{}, errors.WithStack(err)
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return Args{}, errors.Errorf("exactly one action is required, got %d", flags.NArg())
	}
	a.Action = flags.Arg(0)
	switch a.Action {
	case ActionClean, ActionBuild, ActionRun:
	default:
		flags.Usage()
		return Args{}, errors.Errorf("unknown action %q", a.Action)
	}

	return a, nil
}

// Main is the entrypoint of the build system.
func Main() {
	run.New().Run(context.Background(), "kronos", func(ctx context.Context) error {
		args, err := ParseArgs(os.Args[1:])
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		if err != nil {
			return err
		}

		config, err := LoadConfig(args.ConfigFile)
		if err != nil {
			return err
		}

		return outcome(ctx, Execute(ctx, NewBuilder(config, args.Mode, tool.New()), args))
	})
}

// ErrInterrupted is returned when the build is interrupted by a signal.
var ErrInterrupted = errors.New("interrupted")

// outcome maps result of the action to the error returned to the runner.
// Cancellation is reported as ErrInterrupted, runner exits with zero status on context.Canceled.
func outcome(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		logger.Get(ctx).Error("Interrupted")
		return ErrInterrupted
	}
	return err
}

// Execute performs the action.
func Execute(ctx context.Context, builder *Builder, args Args) error {
	switch args.Action {
	case ActionClean:
		return builder.Clean(ctx)
	case ActionBuild:
		if err := builder.Clean(ctx); err != nil {
			return err
		}
		if args.KernelOnly {
			_, err := builder.BuildKernel(ctx)
			return err
		}
		return builder.Build(ctx)
	case ActionRun:
		return builder.Run(ctx)
	default:
		return errors.Errorf("unknown action %q", args.Action)
	}
}
