// Package main implements the jsvm CLI: run a script, evaluate an
// expression, drop into a REPL, or manage snapshots, all layered over
// the interpreter in internal/vm.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"jsvm/internal/builtins"
	"jsvm/internal/bytecode"
	"jsvm/internal/capability"
	"jsvm/internal/compiler"
	"jsvm/internal/config"
	"jsvm/internal/eventloop"
	"jsvm/internal/logging"
	"jsvm/internal/parser"
	"jsvm/internal/repl"
	"jsvm/internal/snapshot"
	"jsvm/internal/vm"
)

// usageError marks a CLI-level syntax or usage problem — wrong argument
// count, a file that fails to parse or compile — distinct from a script
// that ran and threw. spec.md §6 exits 2 for these and 1 for everything
// else that reaches main (an uncaught exception or a denied capability,
// both surfaced as a *vm.Exception).
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exactArgs(n int, use string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return &usageError{fmt.Errorf("%s: expected %d argument(s), got %d", use, n, len(args))}
		}
		return nil
	}
}

func maxArgs(n int, use string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return &usageError{fmt.Errorf("%s: expected at most %d argument(s), got %d", use, n, len(args))}
		}
		return nil
	}
}

// exitCode maps a command error to spec.md §6's exit-code contract: 2 for
// a usageError (bad arguments, a file that failed to parse/compile), 1
// for anything that reached a running script (an uncaught exception or a
// denied capability — internal/capability's checks surface as a thrown
// PermissionDenied error, not a distinct Go error type) or any other
// failure (I/O, a bad snapshot).
func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return 2
	}
	var exc *vm.Exception
	if errors.As(err, &exc) {
		return 1
	}
	return 1
}

var (
	verbose     bool
	exprFlag    string
	cfgPath     string
	allowNet    bool
	allowFS     bool
	allowTimers bool

	logger *zap.Logger
	cfg    config.Config
)

var rootCmd = &cobra.Command{
	Use:   "jsvm [file]",
	Short: "jsvm runs a small JavaScript-subset bytecode VM",
	Args:  maxArgs(1, "jsvm"),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		cfg = config.Default()
		cfg, err = config.Load(cfg, cfgPath)
		if err != nil {
			return err
		}
		cfg.DebugMode = cfg.DebugMode || verbose
		cfg.Capability.AllowNetwork = cfg.Capability.AllowNetwork || allowNet
		cfg.Capability.AllowFS = cfg.Capability.AllowFS || allowFS
		cfg.Capability.AllowTimers = cfg.Capability.AllowTimers || allowTimers
		if err := cfg.Validate(); err != nil {
			return err
		}
		return logging.Init(cfg.LogDir, cfg.DebugMode, cfg.LogLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if exprFlag != "" {
			return runSource(exprFlag, "<expr>")
		}
		if len(args) == 0 {
			fmt.Fprint(os.Stdout, repl.Banner())
			return repl.Run(newInterpreter(), os.Stdin, os.Stdout)
		}
		src, err := os.ReadFile(args[0])
		if err != nil {
			return &usageError{err}
		}
		return runSource(string(src), args[0])
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "start an interactive read/eval/print shell",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stdout, repl.Banner())
		return repl.Run(newInterpreter(), os.Stdin, os.Stdout)
	},
}

var watchFlag bool

var debugCmd = &cobra.Command{
	Use:   "debug <file>",
	Short: "run a script with the trace-event stream enabled",
	Args:  exactArgs(1, "jsvm debug"),
	RunE: func(cmd *cobra.Command, args []string) error {
		tracedInterpreter := func() *vm.Interpreter {
			interp := newInterpreter()
			interp.Trace = func(ev vm.Event) {
				fmt.Fprintf(os.Stderr, "[trace] %s: %v\n", ev.Kind, ev.Data)
			}
			return interp
		}
		if watchFlag {
			return repl.Watch(cmd.Context(), args[0], tracedInterpreter, os.Stdout)
		}
		src, err := os.ReadFile(args[0])
		if err != nil {
			return &usageError{err}
		}
		return run(tracedInterpreter(), string(src), args[0])
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "parse and compile one or more files without running them",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return &usageError{fmt.Errorf("jsvm check: expected at least 1 argument, got 0")}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkFiles(args)
	},
}

// checkFiles parses and compiles each file concurrently — compilation has
// no shared interpreter state and no observable side effects, so unlike
// running a script it's safe to fan out across goroutines. The first
// failure's error is returned; every file is still checked so the log
// lines below report the full set of bad files, not just the first one.
func checkFiles(files []string) error {
	var g errgroup.Group
	for _, f := range files {
		f := f
		g.Go(func() error {
			src, err := os.ReadFile(f)
			if err != nil {
				return &usageError{err}
			}
			if _, err := compileSource(string(src), f); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			fmt.Printf("%s: ok\n", f)
			return nil
		})
	}
	return g.Wait()
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "save or load runtime snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save <name> <file>",
	Args:  exactArgs(2, "jsvm snapshot save"),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshot.Open(cfg.SnapshotDir + "/snapshots.db")
		if err != nil {
			return err
		}
		defer store.Close()
		src, err := os.ReadFile(args[1])
		if err != nil {
			return &usageError{err}
		}
		interp := newInterpreter()
		if err := run(interp, string(src), args[1]); err != nil {
			return err
		}
		globals := snapshotGlobals(interp)
		return store.Save(args[0], globals, map[string]string{})
	},
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Args:  exactArgs(1, "jsvm snapshot load"),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshot.Open(cfg.SnapshotDir + "/snapshots.db")
		if err != nil {
			return err
		}
		defer store.Close()
		var globals map[string]string
		var chunks map[string]string
		if err := store.Load(args[0], &globals, &chunks); err != nil {
			return err
		}
		fmt.Printf("restored snapshot %q with %d globals\n", args[0], len(globals))
		return nil
	},
}

func newInterpreter() *vm.Interpreter {
	interp := vm.NewInterpreter()
	interp.Capability = capability.Set{
		ReadPaths:  readGrant(),
		WritePaths: readGrant(),
		NetHosts:   netGrant(),
	}
	var loop *eventloop.Loop
	if cfg.Capability.AllowTimers {
		loop = eventloop.New(interp.DrainMicrotasks, interp.HasMicrotasks)
	}
	builtins.Install(interp, loop)
	return interp
}

func readGrant() capability.List {
	if cfg.Capability.AllowFS {
		return capability.AllowAll()
	}
	return capability.Deny()
}

func netGrant() capability.List {
	if cfg.Capability.AllowNetwork {
		return capability.AllowAll()
	}
	return capability.Deny()
}

func runSource(src, name string) error {
	return run(newInterpreter(), src, name)
}

func run(interp *vm.Interpreter, src, name string) error {
	prog, err := compileSource(src, name)
	if err != nil {
		return err
	}
	_, runErr := interp.Run(prog)
	return runErr
}

// compileSource runs the parse-compile pipeline and wraps any failure as a
// usageError: a syntax or compile error is a problem with the input, not
// with anything the running script did, so it exits 2 rather than 1.
func compileSource(src, name string) (*bytecode.Chunk, error) {
	prog, errs := parser.Parse(src)
	if len(errs) > 0 {
		return nil, &usageError{fmt.Errorf("%s: syntax error: %w", name, errs[0])}
	}
	chunk, cerrs := compiler.Compile(prog)
	if len(cerrs) > 0 {
		return nil, &usageError{fmt.Errorf("%s: compile error: %w", name, cerrs[0])}
	}
	return chunk, nil
}

// snapshotGlobals projects the interpreter's global object into a plain
// map suitable for JSON encoding; only string/number/boolean bindings
// round-trip (spec.md §6 resumes "at the beginning of script execution",
// so function/closure globals are expected to be re-declared by the
// script, not restored as live objects).
func snapshotGlobals(interp *vm.Interpreter) map[string]string {
	out := map[string]string{}
	for _, key := range interp.Globals.Keys() {
		if d, ok := interp.Globals.GetOwn(key); ok {
			out[key] = d.Value.ToString()
		}
	}
	return out
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a .jsvmrc.env or .jsvmrc.yaml file")
	rootCmd.PersistentFlags().BoolVar(&allowNet, "allow-net", false, "grant network capability for this run")
	rootCmd.PersistentFlags().BoolVar(&allowFS, "allow-fs", false, "grant filesystem capability for this run")
	rootCmd.PersistentFlags().BoolVar(&allowTimers, "allow-timers", true, "grant timer capability for this run")
	rootCmd.Flags().StringVarP(&exprFlag, "eval", "e", "", "evaluate an expression instead of a file")

	debugCmd.Flags().BoolVar(&watchFlag, "watch", false, "re-run the script whenever it changes on disk")

	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLoadCmd)
	rootCmd.AddCommand(replCmd, debugCmd, checkCmd, snapshotCmd)
}

func main() {
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
