package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"jsvm/internal/logging"
	"jsvm/internal/vm"
)

// debounceWindow batches the handful of write events one save produces
// into a single re-run, the same window the teacher's file watcher uses
// for its own rapid-save debouncing.
const debounceWindow = 300 * time.Millisecond

// Watch re-runs path against a fresh interpreter (built by newInterp)
// every time it changes on disk, writing each run's output to out, until
// ctx is canceled. It never returns on a run error — a syntax mistake in
// the saved file is reported and watching continues.
func Watch(ctx context.Context, path string, newInterp func() *vm.Interpreter, out io.Writer) error {
	log := logging.Get(logging.CategoryVM)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("repl: starting watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return fmt.Errorf("repl: watching %s: %w", path, err)
	}

	runNow := func() {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "watch: %v\n", err)
			return
		}
		interp := newInterp()
		v, err := Eval(interp, string(src), path)
		if err != nil {
			fmt.Fprintln(out, formatErr(err))
			return
		}
		if !v.IsUndefined() {
			fmt.Fprintln(out, Inspect(v))
		}
	}

	fmt.Fprintf(out, "watching %s, press ctrl-c to stop\n", path)
	runNow()

	var pending bool
	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug("watch: %s event for %s", ev.Op, ev.Name)
			pending = true
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(debounceWindow)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "watch error: %v\n", err)
		case <-debounce.C:
			if pending {
				pending = false
				fmt.Fprintln(out, strings.Repeat("-", 40))
				runNow()
			}
		}
	}
}
