// Package repl implements the interactive read/eval/print shell and the
// file-watch re-run loop sitting on top of internal/vm: parse each line
// against a persistent interpreter, print its value the way console.log
// would, and surface thrown exceptions distinctly from a Go-level error.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"jsvm/internal/compiler"
	"jsvm/internal/logging"
	"jsvm/internal/parser"
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

const prompt = "> "

// promptStyle/errorStyle color the interactive loop's own chrome the way
// the teacher's chat UI colors its prompt and error lines with lipgloss;
// termenv's color-profile detection inside lipgloss already degrades to
// plain text when out isn't a real terminal, so piped/test output is
// unaffected.
var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
)

const bannerMarkdown = `# jsvm

Type an expression and press Enter. ` + "`.exit`" + ` or EOF (Ctrl-D) leaves the shell.
`

// Banner renders a short startup message as styled markdown, the same
// glamour.TermRenderer the teacher's chat UI uses for its own assistant
// output. Rendering failure (e.g. no terminal width could be detected)
// falls back to the raw markdown source rather than blocking startup.
func Banner() string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(78))
	if err != nil {
		return bannerMarkdown
	}
	out, err := r.Render(bannerMarkdown)
	if err != nil {
		return bannerMarkdown
	}
	return out
}

// Run drives an interactive loop reading statements from in and printing
// results/errors to out, sharing one interpreter (and therefore one heap)
// across every line, until in is exhausted.
func Run(interp *vm.Interpreter, in io.Reader, out io.Writer) error {
	log := logging.Get(logging.CategoryVM)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(out, promptStyle.Render(prompt))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			fmt.Fprint(out, promptStyle.Render(prompt))
			continue
		}
		v, err := Eval(interp, line, "<repl>")
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(formatErr(err)))
			log.Warn("repl eval error: %v", err)
		} else if !v.IsUndefined() {
			fmt.Fprintln(out, Inspect(v))
		}
		fmt.Fprint(out, promptStyle.Render(prompt))
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

// Eval parses and runs one chunk of source against interp, the same
// parse-compile-run pipeline cmd/jsvm uses for a whole file.
func Eval(interp *vm.Interpreter, src, name string) (value.Value, error) {
	prog, errs := parser.Parse(src)
	if len(errs) > 0 {
		return value.Undefined, fmt.Errorf("%s: syntax error: %w", name, errs[0])
	}
	chunk, cerrs := compiler.Compile(prog)
	if len(cerrs) > 0 {
		return value.Undefined, fmt.Errorf("%s: compile error: %w", name, cerrs[0])
	}
	return interp.Run(chunk)
}

// formatErr renders a thrown script exception the way a REPL transcript
// would (its stack, not Go's "%v" on the wrapping error), falling back to
// a plain Go error message for anything that isn't an *vm.Exception.
func formatErr(err error) string {
	exc, ok := err.(*vm.Exception)
	if !ok {
		return "Error: " + err.Error()
	}
	if len(exc.Stack) > 0 {
		return strings.Join(exc.Stack, "\n")
	}
	return "Uncaught " + exc.Val.ToString()
}

// Inspect renders v the way console.log would — repl and console share
// the same notion of "what a value looks like" so a pasted console.log
// call and the REPL's own auto-print never disagree.
func Inspect(v value.Value) string {
	if v.IsString() {
		return "'" + v.Str() + "'"
	}
	if v.IsBigInt() {
		return v.ToString() + "n"
	}
	return v.ToString()
}
