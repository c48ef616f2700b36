package interp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/philipwilsonTHG/psh-sub003/syntax"
	"github.com/philipwilsonTHG/psh-sub003/token"
)

// Shell parses and executes a single logical script, the shell(command_string)
// entry point of spec.md §6.
func Shell(ctx context.Context, r *Runner, name, src string) (int, error) {
	f, errs := syntax.Parse(name, src)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(r.Stderr, e)
		}
		return 2, errs[0]
	}
	return r.Run(ctx, f)
}

// ShellValidate parses command_string without executing it and returns the
// parser's diagnostics, the shell_validate(command_string) entry point.
func ShellValidate(name, src string) []error {
	_, errs := syntax.Parse(name, src)
	return errs
}

// ShellInteractive runs a REPL against stdin, writing the PS1 prompt
// (default "$ ") to stderr and command output to stdout/stderr, the
// shell_interactive entry point. Each input line is parsed and run on its
// own; there is no PS2 continuation prompt, so a construct spread over
// several lines is reported as a parse error. It is a thin
// line-editor stand-in: real line editing, history, and completion are
// external-collaborator concerns per spec.md §6.
func ShellInteractive(ctx context.Context, r *Runner, stdin io.Reader, stdout, stderr io.Writer) int {
	r.Stdin, r.Stdout, r.Stderr = stdin, stdout, stderr
	scanner := bufio.NewScanner(stdin)
	for {
		ps1 := r.State.Get("PS1").String()
		if ps1 == "" {
			ps1 = "$ "
		}
		fmt.Fprint(stderr, ps1)
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		f, errs := syntax.Parse("<stdin>", line)
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(stderr, e)
			}
			continue
		}
		r.Run(ctx, f)
		if r.exiting {
			break
		}
	}
	return r.State.LastStatus
}

// DebugDump parses src and writes its token stream or AST in one of the
// debug formats spec.md §6 lists, the "dump tokens / dump AST" CLI entry
// point. tokens selects the token-stream dump; otherwise the AST is dumped
// in the given syntax.DumpFormat.
func DebugDump(w io.Writer, name, src string, tokens bool, format syntax.DumpFormat) error {
	if tokens {
		return dumpTokens(w, name, src)
	}
	f, errs := syntax.Parse(name, src)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(w, e)
		}
	}
	if f == nil {
		return nil
	}
	return syntax.Dump(w, f, format)
}

func dumpTokens(w io.Writer, name, src string) error {
	lex := syntax.NewLexer(name, src)
	for {
		tok := lex.Next(syntax.LexerContext{})
		fmt.Fprintf(w, "%-12s %q (line %d, col %d)\n", tok.Kind, tok.Raw, tok.Line, tok.Column)
		if tok.Kind == token.EOF {
			break
		}
	}
	return nil
}

// LoadRC parses and executes path as a script on interactive startup,
// spec.md §6's "RC file (collaborator)" loaded via the same shell() entry.
func LoadRC(ctx context.Context, r *Runner, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	_, err = Shell(ctx, r, path, string(data))
	return err
}
