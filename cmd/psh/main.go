// Command psh is the thin CLI collaborator wired to the four core entry
// points (shell, shell_interactive, shell_validate, debug-dump) described
// in spec.md §6. It carries no shell semantics of its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/philipwilsonTHG/psh-sub003/interp"
	"github.com/philipwilsonTHG/psh-sub003/syntax"
)

// pshConfig is the optional interpreter-defaults file a host can drop at
// ~/.psh.toml, read once at startup and translated into Runner options.
type pshConfig struct {
	Noglob   bool `toml:"noglob"`
	ExtGlob  bool `toml:"extglob"`
	Pipefail bool `toml:"pipefail"`
	Monitor  bool `toml:"monitor"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("psh", flag.ContinueOnError)
	cFlag := fs.String("c", "", "execute command_string and exit")
	validate := fs.Bool("n", false, "parse only, report diagnostics (shell_validate)")
	dumpTokensFlag := fs.Bool("dump-tokens", false, "dump the token stream instead of executing")
	dumpFormat := fs.String("dump-ast", "", "dump the AST in one of tree,pretty,compact,sexpr,dot instead of executing")
	configPath := fs.String("config", defaultConfigPath(), "path to a psh.toml defaults file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := loadConfig(*configPath)

	dir, _ := os.Getwd()
	r, err := interp.NewRunner(
		interp.WithDir(dir),
		interp.WithParams(fs.Args()...),
		interp.WithStdIO(os.Stdin, os.Stdout, os.Stderr),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	applyConfig(r, cfg)

	switch {
	case *validate:
		src := readSource(*cFlag, fs.Args())
		errs := interp.ShellValidate("<command_string>", src)
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		if len(errs) > 0 {
			return 2
		}
		return 0
	case *dumpTokensFlag || *dumpFormat != "":
		src := readSource(*cFlag, fs.Args())
		format, ok := parseDumpFormat(*dumpFormat)
		if !ok && *dumpFormat != "" {
			fmt.Fprintf(os.Stderr, "psh: unknown dump format %q\n", *dumpFormat)
			return 2
		}
		if err := interp.DebugDump(os.Stdout, "<command_string>", src, *dumpTokensFlag, format); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	ctx := context.Background()

	if *cFlag != "" {
		status, err := interp.Shell(ctx, r, "<command_string>", *cFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return status
	}

	if len(fs.Args()) > 0 {
		path := fs.Args()[0]
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		status, err := interp.Shell(ctx, r, path, string(data))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return status
	}

	if rc := rcPath(); rc != "" {
		if err := interp.LoadRC(ctx, r, rc); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return interp.ShellInteractive(ctx, r, os.Stdin, os.Stdout, os.Stderr)
}

func readSource(cFlag string, rest []string) string {
	if cFlag != "" {
		return cFlag
	}
	if len(rest) > 0 {
		data, _ := os.ReadFile(rest[0])
		return string(data)
	}
	data, _ := os.ReadFile("/dev/stdin")
	return string(data)
}

func parseDumpFormat(s string) (syntax.DumpFormat, bool) {
	switch s {
	case "", "tree":
		return syntax.DumpTree, true
	case "pretty":
		return syntax.DumpPretty, true
	case "compact":
		return syntax.DumpCompact, true
	case "sexpr":
		return syntax.DumpSExpr, true
	case "dot":
		return syntax.DumpDot, true
	}
	return 0, false
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".psh.toml")
}

func loadConfig(path string) pshConfig {
	var cfg pshConfig
	if path == "" {
		return cfg
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return pshConfig{}
	}
	return cfg
}

func applyConfig(r *interp.Runner, cfg pshConfig) {
	r.State.Options["noglob"] = cfg.Noglob
	r.State.Options["extglob"] = cfg.ExtGlob
	r.State.Options["pipefail"] = cfg.Pipefail
	if cfg.Monitor {
		r.State.Options["monitor"] = true
	}
}

func rcPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	rc := filepath.Join(home, ".pshrc")
	if _, err := os.Stat(rc); err != nil {
		return ""
	}
	return rc
}
