package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"gh-issues/internal/version"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	stop()
	if err != nil {
		fatal(err)
	}
}

func run(ctx context.Context, args []string, std streams) error {
	global := pflag.NewFlagSet("gh-issues", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(std.err)
	verbose := global.BoolP("verbose", "v", false, "mirror debug logs to stderr")
	global.Usage = func() { usage(std.err) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	args = global.Args()

	if len(args) == 0 {
		return runTUI(ctx, std, *verbose)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help", "-h", "--help":
		usage(std.out)
		return nil
	case "version":
		fmt.Fprintln(std.out, version.Value)
		return nil
	case "serve":
		return runServe(ctx, std, *verbose)
	}

	handler, ok := lookup(cmd)
	if !ok {
		usage(std.err)
		return fmt.Errorf("unknown command %q", cmd)
	}
	e, err := openEnv(envOptions{debug: *verbose, stderr: *verbose, prompt: true}, std)
	if err != nil {
		return err
	}
	defer e.Close()
	return handler(ctx, e, rest)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `gh-issues

Usage:
  gh-issues [-v]                              Launch the interactive issue panel
  gh-issues serve                             Speak the panel protocol over stdio (JSON-RPC)
  gh-issues list [--filter open|closed|all] [--search q] [--output table|json|yaml]
  gh-issues create --title T [--body B|--body-file F] [--labels a,b] [--assignees x,y]
  gh-issues edit --number N [--title T] [--body B] [--labels a,b] [--assignees x,y]
  gh-issues close N
  gh-issues reopen N
  gh-issues assign --number N --assignees x,y
  gh-issues pr --title T --head BRANCH [--base BRANCH] [--body B] [--draft]
  gh-issues upload --file PATH [--name NAME]
  gh-issues summary N
  gh-issues repo show|list|set owner/name|set auto
  gh-issues auth mode [session|pat]
  gh-issues auth set-token
  gh-issues auth clear
  gh-issues doctor
  gh-issues version`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
