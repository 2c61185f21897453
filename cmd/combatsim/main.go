// Command combatsim flies headless sorties against the combat core and
// records them to the configured storage backend.
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
)

// module defs - set at build time via ldflags
var (
	CurrentExtensionVersion = "0.1.0"
	BuildDate               = "unknown"

	ExtensionName = "combatsim"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

const usage = `usage: combatsim <command> [flags]

commands:
  run       fly a scripted sortie and record it
  version   print version information
`

// execute runs one command and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "%s %s (built %s)\n", ExtensionName, CurrentExtensionVersion, BuildDate)
		return 0

	case "run":
		fs, opts := newRunFlags(stderr)
		if err := fs.Parse(args[1:]); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				return 0
			}
			return 2
		}
		if err := bindFlags(fs); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		summary, err := run(ctx, *opts, stdout)
		if err != nil {
			fmt.Fprintln(stderr, "run failed:", err)
			return 1
		}
		fmt.Fprintln(stdout, summary)
		return 0

	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0

	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}
