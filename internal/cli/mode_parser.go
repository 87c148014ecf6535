package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeCoordinator = "coordinator-service"
	ModeNotifier    = "notification-worker"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeCoordinator, "coordinator", "c":
		return ModeCoordinator, true
	case ModeNotifier, "notifier", "worker", "n":
		return ModeNotifier, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `coordinator-service --max-concurrent=50`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for _, arg := range args {
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}
	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./ride-coordinator --mode=<service> [flags]

Services (modes):
  coordinator-service          HTTP + WebSocket API over per-account ride/driver coordinators
  notification-worker          Turns order status events into passenger notifications

Examples:
  ./ride-coordinator --mode=coordinator-service --max-concurrent=100
  ./ride-coordinator --mode=notification-worker --prefetch=8
  ./ride-coordinator coordinator --config=./config/config.yaml`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./ride-coordinator --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
