package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	coordinatorservice "ride-coordinator/cmd/coordinator_service"
	notificationworker "ride-coordinator/cmd/notification_worker"
	"ride-coordinator/internal/cli"
)

const defaultConfigPath = "./config/config.yaml"

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {

	case cli.ModeCoordinator:
		fs := flag.NewFlagSet(cli.ModeCoordinator, flag.ContinueOnError)
		configPath := fs.String("config", defaultConfigPath, "Path to the YAML config file")
		maxConc := fs.Int("max-concurrent", 100, "Maximum number of concurrent HTTP requests to process")
		cli.AttachUsage(fs, cli.ModeCoordinator)

		parseOrExit(fs, svcArgs)
		if *maxConc < 1 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		if err := coordinatorservice.Run(ctx, *configPath, *maxConc); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeNotifier:
		fs := flag.NewFlagSet(cli.ModeNotifier, flag.ContinueOnError)
		configPath := fs.String("config", defaultConfigPath, "Path to the YAML config file")
		prefetch := fs.Int("prefetch", 8, "RabbitMQ prefetch count for the consumer channel")
		cli.AttachUsage(fs, cli.ModeNotifier)

		parseOrExit(fs, svcArgs)
		if *prefetch <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --prefetch must be > 0")
			fs.Usage()
			os.Exit(2)
		}
		if err := notificationworker.Run(ctx, *configPath, *prefetch); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}

func parseOrExit(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
