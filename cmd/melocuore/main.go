package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/melocuore/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	apiURL := flag.String("api-url", "", "backend base URL (overrides config and MELOCUORE_API_URL)")
	retryCeiling := flag.Int("retry-ceiling", -1, "follow-up recognition status queries after the first (optional)")
	retryDelay := flag.Duration("retry-delay", 0, "wait between recognition status queries (optional)")
	pollEvery := flag.Duration("poll", 0, "library refresh interval in the TUI (optional, defaults to 30s)")
	flag.Usage = usage
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		APIURL:     *apiURL,
		RetryDelay: *retryDelay,
		PollEvery:  *pollEvery,
	}
	if *retryCeiling >= 0 {
		opts.RetryCeiling = retryCeiling
	}

	if flag.NArg() > 0 {
		return app.Command(ctx, opts, flag.Arg(0), flag.Args()[1:])
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "melocuore: %v\n", err)
		return app.ExitFailure
	}
	return app.ExitOK
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "usage: melocuore [flags] [command [args]]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Without a command the terminal UI starts.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, c := range app.Commands {
		fmt.Fprintf(out, "  %-10s %s\n", c.Name, c.Summary)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}
