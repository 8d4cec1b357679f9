// Command finbook keeps a Notion finance workspace up to date.
//
// Usage:
//
//	finbook [--config finbook.yaml] [--debug] <command>
//
// Commands:
//
//	accounts  recompute every account balance from transfers and trades
//	prices    refresh currency prices and append price history
//	trend     append the current portfolio totals to the trend database
//	serve     run the Slack webhook that triggers the bookkeeping workflow
//	setup     interactive wizard writing the YAML config
//
// Required environment variables:
//
//	NOTION_TOKEN for every job
//	GITHUB_ACCESS_TOKEN for serve
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	g := &globals{}
	flag.StringVar(&g.configPath, "config", "", "path to the YAML config file")
	flag.BoolVar(&g.debug, "debug", false, "enable development logging")

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&accountsCmd{g: g}, "jobs")
	commander.Register(&pricesCmd{g: g}, "jobs")
	commander.Register(&trendCmd{g: g}, "jobs")
	commander.Register(&serveCmd{g: g}, "server")
	commander.Register(&setupCmd{}, "")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
