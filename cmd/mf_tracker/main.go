package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&addCmd{}, "ledger")
	commander.Register(&rmCmd{}, "ledger")
	commander.Register(&lsCmd{}, "ledger")

	commander.Register(&valueCmd{}, "reports")
	commander.Register(&dipCmd{}, "reports")
	commander.Register(&searchCmd{}, "reports")

	commander.Register(&watchCmd{}, "daemon")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
