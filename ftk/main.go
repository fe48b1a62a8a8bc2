// Command ftk tracks the prices of a fund portfolio.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/fundtrack/cmd"
	"github.com/google/subcommands"
)

func main() {
	// Shell completion exits here when the shell asks for it.
	cmd.Completion().Complete("ftk")

	commander := subcommands.NewCommander(flag.CommandLine, "ftk")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
