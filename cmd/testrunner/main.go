package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/testrunner/cmd/testrunner/commands"
	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
	"git.home.luguber.info/inful/testrunner/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("testrunner"),
		kong.Description("Run a test suite inside a managed workspace and upload its logs and artifacts"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	rerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
