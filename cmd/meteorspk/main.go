// Command meteorspk discovers Meteor apps on GitHub, packages each one as a
// Sandstorm .spk with vagrant-spk and records every attempt in a git ledger.
package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/paulproteus/for-each-meteor-app/cmd/meteorspk/commands"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("meteorspk"),
		kong.Description("Package every Meteor app on GitHub for Sandstorm, once."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := parser.Run(global, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
