package main

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"fintrack/internal/cli"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/summary"
)

var (
	// Version is set via ldflags when building.
	Version = "dev"

	ctl struct {
		Version kong.VersionFlag `help:"Show version information"`
		Commands
	}
)

func main() {
	vars := kong.Vars{"version": Version}
	for k, v := range defaultVars(time.Now()) {
		vars[k] = v
	}

	ctx := kong.Parse(&ctl,
		vars,
		kong.Name("fintrackctl"),
		kong.Description("Query and edit a fintrack ledger from the command line."),
		kong.UsageOnError(),
		kong.Bind(&ctl.Globals),
	)

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(context.Background(), logger, cfg)

	a := &app{
		summary:      summary.NewService(ledger.NewAccessor(store.Store)),
		transactions: services.NewTransactionService(store.Store, nil),
		out:          os.Stdout,
	}
	ctx.Bind(a)

	err := ctx.Run()
	cli.Close(store, nil)
	ctx.FatalIfErrorf(err)
}
