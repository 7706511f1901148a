package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/RyanBlaney/sonido-delivery/internal/cli"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	cli.Globals

	Analyze cli.AnalyzeCmd `cmd:"" help:"Analyse the delivery of one recording"`
	Watch   cli.WatchCmd   `cmd:"" help:"Watch a directory and analyse new recordings"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs,
		kong.Name("sonido-delivery"),
		kong.Description("Speech delivery metrics: energy, pitch, pauses, pace and fillers"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if err := kctx.Run(&cliArgs.Globals); err != nil {
		cli.PrintError(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}
