package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/wfunc/pebbles/config"
	"github.com/wfunc/pebbles/logger"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Config   string           `short:"c" default:"." type:"path" help:"Directory containing config.yaml"`
	LogLevel string           `help:"Override log.level (debug, info, warn, error)"`

	Serve ServeCmd `cmd:"" help:"Answer framed requests on stdin and write replies to stdout"`
	Play  PlayCmd  `cmd:"" default:"withargs" help:"Play a game in the terminal"`
}

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pebbles"),
		kong.Description("Pebbles: take turns removing pebbles, whoever takes the last one wins"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	cfg, err := config.LoadConfig(cli.Config)
	kctx.FatalIfErrorf(err)
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	kctx.FatalIfErrorf(logger.Init(cfg.Log.Level, cfg.Log.Development))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = kctx.Run(&App{Config: cfg, Context: ctx})
	stop()
	logger.Sync()
	kctx.FatalIfErrorf(err)
}
