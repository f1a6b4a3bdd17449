package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"SecondChance/internal/cli/commands"
	"SecondChance/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// общий конфиг (файл, env, флаги)
	cfg := config.NewConfig()

	if cfg.Version {
		printVersion()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// dispatcher
	exitCode := commands.Dispatch(ctx, cfg, flag.Args())
	if exitCode == 0 {
		return
	}
	os.Exit(exitCode)
}

func printVersion() {
	fmt.Printf("SecondChance catalog CLI\nVersion: %s\nBuild date: %s\n", version, buildDate)
}
