package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgivc/rinupdate/internal/app"
	"github.com/jgivc/rinupdate/internal/config"
)

func main() {
	cfgFileName := flag.String("c", "config.yml", "Path to config file")
	envFileName := flag.String("e", ".env", "Path to dotenv file with credentials")
	storePath := flag.String("store", "", "Path to the app config (overrides store_path)")
	flag.Parse()

	cfg := config.MustLoad(*cfgFileName)
	cfg.Env = config.LoadEnv(*envFileName)
	if *storePath != "" {
		cfg.StorePath = *storePath
	}

	a, err := app.Build(cfg, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-c; ok {
			fmt.Println("Received termination signal. Shutting down...")
			cancel()
		}
	}()

	err = a.Run(ctx, flag.Arg(0))

	signal.Stop(c)
	close(c)
	cancel()
	a.Close()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
