// Command rewards runs the loyalty rewards API.
//
// Usage:
//
//	rewards [-config path]           start the server
//	rewards [-config path] migrate   apply the schema and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/larkspur-kitchen/rewards/internal/app"
	"github.com/larkspur-kitchen/rewards/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("load .env failed")
	}

	var cfg config.AppConfig
	flag.StringVar(&cfg.ConfigPath, "config", "", "path to config.yaml (default $"+config.EnvConfigPath+" or "+config.DefaultConfigPath+")")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var errRun error
	switch cmd := flag.Arg(0); cmd {
	case "", "serve":
		errRun = app.RunServer(ctx, cfg)
	case "migrate":
		errRun = app.Migrate(ctx, cfg)
		if errRun == nil {
			log.Info("migrations applied")
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if errRun != nil {
		log.WithError(errRun).Fatal("rewards exited")
	}
	log.Info("rewards exited cleanly")
}
