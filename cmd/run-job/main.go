// Command run-job runs one scheduled job immediately and exits.
//
//	run-job aggregate   recompute today's summary
//	run-job notify      send today's report if the window and business day allow
//	run-job missed      log whether today's report was missed
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	stdlog "github.com/rs/zerolog/log"
	"github.com/stemsi/sanmon-backend/internal/app"
	"github.com/stemsi/sanmon-backend/internal/config"
	"github.com/stemsi/sanmon-backend/internal/logger"
	"github.com/stemsi/sanmon-backend/internal/scheduler"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "Maximum run time")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	now := time.Now().In(cfg.Location)
	job := flag.Arg(0)
	switch job {
	case "aggregate":
		err = a.Scheduler.RunJob(ctx, scheduler.JobAggregate)
	case "notify":
		res, runErr := a.Scheduler.Notify(ctx)
		err = runErr
		log.Info().Str("outcome", string(res.Outcome)).Str("reason", res.Reason).Msg("notification finished")
	case "missed":
		missed, runErr := a.Notification.ReportMissed(ctx, now)
		err = runErr
		log.Info().Bool("missed", missed).Msg("missed report check finished")
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("job", job).Msg("Job failed")
		a.Close()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: run-job [flags] <aggregate|notify|missed>")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}
