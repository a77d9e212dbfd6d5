// Command seed-classes registers classes from an .xlsx roster.
//
// The first sheet needs a header row with "Класс" and "Количество учеников"
// columns; "Классный руководитель" is optional.
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
	"github.com/stemsi/sanmon-backend/internal/roster"
)

func main() {
	path := flag.String("file", "classes.xlsx", "Roster workbook")
	update := flag.Bool("update", false, "Update contact and size of classes that already exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open roster")
	}
	defer f.Close()

	rosters, bad, err := roster.Parse(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("Failed to read roster")
	}
	for _, b := range bad {
		log.Warn().Int("row", b.Row).Str("reason", b.Reason).Msg("Row skipped")
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	res, err := roster.Import(ctx, a.Classes, rosters, *update, log)
	if err != nil {
		log.Error().Err(err).Msg("Import stopped")
	}

	fmt.Printf("Created %d, updated %d, skipped %d, invalid rows %d\n", res.Created, res.Updated, res.Skipped, len(bad))
}
