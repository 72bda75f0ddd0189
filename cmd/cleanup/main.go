// Command cleanup runs one explicit sweep: paired devices inactive for too
// long and upload directories older than the cutoff.
package main

import (
	"os"

	"github.com/spf13/pflag"

	"phonestorage/internal/app"
	"phonestorage/internal/config"
	"phonestorage/internal/domain/pairing"
	"phonestorage/internal/domain/upload"
	"phonestorage/internal/pkg/logging"
)

func main() {
	var (
		inactiveDays int
		uploadDays   int
		skipUploads  bool
	)
	cfg, err := config.Load("phonestorage-cleanup", os.Args[1:], func(fs *pflag.FlagSet) {
		fs.IntVar(&inactiveDays, "inactive-days", 30, "remove paired devices not seen for this many days")
		fs.IntVar(&uploadDays, "upload-days", 30, "remove upload directories older than this many days")
		fs.BoolVar(&skipUploads, "skip-uploads", false, "leave upload directories alone")
	})
	if err != nil {
		boot := logging.New("info", "console")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if !validDays(inactiveDays, pairing.MaxCleanupDays) || !validDays(uploadDays, upload.MaxCleanupDays) {
		log.Fatal().
			Int("inactive_days", inactiveDays).
			Int("upload_days", uploadDays).
			Msgf("day counts must be between 0 and %d", pairing.MaxCleanupDays)
	}

	a, err := app.New(cfg, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	devices := a.Pairings.CleanupInactive(inactiveDays)
	uploads := 0
	if !skipUploads {
		uploads = a.Uploads.Cleanup(uploadDays)
	}

	log.Info().
		Int("devices_removed", devices).
		Int("upload_dirs_removed", uploads).
		Msg("cleanup completed")
}

func validDays(days, limit int) bool {
	return days >= 0 && days <= limit
}
