package raopx

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogging configures the global zerolog logger from the RAOPX_LOG
// environment variable (any level zerolog.ParseLevel accepts: "debug",
// "info", "warn", "error", ...). Unset or unrecognized defaults to
// info. Call this once from a cmd/ main; library code never calls it.
func InitLogging() {
	lev, err := zerolog.ParseLevel(os.Getenv("RAOPX_LOG"))
	if err != nil || lev == zerolog.NoLevel {
		lev = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.StampMicro,
	}).With().Timestamp().Logger().Level(lev)
}

// Component returns a child logger tagged with a component name, the
// convention every package here uses for its internal logger
// (`.With().Str("component", name).Logger()`).
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
