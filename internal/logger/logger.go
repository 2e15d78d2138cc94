package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the shared application logger. Defaults to console output at info
// level; LOG_LEVEL and LOG_FORMAT=json override it.
var Log zerolog.Logger

func init() {
	Init()
}

// Init configures the global logger from environment variables.
func Init() {
	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && os.Getenv("LOG_LEVEL") != "" {
		level = lv
	}

	if os.Getenv("LOG_FORMAT") == "json" {
		Log = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
		return
	}

	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	Log = zerolog.New(out).Level(level).With().Timestamp().Logger()
}
