package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger. Logs always go to stderr so
// that stdout only ever carries command results.
func Setup(level string, verbose bool) {
	SetupWriter(os.Stderr, level, verbose)
}

func SetupWriter(w io.Writer, level string, verbose bool) {
	log.SetOutput(w)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if verbose {
		log.SetLevel(log.DebugLevel)
		return
	}

	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		log.SetLevel(log.InfoLevel)
		log.Warnf("Unknown log level %q, using info", level)
		return
	}
	log.SetLevel(lvl)
}
