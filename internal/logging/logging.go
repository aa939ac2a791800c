package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

const timestampFormat = "02-01-2006 15:04:05"

// Setup configures the package-level logrus logger. When file is set, logs
// are appended to it; the returned closer releases it.
func Setup(level, file string) (io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}

	formatter := new(log.TextFormatter)
	formatter.TimestampFormat = timestampFormat
	formatter.FullTimestamp = true

	log.SetFormatter(formatter)
	log.SetLevel(lvl)

	if file == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(file, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)

	return f, nil
}
