// Package logging builds loggers from a configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// Config is a logging configuration.
type Config struct {
	// minimum level of entries. It defaults to "info".
	Level string

	// "text" or "json". It defaults to "text".
	Format string

	// whether to add the calling function to entries.
	ReportCaller bool

	// path of a log file. When empty, entries are written to Stderr.
	Path string

	// rotation period of the log file. It defaults to 24 hours.
	RotationTime time.Duration

	// number of days rotated files are kept. It defaults to 7.
	MaxAgeDays int
}

// NewLogger allocates a logger.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if c.Level != "" {
		var err error
		level, err = logrus.ParseLevel(c.Level)
		if err != nil {
			return nil, err
		}
	}

	var out io.Writer
	if c.Path == "" {
		out = os.Stderr
	} else {
		rotationTime := c.RotationTime
		if rotationTime == 0 {
			rotationTime = 24 * time.Hour
		}

		maxAgeDays := c.MaxAgeDays
		if maxAgeDays == 0 {
			maxAgeDays = 7
		}

		w, err := rotatelogs.New(
			c.Path+"_%Y%m%d",
			rotatelogs.WithLinkName(c.Path),
			rotatelogs.WithRotationTime(rotationTime),
			rotatelogs.WithMaxAge(time.Duration(maxAgeDays)*24*time.Hour),
		)
		if err != nil {
			return nil, err
		}
		out = w
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetReportCaller(c.ReportCaller)

	switch strings.ToLower(c.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})

	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})

	default:
		return nil, fmt.Errorf("unsupported log format: %s", c.Format)
	}

	return logger, nil
}
