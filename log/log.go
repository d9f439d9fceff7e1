// Package log writes diagnostics to a daily file under the logs directory.
//
// Nothing is written unless logs.write is set; every function here is a
// no-op until Setup has enabled it.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/where"
)

var enabled bool

// Setup opens today's log file and applies logs.level and logs.json.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}

	name := fmt.Sprintf("%s-%s.log", constant.Vidsan, time.Now().Format("2006-01-02"))
	path := filepath.Join(where.Logs(), name)

	f, err := filesystem.API().OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		enabled = false
		return fmt.Errorf("open log file: %w", err)
	}

	logrus.SetOutput(f)
	logrus.SetLevel(level)
	if viper.GetBool(key.LogsJson) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	return nil
}

// Enabled reports whether Setup turned logging on.
func Enabled() bool {
	return enabled
}

func Error(args ...interface{}) {
	if enabled {
		logrus.Error(args...)
	}
}
func Errorf(format string, args ...interface{}) {
	if enabled {
		logrus.Errorf(format, args...)
	}
}
func Warnf(format string, args ...interface{}) {
	if enabled {
		logrus.Warnf(format, args...)
	}
}
func Infof(format string, args ...interface{}) {
	if enabled {
		logrus.Infof(format, args...)
	}
}
func Debugf(format string, args ...interface{}) {
	if enabled {
		logrus.Debugf(format, args...)
	}
}

// Fields is structured context attached to an Entry.
type Fields = logrus.Fields

// Entry carries Fields into every emission. Like the package functions it
// is silent while logging is disabled.
type Entry struct {
	entry *logrus.Entry
}

// WithFields starts an Entry with the given context.
func WithFields(fields Fields) *Entry {
	return &Entry{entry: logrus.WithFields(fields)}
}

// WithField returns a copy of e with one more field.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{entry: e.entry.WithField(key, value)}
}

func (e *Entry) Warnf(format string, args ...interface{}) {
	if enabled {
		e.entry.Warnf(format, args...)
	}
}
func (e *Entry) Infof(format string, args ...interface{}) {
	if enabled {
		e.entry.Infof(format, args...)
	}
}
func (e *Entry) Debugf(format string, args ...interface{}) {
	if enabled {
		e.entry.Debugf(format, args...)
	}
}
