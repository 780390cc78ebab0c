// Package log is a thin leveled logging facade over logrus.
//
// Call sites follow the convention used across the codebase:
//
//	log.Info(ctx, "SSDP advertising", "name", name, "addr", addr)
//	log.Error("Failed to open file", err, "path", path)
//
// The first argument may optionally be a context.Context (currently unused,
// reserved for request-scoped fields). The next argument is the message; the
// remainder are alternating key/value pairs. Bare error values anywhere in
// the tail are collected under the "error" field.
package log

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/udlna/udlna/consts"
)

var logger = logrus.New()

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if lvl := os.Getenv(consts.LogLevelEnvVar); lvl != "" {
		SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

// SetLevel sets the log level from its string name. Unknown names keep the
// current level and log a warning.
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level %q - keeping %s", level, logger.GetLevel())
		return
	}
	logger.SetLevel(parsed)
}

// CurrentLevel returns the active level name.
func CurrentLevel() string {
	return logger.GetLevel().String()
}

func Error(args ...interface{}) { logAt(logrus.ErrorLevel, args...) }
func Warn(args ...interface{})  { logAt(logrus.WarnLevel, args...) }
func Info(args ...interface{})  { logAt(logrus.InfoLevel, args...) }
func Debug(args ...interface{}) { logAt(logrus.DebugLevel, args...) }
func Trace(args ...interface{}) { logAt(logrus.TraceLevel, args...) }

func logAt(level logrus.Level, args ...interface{}) {
	if !logger.IsLevelEnabled(level) || len(args) == 0 {
		return
	}
	i := 0
	if _, ok := args[i].(context.Context); ok {
		i++
		if i >= len(args) {
			return
		}
	}
	msg := fmt.Sprint(args[i])
	i++

	fields := logrus.Fields{}
	for i < len(args) {
		if err, ok := args[i].(error); ok {
			fields["error"] = err
			i++
			continue
		}
		key := fmt.Sprint(args[i])
		if i+1 < len(args) {
			fields[key] = args[i+1]
			i += 2
		} else {
			fields[key] = ""
			i++
		}
	}
	logger.WithFields(fields).Log(level, msg)
}
