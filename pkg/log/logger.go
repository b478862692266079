package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/t-tomalak/logrus-easy-formatter"
)

var logger *customLogger

// nolint:gochecknoinits
func init() {
	logger = newLogger()
}

type customLogger struct {
	*logrus.Logger
}

// Fields is an alias so callers do not import logrus for structured entries.
type Fields = logrus.Fields

// SetLevel parses a logrus level name ("debug", "info", "warn", "error").
// Unknown names fall back to info.
func SetLevel(lvl string) {
	level, err := logrus.ParseLevel(strings.TrimSpace(lvl))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	Infof("log level set to %v.", strings.ToUpper(level.String()))
}

// SetOutput redirects every log line to w.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func newLogger() *customLogger {
	logger := &logrus.Logger{
		Out:   os.Stderr,
		Level: logrus.InfoLevel,
		Hooks: make(logrus.LevelHooks),
		Formatter: &easy.Formatter{
			TimestampFormat: "01-02 15:04:05.000",
			LogFormat:       "[%lvl%]   [%time%]   -   %msg%\n",
		},
	}
	return &customLogger{logger}
}

// WithFields returns an entry that appends fields after the message.
func WithFields(fields Fields) *Entry {
	return &Entry{fields: fields}
}

// Entry carries key/value context for one log line. The easy formatter does
// not render logrus data, so fields are folded into the message.
type Entry struct {
	fields Fields
}

func (e *Entry) format(msg string) string {
	if len(e.fields) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for _, k := range sortedKeys(e.fields) {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, e.fields[k]))
	}
	return sb.String()
}

func (e *Entry) Debugf(format string, args ...interface{}) {
	logger.Debug(e.format(fmt.Sprintf(format, args...)))
}

func (e *Entry) Infof(format string, args ...interface{}) {
	logger.Info(e.format(fmt.Sprintf(format, args...)))
}

func (e *Entry) Warnf(format string, args ...interface{}) {
	logger.Warn(e.format(fmt.Sprintf(format, args...)))
}

func (e *Entry) Errorf(format string, args ...interface{}) {
	logger.Error(e.format(fmt.Sprintf(format, args...)))
}

// Debug
func Debug(content interface{}) {
	logger.Debug(content)
}

// Debugf
func Debugf(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// Info
func Info(content interface{}) {
	logger.Info(content)
}

// Infof
func Infof(format string, args ...interface{}) {
	logger.Info(fmt.Sprintf(format, args...))
}

// Warn
func Warn(content interface{}) {
	logger.Warn(content)
}

// Warnf
func Warnf(format string, args ...interface{}) {
	logger.Warn(fmt.Sprintf(format, args...))
}

// Error
func Error(content interface{}) {
	logger.Error(content)
}

// Errorf
func Errorf(format string, args ...interface{}) {
	logger.Error(fmt.Sprintf(format, args...))
}

// Fatal
func Fatal(content interface{}) {
	logger.Fatal(content)
}

// Fatalf
func Fatalf(format string, args ...interface{}) {
	logger.Fatal(fmt.Sprintf(format, args...))
}
