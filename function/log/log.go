package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const depthKey = "depth"

var std = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &prefixFormatter{},
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.InfoLevel,
	ExitFunc:  os.Exit,
}

// prefixFormatter renders entries as "[x] message" with the prefix colored by
// level and indented by the entry depth.
type prefixFormatter struct{}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	depth, _ := e.Data[depthKey].(int)
	prefix := strings.Repeat("  ", depth) + "[x] "

	var paint func(format string, a ...interface{}) string
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		paint = color.RedString
	case logrus.WarnLevel:
		paint = color.MagentaString
	case logrus.DebugLevel, logrus.TraceLevel:
		paint = color.CyanString
	default:
		switch depth {
		case 0:
			paint = color.BlueString
		case 1:
			paint = color.GreenString
		default:
			paint = color.YellowString
		}
	}

	var b bytes.Buffer
	for _, line := range strings.Split(strings.TrimRight(e.Message, "\n"), "\n") {
		b.WriteString(paint("%s", prefix))
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

// SetDebugMode switches debug output on or off.
func SetDebugMode(enabled bool) {
	if enabled {
		std.SetLevel(logrus.DebugLevel)
		return
	}
	std.SetLevel(logrus.InfoLevel)
}

// SetOutput redirects every log line to w.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func at(depth int) *logrus.Entry {
	return std.WithField(depthKey, depth)
}

func Fatal(args ...interface{}) {
	var message string

	switch len(args) {
	case 0:
		message = "fatal error occurred"
	case 1:
		switch v := args[0].(type) {
		case error:
			message = v.Error()
		case string:
			message = v
		default:
			message = fmt.Sprintf("%v", v)
		}
	default:
		if format, ok := args[0].(string); ok {
			message = fmt.Sprintf(format, args[1:]...)
		} else {
			message = fmt.Sprint(args...)
		}
	}
	at(0).Fatal(strings.TrimSpace(message))
}

func Error(format string, elem ...any) {
	at(0).Errorf(format, elem...)
}

func ErrorH2(format string, elem ...any) {
	at(1).Errorf(format, elem...)
}

func Warn(format string, elem ...any) {
	at(0).Warnf(format, elem...)
}

func Info(format string, elem ...any) {
	at(0).Infof(format, elem...)
}

func InfoH2(format string, elem ...any) {
	at(1).Infof(format, elem...)
}

func InfoH3(format string, elem ...any) {
	at(2).Infof(format, elem...)
}

func Debug(format string, elem ...any) {
	at(0).Debugf(format, elem...)
}

func DebugH2(format string, elem ...any) {
	at(1).Debugf(format, elem...)
}

func SuccessDownload(challName string, challCategory string) {
	Info("success downloading: %s (%s)", challName, challCategory)
}
