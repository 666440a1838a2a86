// Package msg implements ruxgo's leveled, colored console output.
package msg

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Level is a verbosity level, ordered from least to most verbose.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func parseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, true
	case "warn", "warning":
		return LevelWarn, true
	case "info":
		return LevelInfo, true
	case "debug":
		return LevelDebug, true
	case "trace":
		return LevelTrace, true
	default:
		return LevelInfo, false
	}
}

var currentLevel = loadLevel()

func loadLevel() Level {
	if lvl, ok := parseLevel(os.Getenv("RUXGO_LOG_LEVEL")); ok {
		return lvl
	}
	return LevelInfo
}

// SetLevel overrides the level read from RUXGO_LOG_LEVEL, e.g. for --verbose flags.
func SetLevel(l Level) { currentLevel = l }

func enabled(l Level) bool { return l <= currentLevel }

// DebugEnabled reports whether debug-level output is currently enabled, so
// a caller can decide whether streaming a subprocess's output live is worth
// the overhead.
func DebugEnabled() bool { return enabled(LevelDebug) }

func Error(format string, a ...any) {
	if !enabled(LevelError) {
		return
	}
	fmt.Print(color.HiRedString("error"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Warn(format string, a ...any) {
	if !enabled(LevelWarn) {
		return
	}
	fmt.Print(color.YellowString("warn"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Fatal(format string, a ...any) {
	fmt.Print(color.RedString("fatal"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
	os.Exit(1)
}

func Info(format string, a ...any) {
	if !enabled(LevelInfo) {
		return
	}
	fmt.Print(color.HiGreenString("info"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Debug(format string, a ...any) {
	if !enabled(LevelDebug) {
		return
	}
	fmt.Print(color.CyanString("debug"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Trace(format string, a ...any) {
	if !enabled(LevelTrace) {
		return
	}
	fmt.Print(color.HiBlackString("trace"))
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

// IndentWriter prefixes each line written to W with Indent.
type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			w.W.Write([]byte(w.Indent))
			w.didIndent = true
		}
		w.W.Write([]byte{c})
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return len(p), nil
}
