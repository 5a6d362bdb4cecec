package logger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

var (
	tagColor     = color.New(color.FgCyan, color.Bold)
	infoColor    = color.New(color.FgWhite)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	debugColor   = color.New(color.FgHiBlack)
	bannerColor  = color.New(color.FgMagenta, color.Bold)

	debugEnabled atomic.Bool
)

// SetDebug toggles Debug output at runtime.
func SetDebug(on bool) {
	debugEnabled.Store(on)
}

func stamp() string {
	return time.Now().Format("15:04:05")
}

func line(level *color.Color, tag, msg string) {
	fmt.Printf("%s %s %s\n", debugColor.Sprint(stamp()), tagColor.Sprintf("[%s]", tag), level.Sprint(msg))
}

// Info logs an informational message under a component tag.
func Info(tag, msg string) {
	line(infoColor, tag, msg)
}

// Success logs a completed operation.
func Success(tag, msg string) {
	line(successColor, tag, "✓ "+msg)
}

// Warn logs a recoverable problem.
func Warn(tag, msg string) {
	line(warnColor, tag, msg)
}

// Error logs a failure.
func Error(tag, msg string) {
	line(errorColor, tag, msg)
}

// Debug logs a diagnostic message when debug output is enabled.
func Debug(tag, msg string) {
	if debugEnabled.Load() {
		line(debugColor, tag, msg)
	}
}

// Banner prints the startup banner.
func Banner(version string) {
	bannerColor.Println("┌──────────────────────────────┐")
	bannerColor.Printf("│  Sphere Survey  %-12s │\n", version)
	bannerColor.Println("└──────────────────────────────┘")
}

// Section prints a visual divider for a named phase.
func Section(name string) {
	bannerColor.Printf("── %s ──\n", name)
}

// Stats prints a key/value pair aligned for summary blocks.
func Stats(key string, value interface{}) {
	fmt.Printf("  %-24s %v\n", key+":", value)
}
