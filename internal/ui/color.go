// Package ui provides the CLI's colored status output, respecting
// --no-color and the NO_COLOR environment variable.
package ui

import (
	"os"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Green  = color.New(color.FgGreen)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
)

// Init configures global color output based on the --no-color flag and
// the NO_COLOR environment variable.
func Init(noColor bool) {
	color.NoColor = noColor || os.Getenv("NO_COLOR") != ""
}

func Success(msg string) { _, _ = Green.Println("✓ " + msg) }
func Warning(msg string) { _, _ = Yellow.Println("⚠ " + msg) }
func Error(msg string)   { _, _ = Red.Println("✗ " + msg) }
func Info(msg string)    { _, _ = Cyan.Println("ℹ " + msg) }

func Successf(format string, args ...any) { _, _ = Green.Printf("✓ "+format+"\n", args...) }
func Errorf(format string, args ...any)   { _, _ = Red.Printf("✗ "+format+"\n", args...) }
func Infof(format string, args ...any)    { _, _ = Cyan.Printf("ℹ "+format+"\n", args...) }

// Label returns a bold-formatted label for inline use.
func Label(text string) string { return Bold.Sprint(text) }
