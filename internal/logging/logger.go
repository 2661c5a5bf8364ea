// Package logging provides structured logging helpers on top of slog,
// plus panic recovery and LSP wire-message dumps for debugging.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

const persistKeyArg = "$_persist"

func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// InfoPersist logs a message that subscribers should keep visible
// instead of letting it scroll away.
func InfoPersist(msg string, args ...any) {
	args = append(args, persistKeyArg, true)
	slog.Info(msg, args...)
}

func WarnPersist(msg string, args ...any) {
	args = append(args, persistKeyArg, true)
	slog.Warn(msg, args...)
}

func ErrorPersist(msg string, args ...any) {
	args = append(args, persistKeyArg, true)
	slog.Error(msg, args...)
}

// RecoverPanic recovers from a panic in the calling goroutine, writes a
// crash report file, and runs the optional cleanup function.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		ErrorPersist(fmt.Sprintf("Panic in %s: %v", name, r))

		timestamp := time.Now().Format("20060102-150405")
		filename := fmt.Sprintf("lspdock-panic-%s-%s.log", name, timestamp)

		file, err := os.Create(filename)
		if err != nil {
			ErrorPersist(fmt.Sprintf("Failed to create panic log: %v", err))
		} else {
			defer file.Close()
			fmt.Fprintf(file, "Panic in %s: %v\n\n", name, r)
			fmt.Fprintf(file, "Time: %s\n\n", time.Now().Format(time.RFC3339))
			fmt.Fprintf(file, "Stack Trace:\n%s\n", debug.Stack())
			InfoPersist(fmt.Sprintf("Panic details written to %s", filename))
		}

		if cleanup != nil {
			cleanup()
		}
	}
}
