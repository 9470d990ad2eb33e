package main

import (
	"fmt"
	"os"
)

// Human-facing status goes to stderr so piped stdout (catalog listings,
// material exports) stays machine-clean.

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + ansiReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(ansiGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(ansiRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(ansiYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

// printStatus renders one aligned "label: value" line.
func printStatus(label, format string, args ...any) {
	padded := fmt.Sprintf("%-22s", label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(ansiBold, padded), fmt.Sprintf(format, args...))
}
