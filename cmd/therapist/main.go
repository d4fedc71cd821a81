package main

import (
	"errors"
	"os"

	"github.com/fatih/color"
)

var (
	// Version information (set via ldflags)
	Version = "dev"

	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
)

// reportedError has already been shown to the user; main only sets the
// exit status for it.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
