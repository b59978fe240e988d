package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0 // Grading ran to completion
	ExitHalted  = 1 // A load-bearing check failed and grading stopped early
	ExitError   = 2 // Configuration, runtime or grading rule error
)

// HaltedError indicates that grading stopped at a load-bearing check. The
// partial report has already been written.
type HaltedError struct {
	Reason string
}

func (e *HaltedError) Error() string {
	return "grading halted: " + e.Reason
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var halted *HaltedError
	if errors.As(err, &halted) {
		return ExitHalted
	}
	// All other errors are configuration/runtime errors
	return ExitError
}
