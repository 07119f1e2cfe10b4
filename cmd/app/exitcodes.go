package main

import (
	"fmt"
	"os"

	"github.com/arumata/nautback/internal/usecase"
)

const (
	exitSuccess       = 0
	exitCriticalError = 1
	exitLockBusy      = 76
	exitUsageError    = 2
	exitInterrupted   = 130
)

func mapExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	switch usecase.KindOf(err) {
	case usecase.KindInvalidSelection, usecase.KindInvalidArgument:
		return exitUsageError
	case usecase.KindLockBusy:
		return exitLockBusy
	case usecase.KindInterrupted:
		return exitInterrupted
	default:
		return exitCriticalError
	}
}

// handleCmdError prints error to stderr and sets exit code.
func handleCmdError(exitCode *int, err error) {
	if err == nil {
		*exitCode = exitSuccess
		return
	}
	fmt.Fprintln(os.Stderr, err)
	*exitCode = mapExitCode(err)
}
