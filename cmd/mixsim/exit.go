package main

import (
	"fmt"
	"os"
)

// osExit wraps os.Exit so tests can intercept process termination: tests
// replace this with a function that panics with exitSentinel, so a call
// to osExit stops execution at the exact call site like a real os.Exit
// would, without tearing down the test binary.
var osExit = os.Exit

// exitSentinel is the panic value used by test overrides of osExit. The
// int value is the exit code.
type exitSentinel int

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	osExit(1)
}
