package main

import "os"

// Exit codes so scripts can distinguish failure modes without parsing text.
const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitUsage       = 2
	ExitFetchFailed = 3
	ExitNoSourceDir = 4
	ExitCancelled   = 130
)

func exitWithCode(code int) {
	os.Exit(code)
}
