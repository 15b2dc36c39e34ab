//go:build !linux && !darwin && !freebsd && !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(
		os.Stderr,
		"procalert is only supported on Linux, macOS, Windows, and FreeBSD.\n\nIt needs a process table to sample, and none is available on this platform.",
	)
	os.Exit(1)
}
