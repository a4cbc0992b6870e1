//go:build unix

package main

import "golang.org/x/sys/unix"

// execProgram replaces the acetune process with path.
var execProgram = unix.Exec
