// Command mobile-clean finds and removes junk and large files on a mobile
// storage volume, either interactively, on a schedule, or behind an HTTP API.
package main

import "os"

// Populated by -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(execute())
}
