// Command dashboard runs the candidate tracker: an HTTP API over a live,
// realtime-synchronized candidate list.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
