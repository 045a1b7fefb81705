// SPDX-License-Identifier: MIT

// Command sonoscope analyzes a live or recorded audio stream into a
// continuously updated psychoacoustic feature vector and serves it to
// terminal, WebSocket, and UDP consumers.
package main

import (
	"sonoscope/cmd"
	"sonoscope/internal/log"
	"sonoscope/pkg/build"
)

func main() {
	// Build metadata is injected with -ldflags; startup fails without it.
	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
