// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"runtime"

	"equalizer/cmd"
	"equalizer/internal/log"
	"equalizer/pkg/build"
)

// main runs the eq command line. Live processing happens on the PortAudio
// callback thread; everything else (file processing, the panel, level
// publishing) is cold path.
func main() {
	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	// One thread for the audio callback, one for the UI and I/O.
	runtime.GOMAXPROCS(2)

	if err := cmd.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
