package main

import (
	"math"

	"github.com/pkg/errors"
)

// frames handed to the soundcard per write
const writeBufferLen = 1024

// soundcard plays a rendered signal, then releases the device.
type soundcard struct {
	info string
	play func(samples []float64) error
	cln  func()
}

// playback opens the chosen backend, falling back to the other one.
func playback(backend string, samples []float64, sampleRate float64) error {
	setups := []func(float64) (soundcard, error){setupPortaudio, setupSDL}
	if backend == "sdl" {
		setups[0], setups[1] = setups[1], setups[0]
	}
	var errs []error
	for _, setup := range setups {
		sc, err := setup(sampleRate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defer sc.cln()
		pf("%s\n", sc.info)
		return sc.play(samples)
	}
	return errors.Errorf("no audio backend available: %v", errs)
}

// clip limits a sample to [-1, 1], silencing NaN
func clip(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return max(-1, min(1, x))
}
