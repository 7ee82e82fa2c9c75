//go:build linux || android

package main

import "github.com/pkg/errors"

// don't import nor compile sdl on linux/android to avoid slow compile on SBCs and mobile
// portaudio is known to work well as a backend so is sufficient
func setupSDL(float64) (soundcard, error) {
	return soundcard{}, errors.New("SDL backend not available")
}
