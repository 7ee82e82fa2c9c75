//go:build !(linux || android)

// sdl2 backend
package main

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

func setupSDL(sampleRate float64) (soundcard, error) {
	sc := soundcard{}
	if err := sdl.Init(sdl.INIT_AUDIO); err != nil {
		return sc, errors.Wrap(err, "unable to initialise sdl")
	}
	spec := &sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   sdl.AUDIO_S16LSB, // other formats untested
		Channels: 1,
		Samples:  writeBufferLen,
	}
	dev, err := sdl.OpenAudioDevice("", not, spec, nil, 0)
	if err != nil {
		sdl.Quit()
		return sc, errors.Wrap(err, "unable to open sdl audio")
	}
	sc.info = sf(`SDL audio backend
	Sample rate: %d
	Format:      16bit
	Channels:    %d
`,
		spec.Freq,
		spec.Channels,
	)
	sc.cln = func() {
		sdl.CloseAudioDevice(dev)
		sdl.Quit()
	}
	sc.play = func(samples []float64) error {
		data := make([]byte, 2*len(samples))
		for i, s := range samples {
			binary.LittleEndian.PutUint16(data[2*i:], uint16(int16(clip(s)*math.MaxInt16)))
		}
		if err := sdl.QueueAudio(dev, data); err != nil {
			return errors.Wrap(err, "queueing audio")
		}
		sdl.PauseAudioDevice(dev, not)
		for sdl.GetQueuedAudioSize(dev) > 0 {
			time.Sleep(10 * time.Millisecond)
		}
		return nil
	}
	return sc, nil
}
