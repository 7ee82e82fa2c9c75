// portaudio backend
package main

import (
	"strings"

	pa "github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

type format float32

func setupPortaudio(sampleRate float64) (soundcard, error) {
	sc := soundcard{}
	if err := pa.Initialize(); err != nil {
		return sc, errors.Wrap(err, "unable to setup portaudio")
	}
	d, err := pa.DefaultOutputDevice()
	if err != nil {
		pa.Terminate()
		return sc, errors.Wrap(err, "error opening default output via portaudio")
	}
	buf := make([]format, writeBufferLen)
	stream, err := pa.OpenDefaultStream(0, 1, sampleRate, writeBufferLen, &buf)
	if err != nil {
		pa.Terminate()
		return sc, errors.Wrap(err, "unable to open portaudio stream")
	}
	api, _ := pa.DefaultHostApi()
	apiType := ""
	if api != nil {
		apiType = api.Type.String()
	}
	sc.info = sf(`%s
Audio output: %s %s
default SR: %.f
`,
		strings.Split(pa.VersionText(), ",")[0],
		apiType,
		d.Name,
		d.DefaultSampleRate,
	)
	sc.cln = func() {
		stream.Close()
		if err := pa.Terminate(); err != nil {
			pf("termination error: %s\n", err)
		}
	}
	sc.play = func(samples []float64) error {
		if err := stream.Start(); err != nil {
			return errors.Wrap(err, "starting stream")
		}
		defer stream.Stop()
		for i := 0; i < len(samples); i += writeBufferLen {
			for j := range buf {
				buf[j] = 0
				if i+j < len(samples) {
					buf[j] = format(clip(samples[i+j]))
				}
			}
			if err := stream.Write(); err != nil {
				return errors.Wrap(err, "write error")
			}
		}
		return nil
	}
	return sc, nil
}
