package sonny

import (
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

const maxInt16 = math.MaxInt16

// WriteWAV encodes samples as mono 16 bit PCM, clipping to [-1, 1]. NaN is
// written as silence.
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		if math.IsNaN(s) {
			continue
		}
		buf.Data[i] = int(math.Round(max(-1, min(1, s)) * maxInt16))
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "writing wav")
	}
	return errors.Wrap(enc.Close(), "closing wav")
}
