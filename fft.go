package sonny

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// fft transforms the whole window as one real signal. Every sample of the
// result is the same Array(frequencies, magnitudes), with bins 0 to N/2 and
// magnitudes divided by the largest one.
func (ev *Evaluator) fft(col Column, w Window) (Column, error) {
	n := len(col)
	if n == 0 {
		return col, nil
	}
	signal := make([]float64, n)
	for k, v := range col {
		if v.IsArray() {
			return nil, newError(ErrShape, "fft takes a series of numbers, sample %d is %v", k, v)
		}
		signal[k] = v.Float()
	}
	spectrum := fft.FFTReal(signal)

	bins := n/2 + 1
	freqs := make([]float64, bins)
	mags := make([]float64, bins)
	var peak float64
	for k := range bins {
		freqs[k] = float64(k) * w.SampleRate / float64(n)
		mags[k] = cmplx.Abs(spectrum[k])
		peak = max(peak, mags[k])
	}
	if peak > 0 {
		for k := range mags {
			mags[k] /= peak
		}
	}
	return fill(n, Array(Numbers(freqs...), Numbers(mags...))), nil
}
