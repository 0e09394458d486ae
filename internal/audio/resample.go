package audio

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat indicates the source layout cannot be reduced to
// mono 16kHz.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// TargetRate is the sample rate transcription backends expect.
const TargetRate = 16000

// Resample converts interleaved float32 samples at srcRate with the given
// channel count to mono 16kHz. Pure function: deterministic and stateless.
// When the input is already mono 16kHz it is returned unchanged.
func Resample(samples []float32, srcRate, channels int) ([]float32, error) {
	if channels < 1 {
		return nil, fmt.Errorf("channel count %d: %w", channels, ErrUnsupportedFormat)
	}
	if srcRate <= 0 {
		return nil, fmt.Errorf("sample rate %d: %w", srcRate, ErrUnsupportedFormat)
	}

	if channels == 1 && srcRate == TargetRate {
		return samples, nil
	}

	mono := downmix(samples, channels)
	if srcRate == TargetRate {
		return mono, nil
	}
	return resampleLinear(mono, srcRate, TargetRate), nil
}

// downmix averages interleaved channels into mono. A trailing partial
// frame is dropped.
func downmix(samples []float32, channels int) []float32 {
	if channels == 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// resampleLinear converts mono samples between rates using linear
// interpolation. Sufficient for speech fed to whisper; anything fancier
// would need a DSP dependency the rest of the pipeline does not justify.
func resampleLinear(in []float32, fromRate, toRate int) []float32 {
	if len(in) == 0 {
		return nil
	}
	if fromRate == toRate {
		return in
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(in)) / ratio)
	if outLen == 0 {
		outLen = 1
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}
