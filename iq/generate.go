package iq

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// GenerateQPSK returns n unit-magnitude QPSK symbols (45, 135, 225 and 315
// degrees) with complex white Gaussian noise of the given total power added.
// The same seed always produces the same recording.
func GenerateQPSK(n int, noisePower float64, seed uint64) Samples {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)

	// unity-power complex noise has N(0, 1/2) on each component
	noise := distuv.Normal{Mu: 0, Sigma: math.Sqrt(noisePower / 2), Src: src}

	samples := make(Samples, n)
	for i := range samples {
		deg := float64(rng.IntN(4))*90 + 45
		rad := deg * math.Pi / 180
		re := math.Cos(rad) + noise.Rand()
		im := math.Sin(rad) + noise.Rand()
		samples[i] = complex(float32(re), float32(im))
	}
	return samples
}

// GenerateTone returns n samples of the complex exponential exp(2πi·f·t) at
// sample rate fs, scaled by amplitude.
func GenerateTone(n int, freq, sampleRate, amplitude float64) Samples {
	samples := make(Samples, n)
	for i := range samples {
		phase := 2 * math.Pi * freq * float64(i) / sampleRate
		samples[i] = complex(float32(amplitude*math.Cos(phase)), float32(amplitude*math.Sin(phase)))
	}
	return samples
}

// GenerateBinTone is GenerateTone at exactly FFT bin k of an n-point frame,
// so the tone completes k whole cycles per frame.
func GenerateBinTone(n, frameSize, k int, amplitude float64) Samples {
	samples := make(Samples, n)
	for i := range samples {
		phase := 2 * math.Pi * float64(k) * float64(i) / float64(frameSize)
		samples[i] = complex(float32(amplitude*math.Cos(phase)), float32(amplitude*math.Sin(phase)))
	}
	return samples
}
