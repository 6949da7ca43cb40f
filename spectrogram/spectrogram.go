package spectrogram

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"

	"iq-spectrogram/iq"
)

// Epsilon is added to every power value before taking the logarithm so that
// empty bins come out at 10·log10(Epsilon) = -120 dB instead of -Inf.
const Epsilon = 1e-12

var (
	ErrInsufficientSamples = errors.New("insufficient samples")
	// ErrInvalidSamples is returned for buffers holding NaN or infinite values.
	ErrInvalidSamples = errors.New("non-finite sample value")
)

// transformer is a complex-to-complex forward DFT of a fixed length. A
// transformer is owned by one goroutine at a time.
type transformer interface {
	coefficients(dst, seq []complex128) []complex128
}

type gonumFFT struct {
	plan *fourier.CmplxFFT
}

func (g gonumFFT) coefficients(dst, seq []complex128) []complex128 {
	return g.plan.Coefficients(dst, seq)
}

type godspFFT struct{}

func (godspFFT) coefficients(dst, seq []complex128) []complex128 {
	return append(dst[:0], fft.FFT(seq)...)
}

func newTransformer(b Backend, n int) transformer {
	if b == BackendGoDSP {
		return godspFFT{}
	}
	return gonumFFT{plan: fourier.NewCmplxFFT(n)}
}

// Compute slices samples into overlapping frames, takes the FFT of each frame
// under a rectangular window, centres the zero-frequency bin and converts the
// scaled power of every bin to decibels.
func Compute(samples iq.Samples, cfg Config) (*PowerMatrix, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(samples) < cfg.FrameSize {
		return nil, fmt.Errorf("%w: have %d, need at least %d for one frame",
			ErrInsufficientSamples, len(samples), cfg.FrameSize)
	}
	if err := cfg.CheckSize(len(samples)); err != nil {
		return nil, err
	}
	if i := firstNonFinite(samples); i >= 0 {
		return nil, fmt.Errorf("%w: sample %d is %v", ErrInvalidSamples, i, samples[i])
	}

	step := cfg.Step()
	numFrames := FrameCount(len(samples), cfg.FrameSize, cfg.Overlap)

	m := &PowerMatrix{
		Bins:       cfg.FrameSize,
		Frames:     numFrames,
		Data:       make([]float64, numFrames*cfg.FrameSize),
		SampleRate: cfg.SampleRate,
		FrameSize:  cfg.FrameSize,
		Step:       step,
	}

	scale := powerScale(cfg)

	workers := cfg.Workers
	if workers > numFrames {
		workers = numFrames
	}
	if workers <= 1 {
		f := newFrameWorker(cfg, scale)
		for i := 0; i < numFrames; i++ {
			f.process(samples, m, i)
		}
		return m, nil
	}

	jobs := make(chan int, numFrames)
	for i := 0; i < numFrames; i++ {
		jobs <- i
	}
	close(jobs)

	// every frame index is written by exactly one worker, into its own row
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f := newFrameWorker(cfg, scale)
			for i := range jobs {
				f.process(samples, m, i)
			}
		}()
	}
	wg.Wait()

	return m, nil
}

func firstNonFinite(samples iq.Samples) int {
	for i, s := range samples {
		re, im := float64(real(s)), float64(imag(s))
		if math.IsNaN(re) || math.IsInf(re, 0) || math.IsNaN(im) || math.IsInf(im, 0) {
			return i
		}
	}
	return -1
}

func powerScale(cfg Config) float64 {
	switch cfg.Scaling {
	case ScalingMagnitude:
		return 1 / float64(cfg.FrameSize)
	case ScalingPower:
		return 1
	default:
		return 1 / (cfg.SampleRate * float64(cfg.FrameSize))
	}
}

// frameWorker holds the per-goroutine FFT plan and scratch buffers.
type frameWorker struct {
	fft    transformer
	frame  []complex128
	coeffs []complex128
	scale  float64
}

func newFrameWorker(cfg Config, scale float64) *frameWorker {
	return &frameWorker{
		fft:    newTransformer(cfg.Backend, cfg.FrameSize),
		frame:  make([]complex128, cfg.FrameSize),
		coeffs: make([]complex128, cfg.FrameSize),
		scale:  scale,
	}
}

func (w *frameWorker) process(samples iq.Samples, m *PowerMatrix, frameIdx int) {
	n := m.FrameSize
	start := frameIdx * m.Step

	// rectangular window: samples go in untouched
	for j, s := range samples[start : start+n] {
		w.frame[j] = complex128(s)
	}

	w.coeffs = w.fft.coefficients(w.coeffs, w.frame)

	row := m.Frame(frameIdx)
	for i := range row {
		c := w.coeffs[unshiftIdx(i, n)]
		power := (real(c)*real(c) + imag(c)*imag(c)) * w.scale
		row[i] = 10 * math.Log10(power+Epsilon)
	}
}

// unshiftIdx maps position i of the centred spectrum back to the FFT output
// index, so index 0 is -fs/2 and index n-1 is just below +fs/2.
func unshiftIdx(i, n int) int {
	return (i + (n+1)/2) % n
}

// shiftIdx is the inverse of unshiftIdx.
func shiftIdx(k, n int) int {
	k %= n
	if k < 0 {
		k += n
	}
	return (k + n/2) % n
}
