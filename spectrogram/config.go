package spectrogram

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"iq-spectrogram/utils"
)

var ErrInvalidConfig = errors.New("invalid spectrogram config")

// Scaling selects how |X|² of each FFT bin is normalised before conversion
// to decibels. The choice only shifts every value by the same constant.
type Scaling int

const (
	// ScalingDensity is |X|²/(fs·N), the power spectral density of a
	// rectangular window in units/Hz.
	ScalingDensity Scaling = iota
	// ScalingMagnitude is |X|²/N.
	ScalingMagnitude
	// ScalingPower is the raw |X|².
	ScalingPower
)

func (s Scaling) String() string {
	switch s {
	case ScalingDensity:
		return "density"
	case ScalingMagnitude:
		return "magnitude"
	case ScalingPower:
		return "power"
	default:
		return fmt.Sprintf("Scaling(%d)", int(s))
	}
}

// ParseScaling accepts the names returned by Scaling.String.
func ParseScaling(name string) (Scaling, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "density", "psd":
		return ScalingDensity, nil
	case "magnitude":
		return ScalingMagnitude, nil
	case "power":
		return ScalingPower, nil
	}
	return 0, fmt.Errorf("%w: unknown scaling %q", ErrInvalidConfig, name)
}

// Backend selects the FFT implementation.
type Backend int

const (
	BackendGonum Backend = iota
	BackendGoDSP
)

func (b Backend) String() string {
	switch b {
	case BackendGonum:
		return "gonum"
	case BackendGoDSP:
		return "godsp"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gonum", "":
		return BackendGonum, nil
	case "godsp", "go-dsp":
		return BackendGoDSP, nil
	}
	return 0, fmt.Errorf("%w: unknown FFT backend %q", ErrInvalidConfig, name)
}

// Config controls framing and scaling of the short-time Fourier transform.
type Config struct {
	SampleRate float64 // Hz, used for the frequency/time axes and density scaling
	FrameSize  int     // FFT length in samples, a power of two is fastest
	Overlap    int     // samples shared by consecutive frames, 0 <= Overlap < FrameSize
	Scaling    Scaling
	Workers    int // frames computed concurrently, <= 1 runs on the calling goroutine
	Backend    Backend
	MaxCells   int // upper bound on Frames*Bins, 0 means unbounded
}

// DefaultMaxCells bounds a spectrogram at 64Mi bins: 512 MiB of float64
// power values plus a 256 MiB RGBA image.
const DefaultMaxCells = 1 << 26

// DefaultConfig is the usual capture setup:
// 1 MS/s, 1024-point frames, 50% overlap.
func DefaultConfig() Config {
	return Config{
		SampleRate: 1e6,
		FrameSize:  1024,
		Overlap:    512,
		Scaling:    ScalingDensity,
		Workers:    1,
		Backend:    BackendGonum,
		MaxCells:   DefaultMaxCells,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies SPEC_* environment
// overrides. Unknown scaling or backend names are ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.SampleRate = utils.GetEnvFloat("SPEC_SAMPLE_RATE", cfg.SampleRate)
	cfg.FrameSize = utils.GetEnvInt("SPEC_FRAME_SIZE", cfg.FrameSize)
	cfg.Overlap = utils.GetEnvInt("SPEC_OVERLAP", cfg.Overlap)
	cfg.Workers = utils.GetEnvInt("SPEC_WORKERS", cfg.Workers)
	cfg.MaxCells = utils.GetEnvInt("SPEC_MAX_CELLS", cfg.MaxCells)

	if s, err := ParseScaling(utils.GetEnv("SPEC_SCALING", cfg.Scaling.String())); err == nil {
		cfg.Scaling = s
	}
	if b, err := ParseBackend(utils.GetEnv("SPEC_FFT_BACKEND")); err == nil {
		cfg.Backend = b
	}
	return cfg
}

// Step is the hop between the starts of consecutive frames.
func (c Config) Step() int {
	return c.FrameSize - c.Overlap
}

func (c Config) Validate() error {
	if c.FrameSize < 2 {
		return fmt.Errorf("%w: frame size %d, need at least 2", ErrInvalidConfig, c.FrameSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.FrameSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, c.Overlap, c.FrameSize)
	}
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("%w: sample rate %v must be positive", ErrInvalidConfig, c.SampleRate)
	}
	if c.MaxCells < 0 {
		return fmt.Errorf("%w: max cells %d must not be negative", ErrInvalidConfig, c.MaxCells)
	}
	if c.MaxCells > 0 && c.FrameSize > c.MaxCells {
		return fmt.Errorf("%w: frame size %d exceeds the %d cell limit", ErrInvalidConfig, c.FrameSize, c.MaxCells)
	}
	switch c.Scaling {
	case ScalingDensity, ScalingMagnitude, ScalingPower:
	default:
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.Scaling)
	}
	switch c.Backend {
	case BackendGonum, BackendGoDSP:
	default:
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.Backend)
	}
	return nil
}

// CheckSize reports whether an n-sample buffer fits within MaxCells.
func (c Config) CheckSize(n int) error {
	frames := FrameCount(n, c.FrameSize, c.Overlap)
	if c.MaxCells > 0 && frames > c.MaxCells/c.FrameSize {
		return fmt.Errorf("%w: %d frames x %d bins exceeds the %d cell limit",
			ErrInvalidConfig, frames, c.FrameSize, c.MaxCells)
	}
	return nil
}

// FrameCount is the number of whole frames an n-sample buffer yields:
// floor((n-frameSize)/step)+1, or 0 when n < frameSize.
func FrameCount(n, frameSize, overlap int) int {
	step := frameSize - overlap
	if frameSize <= 0 || step <= 0 || n < frameSize {
		return 0
	}
	return (n-frameSize)/step + 1
}
