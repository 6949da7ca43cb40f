package spectrogram

import (
	"gonum.org/v1/gonum/floats"
)

// PowerMatrix is a decibel-scaled spectrogram. Frame f occupies
// Data[f*Bins:(f+1)*Bins]; bin 0 is -SampleRate/2 and bin Bins-1 is the
// last bin below +SampleRate/2.
type PowerMatrix struct {
	Bins       int
	Frames     int
	Data       []float64
	SampleRate float64
	FrameSize  int
	Step       int
}

// Peak is the strongest bin of one frame.
type Peak struct {
	Frame int
	Bin   int
	Freq  float64 // Hz, relative to the capture centre frequency
	Time  float64 // seconds, centre of the frame
	Power float64 // dB
}

func (m *PowerMatrix) Empty() bool {
	return m == nil || m.Bins == 0 || m.Frames == 0 || len(m.Data) < m.Bins*m.Frames
}

// At returns the power of one bin in one frame.
func (m *PowerMatrix) At(bin, frame int) float64 {
	return m.Data[frame*m.Bins+bin]
}

// Frame returns the bins of frame f. The slice aliases Data.
func (m *PowerMatrix) Frame(f int) []float64 {
	return m.Data[f*m.Bins : (f+1)*m.Bins]
}

// Frequencies returns the centre frequency of every bin in Hz.
func (m *PowerMatrix) Frequencies() []float64 {
	freqs := make([]float64, m.Bins)
	res := m.SampleRate / float64(m.Bins)
	half := m.Bins / 2
	for i := range freqs {
		freqs[i] = float64(i-half) * res
	}
	return freqs
}

// Times returns the centre time of every frame in seconds.
func (m *PowerMatrix) Times() []float64 {
	times := make([]float64, m.Frames)
	for f := range times {
		times[f] = (float64(f*m.Step) + float64(m.FrameSize)/2) / m.SampleRate
	}
	return times
}

// ShiftedBin returns the row a raw FFT bin k (negative k counts down from
// the top) occupies after the zero-frequency shift.
func (m *PowerMatrix) ShiftedBin(k int) int {
	return shiftIdx(k, m.Bins)
}

func (m *PowerMatrix) MinMax() (float64, float64) {
	if m.Empty() {
		return 0, 0
	}
	data := m.Data[:m.Bins*m.Frames]
	return floats.Min(data), floats.Max(data)
}

// PeakBins returns the index of the strongest bin of each frame.
func (m *PowerMatrix) PeakBins() []int {
	bins := make([]int, m.Frames)
	for f := range bins {
		bins[f] = floats.MaxIdx(m.Frame(f))
	}
	return bins
}

// Peaks is PeakBins with the bins resolved to Hz and seconds.
func (m *PowerMatrix) Peaks() []Peak {
	freqs := m.Frequencies()
	times := m.Times()

	peaks := make([]Peak, m.Frames)
	for f, bin := range m.PeakBins() {
		peaks[f] = Peak{
			Frame: f,
			Bin:   bin,
			Freq:  freqs[bin],
			Time:  times[f],
			Power: m.At(bin, f),
		}
	}
	return peaks
}
