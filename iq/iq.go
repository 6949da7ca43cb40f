// Package iq reads and writes complex baseband recordings stored as
// interleaved little-endian float32 pairs (SigMF datatype cf32_le).
package iq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// SampleSize is the encoded size of one sample: 4 bytes real, 4 bytes imaginary.
const SampleSize = 8

// ErrTruncated is returned by DecodeStrict when the input ends in a partial sample.
var ErrTruncated = errors.New("truncated sample data")

// Samples is a decoded sample buffer in file order.
type Samples []complex64

// Decode interprets data as cf32_le samples. Trailing bytes that do not form
// a whole sample are dropped.
func Decode(data []byte) Samples {
	n := len(data) / SampleSize
	samples := make(Samples, n)
	for i := range samples {
		off := i * SampleSize
		re := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))
		samples[i] = complex(re, im)
	}
	return samples
}

// DecodeStrict is Decode but fails with ErrTruncated instead of dropping a
// partial trailing sample.
func DecodeStrict(data []byte) (Samples, error) {
	if r := Remainder(data); r != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d (%d left over)",
			ErrTruncated, len(data), SampleSize, r)
	}
	return Decode(data), nil
}

// Remainder is the number of trailing bytes Decode ignores.
func Remainder(data []byte) int {
	return len(data) % SampleSize
}

// Encode is the inverse of Decode.
func Encode(samples Samples) []byte {
	out := make([]byte, len(samples)*SampleSize)
	for i, s := range samples {
		off := i * SampleSize
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(out[off+4:], math.Float32bits(imag(s)))
	}
	return out
}

// ReadFile decodes a raw recording from disk and reports how many trailing
// bytes were dropped.
func ReadFile(path string) (Samples, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read IQ file: %v", err)
	}
	return Decode(data), Remainder(data), nil
}

// WriteFile encodes samples to path.
func WriteFile(path string, samples Samples) error {
	return os.WriteFile(path, Encode(samples), 0o644)
}
