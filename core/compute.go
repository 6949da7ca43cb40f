// Package core ties decoding, the short-time Fourier transform and rendering
// into the single bytes-in, image-out operation the server and CLI expose.
package core

import (
	"errors"
	"fmt"
	"log"
	"time"

	"iq-spectrogram/db"
	"iq-spectrogram/iq"
	"iq-spectrogram/render"
	"iq-spectrogram/spectrogram"
)

// Error kinds reported to clients alongside the message.
const (
	KindInvalidConfig       = "InvalidConfig"
	KindInsufficientSamples = "InsufficientSamples"
	KindEmptyMatrix         = "EmptyMatrix"
	KindDecodeError         = "DecodeError"
)

type Result struct {
	PNG     []byte
	Matrix  *spectrogram.PowerMatrix
	Samples int // whole samples decoded
	Dropped int // trailing bytes ignored by the decoder
	Elapsed time.Duration
}

// MinMax is the dB range the image was normalised against.
func (r *Result) MinMax() (float64, float64) {
	return r.Matrix.MinMax()
}

// ComputeSpectrogram decodes data as cf32_le, computes its power spectrogram
// under cfg and renders it to PNG. A partial trailing sample is dropped and
// reported in Result.Dropped.
func ComputeSpectrogram(data []byte, cfg spectrogram.Config, opts render.Options) (*Result, error) {
	return compute(data, cfg, opts, false)
}

// ComputeStrict is ComputeSpectrogram but rejects input whose length is not a
// whole number of samples with a DecodeError.
func ComputeStrict(data []byte, cfg spectrogram.Config, opts render.Options) (*Result, error) {
	return compute(data, cfg, opts, true)
}

func compute(data []byte, cfg spectrogram.Config, opts render.Options, strict bool) (*Result, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var samples iq.Samples
	if strict {
		var err error
		if samples, err = iq.DecodeStrict(data); err != nil {
			return nil, err
		}
	} else {
		samples = iq.Decode(data)
	}

	dropped := iq.Remainder(data)
	if dropped > 0 {
		log.Printf("[compute] warning: ignoring %d trailing bytes of a partial sample", dropped)
	}

	matrix, err := spectrogram.Compute(samples, cfg)
	if err != nil {
		return nil, err
	}

	img, err := render.PNG(matrix, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		PNG:     img,
		Matrix:  matrix,
		Samples: len(samples),
		Dropped: dropped,
		Elapsed: time.Since(start),
	}
	log.Printf("[compute] %d samples -> %d frames x %d bins in %s",
		res.Samples, matrix.Frames, matrix.Bins, res.Elapsed)
	return res, nil
}

// RenderBlob fetches a stored recording by id and computes its spectrogram.
func RenderBlob(store db.BlobStore, id string, cfg spectrogram.Config, opts render.Options) (*Result, error) {
	data, err := store.Fetch(id)
	if err != nil {
		return nil, fmt.Errorf("fetching blob: %w", err)
	}
	return ComputeSpectrogram(data, cfg, opts)
}

// ErrorKind classifies err as one of the Kind constants, or "" when it is
// not a pipeline error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, spectrogram.ErrInvalidConfig), errors.Is(err, render.ErrInvalidOptions):
		return KindInvalidConfig
	case errors.Is(err, spectrogram.ErrInsufficientSamples):
		return KindInsufficientSamples
	case errors.Is(err, render.ErrEmptyMatrix):
		return KindEmptyMatrix
	case errors.Is(err, iq.ErrTruncated), errors.Is(err, iq.ErrUnsupportedDatatype),
		errors.Is(err, spectrogram.ErrInvalidSamples):
		return KindDecodeError
	}
	return ""
}
