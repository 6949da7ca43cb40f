package core

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iq-spectrogram/db"
	"iq-spectrogram/iq"
	"iq-spectrogram/render"
	"iq-spectrogram/spectrogram"
)

func TestComputeSpectrogram(t *testing.T) {
	data := iq.Encode(iq.GenerateQPSK(10000, 0.01, 42))

	res, err := ComputeSpectrogram(data, spectrogram.DefaultConfig(), render.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 10000, res.Samples)
	assert.Zero(t, res.Dropped)
	assert.Equal(t, 18, res.Matrix.Frames)
	assert.Equal(t, 1024, res.Matrix.Bins)

	img, err := png.Decode(bytes.NewReader(res.PNG))
	require.NoError(t, err)
	assert.Equal(t, 18, img.Bounds().Dx())
	assert.Equal(t, 1024, img.Bounds().Dy())

	lo, hi := res.MinMax()
	assert.Less(t, lo, hi)
}

func TestComputeSpectrogramDeterministic(t *testing.T) {
	data := iq.Encode(iq.GenerateQPSK(4096, 0.01, 7))

	cfg := spectrogram.DefaultConfig()
	first, err := ComputeSpectrogram(data, cfg, render.DefaultOptions())
	require.NoError(t, err)

	cfg.Workers = 4
	second, err := ComputeSpectrogram(data, cfg, render.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first.PNG, second.PNG)
}

func TestComputeSpectrogramTruncated(t *testing.T) {
	data := append(iq.Encode(iq.GenerateQPSK(2048, 0.01, 3)), 1, 2, 3)

	res, err := ComputeSpectrogram(data, spectrogram.DefaultConfig(), render.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2048, res.Samples)
	assert.Equal(t, 3, res.Dropped)

	_, err = ComputeStrict(data, spectrogram.DefaultConfig(), render.DefaultOptions())
	assert.ErrorIs(t, err, iq.ErrTruncated)
	assert.Equal(t, KindDecodeError, ErrorKind(err))

	_, err = ComputeStrict(data[:len(data)-3], spectrogram.DefaultConfig(), render.DefaultOptions())
	assert.NoError(t, err)
}

func TestComputeSpectrogramErrors(t *testing.T) {
	valid := iq.Encode(iq.GenerateQPSK(2048, 0.01, 5))

	badOverlap := spectrogram.DefaultConfig()
	badOverlap.Overlap = badOverlap.FrameSize

	badScale := render.DefaultOptions()
	badScale.Scale = render.Scale{Fixed: true, MinDB: 0, MaxDB: -10}

	tests := []struct {
		name string
		data []byte
		cfg  spectrogram.Config
		opts render.Options
		kind string
	}{
		{"empty buffer", nil, spectrogram.DefaultConfig(), render.DefaultOptions(), KindInsufficientSamples},
		{"one sample short", valid[:1023*iq.SampleSize], spectrogram.DefaultConfig(), render.DefaultOptions(), KindInsufficientSamples},
		{"partial sample only", []byte{1, 2, 3}, spectrogram.DefaultConfig(), render.DefaultOptions(), KindInsufficientSamples},
		{"overlap equals frame", valid, badOverlap, render.DefaultOptions(), KindInvalidConfig},
		{"inverted fixed scale", valid, spectrogram.DefaultConfig(), badScale, KindInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputeSpectrogram(tt.data, tt.cfg, tt.opts)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.kind, ErrorKind(err))
		})
	}
}

func TestComputeSpectrogramNonFinite(t *testing.T) {
	samples := iq.GenerateBinTone(2048, 1024, 100, 1)
	samples[10] = complex(float32(math.Inf(1)), 0)

	res, err := ComputeSpectrogram(iq.Encode(samples), spectrogram.DefaultConfig(), render.DefaultOptions())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, KindDecodeError, ErrorKind(err))
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("disk full"), ""},
		{fmt.Errorf("%w: overlap", spectrogram.ErrInvalidConfig), KindInvalidConfig},
		{render.ErrInvalidOptions, KindInvalidConfig},
		{fmt.Errorf("wrapped: %w", spectrogram.ErrInsufficientSamples), KindInsufficientSamples},
		{render.ErrEmptyMatrix, KindEmptyMatrix},
		{iq.ErrTruncated, KindDecodeError},
		{iq.ErrUnsupportedDatatype, KindDecodeError},
		{fmt.Errorf("%w: sample 3 is (NaN+0i)", spectrogram.ErrInvalidSamples), KindDecodeError},
		{db.ErrNotFound, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}

func TestRenderBlob(t *testing.T) {
	store, err := db.NewFSClient(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)
	defer store.Close()

	data := iq.Encode(iq.GenerateBinTone(4096, 1024, 64, 1))
	id, err := store.Store(data, "tone.iq")
	require.NoError(t, err)

	res, err := RenderBlob(store, id, spectrogram.DefaultConfig(), render.DefaultOptions())
	require.NoError(t, err)

	direct, err := ComputeSpectrogram(data, spectrogram.DefaultConfig(), render.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, direct.PNG, res.PNG)

	want := res.Matrix.ShiftedBin(64)
	for _, bin := range res.Matrix.PeakBins() {
		assert.Equal(t, want, bin)
	}

	_, err = RenderBlob(store, "nope", spectrogram.DefaultConfig(), render.DefaultOptions())
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Empty(t, ErrorKind(err))
}
